package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestReconciliationFailureCarriesPaymentDetails(t *testing.T) {
	prev := gin.Mode()
	gin.SetMode(gin.ReleaseMode)
	defer gin.SetMode(prev)

	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelInfo)
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	l.LogReconciliationFailure(context.Background(), "purchase", "TXN_1_ab", ids, "150.00", "EUR", errors.New("commit failed"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Unmarshal(%q): %v", buf.String(), err)
	}
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", entry["level"])
	}
	if entry["payment_reference"] != "TXN_1_ab" {
		t.Errorf("payment_reference = %v, want TXN_1_ab", entry["payment_reference"])
	}
	if entry["amount"] != "150.00" || entry["currency"] != "EUR" {
		t.Errorf("amount = %v %v, want 150.00 EUR", entry["amount"], entry["currency"])
	}
	got, _ := entry["ticket_ids"].([]any)
	if len(got) != 2 || got[0] != ids[0].String() {
		t.Errorf("ticket_ids = %v, want %v", entry["ticket_ids"], ids)
	}
}

func TestGetLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := getLogLevel(in); got != want {
			t.Errorf("getLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
