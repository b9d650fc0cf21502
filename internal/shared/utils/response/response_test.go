package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"boxoffice/internal/shared/apperr"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"conflict", apperr.Conflict("seat taken"), http.StatusConflict},
		{"not found", apperr.NotFound("no show"), http.StatusNotFound},
		{"validation", apperr.Validation("bad"), http.StatusBadRequest},
		{"external", apperr.External(errors.New("declined"), "capture"), http.StatusBadGateway},
		{"wrapped conflict", fmt.Errorf("purchase: %w", apperr.Conflict("sold")), http.StatusConflict},
		{"reconciliation", &apperr.ReconciliationError{Operation: "purchase", Err: errors.New("commit")}, http.StatusInternalServerError},
		{"unknown", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
