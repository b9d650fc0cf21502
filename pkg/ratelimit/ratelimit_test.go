package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"boxoffice/internal/shared/config"
	"boxoffice/pkg/logger"
)

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:          true,
		WindowDuration:   time.Minute,
		DefaultRequests:  5,
		PublicRequests:   5,
		TicketRequests:   2,
		CheckoutRequests: 1,
		AdminRequests:    5,
		HealthRequests:   5,
		WhitelistedIPs:   []string{"10.0.0.9"},
	}
}

func TestLocalLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(nil, testConfig())
	ctx := t.Context()

	for i := range 2 {
		res, err := rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypeTicket)
		if err != nil || !res.Allowed {
			t.Fatalf("request %d: %+v, %v", i, res, err)
		}
	}
	res, _ := rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypeTicket)
	if res.Allowed {
		t.Error("third ticket request allowed")
	}

	// Other clients and other limit types have their own budget.
	if res, _ := rl.IsAllowed(ctx, "10.0.0.2", RateLimitTypeTicket); !res.Allowed {
		t.Error("second client throttled")
	}
	if res, _ := rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypeDefault); !res.Allowed {
		t.Error("default budget shared with ticket budget")
	}
	for range 5 {
		if res, _ := rl.IsAllowed(ctx, "10.0.0.9", RateLimitTypeCheckout); !res.Allowed {
			t.Fatal("whitelisted client throttled")
		}
	}
}

func TestRateLimitType(t *testing.T) {
	tests := []struct {
		method, path string
		want         RateLimitType
	}{
		{http.MethodGet, "/health", RateLimitTypeHealth},
		{http.MethodPost, "/api/v1/admin/shows", RateLimitTypeAdmin},
		{http.MethodGet, "/api/v1/shows/:id/availability", RateLimitTypePublic},
		{http.MethodGet, "/api/v1/halls/:id", RateLimitTypePublic},
		{http.MethodPost, "/api/v1/tickets", RateLimitTypeDefault},
		{http.MethodGet, "/api/v1/orders", RateLimitTypeDefault},
	}
	for _, tt := range tests {
		if got := getRateLimitType(tt.method, tt.path); got != tt.want {
			t.Errorf("%s %s = %s, want %s", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestForRejectsWith429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(nil, testConfig())
	r := gin.New()
	r.POST("/checkout", For(rl, logger.Discard(), RateLimitTypeCheckout), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [204 429]", codes)
	}
}

func TestLocalBucketsStayBounded(t *testing.T) {
	rl := NewRateLimiter(nil, testConfig())
	rl.maxLocal = 100
	ctx := t.Context()

	for i := range 5000 {
		ip := fmt.Sprintf("198.51.%d.%d", i/256, i%256)
		if _, err := rl.IsAllowed(ctx, ip, RateLimitTypeDefault); err != nil {
			t.Fatalf("IsAllowed(%s): %v", ip, err)
		}
	}
	if n := len(rl.local); n > rl.maxLocal {
		t.Errorf("local buckets = %d, want at most %d", n, rl.maxLocal)
	}

	// A client seen after the flood still gets its own budget.
	res, _ := rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypeCheckout)
	if !res.Allowed {
		t.Error("fresh client throttled after eviction")
	}
}

func TestIdleLocalBucketsArePruned(t *testing.T) {
	rl := NewRateLimiter(nil, testConfig())
	ctx := t.Context()
	for i := range 10 {
		_, _ = rl.IsAllowed(ctx, fmt.Sprintf("10.1.0.%d", i), RateLimitTypeDefault)
	}

	rl.mu.Lock()
	stale := time.Now().Add(-2 * time.Minute)
	for _, b := range rl.local {
		b.lastSeen = stale
	}
	rl.lastPruned = stale
	rl.mu.Unlock()

	_, _ = rl.IsAllowed(ctx, "10.2.0.1", RateLimitTypeDefault)
	if n := len(rl.local); n != 1 {
		t.Errorf("local buckets = %d, want 1", n)
	}
}

func TestForwardedForIgnoredFromUntrustedPeer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(nil, testConfig())
	r := gin.New()
	if err := r.SetTrustedProxies(nil); err != nil {
		t.Fatal(err)
	}
	r.POST("/checkout", For(rl, logger.Discard(), RateLimitTypeCheckout), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.RemoteAddr = "192.0.2.10:4321"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [204 429 429]", codes)
	}
	if n := len(rl.local); n != 1 {
		t.Errorf("local buckets = %d, want 1", n)
	}
}
