package ratelimit

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/constants"
)

type RateLimitType string

const (
	RateLimitTypeDefault  RateLimitType = "default"
	RateLimitTypePublic   RateLimitType = "public"
	RateLimitTypeTicket   RateLimitType = "ticket"
	RateLimitTypeCheckout RateLimitType = "checkout"
	RateLimitTypeAdmin    RateLimitType = "admin"
	RateLimitTypeHealth   RateLimitType = "health"
)

// Result represents rate limit check result
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

// RateLimiter counts requests per client and limit type. With a Redis client
// the window is shared by every instance; without one each process keeps its
// own token buckets.
type RateLimiter struct {
	client *redis.Client
	config config.RateLimitConfig

	mu         sync.Mutex
	local      map[string]*localBucket
	maxLocal   int
	lastPruned time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// maxLocalBuckets caps the per-process buckets kept without Redis.
const maxLocalBuckets = 10000

func NewRateLimiter(client *redis.Client, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client:   client,
		config:   cfg,
		local:    make(map[string]*localBucket),
		maxLocal: maxLocalBuckets,
	}
}

// IsAllowed records one request of clientIP against limitType.
func (r *RateLimiter) IsAllowed(ctx context.Context, clientIP string, limitType RateLimitType) (*Result, error) {
	limit := r.getLimit(limitType)
	if !r.config.Enabled || r.isWhitelisted(clientIP) || limit <= 0 {
		return &Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetTime: time.Now().Add(r.config.WindowDuration).Unix(),
		}, nil
	}

	key := constants.BuildRateLimitKey(clientIP, string(limitType))
	if r.client == nil {
		return r.checkLocal(key, limit), nil
	}
	return r.checkLimit(ctx, key, limit)
}

// Sliding window over a sorted set. Scores are microseconds; members are
// unique so that requests within the same instant are all counted.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local window_start = tonumber(ARGV[1])
	local now = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_seconds = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current_count = redis.call('ZCARD', key)
	if current_count >= limit then
		redis.call('EXPIRE', key, window_seconds)
		return {current_count + 1, 0}
	end

	redis.call('ZADD', key, now, member)
	redis.call('EXPIRE', key, window_seconds)
	return {current_count + 1, limit - current_count - 1}
`)

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int) (*Result, error) {
	now := time.Now()
	windowStart := now.Add(-r.config.WindowDuration)

	result, err := slidingWindow.Run(ctx, r.client, []string{key},
		windowStart.UnixMicro(),
		now.UnixMicro(),
		limit,
		max(int(r.config.WindowDuration.Seconds()), 1),
		uuid.NewString(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("redis eval failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return nil, fmt.Errorf("unexpected redis response %v", result)
	}
	currentCount, _ := strconv.Atoi(fmt.Sprint(values[0]))
	remaining, _ := strconv.Atoi(fmt.Sprint(values[1]))

	return &Result{
		Allowed:   currentCount <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetTime: now.Add(r.config.WindowDuration).Unix(),
	}, nil
}

func (r *RateLimiter) checkLocal(key string, limit int) *Result {
	now := time.Now()

	r.mu.Lock()
	b, ok := r.local[key]
	if !ok {
		r.pruneLocal(now)
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(r.config.WindowDuration/time.Duration(limit)), limit)}
		r.local[key] = b
	}
	b.lastSeen = now
	r.mu.Unlock()

	allowed := b.limiter.AllowN(now, 1)
	return &Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(int(b.limiter.TokensAt(now)), 0),
		ResetTime: now.Add(r.config.WindowDuration).Unix(),
	}
}

// pruneLocal drops buckets idle for a whole window, which have refilled and
// behave like new ones. If the map is still full, arbitrary buckets go until
// a tenth of the room is free. Callers hold r.mu.
func (r *RateLimiter) pruneLocal(now time.Time) {
	if len(r.local) < r.maxLocal && now.Sub(r.lastPruned) < r.config.WindowDuration {
		return
	}
	r.lastPruned = now
	for k, b := range r.local {
		if now.Sub(b.lastSeen) >= r.config.WindowDuration {
			delete(r.local, k)
		}
	}
	if len(r.local) < r.maxLocal {
		return
	}
	target := r.maxLocal - max(r.maxLocal/10, 1)
	for k := range r.local {
		if len(r.local) <= target {
			break
		}
		delete(r.local, k)
	}
}

func (r *RateLimiter) getLimit(limitType RateLimitType) int {
	switch limitType {
	case RateLimitTypePublic:
		return r.config.PublicRequests
	case RateLimitTypeTicket:
		return r.config.TicketRequests
	case RateLimitTypeCheckout:
		return r.config.CheckoutRequests
	case RateLimitTypeAdmin:
		return r.config.AdminRequests
	case RateLimitTypeHealth:
		return r.config.HealthRequests
	default:
		return r.config.DefaultRequests
	}
}

func (r *RateLimiter) isWhitelisted(ip string) bool {
	return slices.Contains(r.config.WhitelistedIPs, ip)
}
