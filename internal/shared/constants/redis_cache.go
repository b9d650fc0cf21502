package constants

import (
	"time"

	"github.com/google/uuid"
)

// Redis Cache Configuration
// Pattern: boxoffice:{module}:{operation}:{identifier}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_SEMI_STATIC_LONG  = 4 * time.Hour    // hall layouts
	TTL_SEMI_STATIC_SHORT = 1 * time.Hour    // show details
	TTL_REALTIME_SHORT    = 30 * time.Second // live availability snapshots
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "boxoffice"
)

// ================== VENUES MODULE ==================

const (
	CACHE_KEY_HALL_LAYOUT = CACHE_PREFIX + ":venues:layout:hall:" // + hall-id
)

const (
	TTL_HALL_LAYOUT = TTL_SEMI_STATIC_LONG
)

// ================== SHOWS MODULE ==================

const (
	CACHE_KEY_SHOW_DETAIL       = CACHE_PREFIX + ":shows:detail:uuid:"       // + show-id
	CACHE_KEY_SHOW_AVAILABILITY = CACHE_PREFIX + ":shows:availability:uuid:" // + show-id
)

const (
	TTL_SHOW_DETAIL       = TTL_SEMI_STATIC_SHORT
	TTL_SHOW_AVAILABILITY = TTL_REALTIME_SHORT
)

// ================== RATE LIMIT ==================

const (
	CACHE_KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit:" // + ip:type
)

// ================== HELPER FUNCTIONS ==================

func BuildHallLayoutKey(hallID uuid.UUID) string {
	return CACHE_KEY_HALL_LAYOUT + hallID.String()
}

func BuildShowDetailKey(showID uuid.UUID) string {
	return CACHE_KEY_SHOW_DETAIL + showID.String()
}

func BuildShowAvailabilityKey(showID uuid.UUID) string {
	return CACHE_KEY_SHOW_AVAILABILITY + showID.String()
}

func BuildRateLimitKey(clientIP, limitType string) string {
	return CACHE_KEY_RATE_LIMIT + clientIP + ":" + limitType
}
