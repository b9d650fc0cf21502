package tickets

import (
	"context"
	"sync"
	"time"

	"boxoffice/pkg/logger"
)

// JobProcessor runs the reservation sweeper in the background.
type JobProcessor struct {
	service Service
	config  *JobConfig
	log     *logger.Logger
	done    chan struct{}
	stop    sync.Once
}

// JobConfig contains configuration for the sweeper
type JobConfig struct {
	Interval       time.Duration
	ReservationTTL time.Duration
	BatchSize      int
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		Interval:       1 * time.Minute,  // sweep every minute
		ReservationTTL: 15 * time.Minute, // unpaid tickets live this long
		BatchSize:      100,              // release at most 100 tickets per sweep
	}
}

func NewJobProcessor(service Service, config *JobConfig, log *logger.Logger) *JobProcessor {
	// Unset fields take the defaults; a zero batch size would never end a sweep.
	defaults := DefaultJobConfig()
	if config == nil {
		config = defaults
	} else {
		cfg := *config
		if cfg.Interval <= 0 {
			cfg.Interval = defaults.Interval
		}
		if cfg.ReservationTTL <= 0 {
			cfg.ReservationTTL = defaults.ReservationTTL
		}
		if cfg.BatchSize <= 0 {
			cfg.BatchSize = defaults.BatchSize
		}
		config = &cfg
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &JobProcessor{
		service: service,
		config:  config,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Start runs the sweeper until Stop is called or ctx ends.
func (jp *JobProcessor) Start(ctx context.Context) {
	go jp.run(ctx)
	jp.log.InfoWithContext(ctx, "reservation sweeper started", map[string]interface{}{
		"interval":        jp.config.Interval.String(),
		"reservation_ttl": jp.config.ReservationTTL.String(),
		"batch_size":      jp.config.BatchSize,
	})
}

func (jp *JobProcessor) Stop() {
	jp.stop.Do(func() { close(jp.done) })
}

func (jp *JobProcessor) run(ctx context.Context) {
	ticker := time.NewTicker(jp.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.RunOnce(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce sweeps until a batch comes back short, and returns the number of
// tickets released.
func (jp *JobProcessor) RunOnce(ctx context.Context) int {
	total := 0
	for {
		n, err := jp.service.ExpireReservations(ctx, jp.config.ReservationTTL, jp.config.BatchSize)
		if err != nil {
			jp.log.ErrorWithContext(ctx, "reservation sweep failed", err, nil)
			return total
		}
		total += n
		if n < jp.config.BatchSize || ctx.Err() != nil {
			break
		}
	}
	if total > 0 {
		jp.log.InfoWithContext(ctx, "expired reservations released", map[string]interface{}{"count": total})
	}
	return total
}
