// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"boxoffice/internal/documents"
	"boxoffice/internal/ledger"
	"boxoffice/internal/notifications"
	"boxoffice/internal/orders"
	"boxoffice/internal/payments"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/middleware"
	"boxoffice/internal/shows"
	"boxoffice/internal/store"
	"boxoffice/internal/tickets"
	"boxoffice/internal/venues"
	"boxoffice/pkg/cache"
	"boxoffice/pkg/logger"
	"boxoffice/pkg/ratelimit"
)

// Dependencies are the collaborators the HTTP surface is built from.
// RateLimiter may be nil.
type Dependencies struct {
	Config      *config.Config
	Store       store.Store
	Cache       cache.Service
	Gateway     payments.Gateway
	Notifier    notifications.Sender
	RateLimiter *ratelimit.RateLimiter
	Logger      *logger.Logger
}

// Router holds all route dependencies
type Router struct {
	config      *config.Config
	store       store.Store
	cache       cache.Service
	rateLimiter *ratelimit.RateLimiter
	log         *logger.Logger

	renderer documents.Renderer
	tickets  *tickets.Manager
	orders   orders.Service
	shows    shows.Service
	venues   venues.Service
}

// NewRouter wires the services once so that the server and the sweeper share
// the same ticket manager.
func NewRouter(deps Dependencies) *Router {
	cfg := deps.Config
	if deps.Cache == nil {
		deps.Cache = cache.NewNoop()
	}
	if deps.Logger == nil {
		deps.Logger = logger.GetDefault()
	}

	l := ledger.New(ledger.Config{
		Store:           deps.Store,
		Cache:           deps.Cache,
		Logger:          deps.Logger,
		AvailabilityTTL: cfg.Redis.AvailabilityTTL,
	})
	tm := tickets.NewManager(tickets.Config{
		Store:         deps.Store,
		Ledger:        l,
		Logger:        deps.Logger,
		Notifier:      deps.Notifier,
		NotifyTimeout: cfg.Notifications.Timeout,
		RetainRemoved: cfg.Tickets.RetainRemovedTickets,
	})

	return &Router{
		config:      cfg,
		store:       deps.Store,
		cache:       deps.Cache,
		rateLimiter: deps.RateLimiter,
		log:         deps.Logger,
		renderer:    documents.NewQRRenderer(256),
		tickets:     tm,
		orders: orders.NewService(orders.Config{
			Store:         deps.Store,
			Tickets:       tm,
			Ledger:        l,
			Gateway:       deps.Gateway,
			Notifier:      deps.Notifier,
			NotifyTimeout: cfg.Notifications.Timeout,
			Logger:        deps.Logger,
			Currency:      cfg.Payment.Currency,
		}),
		shows:  shows.NewService(shows.Config{Store: deps.Store, Cache: deps.Cache, Ledger: l, Logger: deps.Logger}),
		venues: venues.NewService(deps.Store, deps.Cache, cfg.Redis.LayoutTTL, deps.Logger),
	}
}

// Tickets returns the ticket manager, used by the in-process sweeper.
func (r *Router) Tickets() *tickets.Manager {
	return r.tickets
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	auth := middleware.JWTAuth(r.config.JWT.Secret)
	api := engine.Group(r.config.GetAPIBasePath())
	{
		venues.SetupVenueRoutes(api, venues.NewController(r.venues))
		shows.SetupShowRoutes(api, shows.NewController(r.shows), auth)
		tickets.SetupTicketRoutes(api, tickets.NewController(r.tickets, r.renderer), auth, r.limit(ratelimit.RateLimitTypeTicket))
		orders.SetupOrderRoutes(api, orders.NewController(r.orders, r.renderer), auth, r.limit(ratelimit.RateLimitTypeCheckout))
	}
}

func (r *Router) limit(t ratelimit.RateLimitType) gin.HandlerFunc {
	if r.rateLimiter == nil {
		return func(*gin.Context) {}
	}
	return ratelimit.For(r.rateLimiter, r.log, t)
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "boxoffice",
			})
			return
		}
		cacheStatus := "ok"
		if err := r.cache.Ping(c.Request.Context()); err != nil {
			cacheStatus = "degraded"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"cache":     cacheStatus,
			"timestamp": time.Now(),
			"service":   "boxoffice",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}
