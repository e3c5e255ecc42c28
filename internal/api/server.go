package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/cache"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/config"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/database"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/external"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/handlers"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/logger"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/messaging"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/middleware"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/repository"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/service"
)

// Server wires the HTTP surface over the booking engine.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	redis    *cache.AvailabilityCache
	services *service.Services
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	var events service.EventPublisher
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		// Lifecycle events are observability, not correctness; run without
		// the broker rather than refuse to start.
		logger.Get().Warn("NATS unavailable, lifecycle events disabled", "error", err)
		events = messaging.NoopPublisher{}
	} else {
		events = natsClient
	}

	availability, err := cache.New(cfg.Redis)
	if err != nil {
		logger.Get().Warn("Redis unavailable, availability cache disabled", "error", err)
		availability = nil
	}

	gateway := external.NewPaymentClient(cfg.Gateway)
	store := repository.NewPostgresStore(db)
	services := service.NewServices(store, gateway, events, availability, cfg.Booking)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		redis:    availability,
		services: services,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("/reserve", h.ReserveSeats)
			bookings.POST("/settle", h.SettlePayment)
			bookings.GET("/history", h.BookingHistory)
			bookings.GET("/:id/invoice", h.BookingInvoice)
		}

		payments := api.Group("/payments")
		{
			payments.POST("/refund", h.RefundPayment)
		}

		matches := api.Group("/matches")
		{
			matches.GET("/summary", h.MatchSummaries)
			matches.GET("/:id/availability", h.MatchAvailability)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	check := s.db.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if check.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":   check.Status,
		"service":  "football-ticket-booking",
		"database": check,
	})
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter returns the router for testing
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes outbound connections.
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logger.Get().Error("Error closing Redis connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
