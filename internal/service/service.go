package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/cache"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/external"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/repository"
)

// PaymentGateway is the outbound charge/refund capability the engine
// invokes. Timeouts and authentication live behind this interface.
type PaymentGateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, token, orderID string) (*external.ChargeResult, error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal) error
}

// EventPublisher publishes booking lifecycle events. Publish failures are
// logged, never fatal to the operation that triggered them.
type EventPublisher interface {
	Publish(subject string, data interface{}) error
}

// Config carries the engine's injected policy knobs, resolved once per
// instance.
type Config struct {
	FeeRate        decimal.Decimal
	DiscountCodes  map[string]int64
	HoldDuration   time.Duration
	GatewayTimeout time.Duration
}

const (
	DefaultHoldDuration   = 15 * time.Minute
	DefaultGatewayTimeout = 30 * time.Second
)

type Services struct {
	Bookings *BookingService
}

func NewServices(store repository.Store, gateway PaymentGateway, events EventPublisher, availability *cache.AvailabilityCache, cfg Config) *Services {
	return &Services{
		Bookings: NewBookingService(store, gateway, events, availability, cfg),
	}
}
