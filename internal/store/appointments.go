package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/miltonyano/gostack-gobarber/internal/domain"
)

type AppointmentRepository interface {
	// InProviderTransaction serializes fn against every other booking for the same provider.
	InProviderTransaction(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context, tx CalendarTx) error) error
	ListByProvider(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time, withUser bool) ([]domain.Appointment, error)
}
