package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/miltonyano/gostack-gobarber/internal/domain"
)

type CalendarTx interface {
	FindByDate(ctx context.Context, providerID uuid.UUID, date time.Time) (domain.Appointment, error)
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
}
