package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	FirstBookableHour = 8
	LastBookableHour  = 17

	// MaxAppointmentsPerDay is the number of bookable hours in a day.
	MaxAppointmentsPerDay = LastBookableHour - FirstBookableHour + 1
)

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	ProviderID uuid.UUID `bun:"provider_id,notnull,type:uuid"`
	UserID     uuid.UUID `bun:"user_id,notnull,type:uuid"`
	Date       time.Time `bun:"date,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`

	User *User `bun:"rel:belongs-to,join:user_id=id"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &a.ID, &a.CreatedAt, &a.UpdatedAt)
}

type DayAvailability struct {
	Day       int  `json:"day"`
	Available bool `json:"available"`
}

type HourAvailability struct {
	Hour      int  `json:"hour"`
	Available bool `json:"available"`
}
