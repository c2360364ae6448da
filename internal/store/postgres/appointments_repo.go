package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/miltonyano/gostack-gobarber/internal/domain"
	"github.com/miltonyano/gostack-gobarber/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type calendarTx struct {
	tx bun.IDB
}

func (r *AppointmentRepo) ListByProvider(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time, withUser bool) ([]domain.Appointment, error) {
	return listByProvider(ctx, r.db, providerID, windowStart, windowEnd, withUser)
}

func (r *AppointmentRepo) InProviderTransaction(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProviderCalendar(ctx, tx, providerID); err != nil {
			return err
		}
		return fn(ctx, calendarTx{tx: tx})
	})
}

func lockProviderCalendar(ctx context.Context, tx bun.Tx, providerID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", providerID.String()).Exec(ctx)
	return err
}

func (r calendarTx) FindByDate(ctx context.Context, providerID uuid.UUID, date time.Time) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.tx.NewSelect().
		Model(&a).
		Where("provider_id = ?", providerID).
		Where("date = ?", date.UTC()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return a, nil
}

func (r calendarTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:         appt.ID,
		ProviderID: appt.ProviderID,
		UserID:     appt.UserID,
		Date:       appt.Date.UTC(),
		CreatedAt:  appt.CreatedAt,
		UpdatedAt:  appt.UpdatedAt,
	}

	if _, err := r.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return m, nil
}

func listByProvider(ctx context.Context, db bun.IDB, providerID uuid.UUID, windowStart, windowEnd time.Time, withUser bool) ([]domain.Appointment, error) {
	rows := make([]domain.Appointment, 0)
	q := db.NewSelect().
		Model(&rows).
		Where("?TableAlias.provider_id = ?", providerID).
		Where("?TableAlias.date >= ?", windowStart.UTC()).
		Where("?TableAlias.date < ?", windowEnd.UTC()).
		OrderExpr("?TableAlias.date ASC")
	if withUser {
		q = q.Relation("User")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}
