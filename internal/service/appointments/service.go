package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/miltonyano/gostack-gobarber/internal/apperror"
	"github.com/miltonyano/gostack-gobarber/internal/cache"
	"github.com/miltonyano/gostack-gobarber/internal/domain"
	"github.com/miltonyano/gostack-gobarber/internal/store"
)

const (
	msgPastDate      = "You are not able to create an appointment on past dates"
	msgWithYourself  = "You are not able to create an appointment with yourself"
	msgOutsideHours  = "You are not able to create appointments before 8 or after 17"
	msgAlreadyBooked = "This date is already booked"
)

type Service struct {
	appointments  store.AppointmentRepository
	users         store.UserRepository
	notifications store.NotificationRepository
	cache         cache.Cache
	loc           *time.Location
	now           func() time.Time
	log           *zap.Logger
}

type Option func(*Service)

// WithLocation sets the time zone business hours and calendar days are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(
	appointments store.AppointmentRepository,
	users store.UserRepository,
	notifications store.NotificationRepository,
	c cache.Cache,
	opts ...Option,
) *Service {
	s := &Service{
		appointments:  appointments,
		users:         users,
		notifications: notifications,
		cache:         c,
		loc:           time.UTC,
		now:           time.Now,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("component", "service.appointments"))
	return s
}

type CreateInput struct {
	ProviderID uuid.UUID
	UserID     uuid.UUID
	Date       time.Time
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	if in.ProviderID == uuid.Nil {
		return domain.Appointment{}, apperror.Validation("provider_id is required")
	}
	if in.UserID == uuid.Nil {
		return domain.Appointment{}, apperror.Validation("user_id is required")
	}

	date := s.startOfHour(in.Date)
	if date.Before(s.now()) {
		return domain.Appointment{}, apperror.Validation(msgPastDate)
	}
	if in.UserID == in.ProviderID {
		return domain.Appointment{}, apperror.Validation(msgWithYourself)
	}
	if h := date.Hour(); h < domain.FirstBookableHour || h > domain.LastBookableHour {
		return domain.Appointment{}, apperror.Validation(msgOutsideHours)
	}

	if _, err := s.users.FindByID(ctx, in.ProviderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, apperror.NotFound("Provider not found.")
		}
		return domain.Appointment{}, fmt.Errorf("find provider: %w", err)
	}

	var created domain.Appointment
	err := s.appointments.InProviderTransaction(ctx, in.ProviderID, func(ctx context.Context, tx store.CalendarTx) error {
		_, err := tx.FindByDate(ctx, in.ProviderID, date)
		if err == nil {
			return apperror.Validation(msgAlreadyBooked)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("find appointment by date: %w", err)
		}

		created, err = tx.CreateAppointment(ctx, domain.Appointment{
			ProviderID: in.ProviderID,
			UserID:     in.UserID,
			Date:       date,
		})
		if errors.Is(err, store.ErrConflict) {
			return apperror.Validation(msgAlreadyBooked)
		}
		return err
	})
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return domain.Appointment{}, err
		}
		return domain.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}

	key := cache.ProviderAppointmentsKey(in.ProviderID, date.Year(), date.Month(), date.Day())
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("appointments cache invalidation failed", zap.String("key", key), zap.Error(err))
	}

	_, err = s.notifications.Create(ctx, domain.Notification{
		RecipientID: in.ProviderID,
		Content:     "New appointment on " + date.Format("2006-01-02 @ 03:04 PM"),
	})
	if err != nil {
		s.log.Error("appointment notification failed",
			zap.String("appointment_id", created.ID.String()),
			zap.Error(err),
		)
	}

	return created, nil
}

// ListProviderAppointments returns one provider day, with the booking client attached.
func (s *Service) ListProviderAppointments(ctx context.Context, providerID uuid.UUID, year int, month time.Month, day int) ([]domain.Appointment, error) {
	if err := validateDay(year, month, day); err != nil {
		return nil, err
	}

	key := cache.ProviderAppointmentsKey(providerID, year, month, day)
	var cached []domain.Appointment
	found, err := s.cache.Recover(ctx, key, &cached)
	if err != nil {
		s.log.Warn("appointments cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found && err == nil {
		return cached, nil
	}

	start := time.Date(year, month, day, 0, 0, 0, 0, s.loc)
	rows, err := s.appointments.ListByProvider(ctx, providerID, start, start.AddDate(0, 0, 1), true)
	if err != nil {
		return nil, fmt.Errorf("list provider appointments: %w", err)
	}
	for i := range rows {
		if rows[i].User != nil {
			rows[i].User.Password = ""
		}
	}

	if err := s.cache.Save(ctx, key, rows); err != nil {
		s.log.Warn("appointments cache write failed", zap.String("key", key), zap.Error(err))
	}
	return rows, nil
}

// ListProviders returns every user except the caller.
func (s *Service) ListProviders(ctx context.Context, userID uuid.UUID) ([]domain.User, error) {
	key := cache.ProvidersListKey(userID)
	var cached []domain.User
	found, err := s.cache.Recover(ctx, key, &cached)
	if err != nil {
		s.log.Warn("providers cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found && err == nil {
		return cached, nil
	}

	providers, err := s.users.ListProviders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	for i := range providers {
		providers[i].Password = ""
	}

	if err := s.cache.Save(ctx, key, providers); err != nil {
		s.log.Warn("providers cache write failed", zap.String("key", key), zap.Error(err))
	}
	return providers, nil
}

func (s *Service) MonthAvailability(ctx context.Context, providerID uuid.UUID, year int, month time.Month) ([]domain.DayAvailability, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 1, 0)
	rows, err := s.appointments.ListByProvider(ctx, providerID, start, end, false)
	if err != nil {
		return nil, fmt.Errorf("list provider appointments: %w", err)
	}

	perDay := make(map[int]int, len(rows))
	for _, a := range rows {
		perDay[a.Date.In(s.loc).Day()]++
	}

	now := s.now()
	days := daysIn(year, month)
	out := make([]domain.DayAvailability, 0, days)
	for day := 1; day <= days; day++ {
		endOfDay := time.Date(year, month, day, 23, 59, 59, 0, s.loc)
		out = append(out, domain.DayAvailability{
			Day:       day,
			Available: endOfDay.After(now) && perDay[day] < domain.MaxAppointmentsPerDay,
		})
	}
	return out, nil
}

func (s *Service) DayAvailability(ctx context.Context, providerID uuid.UUID, year int, month time.Month, day int) ([]domain.HourAvailability, error) {
	if err := validateDay(year, month, day); err != nil {
		return nil, err
	}

	start := time.Date(year, month, day, 0, 0, 0, 0, s.loc)
	rows, err := s.appointments.ListByProvider(ctx, providerID, start, start.AddDate(0, 0, 1), false)
	if err != nil {
		return nil, fmt.Errorf("list provider appointments: %w", err)
	}

	booked := make(map[int]bool, len(rows))
	for _, a := range rows {
		booked[a.Date.In(s.loc).Hour()] = true
	}

	now := s.now()
	out := make([]domain.HourAvailability, 0, domain.MaxAppointmentsPerDay)
	for hour := domain.FirstBookableHour; hour <= domain.LastBookableHour; hour++ {
		slot := time.Date(year, month, day, hour, 0, 0, 0, s.loc)
		out = append(out, domain.HourAvailability{
			Hour:      hour,
			Available: !booked[hour] && slot.After(now),
		})
	}
	return out, nil
}

func (s *Service) startOfHour(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, s.loc)
}

func validateMonth(year int, month time.Month) error {
	if year <= 0 {
		return apperror.Validation("Invalid year.")
	}
	if month < time.January || month > time.December {
		return apperror.Validation("Invalid month.")
	}
	return nil
}

func validateDay(year int, month time.Month, day int) error {
	if err := validateMonth(year, month); err != nil {
		return err
	}
	if day < 1 || day > daysIn(year, month) {
		return apperror.Validation("Invalid day.")
	}
	return nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
