// Package servicetest holds hand-written doubles for the repository and provider interfaces.
// Every method panics unless its Fn field is set.
package servicetest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/miltonyano/gostack-gobarber/internal/domain"
	"github.com/miltonyano/gostack-gobarber/internal/mail"
	"github.com/miltonyano/gostack-gobarber/internal/storage"
	"github.com/miltonyano/gostack-gobarber/internal/store"
)

type Users struct {
	CreateFn        func(ctx context.Context, u domain.User) (domain.User, error)
	SaveFn          func(ctx context.Context, u domain.User) (domain.User, error)
	FindByIDFn      func(ctx context.Context, id uuid.UUID) (domain.User, error)
	FindByEmailFn   func(ctx context.Context, email string) (domain.User, error)
	ListProvidersFn func(ctx context.Context, exceptUserID uuid.UUID) ([]domain.User, error)
}

func (f *Users) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if f.CreateFn == nil {
		panic("Create not configured")
	}
	return f.CreateFn(ctx, u)
}

func (f *Users) Save(ctx context.Context, u domain.User) (domain.User, error) {
	if f.SaveFn == nil {
		panic("Save not configured")
	}
	return f.SaveFn(ctx, u)
}

func (f *Users) FindByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	if f.FindByIDFn == nil {
		panic("FindByID not configured")
	}
	return f.FindByIDFn(ctx, id)
}

func (f *Users) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if f.FindByEmailFn == nil {
		panic("FindByEmail not configured")
	}
	return f.FindByEmailFn(ctx, email)
}

func (f *Users) ListProviders(ctx context.Context, exceptUserID uuid.UUID) ([]domain.User, error) {
	if f.ListProvidersFn == nil {
		panic("ListProviders not configured")
	}
	return f.ListProvidersFn(ctx, exceptUserID)
}

type Tokens struct {
	GenerateFn    func(ctx context.Context, userID uuid.UUID) (domain.UserToken, error)
	FindByTokenFn func(ctx context.Context, token uuid.UUID) (domain.UserToken, error)
}

func (f *Tokens) Generate(ctx context.Context, userID uuid.UUID) (domain.UserToken, error) {
	if f.GenerateFn == nil {
		panic("Generate not configured")
	}
	return f.GenerateFn(ctx, userID)
}

func (f *Tokens) FindByToken(ctx context.Context, token uuid.UUID) (domain.UserToken, error) {
	if f.FindByTokenFn == nil {
		panic("FindByToken not configured")
	}
	return f.FindByTokenFn(ctx, token)
}

type Appointments struct {
	FindByDateFn        func(ctx context.Context, providerID uuid.UUID, date time.Time) (domain.Appointment, error)
	CreateAppointmentFn func(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	ListByProviderFn    func(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time, withUser bool) ([]domain.Appointment, error)

	// Locked records the providers passed to InProviderTransaction.
	Locked []uuid.UUID
}

func (f *Appointments) InProviderTransaction(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	f.Locked = append(f.Locked, providerID)
	return fn(ctx, f)
}

func (f *Appointments) FindByDate(ctx context.Context, providerID uuid.UUID, date time.Time) (domain.Appointment, error) {
	if f.FindByDateFn == nil {
		panic("FindByDate not configured")
	}
	return f.FindByDateFn(ctx, providerID, date)
}

func (f *Appointments) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if f.CreateAppointmentFn == nil {
		panic("CreateAppointment not configured")
	}
	return f.CreateAppointmentFn(ctx, appt)
}

func (f *Appointments) ListByProvider(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time, withUser bool) ([]domain.Appointment, error) {
	if f.ListByProviderFn == nil {
		panic("ListByProvider not configured")
	}
	return f.ListByProviderFn(ctx, providerID, windowStart, windowEnd, withUser)
}

type Notifications struct {
	CreateFn          func(ctx context.Context, n domain.Notification) (domain.Notification, error)
	ListByRecipientFn func(ctx context.Context, recipientID uuid.UUID, limit int) ([]domain.Notification, error)
	MarkReadFn        func(ctx context.Context, recipientID, id uuid.UUID) (domain.Notification, error)
}

func (f *Notifications) Create(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if f.CreateFn == nil {
		panic("Create not configured")
	}
	return f.CreateFn(ctx, n)
}

func (f *Notifications) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]domain.Notification, error) {
	if f.ListByRecipientFn == nil {
		panic("ListByRecipient not configured")
	}
	return f.ListByRecipientFn(ctx, recipientID, limit)
}

func (f *Notifications) MarkRead(ctx context.Context, recipientID, id uuid.UUID) (domain.Notification, error) {
	if f.MarkReadFn == nil {
		panic("MarkRead not configured")
	}
	return f.MarkReadFn(ctx, recipientID, id)
}

type Storage struct {
	SaveFn   func(ctx context.Context, up storage.Upload) (string, error)
	DeleteFn func(ctx context.Context, name string) error
	BaseURL  string
}

func (f *Storage) Save(ctx context.Context, up storage.Upload) (string, error) {
	if f.SaveFn == nil {
		panic("Save not configured")
	}
	return f.SaveFn(ctx, up)
}

func (f *Storage) Delete(ctx context.Context, name string) error {
	if f.DeleteFn == nil {
		panic("Delete not configured")
	}
	return f.DeleteFn(ctx, name)
}

func (f *Storage) URL(name string) string {
	return f.BaseURL + "/files/" + name
}

type Mail struct {
	SendFn func(ctx context.Context, msg mail.Message) error
}

func (f *Mail) Send(ctx context.Context, msg mail.Message) error {
	if f.SendFn == nil {
		panic("Send not configured")
	}
	return f.SendFn(ctx, msg)
}

// PlainHasher "hashes" by prefixing, keeping tests fast and assertions readable.
type PlainHasher struct{}

func (PlainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (PlainHasher) Compare(password, hash string) bool { return hash == "hashed:"+password }

type Issuer struct {
	Token string
	Err   error
}

func (i Issuer) Issue(subject string) (string, error) {
	if i.Err != nil {
		return "", i.Err
	}
	return i.Token + ":" + subject, nil
}

// Cache is a testify mock of cache.Cache.
type Cache struct {
	mock.Mock
}

func (c *Cache) Save(ctx context.Context, key string, value any) error {
	return c.Called(ctx, key, value).Error(0)
}

func (c *Cache) Recover(ctx context.Context, key string, dest any) (bool, error) {
	args := c.Called(ctx, key, dest)
	return args.Bool(0), args.Error(1)
}

func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.Called(ctx, key).Error(0)
}

func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	return c.Called(ctx, prefix).Error(0)
}
