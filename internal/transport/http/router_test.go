package httptransport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miltonyano/gostack-gobarber/internal/apperror"
	"github.com/miltonyano/gostack-gobarber/internal/domain"
	"github.com/miltonyano/gostack-gobarber/internal/service/appointments"
	"github.com/miltonyano/gostack-gobarber/internal/service/users"
	"github.com/miltonyano/gostack-gobarber/internal/storage"
)

var (
	callerID   = uuid.MustParse("0190f5a4-0000-7000-8000-00000000000a")
	providerID = uuid.MustParse("0190f5a4-0000-7000-8000-00000000000b")
)

type fakeUsers struct {
	createFn        func(ctx context.Context, in users.CreateInput) (domain.User, error)
	authenticateFn  func(ctx context.Context, email, password string) (domain.User, string, error)
	updateAvatarFn  func(ctx context.Context, userID uuid.UUID, up storage.Upload) (domain.User, error)
	showProfileFn   func(ctx context.Context, userID uuid.UUID) (domain.User, error)
	updateProfileFn func(ctx context.Context, in users.UpdateProfileInput) (domain.User, error)
	forgotFn        func(ctx context.Context, email string) error
	resetFn         func(ctx context.Context, token uuid.UUID, password string) error
}

func (f *fakeUsers) Create(ctx context.Context, in users.CreateInput) (domain.User, error) {
	return f.createFn(ctx, in)
}

func (f *fakeUsers) Authenticate(ctx context.Context, email, password string) (domain.User, string, error) {
	return f.authenticateFn(ctx, email, password)
}

func (f *fakeUsers) UpdateAvatar(ctx context.Context, userID uuid.UUID, up storage.Upload) (domain.User, error) {
	return f.updateAvatarFn(ctx, userID, up)
}

func (f *fakeUsers) ShowProfile(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	return f.showProfileFn(ctx, userID)
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, in users.UpdateProfileInput) (domain.User, error) {
	return f.updateProfileFn(ctx, in)
}

func (f *fakeUsers) SendForgotPasswordEmail(ctx context.Context, email string) error {
	return f.forgotFn(ctx, email)
}

func (f *fakeUsers) ResetPassword(ctx context.Context, token uuid.UUID, password string) error {
	return f.resetFn(ctx, token, password)
}

type fakeAppointments struct {
	createFn        func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	scheduleFn      func(ctx context.Context, providerID uuid.UUID, year int, month time.Month, day int) ([]domain.Appointment, error)
	listProvidersFn func(ctx context.Context, userID uuid.UUID) ([]domain.User, error)
	monthFn         func(ctx context.Context, providerID uuid.UUID, year int, month time.Month) ([]domain.DayAvailability, error)
	dayFn           func(ctx context.Context, providerID uuid.UUID, year int, month time.Month, day int) ([]domain.HourAvailability, error)
}

func (f *fakeAppointments) Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
	return f.createFn(ctx, in)
}

func (f *fakeAppointments) ListProviderAppointments(ctx context.Context, providerID uuid.UUID, year int, month time.Month, day int) ([]domain.Appointment, error) {
	return f.scheduleFn(ctx, providerID, year, month, day)
}

func (f *fakeAppointments) ListProviders(ctx context.Context, userID uuid.UUID) ([]domain.User, error) {
	return f.listProvidersFn(ctx, userID)
}

func (f *fakeAppointments) MonthAvailability(ctx context.Context, providerID uuid.UUID, year int, month time.Month) ([]domain.DayAvailability, error) {
	return f.monthFn(ctx, providerID, year, month)
}

func (f *fakeAppointments) DayAvailability(ctx context.Context, providerID uuid.UUID, year int, month time.Month, day int) ([]domain.HourAvailability, error) {
	return f.dayFn(ctx, providerID, year, month, day)
}

type fakeNotifications struct {
	listFn     func(ctx context.Context, recipientID uuid.UUID) ([]domain.Notification, error)
	markReadFn func(ctx context.Context, recipientID, id uuid.UUID) (domain.Notification, error)
}

func (f *fakeNotifications) List(ctx context.Context, recipientID uuid.UUID) ([]domain.Notification, error) {
	return f.listFn(ctx, recipientID)
}

func (f *fakeNotifications) MarkRead(ctx context.Context, recipientID, id uuid.UUID) (domain.Notification, error) {
	return f.markReadFn(ctx, recipientID, id)
}

type staticTokens map[string]string

func (t staticTokens) Verify(token string) (string, error) {
	if sub, ok := t[token]; ok {
		return sub, nil
	}
	return "", errors.New("invalid")
}

type testAPI struct {
	users         *fakeUsers
	appointments  *fakeAppointments
	notifications *fakeNotifications
	handler       http.Handler
}

func newTestAPI(t *testing.T, mutate ...func(*Config)) *testAPI {
	t.Helper()
	api := &testAPI{
		users:         &fakeUsers{},
		appointments:  &fakeAppointments{},
		notifications: &fakeNotifications{},
	}
	cfg := Config{
		Users:         api.users,
		Appointments:  api.appointments,
		Notifications: api.notifications,
		Tokens:        staticTokens{"good": callerID.String(), "not-a-uuid": "42"},
		AvatarURL:     func(name string) string { return "http://localhost:3333/files/" + name },
	}
	for _, m := range mutate {
		m(&cfg)
	}
	api.handler = NewRouter(cfg)
	return api
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, msg, body.Message)
}

func TestCreateUser(t *testing.T) {
	api := newTestAPI(t)
	avatar := "abc-me.png"
	api.users.createFn = func(_ context.Context, in users.CreateInput) (domain.User, error) {
		assert.Equal(t, users.CreateInput{Name: "John", Email: "john@example.com", Password: "123456"}, in)
		return domain.User{ID: callerID, Name: in.Name, Email: in.Email, Password: "hash", Avatar: &avatar}, nil
	}

	rec := api.do(t, http.MethodPost, "/users", "", map[string]string{
		"name": "John", "email": "john@example.com", "password": "123456",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "hash")
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "http://localhost:3333/files/abc-me.png", body["avatar_url"])
	assert.Equal(t, callerID.String(), body["id"])
}

func TestCreateUser_ValidationMessages(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/users", "", map[string]string{"name": "John", "password": "123456"})
	assertError(t, rec, http.StatusBadRequest, `"email" is required`)

	rec = api.do(t, http.MethodPost, "/users", "", map[string]string{"name": "John", "email": "nope", "password": "1"})
	assertError(t, rec, http.StatusBadRequest, `"email" must be a valid email`)

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("{bad json}"))
	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)
	assertError(t, rr, http.StatusBadRequest, "Invalid JSON body.")
}

func TestUserInputLimits(t *testing.T) {
	api := newTestAPI(t)
	tooLong := strings.Repeat("x", 73)

	rec := api.do(t, http.MethodPost, "/users", "", map[string]string{"name": "   ", "email": "john@example.com", "password": "123456"})
	assertError(t, rec, http.StatusBadRequest, `"name" is required`)

	rec = api.do(t, http.MethodPost, "/users", "", map[string]string{"name": "John", "email": "john@example.com", "password": tooLong})
	assertError(t, rec, http.StatusBadRequest, `"password" must be at most 72`)

	rec = api.do(t, http.MethodPut, "/profile", "good", map[string]string{
		"name": "\t", "email": "john@example.com",
	})
	assertError(t, rec, http.StatusBadRequest, `"name" is required`)

	rec = api.do(t, http.MethodPut, "/profile", "good", map[string]string{
		"name": "John", "email": "john@example.com", "old_password": "1", "password": tooLong, "password_confirmation": tooLong,
	})
	assertError(t, rec, http.StatusBadRequest, `"password" must be at most 72`)

	rec = api.do(t, http.MethodPost, "/password/reset", "", map[string]string{
		"token": uuid.NewString(), "password": tooLong, "password_confirmation": tooLong,
	})
	assertError(t, rec, http.StatusBadRequest, `"password" must be at most 72`)
}

func TestCreateUser_ServiceErrors(t *testing.T) {
	api := newTestAPI(t)
	api.users.createFn = func(context.Context, users.CreateInput) (domain.User, error) {
		return domain.User{}, apperror.Validation("Email address already used.")
	}
	rec := api.do(t, http.MethodPost, "/users", "", map[string]string{"name": "J", "email": "j@example.com", "password": "1"})
	assertError(t, rec, http.StatusBadRequest, "Email address already used.")

	api.users.createFn = func(context.Context, users.CreateInput) (domain.User, error) {
		return domain.User{}, errors.New("pq: connection refused")
	}
	rec = api.do(t, http.MethodPost, "/users", "", map[string]string{"name": "J", "email": "j@example.com", "password": "1"})
	assertError(t, rec, http.StatusInternalServerError, "Internal server error")
}

func TestCreateSession(t *testing.T) {
	api := newTestAPI(t)
	api.users.authenticateFn = func(_ context.Context, email, password string) (domain.User, string, error) {
		if password != "123456" {
			return domain.User{}, "", apperror.Unauthorized("Incorrect email/password combination.")
		}
		return domain.User{ID: callerID, Email: email}, "jwt-token", nil
	}

	rec := api.do(t, http.MethodPost, "/sessions", "", map[string]string{"email": "john@example.com", "password": "123456"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[sessionResponse](t, rec)
	assert.Equal(t, "jwt-token", body.Token)
	assert.Equal(t, callerID, body.User.ID)
	assert.Nil(t, body.User.AvatarURL)

	rec = api.do(t, http.MethodPost, "/sessions", "", map[string]string{"email": "john@example.com", "password": "bad"})
	assertError(t, rec, http.StatusUnauthorized, "Incorrect email/password combination.")
}

func TestAuthentication(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/profile", "", nil)
	assertError(t, rec, http.StatusUnauthorized, "JWT token is missing")

	rec = api.do(t, http.MethodGet, "/profile", "forged", nil)
	assertError(t, rec, http.StatusUnauthorized, "Invalid JWT token")

	rec = api.do(t, http.MethodGet, "/profile", "not-a-uuid", nil)
	assertError(t, rec, http.StatusUnauthorized, "Invalid JWT token")

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Basic good")
	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)
	assertError(t, rr, http.StatusUnauthorized, "Invalid JWT token")
}

func TestShowProfile(t *testing.T) {
	api := newTestAPI(t)
	api.users.showProfileFn = func(_ context.Context, id uuid.UUID) (domain.User, error) {
		return domain.User{ID: id, Name: "John"}, nil
	}

	rec := api.do(t, http.MethodGet, "/profile", "good", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, callerID, decodeBody[userResponse](t, rec).ID)
}

func TestUpdateProfile_PasswordConfirmation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPut, "/profile", "good", map[string]string{
		"name": "John", "email": "john@example.com", "old_password": "1", "password": "2", "password_confirmation": "3",
	})
	assertError(t, rec, http.StatusBadRequest, `"password_confirmation" must match "password"`)

	api.users.updateProfileFn = func(_ context.Context, in users.UpdateProfileInput) (domain.User, error) {
		assert.Equal(t, callerID, in.UserID)
		assert.Equal(t, "1", in.OldPassword)
		return domain.User{ID: in.UserID, Name: in.Name, Email: in.Email}, nil
	}
	rec = api.do(t, http.MethodPut, "/profile", "good", map[string]string{
		"name": "John", "email": "john@example.com", "old_password": "1", "password": "2", "password_confirmation": "2",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestPasswordRoutes(t *testing.T) {
	api := newTestAPI(t)
	token := uuid.New()
	api.users.forgotFn = func(_ context.Context, email string) error {
		assert.Equal(t, "john@example.com", email)
		return nil
	}
	api.users.resetFn = func(_ context.Context, got uuid.UUID, password string) error {
		assert.Equal(t, token, got)
		assert.Equal(t, "123123", password)
		return nil
	}

	rec := api.do(t, http.MethodPost, "/password/forgot", "", map[string]string{"email": "john@example.com"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodPost, "/password/reset", "", map[string]string{
		"token": token.String(), "password": "123123", "password_confirmation": "123123",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/password/reset", "", map[string]string{
		"token": "abc", "password": "123123", "password_confirmation": "123123",
	})
	assertError(t, rec, http.StatusBadRequest, `"token" must be a valid GUID`)
}

func TestUpdateAvatar(t *testing.T) {
	api := newTestAPI(t)
	api.users.updateAvatarFn = func(_ context.Context, id uuid.UUID, up storage.Upload) (domain.User, error) {
		assert.Equal(t, callerID, id)
		assert.Equal(t, "me.png", up.Filename)
		b, err := io.ReadAll(up.Body)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(b))
		name := "abc-me.png"
		return domain.User{ID: id, Avatar: &name}, nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/users/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody[userResponse](t, rec)
	require.NotNil(t, body.AvatarURL)
	assert.Equal(t, "http://localhost:3333/files/abc-me.png", *body.AvatarURL)

	rec = api.do(t, http.MethodPatch, "/users/avatar", "good", map[string]string{})
	assertError(t, rec, http.StatusBadRequest, `"avatar" is required`)
}

func TestCreateAppointment(t *testing.T) {
	api := newTestAPI(t)
	date := time.Date(2020, 5, 10, 13, 0, 0, 0, time.UTC)
	api.appointments.createFn = func(_ context.Context, in appointments.CreateInput) (domain.Appointment, error) {
		assert.Equal(t, providerID, in.ProviderID)
		assert.Equal(t, callerID, in.UserID)
		assert.True(t, date.Equal(in.Date))
		return domain.Appointment{ID: uuid.New(), ProviderID: in.ProviderID, UserID: in.UserID, Date: in.Date}, nil
	}

	rec := api.do(t, http.MethodPost, "/appointments", "good", map[string]string{
		"provider_id": providerID.String(), "date": "2020-05-10T13:00:00Z",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody[appointmentResponse](t, rec)
	assert.Equal(t, providerID, body.ProviderID)
	assert.Nil(t, body.User)

	api.appointments.createFn = func(context.Context, appointments.CreateInput) (domain.Appointment, error) {
		return domain.Appointment{}, apperror.Validation("This date is already booked")
	}
	rec = api.do(t, http.MethodPost, "/appointments", "good", map[string]string{
		"provider_id": providerID.String(), "date": "2020-05-10T13:00:00Z",
	})
	assertError(t, rec, http.StatusBadRequest, "This date is already booked")

	rec = api.do(t, http.MethodPost, "/appointments", "good", map[string]string{"date": "2020-05-10T13:00:00Z"})
	assertError(t, rec, http.StatusBadRequest, `"provider_id" is required`)
}

func TestProviderSchedule(t *testing.T) {
	api := newTestAPI(t)
	api.appointments.scheduleFn = func(_ context.Context, id uuid.UUID, year int, month time.Month, day int) ([]domain.Appointment, error) {
		assert.Equal(t, callerID, id)
		assert.Equal(t, 2020, year)
		assert.Equal(t, time.May, month)
		assert.Equal(t, 20, day)
		return []domain.Appointment{{ID: uuid.New(), User: &domain.User{Name: "Client", Password: "hash"}}}, nil
	}

	rec := api.do(t, http.MethodGet, "/appointments/me?year=2020&month=5&day=20", "good", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody[[]appointmentResponse](t, rec)
	require.Len(t, body, 1)
	assert.Equal(t, "Client", body[0].User.Name)
	assert.NotContains(t, rec.Body.String(), "hash")

	rec = api.do(t, http.MethodGet, "/appointments/me?year=2020&month=5", "good", nil)
	assertError(t, rec, http.StatusBadRequest, `"day" is required`)

	rec = api.do(t, http.MethodGet, "/appointments/me?year=2020&month=13&day=1", "good", nil)
	assertError(t, rec, http.StatusBadRequest, `"month" must be at most 12`)

	rec = api.do(t, http.MethodGet, "/appointments/me?year=x&month=1&day=1", "good", nil)
	assertError(t, rec, http.StatusBadRequest, `"year" must be a number`)
}

func TestProvidersRoutes(t *testing.T) {
	api := newTestAPI(t)
	api.appointments.listProvidersFn = func(_ context.Context, id uuid.UUID) ([]domain.User, error) {
		assert.Equal(t, callerID, id)
		return []domain.User{{ID: providerID, Name: "Barber"}}, nil
	}
	api.appointments.monthFn = func(_ context.Context, id uuid.UUID, year int, month time.Month) ([]domain.DayAvailability, error) {
		assert.Equal(t, providerID, id)
		return []domain.DayAvailability{{Day: 1, Available: true}}, nil
	}
	api.appointments.dayFn = func(context.Context, uuid.UUID, int, time.Month, int) ([]domain.HourAvailability, error) {
		return nil, nil
	}

	rec := api.do(t, http.MethodGet, "/providers", "good", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]userResponse](t, rec), 1)

	rec = api.do(t, http.MethodGet, "/providers/"+providerID.String()+"/month-availability?year=2020&month=5", "good", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.DayAvailability{{Day: 1, Available: true}}, decodeBody[[]domain.DayAvailability](t, rec))

	rec = api.do(t, http.MethodGet, "/providers/"+providerID.String()+"/day-availability?year=2020&month=5&day=1", "good", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = api.do(t, http.MethodGet, "/providers/nope/month-availability?year=2020&month=5", "good", nil)
	assertError(t, rec, http.StatusBadRequest, `"provider_id" must be a valid GUID`)
}

func TestNotificationsRoutes(t *testing.T) {
	api := newTestAPI(t)
	id := uuid.New()
	api.notifications.listFn = func(_ context.Context, recipient uuid.UUID) ([]domain.Notification, error) {
		assert.Equal(t, callerID, recipient)
		return []domain.Notification{{ID: id, RecipientID: recipient, Content: "New appointment"}}, nil
	}
	api.notifications.markReadFn = func(_ context.Context, recipient, got uuid.UUID) (domain.Notification, error) {
		if got != id {
			return domain.Notification{}, apperror.NotFound("Notification not found.")
		}
		return domain.Notification{ID: got, RecipientID: recipient, Read: true}, nil
	}

	rec := api.do(t, http.MethodGet, "/notifications", "good", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.Notification](t, rec), 1)

	rec = api.do(t, http.MethodPatch, "/notifications/"+id.String()+"/read", "good", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[domain.Notification](t, rec).Read)

	rec = api.do(t, http.MethodPatch, "/notifications/"+uuid.NewString()+"/read", "good", nil)
	assertError(t, rec, http.StatusNotFound, "Notification not found.")
}

func TestRecovererReturnsInternalError(t *testing.T) {
	api := newTestAPI(t)
	api.users.showProfileFn = func(context.Context, uuid.UUID) (domain.User, error) {
		panic("boom")
	}

	rec := api.do(t, http.MethodGet, "/profile", "good", nil)
	assertError(t, rec, http.StatusInternalServerError, "Internal server error")
}

func TestRateLimit(t *testing.T) {
	api := newTestAPI(t, func(c *Config) { c.RateLimit = 1 })
	api.users.forgotFn = func(context.Context, string) error { return nil }

	rec := api.do(t, http.MethodPost, "/password/forgot", "", map[string]string{"email": "john@example.com"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodPost, "/password/forgot", "", map[string]string{"email": "john@example.com"})
	assertError(t, rec, http.StatusTooManyRequests, "Too many requests.")
}

func TestNotFoundRoute(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/nope", "", nil)
	assertError(t, rec, http.StatusNotFound, "Route not found.")
}

func TestFilesServedFromUploadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc-me.png"), []byte("png-bytes"), 0o600))
	api := newTestAPI(t, func(c *Config) { c.UploadDir = dir })

	rec := api.do(t, http.MethodGet, "/files/abc-me.png", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
}
