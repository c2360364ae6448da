package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/miltonyano/gostack-gobarber/internal/domain"
	"github.com/miltonyano/gostack-gobarber/internal/store"
	"github.com/miltonyano/gostack-gobarber/internal/store/postgres/migrations"
)

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	databaseURL := strings.TrimSpace(os.Getenv("GOBARBER_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("GOBARBER_TEST_DATABASE_URL not set")
	}

	db, err := Open(databaseURL, PoolConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "gobarber_test_" + randomHex(t, 8)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = db.NewRaw("CREATE SCHEMA " + schema).Exec(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})
	_, err = db.NewRaw("SET search_path TO " + schema).Exec(ctx)
	require.NoError(t, err)

	_, err = migrations.Up(ctx, db)
	require.NoError(t, err)
	return db
}

func randomHex(t *testing.T, n int) string {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return hex.EncodeToString(b)
}

func TestPostgresIntegration_UsersCreateFindAndUniqueEmail(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewUserRepo(db)

	u, err := repo.Create(ctx, domain.User{Name: "John Doe", Email: " JohnDoe@Example.com ", Password: "hash"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, "johndoe@example.com", u.Email)

	found, err := repo.FindByEmail(ctx, "johndoe@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = repo.Create(ctx, domain.User{Name: "Other", Email: "johndoe@example.com", Password: "hash"})
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)

	avatar := "abc-avatar.png"
	found.Avatar = &avatar
	_, err = repo.Save(ctx, found)
	require.NoError(t, err)

	reloaded, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.Avatar)
	assert.Equal(t, avatar, *reloaded.Avatar)

	_, err = repo.Save(ctx, domain.User{ID: uuid.New(), Name: "Ghost", Email: "ghost@example.com", Password: "hash"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	other, err := repo.Create(ctx, domain.User{Name: "Jane", Email: "jane@example.com", Password: "hash"})
	require.NoError(t, err)

	providers, err := repo.ListProviders(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, other.ID, providers[0].ID)
}

func TestPostgresIntegration_UserTokens(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u, err := NewUserRepo(db).Create(ctx, domain.User{Name: "John", Email: "john@example.com", Password: "hash"})
	require.NoError(t, err)

	tokens := NewUserTokenRepo(db)
	tok, err := tokens.Generate(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tok.Token)

	found, err := tokens.FindByToken(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.UserID)

	_, err = tokens.FindByToken(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPostgresIntegration_AppointmentsBookingAndListing(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepo(db)

	provider, err := users.Create(ctx, domain.User{Name: "Provider", Email: "provider@example.com", Password: "hash"})
	require.NoError(t, err)
	client, err := users.Create(ctx, domain.User{Name: "Client", Email: "client@example.com", Password: "hash"})
	require.NoError(t, err)

	repo := NewAppointmentRepo(db)
	date := time.Date(2030, 5, 20, 10, 0, 0, 0, time.UTC)

	err = repo.InProviderTransaction(ctx, provider.ID, func(ctx context.Context, tx store.CalendarTx) error {
		_, err := tx.FindByDate(ctx, provider.ID, date)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = tx.CreateAppointment(ctx, domain.Appointment{ProviderID: provider.ID, UserID: client.ID, Date: date})
		return err
	})
	require.NoError(t, err)

	err = repo.InProviderTransaction(ctx, provider.ID, func(ctx context.Context, tx store.CalendarTx) error {
		_, err := tx.CreateAppointment(ctx, domain.Appointment{ProviderID: provider.ID, UserID: client.ID, Date: date})
		return err
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	rows, err := repo.ListByProvider(ctx, provider.ID, date.Add(-time.Hour), date.Add(time.Hour), true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].User)
	assert.Equal(t, "Client", rows[0].User.Name)
	assert.True(t, rows[0].Date.Equal(date))

	rows, err = repo.ListByProvider(ctx, provider.ID, date.Add(time.Hour), date.Add(2*time.Hour), false)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPostgresIntegration_ProviderLockSerializesBookings(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("GOBARBER_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("GOBARBER_TEST_DATABASE_URL not set")
	}
	db, err := Open(databaseURL, PoolConfig{MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	repo := NewAppointmentRepo(db)
	providerID := uuid.New()

	var (
		mu     sync.Mutex
		inside int
		peak   int
		wg     sync.WaitGroup
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.InProviderTransaction(context.Background(), providerID, func(ctx context.Context, tx store.CalendarTx) error {
				mu.Lock()
				inside++
				if inside > peak {
					peak = inside
				}
				mu.Unlock()

				time.Sleep(50 * time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, peak)
}
