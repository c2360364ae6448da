package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/miltonyano/gostack-gobarber/internal/store"
)

func TestMapError(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "no rows", in: sql.ErrNoRows, want: store.ErrNotFound},
		{name: "wrapped no rows", in: fmt.Errorf("scan: %w", sql.ErrNoRows), want: store.ErrNotFound},
		{name: "unique violation", in: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, want: store.ErrConflict},
		{name: "other pg error", in: &pgconn.PgError{Code: "23503"}, want: nil},
		{name: "passthrough", in: boom, want: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.in)
			if tt.want == nil {
				if tt.in == nil {
					assert.NoError(t, got)
					return
				}
				assert.NotErrorIs(t, got, store.ErrConflict)
				assert.NotErrorIs(t, got, store.ErrNotFound)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "john@example.com", normalizeEmail("  John@Example.COM "))
}
