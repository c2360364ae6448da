package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull"`
	Email     string    `bun:"email,notnull,unique"`
	Password  string    `bun:"password,notnull"`
	Avatar    *string   `bun:"avatar"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// UserToken authorizes a password reset for a limited time after CreatedAt.
type UserToken struct {
	bun.BaseModel `bun:"table:user_tokens"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Token     uuid.UUID `bun:"token,notnull,type:uuid"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (t *UserToken) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && t.Token == uuid.Nil {
		t.Token = uuid.New()
	}
	return stamp(query, &t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func stamp(query bun.Query, id *uuid.UUID, createdAt, updatedAt *time.Time) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if *id == uuid.Nil {
			v, err := uuid.NewV7()
			if err != nil {
				return err
			}
			*id = v
		}
		if createdAt.IsZero() {
			*createdAt = now
		}
		if updatedAt.IsZero() {
			*updatedAt = now
		}
	case *bun.UpdateQuery:
		*updatedAt = now
	}
	return nil
}
