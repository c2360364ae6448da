package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/miltonyano/gostack-gobarber/internal/domain"
	"github.com/miltonyano/gostack-gobarber/internal/store"
)

type UserRepo struct {
	db bun.IDB
}

func NewUserRepo(db bun.IDB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = normalizeEmail(u.Email)
	if _, err := r.db.NewInsert().Model(&u).Exec(ctx); err != nil {
		return domain.User{}, mapError(err)
	}
	return u, nil
}

func (r *UserRepo) Save(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = normalizeEmail(u.Email)
	res, err := r.db.NewUpdate().
		Model(&u).
		Column("name", "email", "password", "avatar", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.User{}, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.User{}, fmt.Errorf("users rows affected: %w", err)
	}
	if n == 0 {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var u domain.User
	err := r.db.NewSelect().
		Model(&u).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.User{}, mapError(err)
	}
	return u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := r.db.NewSelect().
		Model(&u).
		Where("email = ?", normalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.User{}, mapError(err)
	}
	return u, nil
}

func (r *UserRepo) ListProviders(ctx context.Context, exceptUserID uuid.UUID) ([]domain.User, error) {
	rows := make([]domain.User, 0)
	q := r.db.NewSelect().Model(&rows)
	if exceptUserID != uuid.Nil {
		q = q.Where("id <> ?", exceptUserID)
	}
	if err := q.OrderExpr("name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type UserTokenRepo struct {
	db bun.IDB
}

func NewUserTokenRepo(db bun.IDB) *UserTokenRepo {
	return &UserTokenRepo{db: db}
}

func (r *UserTokenRepo) Generate(ctx context.Context, userID uuid.UUID) (domain.UserToken, error) {
	t := domain.UserToken{UserID: userID}
	if _, err := r.db.NewInsert().Model(&t).Exec(ctx); err != nil {
		return domain.UserToken{}, mapError(err)
	}
	return t, nil
}

func (r *UserTokenRepo) FindByToken(ctx context.Context, token uuid.UUID) (domain.UserToken, error) {
	var t domain.UserToken
	err := r.db.NewSelect().
		Model(&t).
		Where("token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.UserToken{}, mapError(err)
	}
	return t, nil
}
