package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/miltonyano/gostack-gobarber/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	Save(ctx context.Context, u domain.User) (domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	ListProviders(ctx context.Context, exceptUserID uuid.UUID) ([]domain.User, error)
}

type UserTokenRepository interface {
	Generate(ctx context.Context, userID uuid.UUID) (domain.UserToken, error)
	FindByToken(ctx context.Context, token uuid.UUID) (domain.UserToken, error)
}
