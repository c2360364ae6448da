package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/miltonyano/gostack-gobarber/internal/apperror"
	"github.com/miltonyano/gostack-gobarber/internal/auth"
	"github.com/miltonyano/gostack-gobarber/internal/cache"
	"github.com/miltonyano/gostack-gobarber/internal/domain"
	"github.com/miltonyano/gostack-gobarber/internal/mail"
	"github.com/miltonyano/gostack-gobarber/internal/storage"
	"github.com/miltonyano/gostack-gobarber/internal/store"
)

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = 2 * time.Hour

const (
	msgEmailUsed          = "Email address already used."
	msgBadCredentials     = "Incorrect email/password combination."
	msgAvatarUnauthorized = "Only authenticated users can change avatar."
	msgUserNotFound       = "User not found."
	msgEmailInUse         = "E-mail already in use."
	msgOldPasswordMissing = "You need to inform the old password to set a new password."
	msgOldPasswordInvalid = "Old password does not match."
	msgUserMissing        = "User does not exists."
	msgTokenMissing       = "User token does not exists."
	msgTokenExpired       = "Token expired."
	msgPasswordTooLong    = "Password must be at most 72 bytes long."
)

type TokenIssuer interface {
	Issue(subject string) (string, error)
}

type Deps struct {
	Users   store.UserRepository
	Tokens  store.UserTokenRepository
	Hasher  auth.Hasher
	Issuer  TokenIssuer
	Storage storage.Provider
	Cache   cache.Cache
	Mail    mail.Provider
	// WebURL is the dashboard origin used in password reset links.
	WebURL string
	Log    *zap.Logger
	Now    func() time.Time
}

type Service struct {
	users   store.UserRepository
	tokens  store.UserTokenRepository
	hasher  auth.Hasher
	issuer  TokenIssuer
	storage storage.Provider
	cache   cache.Cache
	mail    mail.Provider
	webURL  string
	log     *zap.Logger
	now     func() time.Time
}

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		users:   d.Users,
		tokens:  d.Tokens,
		hasher:  d.Hasher,
		issuer:  d.Issuer,
		storage: d.Storage,
		cache:   d.Cache,
		mail:    d.Mail,
		webURL:  strings.TrimRight(d.WebURL, "/"),
		log:     log.With(zap.String("component", "service.users")),
		now:     now,
	}
}

type CreateInput struct {
	Name     string
	Email    string
	Password string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.User, error) {
	_, err := s.users.FindByEmail(ctx, in.Email)
	if err == nil {
		return domain.User{}, apperror.Validation(msgEmailUsed)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("find user by email: %w", err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	u, err := s.users.Create(ctx, domain.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Password: hash,
	})
	if errors.Is(err, store.ErrConflict) {
		return domain.User{}, apperror.Validation(msgEmailUsed)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	s.invalidateProviders(ctx)
	return u, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (domain.User, string, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, "", apperror.Unauthorized(msgBadCredentials)
	}
	if err != nil {
		return domain.User{}, "", fmt.Errorf("find user by email: %w", err)
	}
	if !s.hasher.Compare(password, u.Password) {
		return domain.User{}, "", apperror.Unauthorized(msgBadCredentials)
	}

	token, err := s.issuer.Issue(u.ID.String())
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return u, token, nil
}

// UpdateAvatar stores the new file before dropping the previous one so a failed upload keeps the old avatar.
func (s *Service) UpdateAvatar(ctx context.Context, userID uuid.UUID, up storage.Upload) (domain.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, apperror.Unauthorized(msgAvatarUnauthorized)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}

	name, err := s.storage.Save(ctx, up)
	if err != nil {
		return domain.User{}, fmt.Errorf("save avatar: %w", err)
	}

	previous := u.Avatar
	u.Avatar = &name
	u, err = s.users.Save(ctx, u)
	if err != nil {
		if delErr := s.storage.Delete(ctx, name); delErr != nil {
			s.log.Warn("avatar cleanup failed", zap.String("file", name), zap.Error(delErr))
		}
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, apperror.Unauthorized(msgAvatarUnauthorized)
		}
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}

	if previous != nil && *previous != "" {
		if err := s.storage.Delete(ctx, *previous); err != nil {
			s.log.Warn("previous avatar delete failed", zap.String("file", *previous), zap.Error(err))
		}
	}

	s.invalidateProviders(ctx)
	return u, nil
}

func (s *Service) ShowProfile(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, apperror.NotFound(msgUserNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

type UpdateProfileInput struct {
	UserID      uuid.UUID
	Name        string
	Email       string
	OldPassword string
	Password    string
}

func (s *Service) UpdateProfile(ctx context.Context, in UpdateProfileInput) (domain.User, error) {
	u, err := s.ShowProfile(ctx, in.UserID)
	if err != nil {
		return domain.User{}, err
	}

	owner, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil && owner.ID != u.ID:
		return domain.User{}, apperror.Validation(msgEmailInUse)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return domain.User{}, fmt.Errorf("find user by email: %w", err)
	}

	u.Name = strings.TrimSpace(in.Name)
	u.Email = in.Email

	if in.Password != "" {
		if in.OldPassword == "" {
			return domain.User{}, apperror.Validation(msgOldPasswordMissing)
		}
		if !s.hasher.Compare(in.OldPassword, u.Password) {
			return domain.User{}, apperror.Validation(msgOldPasswordInvalid)
		}
		hash, err := s.hashPassword(in.Password)
		if err != nil {
			return domain.User{}, err
		}
		u.Password = hash
	}

	u, err = s.users.Save(ctx, u)
	if errors.Is(err, store.ErrConflict) {
		return domain.User{}, apperror.Validation(msgEmailInUse)
	}
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, apperror.NotFound(msgUserNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}

	s.invalidateProviders(ctx)
	return u, nil
}

func (s *Service) SendForgotPasswordEmail(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return apperror.Validation(msgUserMissing)
	}
	if err != nil {
		return fmt.Errorf("find user by email: %w", err)
	}

	tok, err := s.tokens.Generate(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	err = s.mail.Send(ctx, mail.Message{
		To:      mail.Contact{Name: u.Name, Email: u.Email},
		Subject: "[GoBarber] Password recovery",
		Template: mail.Template{
			Name: mail.TemplateForgotPassword,
			Variables: map[string]any{
				"name": u.Name,
				"link": fmt.Sprintf("%s/reset-password?token=%s", s.webURL, tok.Token),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send recovery mail: %w", err)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token uuid.UUID, password string) error {
	tok, err := s.tokens.FindByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return apperror.Validation(msgTokenMissing)
	}
	if err != nil {
		return fmt.Errorf("find reset token: %w", err)
	}

	u, err := s.users.FindByID(ctx, tok.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return apperror.Validation(msgUserMissing)
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	if s.now().After(tok.CreatedAt.Add(ResetTokenTTL)) {
		return apperror.Validation(msgTokenExpired)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hash
	_, err = s.users.Save(ctx, u)
	if errors.Is(err, store.ErrNotFound) {
		return apperror.Validation(msgUserMissing)
	}
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", apperror.Validation(msgPasswordTooLong)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (s *Service) invalidateProviders(ctx context.Context) {
	if err := s.cache.InvalidatePrefix(ctx, cache.ProvidersListPrefix); err != nil {
		s.log.Warn("providers cache invalidation failed", zap.Error(err))
	}
}
