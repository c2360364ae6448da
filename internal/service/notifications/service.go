package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/miltonyano/gostack-gobarber/internal/apperror"
	"github.com/miltonyano/gostack-gobarber/internal/domain"
	"github.com/miltonyano/gostack-gobarber/internal/store"
)

const ListLimit = 50

type Service struct {
	repo store.NotificationRepository
}

func NewService(repo store.NotificationRepository) *Service {
	return &Service{repo: repo}
}

// List returns the newest notifications of the recipient first.
func (s *Service) List(ctx context.Context, recipientID uuid.UUID) ([]domain.Notification, error) {
	rows, err := s.repo.ListByRecipient(ctx, recipientID, ListLimit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return rows, nil
}

func (s *Service) MarkRead(ctx context.Context, recipientID, id uuid.UUID) (domain.Notification, error) {
	n, err := s.repo.MarkRead(ctx, recipientID, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Notification{}, apperror.NotFound("Notification not found.")
	}
	if err != nil {
		return domain.Notification{}, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}
