package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/miltonyano/gostack-gobarber/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, n domain.Notification) (domain.Notification, error)
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, recipientID, id uuid.UUID) (domain.Notification, error)
}
