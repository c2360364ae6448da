package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/miltonyano/gostack-gobarber/internal/domain"
	"github.com/miltonyano/gostack-gobarber/internal/store"
)

const notificationsCollection = "notifications"

type notificationDocument struct {
	ID          string    `bson:"_id"`
	RecipientID string    `bson:"recipient_id"`
	Content     string    `bson:"content"`
	Read        bool      `bson:"read"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type NotificationRepo struct {
	coll *mongo.Collection
}

func NewNotificationRepo(db *mongo.Database) *NotificationRepo {
	return &NotificationRepo{coll: db.Collection(notificationsCollection)}
}

// EnsureIndexes creates the recipient listing index. It is idempotent.
func (r *NotificationRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("recipient_created_at"),
	})
	return err
}

func (r *NotificationRepo) Create(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	now := time.Now().UTC()
	if n.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Notification{}, err
		}
		n.ID = id
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = now
	}

	if _, err := r.coll.InsertOne(ctx, toDocument(n)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Notification{}, store.ErrConflict
		}
		return domain.Notification{}, err
	}
	return n, nil
}

func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]domain.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.coll.Find(ctx, bson.M{"recipient_id": recipientID.String()}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []notificationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]domain.Notification, 0, len(docs))
	for _, d := range docs {
		n, err := fromDocument(d)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, recipientID, id uuid.UUID) (domain.Notification, error) {
	filter := bson.M{"_id": id.String(), "recipient_id": recipientID.String()}
	update := bson.M{"$set": bson.M{"read": true, "updated_at": time.Now().UTC()}}

	var doc notificationDocument
	err := r.coll.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Notification{}, store.ErrNotFound
		}
		return domain.Notification{}, err
	}
	return fromDocument(doc)
}

func toDocument(n domain.Notification) notificationDocument {
	return notificationDocument{
		ID:          n.ID.String(),
		RecipientID: n.RecipientID.String(),
		Content:     n.Content,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

func fromDocument(d notificationDocument) (domain.Notification, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Notification{}, err
	}
	recipientID, err := uuid.Parse(d.RecipientID)
	if err != nil {
		return domain.Notification{}, err
	}
	return domain.Notification{
		ID:          id,
		RecipientID: recipientID,
		Content:     d.Content,
		Read:        d.Read,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}
