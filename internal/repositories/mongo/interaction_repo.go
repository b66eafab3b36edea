package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joblens/joblens/internal/models"
)

// InteractionRepository is append-only: events are inserted once and only
// ever read back as analysis input.
type InteractionRepository interface {
	Append(ctx context.Context, ev *models.InteractionEvent) error
	ListByUserSince(ctx context.Context, userID string, since time.Time, limit int64) ([]models.InteractionEvent, error)
	ListSince(ctx context.Context, since time.Time, limit int64) ([]models.InteractionEvent, error)
}

type interactionRepo struct {
	col *mongo.Collection
}

func NewInteractionRepo(db *mongo.Database) InteractionRepository {
	return &interactionRepo{col: db.Collection("interactions")}
}

func (r *interactionRepo) Append(ctx context.Context, ev *models.InteractionEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, ev)
	return err
}

func (r *interactionRepo) ListByUserSince(ctx context.Context, userID string, since time.Time, limit int64) ([]models.InteractionEvent, error) {
	filter := bson.M{
		"user_id":   userID,
		"timestamp": bson.M{"$gte": since.UTC()},
	}
	return r.list(ctx, filter, limit)
}

func (r *interactionRepo) ListSince(ctx context.Context, since time.Time, limit int64) ([]models.InteractionEvent, error) {
	filter := bson.M{
		"timestamp": bson.M{"$gte": since.UTC()},
	}
	return r.list(ctx, filter, limit)
}

func (r *interactionRepo) list(ctx context.Context, filter bson.M, limit int64) ([]models.InteractionEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []models.InteractionEvent
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
