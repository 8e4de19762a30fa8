package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dandantas/odoo-probe/internal/model"
)

// ErrNotAcknowledgeable is returned when acknowledging a resolved alert
var ErrNotAcknowledgeable = errors.New("only failure alerts can be acknowledged")

// AlertRepository stores webhook deliveries for failure and resolved alerts
type AlertRepository struct {
	collection *mongo.Collection
}

func NewAlertRepository(db *MongoDB) *AlertRepository {
	return &AlertRepository{
		collection: db.GetCollection(CollectionAlertLogs),
	}
}

// Create stores an alert log. Failure alerts start open, resolved alerts
// never need acknowledgment.
func (r *AlertRepository) Create(ctx context.Context, alert *model.AlertLog) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if alert.ID.IsZero() {
		alert.ID = primitive.NewObjectID()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	if alert.AcknowledgmentStatus == "" {
		alert.AcknowledgmentStatus = model.InitialAckStatus(alert.Kind)
	}

	if _, err := r.collection.InsertOne(ctxTimeout, alert); err != nil {
		return fmt.Errorf("failed to store %s alert: %w", alert.Kind, err)
	}

	return nil
}

// List returns alert logs newest first
func (r *AlertRepository) List(ctx context.Context, filter bson.M, page, limit int) ([]model.AlertLog, int64, error) {
	var alerts []model.AlertLog
	total, err := findPage(ctx, r.collection, filter, "created_at", page, limit, &alerts)
	if err != nil {
		return nil, 0, fmt.Errorf("alert logs: %w", err)
	}
	return alerts, total, nil
}

// acknowledgeFilter matches id only while it is a failure alert
func acknowledgeFilter(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "kind": model.AlertKindFailure}
}

func acknowledgeUpdate(by string, at time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"acknowledgment_status": model.AckStatusAcknowledged,
			"acknowledged_by":       by,
			"acknowledged_at":       at,
		},
	}
}

// Acknowledge records who took ownership of a failure alert. Acknowledging
// again overwrites the previous owner.
func (r *AlertRepository) Acknowledge(ctx context.Context, id primitive.ObjectID, acknowledgedBy string, acknowledgedAt time.Time) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.collection.UpdateOne(ctxTimeout, acknowledgeFilter(id), acknowledgeUpdate(acknowledgedBy, acknowledgedAt))
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	var existing struct {
		Kind string `bson:"kind"`
	}
	err = r.collection.FindOne(ctxTimeout, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"kind": 1})).Decode(&existing)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("alert log %w", ErrNotFound)
	case err != nil:
		return fmt.Errorf("failed to look up alert: %w", err)
	default:
		return fmt.Errorf("%s alert: %w", existing.Kind, ErrNotAcknowledgeable)
	}
}
