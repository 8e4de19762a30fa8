package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dandantas/odoo-probe/internal/model"
)

// ProbeRepository handles probe execution history
type ProbeRepository struct {
	collection *mongo.Collection
}

// NewProbeRepository creates a new probe repository
func NewProbeRepository(db *MongoDB) *ProbeRepository {
	return &ProbeRepository{
		collection: db.GetCollection(CollectionProbeExecutions),
	}
}

// Create inserts a probe execution
func (r *ProbeRepository) Create(ctx context.Context, execution *model.ProbeExecution) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if execution.ID.IsZero() {
		execution.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctxTimeout, execution); err != nil {
		return fmt.Errorf("failed to create probe execution: %w", err)
	}

	return nil
}

// GetByCorrelationID retrieves a probe execution by correlation ID
func (r *ProbeRepository) GetByCorrelationID(ctx context.Context, correlationID string) (*model.ProbeExecution, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var execution model.ProbeExecution
	err := r.collection.FindOne(ctxTimeout, bson.M{"correlation_id": correlationID}).Decode(&execution)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("probe execution %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get probe execution: %w", err)
	}

	return &execution, nil
}

// List retrieves probe executions, newest first
func (r *ProbeRepository) List(ctx context.Context, filter bson.M, page, limit int) ([]model.ProbeExecution, int64, error) {
	var executions []model.ProbeExecution
	total, err := findPage(ctx, r.collection, filter, "executed_at", page, limit, &executions)
	if err != nil {
		return nil, 0, fmt.Errorf("probe executions: %w", err)
	}
	return executions, total, nil
}
