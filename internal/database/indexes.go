package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateIndexes creates the indexes for every collection. Probe executions
// older than retention are expired by MongoDB; zero disables expiry.
func CreateIndexes(ctx context.Context, db *MongoDB, retention time.Duration) error {
	slog.Info("Creating MongoDB indexes")

	if err := createIndexes(ctx, db, CollectionProbeExecutions, probeExecutionIndexes(retention)); err != nil {
		return err
	}
	if err := createIndexes(ctx, db, CollectionAlertLogs, alertLogIndexes()); err != nil {
		return err
	}

	slog.Info("Successfully created all MongoDB indexes")
	return nil
}

func probeExecutionIndexes(retention time.Duration) []mongo.IndexModel {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "correlation_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_correlation_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "executed_at", Value: -1}},
			Options: options.Index().SetName("idx_executed_at"),
		},
		{
			Keys: bson.D{
				{Key: "result", Value: 1},
				{Key: "executed_at", Value: -1},
			},
			Options: options.Index().SetName("idx_result_executed_at"),
		},
	}

	if retention > 0 {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "executed_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())).SetName("idx_executed_at_ttl"),
		})
	}

	return indexes
}

func alertLogIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "correlation_id", Value: 1}},
			Options: options.Index().SetName("idx_correlation_id"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created_at"),
		},
		{
			Keys: bson.D{
				{Key: "acknowledgment_status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_acknowledgment_status_created_at"),
		},
	}
}

func createIndexes(ctx context.Context, db *MongoDB, name string, indexes []mongo.IndexModel) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := db.GetCollection(name).Indexes().CreateMany(ctxTimeout, indexes); err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", name, err)
	}

	slog.Info("Created indexes", "collection", name, "count", len(indexes))
	return nil
}
