package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const listTimeout = 10 * time.Second

// pageOptions sorts newest first on sortField and skips to a 1-based page
func pageOptions(sortField string, page, limit int) *options.FindOptions {
	if page < 1 {
		page = 1
	}
	return options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: sortField, Value: -1}})
}

// findPage decodes one page of filter matches into out and returns the total
// number of matches.
func findPage(ctx context.Context, coll *mongo.Collection, filter bson.M, sortField string, page, limit int, out interface{}) (int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	total, err := coll.CountDocuments(ctxTimeout, filter)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}

	cursor, err := coll.Find(ctxTimeout, filter, pageOptions(sortField, page, limit))
	if err != nil {
		return 0, fmt.Errorf("find failed: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	if err := cursor.All(ctxTimeout, out); err != nil {
		return 0, fmt.Errorf("decode failed: %w", err)
	}

	return total, nil
}
