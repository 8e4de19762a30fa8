package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dandantas/odoo-probe/internal/model"
)

// AlertStore is the persistence used by AlertService
type AlertStore interface {
	Create(ctx context.Context, alert *model.AlertLog) error
	List(ctx context.Context, filter bson.M, page, limit int) ([]model.AlertLog, int64, error)
	Acknowledge(ctx context.Context, id primitive.ObjectID, acknowledgedBy string, acknowledgedAt time.Time) error
}

// AlertService handles alert log queries
type AlertService struct {
	repo AlertStore
}

// NewAlertService creates a new alert service
func NewAlertService(repo AlertStore) *AlertService {
	return &AlertService{
		repo: repo,
	}
}

// RecordAlert stores an alert delivery log
func (s *AlertService) RecordAlert(ctx context.Context, alert *model.AlertLog) error {
	return s.repo.Create(ctx, alert)
}

// List retrieves alert logs with filtering
func (s *AlertService) List(ctx context.Context, kind, status, acknowledgmentStatus, from, to string, page, limit int) ([]model.AlertLogSummary, int64, error) {
	filter := bson.M{}

	if kind != "" {
		filter["kind"] = kind
	}

	if status != "" {
		filter["final_status"] = status
	}

	if acknowledgmentStatus != "" {
		// "open" also matches documents written before the field existed
		if acknowledgmentStatus == model.AckStatusOpen {
			filter["$or"] = []bson.M{
				{"acknowledgment_status": model.AckStatusOpen},
				{"acknowledgment_status": bson.M{"$exists": false}},
				{"acknowledgment_status": ""},
			}
		} else {
			filter["acknowledgment_status"] = acknowledgmentStatus
		}
	}

	if err := addTimeRange(filter, "created_at", from, to); err != nil {
		return nil, 0, err
	}

	alerts, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]model.AlertLogSummary, len(alerts))
	for i, alert := range alerts {
		summaries[i] = alert.ToSummary()
	}

	return summaries, total, nil
}

// Acknowledge marks an alert as acknowledged
func (s *AlertService) Acknowledge(ctx context.Context, alertID, acknowledgedBy string) error {
	objID, err := primitive.ObjectIDFromHex(alertID)
	if err != nil {
		return fmt.Errorf("%w: invalid alert ID", ErrInvalidArgument)
	}

	if acknowledgedBy == "" {
		return fmt.Errorf("%w: acknowledged_by is required", ErrInvalidArgument)
	}

	return s.repo.Acknowledge(ctx, objID, acknowledgedBy, time.Now().UTC())
}
