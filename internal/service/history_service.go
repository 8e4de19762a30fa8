package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/dandantas/odoo-probe/internal/model"
)

// ErrInvalidArgument marks a malformed query or identifier
var ErrInvalidArgument = errors.New("invalid argument")

// ProbeStore is the persistence used by HistoryService
type ProbeStore interface {
	Create(ctx context.Context, execution *model.ProbeExecution) error
	GetByCorrelationID(ctx context.Context, correlationID string) (*model.ProbeExecution, error)
	List(ctx context.Context, filter bson.M, page, limit int) ([]model.ProbeExecution, int64, error)
}

// HistoryService handles probe execution history
type HistoryService struct {
	repo ProbeStore
}

// NewHistoryService creates a new history service
func NewHistoryService(repo ProbeStore) *HistoryService {
	return &HistoryService{
		repo: repo,
	}
}

// Record stores a finished probe run
func (s *HistoryService) Record(ctx context.Context, execution *model.ProbeExecution) error {
	return s.repo.Create(ctx, execution)
}

// GetByCorrelationID retrieves an execution by correlation ID
func (s *HistoryService) GetByCorrelationID(ctx context.Context, correlationID string) (*model.ProbeExecution, error) {
	return s.repo.GetByCorrelationID(ctx, correlationID)
}

// List retrieves execution history with filtering
func (s *HistoryService) List(ctx context.Context, result, from, to string, page, limit int) ([]model.ProbeSummary, int64, error) {
	filter := bson.M{}

	if result != "" {
		switch model.ProbeResult(result) {
		case model.ResultHealthy, model.ResultUnhealthy, model.ResultNeedsReinit:
			filter["result"] = result
		default:
			return nil, 0, fmt.Errorf("%w: unknown result %q", ErrInvalidArgument, result)
		}
	}

	if err := addTimeRange(filter, "executed_at", from, to); err != nil {
		return nil, 0, err
	}

	executions, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]model.ProbeSummary, len(executions))
	for i, exec := range executions {
		summaries[i] = exec.ToSummary()
	}

	return summaries, total, nil
}

// addTimeRange adds $gte/$lte bounds parsed from RFC 3339 strings
func addTimeRange(filter bson.M, field, from, to string) error {
	bounds := bson.M{}

	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return fmt.Errorf("%w: from must be RFC 3339", ErrInvalidArgument)
		}
		bounds["$gte"] = t.UTC()
	}

	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return fmt.Errorf("%w: to must be RFC 3339", ErrInvalidArgument)
		}
		bounds["$lte"] = t.UTC()
	}

	if len(bounds) > 0 {
		filter[field] = bounds
	}
	return nil
}
