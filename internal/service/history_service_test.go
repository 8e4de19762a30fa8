package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dandantas/odoo-probe/internal/model"
)

type fakeProbeStore struct {
	filter  bson.M
	page    int
	limit   int
	created []*model.ProbeExecution
	items   []model.ProbeExecution
}

func (f *fakeProbeStore) Create(ctx context.Context, execution *model.ProbeExecution) error {
	f.created = append(f.created, execution)
	return nil
}

func (f *fakeProbeStore) GetByCorrelationID(ctx context.Context, correlationID string) (*model.ProbeExecution, error) {
	return &model.ProbeExecution{CorrelationID: correlationID}, nil
}

func (f *fakeProbeStore) List(ctx context.Context, filter bson.M, page, limit int) ([]model.ProbeExecution, int64, error) {
	f.filter, f.page, f.limit = filter, page, limit
	return f.items, int64(len(f.items)), nil
}

type fakeAlertStore struct {
	filter  bson.M
	ackID   primitive.ObjectID
	ackBy   string
	created []*model.AlertLog
	items   []model.AlertLog
}

func (f *fakeAlertStore) Create(ctx context.Context, alert *model.AlertLog) error {
	f.created = append(f.created, alert)
	return nil
}

func (f *fakeAlertStore) List(ctx context.Context, filter bson.M, page, limit int) ([]model.AlertLog, int64, error) {
	f.filter = filter
	return f.items, int64(len(f.items)), nil
}

func (f *fakeAlertStore) Acknowledge(ctx context.Context, id primitive.ObjectID, acknowledgedBy string, acknowledgedAt time.Time) error {
	f.ackID, f.ackBy = id, acknowledgedBy
	return nil
}

func TestHistoryListBuildsFilter(t *testing.T) {
	store := &fakeProbeStore{items: []model.ProbeExecution{{CorrelationID: "a", Result: model.ResultHealthy}}}
	s := NewHistoryService(store)

	summaries, total, err := s.List(context.Background(), "healthy", "2026-01-01T00:00:00Z", "2026-01-02T00:00:00Z", 2, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(1), total)
	require.Len(t, summaries, 1)
	assert.Equal(t, "a", summaries[0].CorrelationID)
	assert.Equal(t, 2, store.page)
	assert.Equal(t, 10, store.limit)

	assert.Equal(t, "healthy", store.filter["result"])
	bounds := store.filter["executed_at"].(bson.M)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), bounds["$gte"])
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), bounds["$lte"])
}

func TestHistoryListRejectsBadInput(t *testing.T) {
	s := NewHistoryService(&fakeProbeStore{})

	_, _, err := s.List(context.Background(), "sideways", "", "", 1, 20)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, _, err = s.List(context.Background(), "", "yesterday", "", 1, 20)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestHistoryRecordStores(t *testing.T) {
	store := &fakeProbeStore{}
	s := NewHistoryService(store)

	require.NoError(t, s.Record(context.Background(), &model.ProbeExecution{CorrelationID: "x"}))
	require.Len(t, store.created, 1)
}

func TestAlertListOpenMatchesMissingStatus(t *testing.T) {
	store := &fakeAlertStore{}
	s := NewAlertService(store)

	_, _, err := s.List(context.Background(), "failure", "delivered", "open", "", "", 1, 20)
	require.NoError(t, err)

	assert.Equal(t, "failure", store.filter["kind"])
	assert.Equal(t, "delivered", store.filter["final_status"])
	assert.Len(t, store.filter["$or"], 3)
}

func TestAlertAcknowledge(t *testing.T) {
	store := &fakeAlertStore{}
	s := NewAlertService(store)
	id := primitive.NewObjectID()

	require.NoError(t, s.Acknowledge(context.Background(), id.Hex(), "ops"))
	assert.Equal(t, id, store.ackID)
	assert.Equal(t, "ops", store.ackBy)

	assert.ErrorIs(t, s.Acknowledge(context.Background(), "nope", "ops"), ErrInvalidArgument)
	assert.ErrorIs(t, s.Acknowledge(context.Background(), id.Hex(), ""), ErrInvalidArgument)
}
