package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/engine"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestAppendEvent_PersistsOneRow(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	err := store.AppendEvent(ctx, "trace-1", engine.Event{
		Ts: time.Now(), Kind: engine.EventNode, Node: "intake", Status: "ok",
		Details: map[string]any{"seed": 42},
	})
	require.NoError(t, err)

	var count int64
	db.Model(&RunEvent{}).Where("trace_id = ?", "trace-1").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSaveItinerary_UpsertsOnRepeatedCallsForSameTraceID(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	it := domain.Itinerary{
		CostBreakdown: domain.CostBreakdown{TotalCents: 1000},
		Metadata:      domain.Metadata{TraceID: "trace-1", CreatedAt: time.Now()},
	}
	require.NoError(t, store.SaveItinerary(ctx, "trace-1", it))

	it.CostBreakdown.TotalCents = 2000
	require.NoError(t, store.SaveItinerary(ctx, "trace-1", it))

	var count int64
	db.Model(&FinalItinerary{}).Where("trace_id = ?", "trace-1").Count(&count)
	assert.Equal(t, int64(1), count) // upsert, not a second row

	got, err := store.Get(ctx, "trace-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.CostBreakdown.TotalCents)
}

func TestGet_UnknownTraceIDErrors(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	_, err := store.Get(context.Background(), "does-not-exist")
	assert.Error(t, err)
}
