package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/runerr"
)

func sampleReq() domain.Request {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return domain.Request{
		City:        "Paris",
		Window:      domain.Window{StartUTC: start, EndUTC: start.AddDate(0, 0, 3), TZ: "Europe/Paris"},
		BudgetCents: 250000,
		Airports:    []string{"JFK"},
	}
}

func TestSeedFrom_IsDeterministicForSameInput(t *testing.T) {
	req := sampleReq()
	s1 := seedFrom("trace-1", req)
	s2 := seedFrom("trace-1", req)
	assert.Equal(t, s1, s2)
}

func TestSeedFrom_DiffersAcrossTraceIDs(t *testing.T) {
	req := sampleReq()
	s1 := seedFrom("trace-1", req)
	s2 := seedFrom("trace-2", req)
	assert.NotEqual(t, s1, s2)
}

func TestSeedFrom_NeverNegative(t *testing.T) {
	req := sampleReq()
	for _, trace := range []string{"a", "b", "c", "d-longer-trace-id"} {
		assert.GreaterOrEqual(t, seedFrom(trace, req), int64(0))
	}
}

func TestIntake_RejectsInvalidRequest(t *testing.T) {
	e := &Engine{}
	_, err := e.intake(context.Background(), "trace-1", domain.Request{})

	require.Error(t, err)
	var rerr *runerr.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, runerr.InvalidRequest, rerr.Kind)
}

func TestIntake_ValidRequestSeedsPlanState(t *testing.T) {
	e := &Engine{}
	state, err := e.intake(context.Background(), "trace-1", sampleReq())

	require.NoError(t, err)
	assert.Equal(t, "trace-1", state.TraceID)
	assert.Equal(t, domain.RunRunning, state.Status)
}
