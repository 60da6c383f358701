package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windmark/itinerary-engine/config"
)

func TestNew_DefaultsNilSinkAndStore(t *testing.T) {
	e := New(&config.Config{}, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)

	require.NotNil(t, e.Sink)
	require.NotNil(t, e.Store)
	assert.IsType(t, NullSink{}, e.Sink)
	assert.IsType(t, NullStore{}, e.Store)
}

type captureSink struct {
	events []Event
}

func (c *captureSink) Emit(e Event) { c.events = append(c.events, e) }

func TestEmit_ForwardsToSinkAndStore(t *testing.T) {
	sink := &captureSink{}
	e := &Engine{Sink: sink, Store: NullStore{}}

	e.emit(context.Background(), "trace-1", "intake", "ok", map[string]any{"seed": 1})

	require.Len(t, sink.events, 1)
	assert.Equal(t, "intake", sink.events[0].Node)
	assert.Equal(t, "ok", sink.events[0].Status)
	assert.Equal(t, EventNode, sink.events[0].Kind)
}

func TestChanSink_DropsRatherThanBlocksWhenFull(t *testing.T) {
	s := NewChanSink(1)
	s.Emit(Event{Node: "a"})
	s.Emit(Event{Node: "b"}) // buffer full; must not block or panic

	got := <-s.Events()
	assert.Equal(t, "a", got.Node)
}
