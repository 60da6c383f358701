package engine

import (
	"context"
	"time"

	"github.com/windmark/itinerary-engine/adapters/attractions"
	"github.com/windmark/itinerary-engine/adapters/flights"
	"github.com/windmark/itinerary-engine/adapters/fx"
	"github.com/windmark/itinerary-engine/adapters/lodging"
	"github.com/windmark/itinerary-engine/adapters/transit"
	"github.com/windmark/itinerary-engine/adapters/weather"
	"github.com/windmark/itinerary-engine/config"
	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/log"
	"github.com/windmark/itinerary-engine/retrieval"
	"github.com/windmark/itinerary-engine/runerr"
)

// SessionStore persists run events and the final itinerary (spec §5).
// Persistence failures never fail a run; the engine logs and continues.
type SessionStore interface {
	AppendEvent(ctx context.Context, traceID string, e Event) error
	SaveItinerary(ctx context.Context, traceID string, it domain.Itinerary) error
}

// NullStore discards everything; used in tests and when no store is wired.
type NullStore struct{}

func (NullStore) AppendEvent(context.Context, string, Event) error        { return nil }
func (NullStore) SaveItinerary(context.Context, string, domain.Itinerary) error { return nil }

// Engine is the ten-stage planning pipeline, owning every adapter client,
// the retriever, the hint extractor, and a session store. One Engine
// serves many concurrent runs; it holds no per-run mutable state.
type Engine struct {
	Config *config.Config

	Retriever     retrieval.Retriever
	HintExtractor retrieval.HintExtractor

	Flights     *flights.Client
	Lodging     *lodging.Client
	Transit     *transit.Client
	Weather     *weather.Client
	Fx          *fx.Client
	Attractions *attractions.Client

	Store SessionStore
	Sink  Sink
}

// New wires an Engine from already-constructed dependencies.
func New(cfg *config.Config, retriever retrieval.Retriever, hints retrieval.HintExtractor,
	flightsClient *flights.Client, lodgingClient *lodging.Client, transitClient *transit.Client,
	weatherClient *weather.Client, fxClient *fx.Client, attractionsClient *attractions.Client,
	store SessionStore, sink Sink) *Engine {
	if sink == nil {
		sink = NullSink{}
	}
	if store == nil {
		store = NullStore{}
	}
	return &Engine{
		Config: cfg, Retriever: retriever, HintExtractor: hints,
		Flights: flightsClient, Lodging: lodgingClient, Transit: transitClient,
		Weather: weatherClient, Fx: fxClient, Attractions: attractionsClient,
		Store: store, Sink: sink,
	}
}

// Plan runs the full ten-stage pipeline for one Request and returns the
// final Itinerary or a runerr-kinded error (spec §2, §3).
func (e *Engine) Plan(ctx context.Context, traceID string, req domain.Request) (domain.Itinerary, error) {
	if d := time.Duration(e.Config.Engine.RunTimeoutSec) * time.Second; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	e.emit(ctx, traceID, "intake", "started", nil)
	state, err := e.intake(ctx, traceID, req)
	if err != nil {
		e.emit(ctx, traceID, "intake", "failed", map[string]any{"error": err.Error()})
		return domain.Itinerary{}, err
	}
	e.emit(ctx, traceID, "intake", "done", nil)

	state = e.retrieve(ctx, state)
	e.emit(ctx, traceID, "retrieve", "done", map[string]any{"chunks": len(state.RetrievedChunks)})

	state = e.generate(state)
	if len(state.Candidates) == 0 {
		err := runerr.New(runerr.ResolveNoOption, "generate", "no candidate plans could be generated")
		e.emit(ctx, traceID, "generate", "failed", nil)
		return domain.Itinerary{}, err
	}
	e.emit(ctx, traceID, "generate", "done", map[string]any{"candidates": len(state.Candidates)})

	state = e.selectCandidate(state)
	e.emit(ctx, traceID, "select", "done", map[string]any{"chosen": state.Plan.ID})

	state, err = e.execute(ctx, state)
	if err != nil {
		e.emit(ctx, traceID, "execute", "failed", map[string]any{"error": err.Error()})
		return domain.Itinerary{}, err
	}
	e.emit(ctx, traceID, "execute", "done", nil)

	state = e.resolve(state)
	e.emit(ctx, traceID, "resolve", "done", nil)

	state = e.verify(state)
	e.emit(ctx, traceID, "verify", "done", map[string]any{"violations": len(state.Violations)})

	state = e.repairLoop(ctx, state)
	if state.Status == domain.RunUnrepairable {
		e.emit(ctx, traceID, "repair", "unrepairable", nil)
		err := runerr.New(runerr.Unrepairable, "repair", "violations remained after the bounded repair loop")
		return domain.Itinerary{}, err
	}
	e.emit(ctx, traceID, "repair", "done", map[string]any{"cycles": state.RepairCyclesRun})

	state = e.synthesize(state)
	e.emit(ctx, traceID, "synthesize", "done", nil)

	state.Status = domain.RunCompleted
	state.Done = true

	if state.Itinerary == nil {
		return domain.Itinerary{}, runerr.New(runerr.Internal, "synthesize", "no itinerary produced")
	}

	if err := e.Store.SaveItinerary(ctx, traceID, *state.Itinerary); err != nil {
		log.Warnf(ctx, "plan: failed to persist itinerary: %v", err)
	}
	e.emit(ctx, traceID, "respond", "done", nil)

	return *state.Itinerary, nil
}

func (e *Engine) emit(ctx context.Context, traceID, node, status string, details map[string]any) {
	ev := Event{Ts: time.Now(), Kind: EventNode, Node: node, Status: status, Details: details}
	e.Sink.Emit(ev)
	if err := e.Store.AppendEvent(ctx, traceID, ev); err != nil {
		log.Warnf(ctx, "emit: failed to persist event: %v", err)
	}
}
