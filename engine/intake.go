package engine

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/log"
	"github.com/windmark/itinerary-engine/runerr"
)

// intake validates the Request and seeds the deterministic random source
// (spec §4.1). The same Request and trace id must always produce the
// same seed, and thus the same Itinerary bit-for-bit (testable property 1).
func (e *Engine) intake(ctx context.Context, traceID string, req domain.Request) (domain.PlanState, error) {
	log.Infof(ctx, "intake: validating request for city=%s", req.City)

	if errs := req.Validate(); len(errs) > 0 {
		return domain.PlanState{}, runerr.New(runerr.InvalidRequest, "intake", fmt.Sprintf("%d validation error(s): %v", len(errs), errs))
	}

	seed := seedFrom(traceID, req)
	state := domain.NewPlanState(traceID, seed, req)

	log.Debugf(ctx, "intake: seed=%d days=%d", seed, req.Days())
	return state, nil
}

// seedFrom derives a deterministic int64 seed from hash(trace_id, request)
// per spec §4.1.
func seedFrom(traceID string, req domain.Request) int64 {
	canon, _ := json.Marshal(req)
	h := sha256.New()
	h.Write([]byte(traceID))
	h.Write(canon)
	sum := h.Sum(nil)
	return int64(binary.BigEndian.Uint64(sum[:8]) &^ (1 << 63)) // non-negative
}
