package engine

import (
	"fmt"
	"time"

	"github.com/windmark/itinerary-engine/domain"
)

// synthesize turns the repaired Plan into the final Itinerary: Activities
// from resolved Choices, a CostBreakdown, Decisions for non-obvious
// choices, and Citations under the "no evidence, no claim" rule — a
// Choice without provenance never becomes a Citation (spec §4.9).
func (e *Engine) synthesize(state domain.PlanState) domain.PlanState {
	plan := state.Plan
	it := domain.Itinerary{
		Metadata: domain.Metadata{TraceID: state.TraceID, CreatedAt: time.Now()},
	}

	for _, day := range plan.Days {
		dayIt := domain.DayItinerary{Date: day.Date}
		for _, slot := range day.Slots {
			best := slot.Best()
			if best.Kind == "" {
				continue
			}
			var cost int64
			if best.Features.CostCents != nil {
				cost = *best.Features.CostCents
			}
			dayIt.Activities = append(dayIt.Activities, domain.Activity{
				Window:    slot.Window,
				Kind:      best.Kind,
				Name:      activityName(best),
				CostCents: cost,
			})

			if !best.Provenance.IsZero() {
				it.Citations = append(it.Citations, domain.Citation{
					Claim:      fmt.Sprintf("%s: %s", best.Kind, activityName(best)),
					Provenance: best.Provenance,
				})
			}

			if best.Provenance.Source == domain.SourceRAGTool {
				it.Decisions = append(it.Decisions, domain.Decision{
					Kind:      domain.DecisionRAGGrounded,
					Claim:     fmt.Sprintf("%s selection", best.Kind),
					Rationale: "retrieved knowledge named this option and a live tool result confirmed it",
				})
			}
		}
		it.Days = append(it.Days, dayIt)
	}

	it.CostBreakdown = costBreakdown(plan, state.Fx)

	if state.RepairCyclesRun > 0 {
		it.Decisions = append(it.Decisions, domain.Decision{
			Kind:      domain.DecisionRepairMove,
			Claim:     "itinerary adjusted to satisfy constraints",
			Rationale: fmt.Sprintf("%d repair cycle(s) resolved a constraint violation before this itinerary was finalized", state.RepairCyclesRun),
		})
	}

	state.Itinerary = &it
	return state
}

func activityName(c domain.Choice) string {
	if c.OptionRef != "" {
		return c.OptionRef
	}
	if c.Provenance.RefID != "" {
		return c.Provenance.RefID
	}
	return string(c.Kind)
}

func costBreakdown(plan domain.Plan, fx *domain.ToolResult) domain.CostBreakdown {
	cb := domain.CostBreakdown{
		ByCategory:         plan.CostByCategory(),
		DailyDiscretionary: plan.Assumptions.DailySpendCents,
		TotalCents:         plan.TotalCost(),
	}
	if fx != nil {
		cb.CurrencyDisclaimer = fmt.Sprintf("prices converted from a non-USD source; rates fetched at %s and may drift",
			fx.Provenance.FetchedAt.UTC().Format(time.RFC3339))
	}
	return cb
}
