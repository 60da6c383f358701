package engine

import (
	"math"
	"sort"
	"strings"

	"github.com/windmark/itinerary-engine/domain"
)

// resolve binds each slot's best Choice to a concrete ToolResult gathered
// during Execute, using the per-kind matching rules from spec §4.6. A
// Choice that cannot be matched gets a timing_infeasible violation instead
// of an invented OptionRef. Per SPEC_FULL.md §13 item 1, Resolve tracks the
// ref_ids it has already bound per ChoiceKind and excludes them from
// subsequent matching within the same Resolve pass, so e.g. an outbound and
// a return flight Choice bound in one pass never share an offer. Choices
// that already carry an OptionRef are skipped and their refs are not added
// to that set.
func (e *Engine) resolve(state domain.PlanState) domain.PlanState {
	plan := state.Plan
	used := map[domain.ChoiceKind]map[string]bool{}

	for di := range plan.Days {
		day := &plan.Days[di]
		for si := range day.Slots {
			slot := &day.Slots[si]
			if slot.Locked || len(slot.Choices) == 0 {
				continue
			}
			best := &slot.Choices[0]
			if best.Resolved() {
				continue
			}

			match, ok := resolveChoice(*best, state, used[best.Kind])
			if !ok {
				state.Violations = append(state.Violations, domain.Violation{
					Kind: domain.ViolationTimingInfeasible, Blocking: true,
					Details: map[string]any{"reason": "missing_option", "kind": string(best.Kind)},
					NodeRef: slotRef(slot.Window),
				})
				continue
			}

			best.OptionRef = match.ID
			best.Features = match.Features
			best.Provenance = mergeProvenance(best.Provenance, match.Provenance)

			if used[best.Kind] == nil {
				used[best.Kind] = map[string]bool{}
			}
			used[best.Kind][match.ID] = true
		}
	}

	state.Plan = plan
	return state
}

func slotRef(w domain.Window) string {
	return w.StartUTC.Format("2006-01-02T15:04") + "Z"
}

// mergeProvenance marks a Choice as rag+tool when RAG contributed the
// original Choice and a tool result resolved it (spec §4.6).
func mergeProvenance(original, matched domain.Provenance) domain.Provenance {
	if original.Source == domain.SourceRAG && matched.Source == domain.SourceTool {
		matched.Source = domain.SourceRAGTool
	}
	return matched
}

func resolveChoice(choice domain.Choice, state domain.PlanState, used map[string]bool) (domain.ToolResult, bool) {
	switch choice.Kind {
	case domain.ChoiceFlight:
		return bestCostMatch(state.FlightsByID, choice, used)
	case domain.ChoiceLodging:
		return bestLodgingMatch(state.LodgingsByID, choice, used)
	case domain.ChoiceAttraction:
		return bestAttractionMatch(state.AttractionsByID, choice, used)
	case domain.ChoiceTransit:
		return bestTransitMatch(state.TransitByID, choice, used)
	default:
		return domain.ToolResult{}, false
	}
}

// bestCostMatch implements spec §4.6's flight rule: match by leg tag first
// (the "outbound:"/"return:" prefix of the result id), then minimize cost
// delta within tier. Airports are not compared.
func bestCostMatch(pool map[string]domain.ToolResult, choice domain.Choice, used map[string]bool) (domain.ToolResult, bool) {
	var best domain.ToolResult
	var bestDelta float64 = math.MaxFloat64
	found := false
	for _, r := range pool {
		if used[r.ID] {
			continue
		}
		if choice.Leg != "" && !strings.HasPrefix(r.ID, choice.Leg+":") {
			continue
		}
		if r.Features.Tier != "" && choice.Features.Tier != "" && r.Features.Tier != choice.Features.Tier {
			continue
		}
		delta := costDelta(choice.Features.CostCents, r.Features.CostCents)
		if delta < bestDelta {
			bestDelta = delta
			best = r
			found = true
		}
	}
	return best, found
}

func bestLodgingMatch(pool map[string]domain.ToolResult, choice domain.Choice, used map[string]bool) (domain.ToolResult, bool) {
	var best domain.ToolResult
	var bestDelta float64 = math.MaxFloat64
	found := false
	for _, r := range pool {
		if used[r.ID] {
			continue
		}
		if choice.Features.KidFriendly == domain.Yes && r.Features.KidFriendly == domain.No {
			continue
		}
		delta := costDelta(choice.Features.CostCents, r.Features.CostCents)
		if delta < bestDelta {
			bestDelta = delta
			best = r
			found = true
		}
	}
	return best, found
}

func bestAttractionMatch(pool map[string]domain.ToolResult, choice domain.Choice, used map[string]bool) (domain.ToolResult, bool) {
	var ids []string
	for id := range pool {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if choice.Provenance.RefID != "" {
		for _, id := range ids {
			r := pool[id]
			if used[r.ID] {
				continue
			}
			if r.ID == choice.Provenance.RefID {
				return r, true
			}
		}
	}

	var best domain.ToolResult
	bestOverlap := -1
	var bestDelta float64 = math.MaxFloat64
	found := false
	for _, id := range ids {
		r := pool[id]
		if used[r.ID] {
			continue
		}
		overlap := themeOverlap(choice.Features.Themes, r.Features.Themes)
		delta := costDelta(choice.Features.CostCents, r.Features.CostCents)
		if overlap > bestOverlap || (overlap == bestOverlap && delta < bestDelta) {
			bestOverlap = overlap
			bestDelta = delta
			best = r
			found = true
		}
	}
	return best, found
}

func bestTransitMatch(pool map[string]domain.ToolResult, choice domain.Choice, used map[string]bool) (domain.ToolResult, bool) {
	wantMode := choice.Provenance.RefID
	for _, r := range pool {
		if used[r.ID] || wantMode == "" || r.ID == "" {
			continue
		}
		if len(r.ID) >= len(wantMode) && r.ID[len(r.ID)-len(wantMode):] == wantMode {
			return r, true
		}
	}
	// fall back to any unused transit result if the mode-suffix match fails
	for _, r := range pool {
		if used[r.ID] {
			continue
		}
		return r, true
	}
	return domain.ToolResult{}, false
}

func costDelta(want, got *int64) float64 {
	if want == nil || got == nil {
		return 0
	}
	return math.Abs(float64(*want - *got))
}

func themeOverlap(a, b map[string]bool) int {
	n := 0
	for t := range a {
		if b[t] {
			n++
		}
	}
	return n
}
