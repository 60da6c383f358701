package domain

import (
	"fmt"
	"strings"
)

// invariantError accumulates named invariant failures the way the
// teacher's ValidateItinerary accumulates field errors: every check runs,
// and CheckAll returns one joined error naming every failure rather than
// stopping at the first.
type invariantError struct {
	stage  string
	errors []string
}

func (e *invariantError) add(format string, args ...any) {
	e.errors = append(e.errors, fmt.Sprintf(format, args...))
}

func (e *invariantError) err() error {
	if len(e.errors) == 0 {
		return nil
	}
	return fmt.Errorf("invariant check failed at %s with %d violation(s):\n- %s",
		e.stage, len(e.errors), strings.Join(e.errors, "\n- "))
}

// CheckAll runs the numbered invariants from spec §3 against state, except
// invariant 8 (locked slots unchanged), which needs a before/after pair and
// is checked by CheckLockedSlotsUnchanged. It returns a single error naming
// every failure, or nil if all hold. allowUnrepairable
// suppresses invariant 5 (no blocking violations) for states that have
// legitimately exhausted Repair.
func CheckAll(stage string, state PlanState, allowUnrepairable bool) error {
	e := &invariantError{stage: stage}

	checkMoney(e, state)
	checkSlotOrdering(e, state)
	checkProvenance(e, state)
	checkOptionRefs(e, stage, state)
	if !allowUnrepairable {
		checkNoBlockingViolations(e, state)
	}
	checkCitationProvenance(e, state)
	checkRepairBounds(e, state)

	return e.err()
}

// invariant 1: all monetary quantities are non-negative integer cents.
func checkMoney(e *invariantError, state PlanState) {
	if state.Request.BudgetCents < 0 {
		e.add("request budget_cents is negative: %d", state.Request.BudgetCents)
	}
	for _, day := range state.Plan.Days {
		for _, slot := range day.Slots {
			for _, c := range slot.Choices {
				if c.Features.CostCents != nil && *c.Features.CostCents < 0 {
					e.add("choice %s has negative cost_cents: %d", c.Kind, *c.Features.CostCents)
				}
			}
		}
	}
	if state.Plan.Assumptions.DailySpendCents < 0 {
		e.add("plan daily_spend_cents is negative: %d", state.Plan.Assumptions.DailySpendCents)
	}
}

// invariant 2: within any DayPlan, slot windows are pairwise non-overlapping
// and strictly increasing in start.
func checkSlotOrdering(e *invariantError, state PlanState) {
	for _, day := range state.Plan.Days {
		if day.HasOverlap() {
			e.add("day %s has overlapping slots", day.Date.Format("2006-01-02"))
			continue
		}
		for i := 1; i < len(day.Slots); i++ {
			if !day.Slots[i].Window.StartUTC.After(day.Slots[i-1].Window.StartUTC) {
				e.add("day %s slots are not strictly increasing in start at index %d", day.Date.Format("2006-01-02"), i)
			}
		}
	}
}

// invariant 3: every Choice carries a non-null provenance.
func checkProvenance(e *invariantError, state PlanState) {
	for _, day := range state.Plan.Days {
		for _, slot := range day.Slots {
			for _, c := range slot.Choices {
				if c.Provenance.IsZero() {
					e.add("choice kind=%s in day %s is missing provenance", c.Kind, day.Date.Format("2006-01-02"))
				}
			}
		}
	}
}

// invariant 4: after Resolve, every non-meal Choice has a non-null
// option_ref pointing into the matching tool-result map.
func checkOptionRefs(e *invariantError, stage string, state PlanState) {
	if stage == "intake" || stage == "retrieve" || stage == "generate" || stage == "select" || stage == "execute" {
		return
	}
	for _, day := range state.Plan.Days {
		for _, slot := range day.Slots {
			for _, c := range slot.Choices {
				if c.Kind == ChoiceMeal {
					continue
				}
				if c.OptionRef == "" {
					continue // unresolved is reported as a violation, not an invariant failure, until Verify has run
				}
				var ok bool
				switch c.Kind {
				case ChoiceFlight:
					_, ok = state.FlightsByID[c.OptionRef]
				case ChoiceLodging:
					_, ok = state.LodgingsByID[c.OptionRef]
				case ChoiceAttraction:
					_, ok = state.AttractionsByID[c.OptionRef]
				case ChoiceTransit:
					_, ok = state.TransitByID[c.OptionRef]
				default:
					ok = true
				}
				if !ok {
					e.add("choice kind=%s option_ref=%s does not resolve to a tool result", c.Kind, c.OptionRef)
				}
			}
		}
	}
}

// invariant 5: after the final Verify, no violation is blocking=true
// unless the run ends unrepairable.
func checkNoBlockingViolations(e *invariantError, state PlanState) {
	for _, v := range state.Violations {
		if v.Blocking {
			e.add("blocking violation %s remains at node %s", v.Kind, v.NodeRef)
		}
	}
}

// invariant 6: every Citation's provenance is one carried by a resolved
// Choice or a retrieved chunk.
func checkCitationProvenance(e *invariantError, state PlanState) {
	if state.Itinerary == nil {
		return
	}
	known := map[string]bool{}
	for _, chunk := range state.RetrievedChunks {
		known[chunk.Digest] = true
	}
	for _, day := range state.Plan.Days {
		for _, slot := range day.Slots {
			if best := slot.Best(); !best.Provenance.IsZero() {
				known[best.Provenance.ResponseDigest] = true
			}
		}
	}
	for _, c := range state.Itinerary.Citations {
		if c.Provenance.IsZero() {
			e.add("citation %q has no provenance", c.Claim)
			continue
		}
		if c.Provenance.ResponseDigest != "" && !known[c.Provenance.ResponseDigest] {
			e.add("citation %q provenance digest %s not found among retrieved chunks or resolved choices", c.Claim, c.Provenance.ResponseDigest)
		}
	}
}

// invariant 7: repair_cycles_run <= 3; within any single cycle,
// repair_moves_applied_this_cycle <= 2.
func checkRepairBounds(e *invariantError, state PlanState) {
	if state.RepairCyclesRun > 3 {
		e.add("repair_cycles_run %d exceeds the bound of 3", state.RepairCyclesRun)
	}
	if state.RepairMovesApplied > 2 {
		e.add("repair_moves_applied %d exceeds the per-cycle bound of 2", state.RepairMovesApplied)
	}
}

// CheckLockedSlotsUnchanged verifies invariant 8: locked slots are
// byte-identical between two Plan snapshots. Pass the Plan from Generate
// and any later Plan (post-Resolve, post-Repair, or the one backing the
// final Itinerary).
func CheckLockedSlotsUnchanged(before, after Plan) error {
	e := &invariantError{stage: "locked-slot-check"}

	lockedBefore := map[string]Slot{}
	for _, day := range before.Days {
		for _, slot := range day.Slots {
			if slot.Locked {
				lockedBefore[slotKey(day, slot)] = slot
			}
		}
	}

	lockedAfter := map[string]Slot{}
	for _, day := range after.Days {
		for _, slot := range day.Slots {
			if slot.Locked {
				lockedAfter[slotKey(day, slot)] = slot
			}
		}
	}

	for key, before := range lockedBefore {
		after, ok := lockedAfter[key]
		if !ok {
			e.add("locked slot %s is missing after transformation", key)
			continue
		}
		if !slotsIdentical(before, after) {
			e.add("locked slot %s was modified", key)
		}
	}

	return e.err()
}

func slotKey(day DayPlan, slot Slot) string {
	return fmt.Sprintf("%s|%s|%s", day.Date.Format("2006-01-02"), slot.Window.StartUTC.Format("15:04"), slot.Window.EndUTC.Format("15:04"))
}

func slotsIdentical(a, b Slot) bool {
	if a.Window != b.Window || len(a.Choices) != len(b.Choices) {
		return false
	}
	for i := range a.Choices {
		ca, cb := a.Choices[i], b.Choices[i]
		if ca.Kind != cb.Kind || ca.OptionRef != cb.OptionRef || ca.Score != cb.Score {
			return false
		}
	}
	return true
}
