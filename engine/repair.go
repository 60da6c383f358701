package engine

import (
	"context"
	"sort"

	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/log"
)

// violationPriority orders violation kinds for repair move selection
// (spec §4.8): budget first, then timing, then weather/venue, then soft
// preference violations last.
var violationPriority = map[domain.ViolationKind]int{
	domain.ViolationBudgetExceeded:   0,
	domain.ViolationTimingInfeasible: 1,
	domain.ViolationWeatherUnsuit:    2,
	domain.ViolationVenueClosed:      2,
	domain.ViolationPrefViolated:     3,
}

// repairLoop runs the bounded self-loop: at most MaxCycles cycles, at
// most MaxMovesPerCycle moves per cycle, a full re-verify after every
// cycle, and a hard stop once the reuse ratio would fall under
// MinReuseRatio (spec §4.8). It exhausts into RunUnrepairable rather than
// looping forever or silently dropping violations.
func (e *Engine) repairLoop(ctx context.Context, state domain.PlanState) domain.PlanState {
	if !hasBlocking(state.Violations) {
		return state
	}

	totalSlots := countSlots(state.Plan)
	changedSlots := 0

	for cycle := 1; cycle <= e.Config.Repair.MaxCycles; cycle++ {
		blocking := blockingViolations(state.Violations)
		if len(blocking) == 0 {
			break
		}

		sort.SliceStable(blocking, func(i, j int) bool {
			return violationPriority[blocking[i].Kind] < violationPriority[blocking[j].Kind]
		})

		moves := 0
		for _, v := range blocking {
			if moves >= e.Config.Repair.MaxMovesPerCycle {
				break
			}
			applied, n := applyMove(&state.Plan, v)
			if !applied {
				continue
			}
			changedSlots += n
			moves++

			if totalSlots > 0 {
				ratio := 1 - float64(changedSlots)/float64(totalSlots)
				if ratio < e.Config.Repair.MinReuseRatio {
					log.Warnf(ctx, "repair: reuse ratio %.2f fell below minimum %.2f at cycle %d", ratio, e.Config.Repair.MinReuseRatio, cycle)
					state.Status = domain.RunUnrepairable
					state.RepairCyclesRun = cycle
					return state
				}
			}
		}

		state.RepairMovesApplied = moves
		state.RepairCyclesRun = cycle
		state.Violations = nil
		state = e.resolve(state)
		state = e.verify(state)

		if totalSlots > 0 {
			state.ReuseRatio = 1 - float64(changedSlots)/float64(totalSlots)
		}

		if moves == 0 {
			break // no move could touch any remaining violation; further cycles won't help
		}
	}

	if hasBlocking(state.Violations) {
		state.Status = domain.RunUnrepairable
	}
	return state
}

func hasBlocking(violations []domain.Violation) bool {
	return len(blockingViolations(violations)) > 0
}

func blockingViolations(violations []domain.Violation) []domain.Violation {
	var out []domain.Violation
	for _, v := range violations {
		if v.Blocking {
			out = append(out, v)
		}
	}
	return out
}

func countSlots(p domain.Plan) int {
	n := 0
	for _, d := range p.Days {
		n += len(d.Slots)
	}
	return n
}

// applyMove implements the repair move table (spec §4.8): downgrade_tier
// for budget overruns, replace_activity for weather, venue-closed and
// preference conflicts, reorder_activities for timing conflicts. Locked
// slots are never touched (invariant 8). Returns whether a move was
// applied and how many slots it changed.
func applyMove(plan *domain.Plan, v domain.Violation) (bool, int) {
	switch v.Kind {
	case domain.ViolationBudgetExceeded:
		return downgradeTier(plan)
	case domain.ViolationWeatherUnsuit, domain.ViolationPrefViolated, domain.ViolationVenueClosed:
		return replaceActivity(plan, v)
	case domain.ViolationTimingInfeasible:
		return reorderActivities(plan)
	default:
		return false, 0
	}
}

// downgradeTier moves the highest-cost unlocked choice to the next tier
// down.
func downgradeTier(plan *domain.Plan) (bool, int) {
	var bestDay, bestSlot int
	var bestCost int64 = -1
	found := false

	for di := range plan.Days {
		for si := range plan.Days[di].Slots {
			slot := &plan.Days[di].Slots[si]
			if slot.Locked || len(slot.Choices) == 0 {
				continue
			}
			best := slot.Choices[0]
			if best.Features.Tier == "" || best.Features.CostCents == nil {
				continue
			}
			if _, ok := best.Features.Tier.Downgrade(); !ok {
				continue
			}
			if *best.Features.CostCents > bestCost {
				bestCost = *best.Features.CostCents
				bestDay, bestSlot = di, si
				found = true
			}
		}
	}
	if !found {
		return false, 0
	}

	choice := &plan.Days[bestDay].Slots[bestSlot].Choices[0]
	newTier, _ := choice.Features.Tier.Downgrade()
	choice.Features.Tier = newTier
	if choice.Features.CostCents != nil {
		downgraded := *choice.Features.CostCents * 7 / 10
		choice.Features.CostCents = &downgraded
	}
	choice.OptionRef = "" // force Resolve to re-bind against the new tier next cycle

	return true, 1
}

// replaceActivity clears the OptionRef of the first unlocked slot whose
// window matches the violation's NodeRef, so the next Resolve pass binds
// that slot again; it does not fabricate a replacement itself.
func replaceActivity(plan *domain.Plan, v domain.Violation) (bool, int) {
	for di := range plan.Days {
		for si := range plan.Days[di].Slots {
			slot := &plan.Days[di].Slots[si]
			if slot.Locked || len(slot.Choices) == 0 {
				continue
			}
			if slotRef(slot.Window) != v.NodeRef {
				continue
			}
			slot.Choices[0].OptionRef = ""
			slot.Choices[0].Features.Indoor = domain.Yes // nudge toward an indoor alternative
			return true, 1
		}
	}
	return false, 0
}

// reorderActivities resorts by start time each day whose slots are out of
// order or overlap. Sorting moves no window, so slots that overlap still
// overlap afterwards.
func reorderActivities(plan *domain.Plan) (bool, int) {
	changed := 0
	for di := range plan.Days {
		slots := plan.Days[di].Slots
		inOrder := sort.SliceIsSorted(slots, func(i, j int) bool {
			return slots[i].Window.StartUTC.Before(slots[j].Window.StartUTC)
		})
		if !inOrder || plan.Days[di].HasOverlap() {
			plan.Days[di].SortSlots()
			changed++
		}
	}
	return changed > 0, changed
}
