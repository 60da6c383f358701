package domain

import (
	"sort"
	"time"
)

// Slot is a time window holding ranked Choices, at most one of which
// (the first) is the winner once Select/Resolve have run.
type Slot struct {
	Window  Window
	Choices []Choice // ranked, highest-scored first
	Locked  bool
}

// Best returns the highest-ranked Choice, or the zero Choice if empty.
func (s Slot) Best() Choice {
	if len(s.Choices) == 0 {
		return Choice{}
	}
	return s.Choices[0]
}

// DayPlan holds a day's slots, sorted by start time.
type DayPlan struct {
	Date  time.Time // midnight UTC of the represented local day
	Slots []Slot
}

// SortSlots orders slots by start time in place, satisfying invariant 2's
// "strictly increasing in start" requirement once overlaps are absent.
func (d *DayPlan) SortSlots() {
	sort.Slice(d.Slots, func(i, j int) bool {
		return d.Slots[i].Window.StartUTC.Before(d.Slots[j].Window.StartUTC)
	})
}

// HasOverlap reports whether any two slots in the day overlap (invariant 2).
func (d DayPlan) HasOverlap() bool {
	slots := append([]Slot(nil), d.Slots...)
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Window.StartUTC.Before(slots[j].Window.StartUTC)
	})
	for i := 1; i < len(slots); i++ {
		if slots[i].Window.StartUTC.Before(slots[i-1].Window.EndUTC) {
			return true
		}
	}
	return false
}

// Assumptions carries the derived planning constants a Plan was built
// under.
type Assumptions struct {
	DailySpendCents  int64
	FxRate           *float64
	AirportBufferMin int
	TransitBufferMin int
}

// Plan is one candidate (or the selected) itinerary skeleton.
type Plan struct {
	ID          string
	Profile     string // budget profile name this candidate was built under
	Days        []DayPlan
	Assumptions Assumptions
}

// TotalCost sums resolved Choice costs across every slot plus the daily
// discretionary allowance, matching the Budget verifier's definition.
func (p Plan) TotalCost() int64 {
	var total int64
	for _, day := range p.Days {
		for _, slot := range day.Slots {
			if best := slot.Best(); best.Features.CostCents != nil {
				total += *best.Features.CostCents
			}
		}
	}
	total += p.Assumptions.DailySpendCents * int64(len(p.Days))
	return total
}

// CostByCategory sums resolved cost per ChoiceKind, used by distribution_fit
// and by the CostBreakdown Synthesize emits.
func (p Plan) CostByCategory() map[ChoiceKind]int64 {
	out := map[ChoiceKind]int64{}
	for _, day := range p.Days {
		for _, slot := range day.Slots {
			best := slot.Best()
			if best.Features.CostCents == nil {
				continue
			}
			out[best.Kind] += *best.Features.CostCents
		}
	}
	return out
}

// ViolationKind enumerates the kinds Verify can emit.
type ViolationKind string

const (
	ViolationBudgetExceeded   ViolationKind = "budget_exceeded"
	ViolationTimingInfeasible ViolationKind = "timing_infeasible"
	ViolationVenueClosed      ViolationKind = "venue_closed"
	ViolationWeatherUnsuit    ViolationKind = "weather_unsuitable"
	ViolationPrefViolated     ViolationKind = "pref_violated"
)

// Violation is one constraint failure Verify found.
type Violation struct {
	Kind     ViolationKind
	Blocking bool
	Details  map[string]any
	NodeRef  string // identifies the offending slot/day/choice
}
