package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/windmark/itinerary-engine/adapters/weather"
	"github.com/windmark/itinerary-engine/domain"
)

// verify runs the four verifiers in fixed order — Budget, Feasibility,
// Weather, Preferences — producing the violation list Repair consumes
// (spec §4.7). Verifiers never mutate the Plan; they only observe it.
func (e *Engine) verify(state domain.PlanState) domain.PlanState {
	var violations []domain.Violation
	violations = append(violations, verifyBudget(state, e.Config.Engine.BudgetSlippagePct)...)
	violations = append(violations, verifyFeasibility(state)...)
	violations = append(violations, verifyWeather(state, e.Config.Weather)...)
	violations = append(violations, verifyPreferences(state)...)

	// Keep any unresolved-option violations Resolve already raised.
	state.Violations = append(violations, state.Violations...)
	return state
}

// verifyBudget flags a plan whose total cost exceeds budget by more than
// the configured slippage percentage.
func verifyBudget(state domain.PlanState, slippagePct int) []domain.Violation {
	total := state.Plan.TotalCost()
	budget := state.Request.BudgetCents
	ceiling := budget + budget*int64(slippagePct)/100
	if total <= ceiling {
		return nil
	}
	return []domain.Violation{{
		Kind: domain.ViolationBudgetExceeded, Blocking: true,
		Details: map[string]any{"total_cents": total, "budget_cents": budget, "ceiling_cents": ceiling},
	}}
}

// verifyFeasibility implements all five of spec §4.7's Feasibility checks:
// (i) slot overlap, (ii) airport transfer buffer, (iii) inter-slot buffer,
// (iv) venue-hours tri-state, (v) DST-transition window sanity. Overlaps
// and explicit closures are blocking; unknown hours are advisory.
func verifyFeasibility(state domain.PlanState) []domain.Violation {
	var out []domain.Violation
	airportBufferMin := state.Plan.Assumptions.AirportBufferMin
	transitBufferMin := state.Plan.Assumptions.TransitBufferMin
	loc, locErr := time.LoadLocation(state.Request.Window.TZ)

	for _, day := range state.Plan.Days {
		if day.HasOverlap() {
			out = append(out, domain.Violation{
				Kind: domain.ViolationTimingInfeasible, Blocking: true,
				Details: map[string]any{"reason": "overlap"},
				NodeRef: day.Date.Format("2006-01-02"),
			})
		}

		out = append(out, verifyBuffers(day, airportBufferMin, transitBufferMin)...)
		out = append(out, verifyVenueHours(day)...)

		if locErr == nil {
			out = append(out, verifyDSTWindows(day, loc)...)
		}
	}
	return out
}

// verifyBuffers flags any consecutive slot gap narrower than its required
// minimum: airport_buffer_min when either neighbor is a flight, otherwise
// transit_buffer_min.
func verifyBuffers(day domain.DayPlan, airportBufferMin, transitBufferMin int) []domain.Violation {
	var out []domain.Violation
	slots := append([]domain.Slot(nil), day.Slots...)
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Window.StartUTC.Before(slots[j].Window.StartUTC)
	})

	for i := 1; i < len(slots); i++ {
		gap := slots[i].Window.StartUTC.Sub(slots[i-1].Window.EndUTC)
		if gap < 0 {
			continue // overlap already reported by the overlap check above
		}
		required := time.Duration(transitBufferMin) * time.Minute
		reason := "inter_slot_buffer_too_short"
		if slots[i-1].Best().Kind == domain.ChoiceFlight || slots[i].Best().Kind == domain.ChoiceFlight {
			required = time.Duration(airportBufferMin) * time.Minute
			reason = "airport_buffer_too_short"
		}
		if gap < required {
			out = append(out, domain.Violation{
				Kind: domain.ViolationTimingInfeasible, Blocking: true,
				Details: map[string]any{"reason": reason, "gap_min": int(gap.Minutes()), "required_min": int(required.Minutes())},
				NodeRef: slotRef(slots[i].Window),
			})
		}
	}
	return out
}

// verifyVenueHours flags attraction slots whose venue is known-closed
// (blocking) or whose hours are unknown (advisory, non-blocking).
func verifyVenueHours(day domain.DayPlan) []domain.Violation {
	var out []domain.Violation
	for _, slot := range day.Slots {
		best := slot.Best()
		if best.Kind != domain.ChoiceAttraction {
			continue
		}
		switch best.Features.Closed {
		case domain.Yes:
			out = append(out, domain.Violation{
				Kind: domain.ViolationVenueClosed, Blocking: true,
				Details: map[string]any{"reason": "closed"},
				NodeRef: slotRef(slot.Window),
			})
		case domain.Unknown:
			out = append(out, domain.Violation{
				Kind: domain.ViolationVenueClosed, Blocking: false,
				Details: map[string]any{"reason": "hours_unknown"},
				NodeRef: slotRef(slot.Window),
			})
		}
	}
	return out
}

// verifyDSTWindows sanity-checks slot windows on a day whose local zone
// offset changes between its start and end (a DST transition), confirming
// no window was left with zero or negative duration — a "ghost hour"
// spec §4.7(v) warns against. Generate already builds every window from
// time.Date(...).In(loc).UTC() rather than local-clock arithmetic, so this
// is a sanity check on that construction, not a second implementation of it.
func verifyDSTWindows(day domain.DayPlan, loc *time.Location) []domain.Violation {
	_, startOffset := day.Date.In(loc).Zone()
	_, endOffset := day.Date.AddDate(0, 0, 1).In(loc).Zone()
	if startOffset == endOffset {
		return nil // no transition on this day
	}

	var out []domain.Violation
	for _, slot := range day.Slots {
		if !slot.Window.EndUTC.After(slot.Window.StartUTC) {
			out = append(out, domain.Violation{
				Kind: domain.ViolationTimingInfeasible, Blocking: true,
				Details: map[string]any{"reason": "dst_ghost_window"},
				NodeRef: slotRef(slot.Window),
			})
		}
	}
	return out
}

// verifyWeather flags outdoor attraction slots scheduled on a day whose
// forecast crosses any blocking threshold. An Unknown indoor/outdoor
// reading is advisory only and never blocks (spec §9 tri-state rule).
func verifyWeather(state domain.PlanState, cfg weatherThresholds) []domain.Violation {
	var out []domain.Violation
	for _, day := range state.Plan.Days {
		forecast, ok := state.ForecastsByDate[day.Date.Format("2006-01-02")]
		if !ok {
			continue
		}
		for _, slot := range day.Slots {
			best := slot.Best()
			if best.Kind != domain.ChoiceAttraction {
				continue
			}
			if best.Features.Indoor == domain.Yes || best.Features.Indoor == domain.Unknown {
				continue
			}
			if weather.Blocking(weather.Forecast{
				PrecipProb: forecast.PrecipProb, WindKph: forecast.WindKph,
				TempHighC: forecast.TempHighC, TempLowC: forecast.TempLowC,
			}, cfg.PrecipBlocking, cfg.WindBlockingKph, cfg.TempHighBlockingC, cfg.TempLowBlockingC) {
				out = append(out, domain.Violation{
					Kind: domain.ViolationWeatherUnsuit, Blocking: true,
					Details: map[string]any{"date": day.Date.Format("2006-01-02")},
					NodeRef: slotRef(slot.Window),
				})
			}
		}
	}
	return out
}

// weatherThresholds mirrors config.WeatherConfig's shape without importing
// the config package's dependency surface into the verifier signature.
type weatherThresholds = struct {
	PrecipBlocking    float64
	WindBlockingKph   float64
	TempHighBlockingC float64
	TempLowBlockingC  float64
}

// verifyPreferences implements spec §4.7's Preferences verifier: a
// blocking check on locked-slot constraint violations, plus two
// non-blocking diagnostics — the ratio of kid-friendly activities falling
// below 0.5 when kid_friendly was requested, and any requested theme with
// zero coverage across the plan.
func verifyPreferences(state domain.PlanState) []domain.Violation {
	var out []domain.Violation
	out = append(out, verifyLockedSlotConstraints(state)...)

	prefs := state.Request.Prefs
	var kidFriendlyCount, kidFriendlyTotal int
	themeCoverage := map[string]bool{}
	for theme := range prefs.Themes {
		themeCoverage[theme] = false
	}

	for _, day := range state.Plan.Days {
		for _, slot := range day.Slots {
			best := slot.Best()
			if best.Kind != domain.ChoiceAttraction && best.Kind != domain.ChoiceLodging {
				continue
			}
			if prefs.KidFriendly {
				kidFriendlyTotal++
				if best.Features.KidFriendly == domain.Yes {
					kidFriendlyCount++
				}
			}
			for theme := range best.Features.Themes {
				if _, requested := themeCoverage[theme]; requested {
					themeCoverage[theme] = true
				}
			}
		}
	}

	if prefs.KidFriendly && kidFriendlyTotal > 0 {
		ratio := float64(kidFriendlyCount) / float64(kidFriendlyTotal)
		if ratio < 0.5 {
			out = append(out, domain.Violation{
				Kind: domain.ViolationPrefViolated, Blocking: false,
				Details: map[string]any{"reason": "low_kid_friendly_ratio", "ratio": ratio},
			})
		}
	}

	var uncovered []string
	for theme, covered := range themeCoverage {
		if !covered {
			uncovered = append(uncovered, theme)
		}
	}
	sort.Strings(uncovered)
	for _, theme := range uncovered {
		out = append(out, domain.Violation{
			Kind: domain.ViolationPrefViolated, Blocking: false,
			Details: map[string]any{"reason": "theme_uncovered", "theme": theme},
		})
	}

	return out
}

// verifyLockedSlotConstraints blocks the run if a locked slot's bound
// Choice contradicts the constraint the user locked it for — kid_friendly
// required but the locked venue is known not to be.
func verifyLockedSlotConstraints(state domain.PlanState) []domain.Violation {
	var out []domain.Violation
	if !state.Request.Prefs.KidFriendly {
		return nil
	}
	for _, day := range state.Plan.Days {
		for _, slot := range day.Slots {
			if !slot.Locked {
				continue
			}
			best := slot.Best()
			if best.Features.KidFriendly == domain.No {
				out = append(out, domain.Violation{
					Kind: domain.ViolationPrefViolated, Blocking: true,
					Details: map[string]any{"reason": fmt.Sprintf("locked %s slot is not kid-friendly", best.Kind)},
					NodeRef: slotRef(slot.Window),
				})
			}
		}
	}
	return out
}
