package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/windmark/itinerary-engine/adapters/transit"
	"github.com/windmark/itinerary-engine/domain"
)

// budgetProfile is one of the four templates Generate produces a
// candidate Plan under (spec §4.3).
type budgetProfile struct {
	Name       string
	Multiplier float64
	Included   func(req domain.Request) bool
}

var budgetProfiles = []budgetProfile{
	{Name: "cost-conscious", Multiplier: 0.7, Included: func(domain.Request) bool { return true }},
	{Name: "convenience", Multiplier: 1.0, Included: func(r domain.Request) bool { return r.BudgetCents >= 100000 }},
	{Name: "experience", Multiplier: 1.2, Included: func(r domain.Request) bool { return r.BudgetCents >= 200000 }},
	{Name: "relaxed", Multiplier: 0.9, Included: func(r domain.Request) bool { return r.BudgetCents >= 200000 && len(r.Prefs.Themes) > 0 }},
}

// timeBand is one of the four per-day slot windows.
type timeBand struct {
	Name       string
	StartHour  int
	EndHour    int
}

var timeBands = []timeBand{
	{"morning", 8, 12},
	{"midday", 12, 14},
	{"afternoon", 14, 18},
	{"evening", 18, 21},
}

// generate produces 1-4 candidate Plans, one per included budget profile
// (spec §4.3), bounded by the fan-out cap.
func (e *Engine) generate(state domain.PlanState) domain.PlanState {
	rng := rand.New(rand.NewSource(state.Seed))
	req := state.Request

	var candidates []domain.Plan
	for _, profile := range budgetProfiles {
		if len(candidates) >= e.Config.Engine.MaxCandidates {
			break
		}
		if !profile.Included(req) {
			continue
		}
		if plan, ok := e.generateCandidate(req, state.StructuredHints, profile, rng); ok {
			candidates = append(candidates, plan)
		}
	}

	state.Candidates = candidates
	return state
}

func (e *Engine) generateCandidate(req domain.Request, hints domain.StructuredHints, profile budgetProfile, rng *rand.Rand) (domain.Plan, bool) {
	effectiveBudget := effectiveBudgetCents(req.BudgetCents, profile)
	alloc := allocate(effectiveBudget, req.Days())

	days := req.Days()
	plan := domain.Plan{
		ID:      fmt.Sprintf("%s-%d", profile.Name, req.BudgetCents),
		Profile: profile.Name,
		Assumptions: domain.Assumptions{
			DailySpendCents:  alloc.discretionaryPerDay,
			AirportBufferMin: e.Config.Engine.AirportBufferMin,
			TransitBufferMin: e.Config.Engine.TransitBufferMin,
		},
	}

	loc, err := time.LoadLocation(req.Window.TZ)
	if err != nil {
		loc = time.UTC
	}

	for d := 0; d < days; d++ {
		date := req.Window.StartUTC.In(loc).AddDate(0, 0, d)
		dayPlan := domain.DayPlan{Date: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)}

		for _, band := range timeBands {
			slot := materializeActivitySlot(date, loc, band, hints, alloc, rng, e.Config.Engine.FanoutCap)
			if slot != nil {
				dayPlan.Slots = append(dayPlan.Slots, *slot)
			}
		}

		if d == 0 {
			dayPlan.Slots = append([]domain.Slot{flightSlot(date, loc, true, alloc, profile)}, dayPlan.Slots...)
			dayPlan.Slots = append(dayPlan.Slots, lodgingSlot(date, loc, alloc, profile))
		}
		if d == days-1 && days > 1 {
			dayPlan.Slots = append(dayPlan.Slots, flightSlot(date, loc, false, alloc, profile))
		}

		dayPlan.SortSlots()
		dayPlan.Slots = injectTransit(dayPlan.Slots, e.Config.Engine.TransitBufferMin)

		plan.Days = append(plan.Days, dayPlan)
	}

	plan, ok := overlayLockedSlots(plan, req.Prefs.LockedSlots)
	if !ok {
		return domain.Plan{}, false
	}

	return plan, true
}

// effectiveBudgetCents applies the profile multiplier, with the
// experience profile's cap at 1.1x actual spend rather than its nominal
// 1.2x (spec §4.3 table).
func effectiveBudgetCents(budget int64, profile budgetProfile) int64 {
	target := float64(budget) * profile.Multiplier
	if profile.Name == "experience" {
		cap := float64(budget) * 1.1
		if target > cap {
			target = cap
		}
	}
	return int64(target)
}

type allocation struct {
	flightsTotal        int64
	lodgingTotal        int64
	discretionaryPerDay int64
	activitiesTotal     int64
	activitiesPerSlot   int64
}

// allocate computes target allocations deterministically given budget and
// days (spec §4.3 step 1): flights 25-35%, lodging 30-40%, daily
// discretionary 5-10%, activities = remainder.
func allocate(budget int64, days int) allocation {
	flightsPct := 0.30
	lodgingPct := 0.35
	discretionaryPct := 0.075

	flights := int64(float64(budget) * flightsPct)
	lodging := int64(float64(budget) * lodgingPct)
	discretionary := int64(float64(budget) * discretionaryPct)
	discretionaryPerDay := discretionary / int64(days)

	activities := budget - flights - lodging - discretionary
	if activities < 0 {
		activities = 0
	}
	slotsPerCandidate := int64(days * len(timeBands))
	perSlot := int64(0)
	if slotsPerCandidate > 0 {
		perSlot = activities / slotsPerCandidate
	}

	return allocation{
		flightsTotal:        flights,
		lodgingTotal:        lodging,
		discretionaryPerDay: discretionaryPerDay,
		activitiesTotal:     activities,
		activitiesPerSlot:   perSlot,
	}
}

// materializeActivitySlot populates one (day, band) slot from structured
// hints only; if hints are insufficient it emits no slot rather than
// fabricate one (spec §4.3 step 3).
func materializeActivitySlot(date time.Time, loc *time.Location, band timeBand, hints domain.StructuredHints, alloc allocation, rng *rand.Rand, fanoutCap int) *domain.Slot {
	if len(hints.Attractions) == 0 {
		return nil
	}

	window := domain.Window{
		StartUTC: time.Date(date.Year(), date.Month(), date.Day(), band.StartHour, 0, 0, 0, loc).UTC(),
		EndUTC:   time.Date(date.Year(), date.Month(), date.Day(), band.EndHour, 0, 0, 0, loc).UTC(),
		TZ:       loc.String(),
	}

	var choices []domain.Choice
	perm := rng.Perm(len(hints.Attractions))
	for _, idx := range perm {
		if len(choices) >= fanoutCap {
			break
		}
		h := hints.Attractions[idx]
		cost := alloc.activitiesPerSlot
		themes := map[string]bool{}
		for t := range h.Themes {
			themes[t] = true
		}
		choices = append(choices, domain.Choice{
			Kind: domain.ChoiceAttraction,
			Features: domain.ChoiceFeatures{
				CostCents: &cost,
				Indoor:    h.Indoor,
				Themes:    themes,
			},
			Provenance: domain.Provenance{Source: domain.SourceRAG, RefID: h.Name, FetchedAt: time.Now()},
		})
	}

	if len(choices) == 0 {
		return nil
	}
	return &domain.Slot{Window: window, Choices: choices}
}

func flightSlot(date time.Time, loc *time.Location, outbound bool, alloc allocation, profile budgetProfile) domain.Slot {
	hour := 9
	leg := "outbound"
	if !outbound {
		hour = 17
		leg = "return"
	}
	window := domain.Window{
		StartUTC: time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, loc).UTC(),
		EndUTC:   time.Date(date.Year(), date.Month(), date.Day(), hour+3, 0, 0, 0, loc).UTC(),
	}
	target := alloc.flightsTotal / 2
	return domain.Slot{
		Window: window,
		Choices: []domain.Choice{{
			Kind:     domain.ChoiceFlight,
			Leg:      leg,
			Features: domain.ChoiceFeatures{CostCents: &target, Tier: tierForProfile(profile)},
			Provenance: domain.Provenance{Source: domain.SourceDerived, FetchedAt: time.Now()},
		}},
	}
}

func lodgingSlot(date time.Time, loc *time.Location, alloc allocation, profile budgetProfile) domain.Slot {
	window := domain.Window{
		StartUTC: time.Date(date.Year(), date.Month(), date.Day(), 15, 0, 0, 0, loc).UTC(),
		EndUTC:   time.Date(date.Year(), date.Month(), date.Day(), 15, 30, 0, 0, loc).UTC(),
	}
	return domain.Slot{
		Window: window,
		Choices: []domain.Choice{{
			Kind:     domain.ChoiceLodging,
			Features: domain.ChoiceFeatures{CostCents: &alloc.lodgingTotal, Tier: tierForProfile(profile), KidFriendly: domain.Unknown},
			Provenance: domain.Provenance{Source: domain.SourceDerived, FetchedAt: time.Now()},
		}},
	}
}

func tierForProfile(profile budgetProfile) domain.Tier {
	switch profile.Name {
	case "cost-conscious":
		return domain.TierBudget
	case "experience":
		return domain.TierLuxury
	default:
		return domain.TierMid
	}
}

// injectTransit inserts a transit slot after every slot whose gap to the
// next slot exceeds transitBufferMin, using the mode rule from spec §4.3
// step 4.
func injectTransit(slots []domain.Slot, transitBufferMin int) []domain.Slot {
	if len(slots) < 2 {
		return slots
	}
	out := make([]domain.Slot, 0, len(slots)*2)
	for i, s := range slots {
		out = append(out, s)
		if i == len(slots)-1 {
			continue
		}
		gap := slots[i+1].Window.StartUTC.Sub(s.Window.EndUTC)
		gapMin := int(gap.Minutes())
		if gapMin <= transitBufferMin {
			continue
		}
		mode := transit.ModeForDuration(gapMin)
		transitWindow := domain.Window{
			StartUTC: s.Window.EndUTC,
			EndUTC:   s.Window.EndUTC.Add(time.Duration(transitBufferMin) * time.Minute),
		}
		out = append(out, domain.Slot{
			Window: transitWindow,
			Choices: []domain.Choice{{
				Kind:       domain.ChoiceTransit,
				Features:   domain.ChoiceFeatures{Tier: domain.TierMid},
				Provenance: domain.Provenance{Source: domain.SourceDerived, FetchedAt: time.Now(), RefID: string(mode)},
			}},
		})
	}
	return out
}

// overlayLockedSlots applies locked_slots verbatim, reshaping surrounding
// slots to avoid overlap; drops the candidate if a lock cannot be honored
// (spec §4.3 step 5).
func overlayLockedSlots(plan domain.Plan, locked []domain.LockedSlot) (domain.Plan, bool) {
	for _, ls := range locked {
		placed := false
		for di := range plan.Days {
			day := &plan.Days[di]
			if !sameDate(day.Date, ls.Window.StartUTC) {
				continue
			}
			filtered := day.Slots[:0]
			for _, s := range day.Slots {
				if s.Window.Overlaps(ls.Window) {
					continue // reshape by dropping the overlapping slot
				}
				filtered = append(filtered, s)
			}
			day.Slots = append(filtered, domain.Slot{
				Window:  ls.Window,
				Locked:  true,
				Choices: []domain.Choice{{Kind: ls.Kind, Provenance: domain.Provenance{Source: domain.SourceUser, RefID: ls.Name, FetchedAt: time.Now()}}},
			})
			day.SortSlots()
			if day.HasOverlap() {
				return domain.Plan{}, false
			}
			placed = true
			break
		}
		if !placed {
			return domain.Plan{}, false
		}
	}
	return plan, true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
