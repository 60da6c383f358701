package engine

import (
	"math"
	"sort"

	"github.com/windmark/itinerary-engine/domain"
)

// selectCandidate scores every candidate Plan and keeps the winner, moving
// the rest to discard (spec §4.4): score = 40*budget_fit + 20*distribution_fit
// + 20*schedule_fit + 20*preference_fit; ties break by lowest total cost then
// lexicographic candidate id.
func (e *Engine) selectCandidate(state domain.PlanState) domain.PlanState {
	req := state.Request
	type scored struct {
		plan  domain.Plan
		score float64
		cost  int64
	}

	scoredCandidates := make([]scored, 0, len(state.Candidates))
	for _, c := range state.Candidates {
		cost := c.TotalCost()
		score := 40*budgetFit(cost, req.BudgetCents) +
			20*distributionFit(c) +
			20*scheduleFit(c) +
			20*preferenceFit(c, req.Prefs)
		scoredCandidates = append(scoredCandidates, scored{plan: c, score: score, cost: cost})
	}

	sort.SliceStable(scoredCandidates, func(i, j int) bool {
		if scoredCandidates[i].score != scoredCandidates[j].score {
			return scoredCandidates[i].score > scoredCandidates[j].score
		}
		if scoredCandidates[i].cost != scoredCandidates[j].cost {
			return scoredCandidates[i].cost < scoredCandidates[j].cost
		}
		return scoredCandidates[i].plan.ID < scoredCandidates[j].plan.ID
	})

	state.Plan = scoredCandidates[0].plan
	return state
}

// budgetFit is 1-|1-total/budget| for total<=budget (spec §4.4: underspending
// is penalized too, not just overspending), decays linearly to 0 across
// (budget, 1.1*budget], and is -Inf beyond 1.1*budget.
func budgetFit(cost, budget int64) float64 {
	if budget <= 0 {
		return 0
	}
	ratio := float64(cost) / float64(budget)
	if ratio <= 1.0 {
		return 1.0 - math.Abs(1.0-ratio)
	}
	if 10*cost <= 11*budget {
		return float64(11*budget-10*cost) / float64(budget)
	}
	return math.Inf(-1)
}

// distributionFit rewards plans whose spend matches the target allocation
// shape (flights ~30%, lodging ~35%, activities the remainder).
func distributionFit(p domain.Plan) float64 {
	byCategory := p.CostByCategory()
	total := p.TotalCost()
	if total == 0 {
		return 0
	}
	targets := map[domain.ChoiceKind]float64{
		domain.ChoiceFlight:     0.30,
		domain.ChoiceLodging:    0.35,
		domain.ChoiceAttraction: 0.275,
		domain.ChoiceTransit:    0.075,
	}
	var deviation float64
	for kind, target := range targets {
		actual := float64(byCategory[kind]) / float64(total)
		d := actual - target
		if d < 0 {
			d = -d
		}
		deviation += d
	}
	fit := 1.0 - deviation
	if fit < 0 {
		fit = 0
	}
	return fit
}

// scheduleFit is the fraction of days with no overlapping slots. Gaps and
// buffers between slots are not scored.
func scheduleFit(p domain.Plan) float64 {
	if len(p.Days) == 0 {
		return 0
	}
	var violations, days int
	for _, day := range p.Days {
		days++
		if day.HasOverlap() {
			violations++
		}
	}
	fit := 1.0 - float64(violations)/float64(days)
	if fit < 0 {
		fit = 0
	}
	return fit
}

// preferenceFit rewards plans whose attraction choices cover the requested
// themes and honor kid_friendly when known.
func preferenceFit(p domain.Plan, prefs domain.Prefs) float64 {
	if len(prefs.Themes) == 0 && !prefs.KidFriendly {
		return 1.0
	}

	var matched, total int
	for _, day := range p.Days {
		for _, slot := range day.Slots {
			best := slot.Best()
			if best.Kind != domain.ChoiceAttraction && best.Kind != domain.ChoiceLodging {
				continue
			}
			total++
			hit := false
			for theme := range prefs.Themes {
				if best.Features.Themes[theme] {
					hit = true
				}
			}
			if prefs.KidFriendly && best.Features.KidFriendly == domain.Yes {
				hit = true
			}
			if prefs.KidFriendly && best.Features.KidFriendly == domain.No {
				hit = false
			}
			if hit {
				matched++
			}
		}
	}
	if total == 0 {
		return 0.5 // neutral: nothing to judge against
	}
	return float64(matched) / float64(total)
}
