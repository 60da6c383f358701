package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/windmark/itinerary-engine/domain"
)

func costPtr(c int64) *int64 { return &c }

func flightChoice(cost int64, tier domain.Tier) domain.Choice {
	return domain.Choice{
		Kind:     domain.ChoiceFlight,
		Features: domain.ChoiceFeatures{CostCents: costPtr(cost), Tier: tier},
	}
}

func TestBudgetFit(t *testing.T) {
	assert.InDelta(t, 0.8, budgetFit(8000, 10000), 0.001)  // underspend is penalized too
	assert.Equal(t, 0.0, budgetFit(0, 10000))              // $0 plan scores 0, not 1.0
	assert.Equal(t, 1.0, budgetFit(10000, 10000))          // exactly at budget is the peak
	assert.InDelta(t, 0.5, budgetFit(10500, 10000), 0.001) // halfway through the decay band
	assert.Equal(t, 0.0, budgetFit(11000, 10000))          // 1.1x budget is the floor, not -Inf yet
	assert.True(t, math.IsInf(budgetFit(11001, 10000), -1)) // just past 1.1x budget
	assert.True(t, math.IsInf(budgetFit(20000, 10000), -1))
	assert.Equal(t, 0.0, budgetFit(1, 0))
}

func TestSelectCandidate_PicksHighestScoringPlan(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	cheap := domain.Plan{
		ID: "a-cheap",
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{{
				Window:  domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(10 * time.Hour)},
				Choices: []domain.Choice{flightChoice(50000, domain.TierMid)},
			}},
		}},
	}
	overBudget := domain.Plan{
		ID: "b-expensive",
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{{
				Window:  domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(10 * time.Hour)},
				Choices: []domain.Choice{flightChoice(500000, domain.TierLuxury)},
			}},
		}},
	}

	state := domain.NewPlanState("trace-1", 1, domain.Request{BudgetCents: 60000})
	state.Candidates = []domain.Plan{overBudget, cheap}

	out := (&Engine{}).selectCandidate(state)

	assert.Equal(t, "a-cheap", out.Plan.ID)
}

func TestSelectCandidate_TiesBreakByLowestCostThenID(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mkPlan := func(id string, cost int64) domain.Plan {
		return domain.Plan{
			ID: id,
			Days: []domain.DayPlan{{
				Date: day,
				Slots: []domain.Slot{{
					Window:  domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(10 * time.Hour)},
					Choices: []domain.Choice{flightChoice(cost, domain.TierMid)},
				}},
			}},
		}
	}

	state := domain.NewPlanState("trace-1", 1, domain.Request{BudgetCents: 1000000})
	state.Candidates = []domain.Plan{mkPlan("z", 10000), mkPlan("a", 10000)}

	out := (&Engine{}).selectCandidate(state)

	assert.Equal(t, "a", out.Plan.ID)
}

func TestPreferenceFit_NoPreferencesIsNeutralOne(t *testing.T) {
	fit := preferenceFit(domain.Plan{}, domain.Prefs{})
	assert.Equal(t, 1.0, fit)
}

func TestPreferenceFit_RewardsThemeMatch(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	plan := domain.Plan{
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{{
				Window: domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(10 * time.Hour)},
				Choices: []domain.Choice{{
					Kind:     domain.ChoiceAttraction,
					Features: domain.ChoiceFeatures{Themes: map[string]bool{"art": true}},
				}},
			}},
		}},
	}
	fit := preferenceFit(plan, domain.Prefs{Themes: map[string]bool{"art": true}})
	assert.Equal(t, 1.0, fit)
}

func TestScheduleFit_PenalizesOverlap(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	plan := domain.Plan{
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{
				{Window: domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(11 * time.Hour)}},
				{Window: domain.Window{StartUTC: day.Add(10 * time.Hour), EndUTC: day.Add(12 * time.Hour)}},
			},
		}},
	}
	assert.Equal(t, 0.0, scheduleFit(plan))
}
