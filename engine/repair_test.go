package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/windmark/itinerary-engine/config"
	"github.com/windmark/itinerary-engine/domain"
)

func testConfigForRepair() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{TransitBufferMin: 15, BudgetSlippagePct: 10},
		Repair: config.RepairConfig{MaxCycles: 3, MaxMovesPerCycle: 2, MinReuseRatio: 0.5},
		Weather: config.WeatherConfig{
			PrecipBlocking: 0.70, WindBlockingKph: 50, TempHighBlockingC: 35, TempLowBlockingC: 5,
		},
	}
}

func TestRepairLoop_NoBlockingViolationsIsNoOp(t *testing.T) {
	state := domain.NewPlanState("trace-1", 1, domain.Request{})
	state.Plan = domain.Plan{ID: "p1"}

	e := &Engine{}
	out := e.repairLoop(nil, state)

	assert.Equal(t, domain.RunRunning, out.Status)
	assert.Zero(t, out.RepairCyclesRun)
}

func TestDowngradeTier_PicksHighestCostDowngradableChoice(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	plan := domain.Plan{
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{
				{
					Window:  domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(11 * time.Hour)},
					Choices: []domain.Choice{{Kind: domain.ChoiceFlight, Features: domain.ChoiceFeatures{CostCents: costPtr(20000), Tier: domain.TierMid}, OptionRef: "flt-cheap"}},
				},
				{
					Window:  domain.Window{StartUTC: day.Add(14 * time.Hour), EndUTC: day.Add(16 * time.Hour)},
					Choices: []domain.Choice{{Kind: domain.ChoiceLodging, Features: domain.ChoiceFeatures{CostCents: costPtr(90000), Tier: domain.TierLuxury}, OptionRef: "htl-fancy"}},
				},
			},
		}},
	}

	applied, n := downgradeTier(&plan)

	assert.True(t, applied)
	assert.Equal(t, 1, n)
	changed := plan.Days[0].Slots[1].Choices[0]
	assert.Equal(t, domain.TierMid, changed.Features.Tier)
	assert.Equal(t, int64(63000), *changed.Features.CostCents)
	assert.Empty(t, changed.OptionRef) // cleared to force re-Resolve
}

func TestDowngradeTier_SkipsLockedSlots(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	plan := domain.Plan{
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{{
				Window:  domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(11 * time.Hour)},
				Choices: []domain.Choice{{Kind: domain.ChoiceLodging, Features: domain.ChoiceFeatures{CostCents: costPtr(90000), Tier: domain.TierLuxury}}},
				Locked:  true,
			}},
		}},
	}

	applied, n := downgradeTier(&plan)
	assert.False(t, applied)
	assert.Zero(t, n)
}

func TestReorderActivities_SortsOutOfOrderSlots(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	plan := domain.Plan{
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{
				{Window: domain.Window{StartUTC: day.Add(11 * time.Hour), EndUTC: day.Add(13 * time.Hour)}},
				{Window: domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(10 * time.Hour)}},
			},
		}},
	}

	applied, n := reorderActivities(&plan)
	assert.True(t, applied)
	assert.Equal(t, 1, n)
	assert.True(t, plan.Days[0].Slots[0].Window.StartUTC.Before(plan.Days[0].Slots[1].Window.StartUTC))
}

func TestRepairLoop_StopsWhenNoMoveAppliesAndMarksUnrepairable(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	state := domain.NewPlanState("trace-1", 1, domain.Request{BudgetCents: 1})
	state.Plan = domain.Plan{
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{{
				Window: domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(11 * time.Hour)},
				Choices: []domain.Choice{{
					Kind:     domain.ChoiceAttraction,
					Features: domain.ChoiceFeatures{CostCents: costPtr(100000), Tier: "", Indoor: domain.Unknown},
				}},
			}},
		}},
	}
	state.Violations = []domain.Violation{{Kind: domain.ViolationBudgetExceeded, Blocking: true}}

	e := &Engine{Config: testConfigForRepair()}

	out := e.repairLoop(nil, state)

	// No downgrade move is possible (the sole choice has no Tier to downgrade),
	// so the loop stops after its first cycle with the violation still present.
	assert.Equal(t, domain.RunUnrepairable, out.Status)
}
