package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windmark/itinerary-engine/domain"
)

func TestResolve_BindsFlightChoiceByTierAndCost(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	state := domain.NewPlanState("trace-1", 1, domain.Request{})
	state.FlightsByID["outbound:off-1"] = domain.ToolResult{
		ID: "outbound:off-1", Kind: domain.ChoiceFlight,
		Features: domain.ChoiceFeatures{CostCents: costPtr(50200), Tier: domain.TierMid},
	}
	state.FlightsByID["outbound:off-2"] = domain.ToolResult{
		ID: "outbound:off-2", Kind: domain.ChoiceFlight,
		Features: domain.ChoiceFeatures{CostCents: costPtr(55000), Tier: domain.TierMid},
	}
	state.Plan = domain.Plan{
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{{
				Window: domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(11 * time.Hour)},
				Choices: []domain.Choice{{
					Kind:     domain.ChoiceFlight,
					Features: domain.ChoiceFeatures{CostCents: costPtr(50000), Tier: domain.TierMid},
				}},
			}},
		}},
	}

	out := (&Engine{}).resolve(state)

	best := out.Plan.Days[0].Slots[0].Choices[0]
	assert.Equal(t, "outbound:off-1", best.OptionRef) // strictly closer to the 50000 target cost
}

func TestResolve_DistinguishesOutboundAndReturnFlightLegs(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	state := domain.NewPlanState("trace-1", 1, domain.Request{})
	state.FlightsByID["outbound:off-1"] = domain.ToolResult{
		ID: "outbound:off-1", Kind: domain.ChoiceFlight,
		Features: domain.ChoiceFeatures{CostCents: costPtr(50000), Tier: domain.TierMid},
	}
	state.FlightsByID["return:off-1"] = domain.ToolResult{
		ID: "return:off-1", Kind: domain.ChoiceFlight,
		Features: domain.ChoiceFeatures{CostCents: costPtr(50000), Tier: domain.TierMid},
	}
	state.Plan = domain.Plan{
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{
				{
					Window: domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(11 * time.Hour)},
					Choices: []domain.Choice{{
						Kind: domain.ChoiceFlight, Leg: "outbound",
						Features: domain.ChoiceFeatures{CostCents: costPtr(50000), Tier: domain.TierMid},
					}},
				},
				{
					Window: domain.Window{StartUTC: day.Add(17 * time.Hour), EndUTC: day.Add(19 * time.Hour)},
					Choices: []domain.Choice{{
						Kind: domain.ChoiceFlight, Leg: "return",
						Features: domain.ChoiceFeatures{CostCents: costPtr(50000), Tier: domain.TierMid},
					}},
				},
			},
		}},
	}

	out := (&Engine{}).resolve(state)

	assert.Equal(t, "outbound:off-1", out.Plan.Days[0].Slots[0].Choices[0].OptionRef)
	assert.Equal(t, "return:off-1", out.Plan.Days[0].Slots[1].Choices[0].OptionRef)
}

func TestResolve_DoesNotRebindSameAttractionToTwoChoices(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	state := domain.NewPlanState("trace-1", 1, domain.Request{})
	state.AttractionsByID["att-only"] = domain.ToolResult{
		ID: "att-only", Kind: domain.ChoiceAttraction,
		Features: domain.ChoiceFeatures{CostCents: costPtr(2000), Themes: map[string]bool{"art": true}},
	}
	state.Plan = domain.Plan{
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{
				{
					Window:  domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(11 * time.Hour)},
					Choices: []domain.Choice{{Kind: domain.ChoiceAttraction, Features: domain.ChoiceFeatures{Themes: map[string]bool{"art": true}}}},
				},
				{
					Window:  domain.Window{StartUTC: day.Add(14 * time.Hour), EndUTC: day.Add(16 * time.Hour)},
					Choices: []domain.Choice{{Kind: domain.ChoiceAttraction, Features: domain.ChoiceFeatures{Themes: map[string]bool{"art": true}}}},
				},
			},
		}},
	}

	out := (&Engine{}).resolve(state)

	first := out.Plan.Days[0].Slots[0].Choices[0]
	second := out.Plan.Days[0].Slots[1].Choices[0]
	assert.Equal(t, "att-only", first.OptionRef)
	assert.Empty(t, second.OptionRef) // the only matching venue is already used; no fabricated rebind
	require.Len(t, out.Violations, 1)
}

func TestResolve_LodgingExcludesNonKidFriendlyWhenRequired(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	state := domain.NewPlanState("trace-1", 1, domain.Request{})
	state.LodgingsByID["htl-adult"] = domain.ToolResult{
		ID: "htl-adult", Kind: domain.ChoiceLodging,
		Features: domain.ChoiceFeatures{CostCents: costPtr(10000), KidFriendly: domain.No},
	}
	state.LodgingsByID["htl-family"] = domain.ToolResult{
		ID: "htl-family", Kind: domain.ChoiceLodging,
		Features: domain.ChoiceFeatures{CostCents: costPtr(12000), KidFriendly: domain.Yes},
	}
	state.Plan = domain.Plan{
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{{
				Window: domain.Window{StartUTC: day.Add(15 * time.Hour), EndUTC: day.Add(16 * time.Hour)},
				Choices: []domain.Choice{{
					Kind:     domain.ChoiceLodging,
					Features: domain.ChoiceFeatures{CostCents: costPtr(10000), KidFriendly: domain.Yes},
				}},
			}},
		}},
	}

	out := (&Engine{}).resolve(state)

	best := out.Plan.Days[0].Slots[0].Choices[0]
	assert.Equal(t, "htl-family", best.OptionRef)
}

func TestResolve_AttractionPrefersExactRAGRefIDOverThemeOverlap(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	state := domain.NewPlanState("trace-1", 1, domain.Request{})
	state.AttractionsByID["att-louvre"] = domain.ToolResult{
		ID: "att-louvre", Kind: domain.ChoiceAttraction,
		Features:   domain.ChoiceFeatures{CostCents: costPtr(2000), Themes: map[string]bool{"history": true}},
		Provenance: domain.Provenance{Source: domain.SourceTool, RefID: "att-louvre"},
	}
	state.AttractionsByID["att-museum-art"] = domain.ToolResult{
		ID: "att-museum-art", Kind: domain.ChoiceAttraction,
		Features: domain.ChoiceFeatures{CostCents: costPtr(2000), Themes: map[string]bool{"art": true}},
	}
	state.Plan = domain.Plan{
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{{
				Window: domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(11 * time.Hour)},
				Choices: []domain.Choice{{
					Kind:       domain.ChoiceAttraction,
					Features:   domain.ChoiceFeatures{CostCents: costPtr(2000), Themes: map[string]bool{"art": true}},
					Provenance: domain.Provenance{Source: domain.SourceRAG, RefID: "att-louvre"},
				}},
			}},
		}},
	}

	out := (&Engine{}).resolve(state)

	best := out.Plan.Days[0].Slots[0].Choices[0]
	assert.Equal(t, "att-louvre", best.OptionRef)
	assert.Equal(t, domain.SourceRAGTool, best.Provenance.Source)
}

func TestResolve_UnmatchableChoiceProducesViolationNotFabricatedOption(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	state := domain.NewPlanState("trace-1", 1, domain.Request{})
	state.Plan = domain.Plan{
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{{
				Window:  domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(11 * time.Hour)},
				Choices: []domain.Choice{{Kind: domain.ChoiceAttraction}},
			}},
		}},
	}

	out := (&Engine{}).resolve(state)

	require.Len(t, out.Violations, 1)
	assert.Equal(t, domain.ViolationTimingInfeasible, out.Violations[0].Kind)
	assert.Empty(t, out.Plan.Days[0].Slots[0].Choices[0].OptionRef)
}

func TestResolve_SkipsLockedAndAlreadyResolvedSlots(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	state := domain.NewPlanState("trace-1", 1, domain.Request{})
	state.Plan = domain.Plan{
		Days: []domain.DayPlan{{
			Date: day,
			Slots: []domain.Slot{
				{
					Window:  domain.Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(11 * time.Hour)},
					Choices: []domain.Choice{{Kind: domain.ChoiceAttraction}},
					Locked:  true,
				},
				{
					Window:  domain.Window{StartUTC: day.Add(12 * time.Hour), EndUTC: day.Add(13 * time.Hour)},
					Choices: []domain.Choice{{Kind: domain.ChoiceFlight, OptionRef: "already-bound"}},
				},
			},
		}},
	}

	out := (&Engine{}).resolve(state)

	assert.Empty(t, out.Violations)
	assert.Equal(t, "already-bound", out.Plan.Days[0].Slots[1].Choices[0].OptionRef)
}
