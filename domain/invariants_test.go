package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProvenance() Provenance {
	return Provenance{
		Source:         SourceTool,
		RefID:          "flt-1",
		FetchedAt:      time.Now(),
		ResponseDigest: "deadbeef",
	}
}

func TestCheckAll_CleanStatePasses(t *testing.T) {
	cost := int64(10000)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	state := NewPlanState("trace-1", 1, Request{
		City:        "Paris",
		BudgetCents: 100000,
		Window:      Window{StartUTC: day, EndUTC: day.AddDate(0, 0, 2), TZ: "Europe/Paris"},
		Airports:    []string{"CDG"},
	})
	state.Plan = Plan{
		Days: []DayPlan{
			{
				Date: day,
				Slots: []Slot{
					{
						Window: Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(11 * time.Hour)},
						Choices: []Choice{
							{Kind: ChoiceAttraction, Features: ChoiceFeatures{CostCents: &cost}, Provenance: sampleProvenance()},
						},
					},
				},
			},
		},
	}

	err := CheckAll("generate", state, false)
	assert.NoError(t, err)
}

func TestCheckAll_FlagsOverlapAndMissingProvenance(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	state := NewPlanState("trace-1", 1, Request{City: "Paris", BudgetCents: 1000, Airports: []string{"CDG"}})
	state.Plan = Plan{
		Days: []DayPlan{
			{
				Date: day,
				Slots: []Slot{
					{Window: Window{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(11 * time.Hour)}, Choices: []Choice{{Kind: ChoiceAttraction}}},
					{Window: Window{StartUTC: day.Add(10 * time.Hour), EndUTC: day.Add(12 * time.Hour)}, Choices: []Choice{{Kind: ChoiceAttraction, Provenance: sampleProvenance()}}},
				},
			},
		},
	}

	err := CheckAll("generate", state, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlapping")
	assert.Contains(t, err.Error(), "missing provenance")
}

func TestCheckLockedSlotsUnchanged(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	locked := Slot{
		Window:  Window{StartUTC: day.Add(14 * time.Hour), EndUTC: day.Add(16 * time.Hour)},
		Locked:  true,
		Choices: []Choice{{Kind: ChoiceAttraction, OptionRef: "louvre", Score: 42}},
	}
	before := Plan{Days: []DayPlan{{Date: day, Slots: []Slot{locked}}}}
	after := Plan{Days: []DayPlan{{Date: day, Slots: []Slot{locked}}}}

	assert.NoError(t, CheckLockedSlotsUnchanged(before, after))

	mutated := locked
	mutated.Choices = []Choice{{Kind: ChoiceAttraction, OptionRef: "other", Score: 1}}
	after2 := Plan{Days: []DayPlan{{Date: day, Slots: []Slot{mutated}}}}
	assert.Error(t, CheckLockedSlotsUnchanged(before, after2))
}

func TestRequestValidate(t *testing.T) {
	req := Request{}
	errs := req.Validate()
	assert.NotEmpty(t, errs)

	valid := Request{
		City:        "Paris",
		Window:      Window{StartUTC: time.Now(), EndUTC: time.Now().AddDate(0, 0, 3), TZ: "Europe/Paris"},
		BudgetCents: 250000,
		Airports:    []string{"CDG", "ORY"},
	}
	assert.Empty(t, valid.Validate())
}
