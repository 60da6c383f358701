package domain

import "time"

// Activity is one synthesized, provenance-backed itinerary entry.
type Activity struct {
	Window    Window
	Kind      ChoiceKind
	Name      string
	Geo       string
	Notes     string
	CostCents int64
}

// DayItinerary is the final, synthesized form of a DayPlan.
type DayItinerary struct {
	Date       time.Time
	Activities []Activity
}

// CostBreakdown summarizes the final cost per category plus discretionary
// spend, with a disclaimer naming when any FX rate was fetched.
type CostBreakdown struct {
	ByCategory          map[ChoiceKind]int64
	DailyDiscretionary  int64
	TotalCents          int64
	CurrencyDisclaimer  string // empty unless a non-USD price entered the breakdown
}

// DecisionKind names the class of non-obvious choice a Decision records.
type DecisionKind string

const (
	DecisionTieBreak    DecisionKind = "selector_tie_break"
	DecisionRepairMove  DecisionKind = "repair_move"
	DecisionRAGGrounded DecisionKind = "rag_grounded_selection"
)

// Decision records the rationale behind a non-obvious choice the engine
// made, so the client can explain the itinerary.
type Decision struct {
	Kind      DecisionKind
	Claim     string
	Rationale string
}

// Citation backs one material claim in the Itinerary with its provenance.
// "No evidence, no claim": any claim lacking provenance must never be
// emitted as a Citation.
type Citation struct {
	Claim      string
	Provenance Provenance
}

// Metadata carries run-identifying information for the final Itinerary.
type Metadata struct {
	TraceID   string
	CreatedAt time.Time
}

// Itinerary is the planning engine's final output.
type Itinerary struct {
	Days          []DayItinerary
	CostBreakdown CostBreakdown
	Decisions     []Decision
	Citations     []Citation
	Metadata      Metadata
}
