package domain

import "time"

// ChoiceKind enumerates the atomic planning units.
type ChoiceKind string

const (
	ChoiceFlight     ChoiceKind = "flight"
	ChoiceLodging    ChoiceKind = "lodging"
	ChoiceAttraction ChoiceKind = "attraction"
	ChoiceTransit    ChoiceKind = "transit"
	ChoiceMeal       ChoiceKind = "meal"
)

// Tier is the price/quality band a Choice targets or resolves to.
type Tier string

const (
	TierBudget Tier = "budget"
	TierMid    Tier = "mid"
	TierLuxury Tier = "luxury"
)

// Downgrade returns the next tier down (luxury->mid->budget) and whether a
// downgrade was possible.
func (t Tier) Downgrade() (Tier, bool) {
	switch t {
	case TierLuxury:
		return TierMid, true
	case TierMid:
		return TierBudget, true
	default:
		return t, false
	}
}

// TriState is a three-valued attribute distinguishing "no" from "unknown"
// (spec §9): Unknown must propagate to advisory, non-blocking verifier
// behavior rather than being coerced to false.
type TriState int

const (
	Unknown TriState = iota
	Yes
	No
)

func TriFromBool(b bool) TriState {
	if b {
		return Yes
	}
	return No
}

// ProvenanceSource names where a datum came from.
type ProvenanceSource string

const (
	SourceTool    ProvenanceSource = "tool"
	SourceRAG     ProvenanceSource = "rag"
	SourceFixture ProvenanceSource = "fixture"
	SourceUser    ProvenanceSource = "user"
	SourceDerived ProvenanceSource = "derived"
	SourceRAGTool ProvenanceSource = "rag+tool"
)

// Provenance is the mandatory record of where a Choice's or Citation's data
// came from. A Choice without Provenance is invalid (invariant 3).
type Provenance struct {
	Source         ProvenanceSource
	RefID          string
	SourceURL      string
	FetchedAt      time.Time
	ResponseDigest string
	CacheHit       bool
}

// IsZero reports whether p is the unset zero value, i.e. missing.
func (p Provenance) IsZero() bool {
	return p.Source == "" && p.RefID == "" && p.ResponseDigest == ""
}

// ChoiceFeatures is the deterministic projection of raw adapter/RAG data
// the feature mapper produces; Select never sees raw tool schemas
// (spec §4.5's "feature mapper" isolation).
type ChoiceFeatures struct {
	CostCents     *int64
	TravelTimeSec *int64
	Indoor        TriState
	KidFriendly   TriState
	Closed        TriState // Yes blocks Feasibility (spec §4.7 iv); Unknown is advisory only
	Themes        map[string]bool
	Tier          Tier
}

// Choice is the atomic unit of a plan: abstract until Resolve binds it to
// a concrete tool result via OptionRef.
type Choice struct {
	Kind       ChoiceKind
	Features   ChoiceFeatures
	Leg        string // flight direction tag ("outbound"/"return"); empty for non-flight kinds
	OptionRef  string // stable id of the resolved tool result; "" pre-resolve
	Score      float64
	Provenance Provenance
}

// Resolved reports whether this Choice has been bound to a concrete
// result. Meal choices never carry an OptionRef and are considered
// resolved as soon as they have provenance.
func (c Choice) Resolved() bool {
	if c.Kind == ChoiceMeal {
		return !c.Provenance.IsZero()
	}
	return c.OptionRef != ""
}
