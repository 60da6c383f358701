package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/windmark/itinerary-engine/domain"
)

// HintExtractor turns retrieved chunks into the four structured hint
// tables (spec §4.2). Extraction failures are non-fatal: implementations
// return a zero-value StructuredHints rather than an error for anything
// short of a context cancellation.
type HintExtractor interface {
	Extract(ctx context.Context, city string, chunks []Chunk) (domain.StructuredHints, error)
}

// GenkitExtractor is the LLM-backed extractor, one of the engine's two
// permitted LLM touchpoints (spec §9). Grounded on
// agents/trip_planner.go's ReAct-loop prompt/parse pattern, narrowed to a
// single one-shot extraction call instead of a multi-step tool loop, and
// on its extractUsageJSON bracket-balance JSON recovery for pulling a
// clean JSON blob out of noisy LLM text.
type GenkitExtractor struct {
	Genkit *genkit.Genkit
	Model  ai.Model
}

func NewGenkitExtractor(gk *genkit.Genkit, model ai.Model) *GenkitExtractor {
	return &GenkitExtractor{Genkit: gk, Model: model}
}

const hintExtractionPrompt = `Extract structured travel planning hints from the passages below about %s.
Return ONLY a JSON object with four arrays: "attractions", "flights", "lodgings", "transit".
Each attraction: {"name","type","indoor":true|false|null,"cost_cents","themes":[...]}.
Each flight: {"airline","origin_iata","dest_iata","price_cents","duration_sec"}.
Each lodging: {"name","tier":"budget|mid|luxury","nightly_cents","kid_friendly":true|false|null}.
Each transit: {"mode","route_id","unit_cents","duration_sec"}.
If a passage gives no evidence for a field, omit that entry rather than invent one.

Passages:
%s`

type extractedHints struct {
	Attractions []struct {
		Name      string   `json:"name"`
		Type      string   `json:"type"`
		Indoor    *bool    `json:"indoor"`
		CostCents int64    `json:"cost_cents"`
		Themes    []string `json:"themes"`
	} `json:"attractions"`
	Flights []struct {
		Airline     string `json:"airline"`
		OriginIATA  string `json:"origin_iata"`
		DestIATA    string `json:"dest_iata"`
		PriceCents  int64  `json:"price_cents"`
		DurationSec int64  `json:"duration_sec"`
	} `json:"flights"`
	Lodgings []struct {
		Name         string `json:"name"`
		Tier         string `json:"tier"`
		NightlyCents int64  `json:"nightly_cents"`
		KidFriendly  *bool  `json:"kid_friendly"`
	} `json:"lodgings"`
	Transit []struct {
		Mode        string `json:"mode"`
		RouteID     string `json:"route_id"`
		UnitCents   int64  `json:"unit_cents"`
		DurationSec int64  `json:"duration_sec"`
	} `json:"transit"`
}

func (e *GenkitExtractor) Extract(ctx context.Context, city string, chunks []Chunk) (domain.StructuredHints, error) {
	if len(chunks) == 0 {
		return domain.StructuredHints{}, nil // empty knowledge base is non-fatal
	}
	if e.Genkit == nil || e.Model == nil {
		return domain.StructuredHints{}, nil
	}

	var passages strings.Builder
	for _, c := range chunks {
		passages.WriteString("- ")
		passages.WriteString(c.Text)
		passages.WriteString("\n")
	}

	resp, err := genkit.Generate(ctx, e.Genkit,
		ai.WithModel(e.Model),
		ai.WithPrompt(fmt.Sprintf(hintExtractionPrompt, city, passages.String())))
	if err != nil {
		return domain.StructuredHints{}, nil // extraction failures are non-fatal (spec §4.2)
	}

	raw := extractJSONObject(resp.Text())
	if raw == "" {
		return domain.StructuredHints{}, nil
	}

	var parsed extractedHints
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return domain.StructuredHints{}, nil
	}

	return toStructuredHints(parsed), nil
}

func toStructuredHints(p extractedHints) domain.StructuredHints {
	hints := domain.StructuredHints{}
	for _, a := range p.Attractions {
		themes := map[string]bool{}
		for _, t := range a.Themes {
			themes[t] = true
		}
		hints.Attractions = append(hints.Attractions, domain.AttractionHint{
			Name: a.Name, Type: a.Type, Indoor: triFromPtr(a.Indoor), CostCents: a.CostCents, Themes: themes,
		})
	}
	for _, f := range p.Flights {
		hints.Flights = append(hints.Flights, domain.FlightHint{
			Airline: f.Airline, OriginIATA: f.OriginIATA, DestIATA: f.DestIATA,
			PriceCents: f.PriceCents, DurationSec: f.DurationSec,
		})
	}
	for _, l := range p.Lodgings {
		hints.Lodgings = append(hints.Lodgings, domain.LodgingHint{
			Name: l.Name, Tier: domain.Tier(l.Tier), NightlyCents: l.NightlyCents, KidFriendly: triFromPtr(l.KidFriendly),
		})
	}
	for _, t := range p.Transit {
		hints.Transit = append(hints.Transit, domain.TransitHint{
			Mode: t.Mode, RouteID: t.RouteID, UnitCents: t.UnitCents, DurationSec: t.DurationSec,
		})
	}
	return hints
}

func triFromPtr(b *bool) domain.TriState {
	if b == nil {
		return domain.Unknown
	}
	return domain.TriFromBool(*b)
}

// extractJSONObject finds the first '{' and walks forward counting
// brace depth to find its matching close, tolerating trailing prose the
// model may add — grounded on agents/trip_planner.go's extractUsageJSON.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
