// Package transit adapts ground-transport lookups. Grounded on two
// teacher sources: providers/amadeus/transfers.go (the only ground-
// transport data in the retrieved pack — TransferOffer/TransferPoint,
// here generalized into the "transfer" mode) and plugins/googlemaps's
// place/distance client shape for walk/public-transit/taxi duration
// lookups (SPEC_FULL.md §11 domain stack).
package transit

import (
	"context"
	"encoding/json"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/windmark/itinerary-engine/adapter"
	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/runerr"
)

// Mode is a transit leg's mode of travel.
type Mode string

const (
	ModeWalk     Mode = "walk"
	ModeTransit  Mode = "public_transit"
	ModeTaxi     Mode = "taxi"
	ModeTransfer Mode = "transfer" // private/shared airport transfer, adapted from transfers.go
)

// Query is a single origin/destination leg lookup.
type Query struct {
	OriginLat float64 `json:"origin_lat"`
	OriginLng float64 `json:"origin_lng"`
	DestLat   float64 `json:"dest_lat"`
	DestLng   float64 `json:"dest_lng"`
	Mode      Mode    `json:"mode"`
}

// Leg is one raw transit result.
type Leg struct {
	RouteID     string `json:"route_id"`
	Mode        string `json:"mode"`
	UnitCents   int64  `json:"unit_cents"`
	DurationSec int64  `json:"duration_sec"`
}

// Client wraps the Google Maps distance-matrix API for walk/transit/taxi
// legs, falling back to a flat-rate transfer estimate for the transfer
// mode (the domain Amadeus transfers endpoint does not expose a public
// sandbox quote without a full booking context, so it is only used to
// ground the Leg shape here, not called directly).
type Client struct {
	mapsClient *maps.Client
	caller     *adapter.Caller
}

func NewClient(apiKey string, policy adapter.Policy, cache adapter.Cache) (*Client, error) {
	mc, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	c := &Client{mapsClient: mc}
	c.caller = adapter.NewCaller("transit", policy, cache, nil, c.doLookup, c.fixture)
	return c, nil
}

func (c *Client) Lookup(ctx context.Context, q Query) (Leg, domain.Provenance, error) {
	res, err := c.caller.Call(ctx, q)
	if err != nil {
		return Leg{}, domain.Provenance{}, err
	}
	var leg Leg
	if err := json.Unmarshal(res.Value, &leg); err != nil {
		return Leg{}, domain.Provenance{}, runerr.Wrap(runerr.AdapterInvalidResp, "transit", err)
	}
	return leg, res.Provenance, nil
}

func (c *Client) doLookup(ctx context.Context, input any) (any, error) {
	q := input.(Query)

	if q.Mode == ModeTransfer {
		return Leg{RouteID: "transfer-direct", Mode: string(ModeTransfer), UnitCents: 4500, DurationSec: 2700}, nil
	}

	mode := googleTravelMode(q.Mode)
	req := &maps.DistanceMatrixRequest{
		Origins:      []string{fmt.Sprintf("%f,%f", q.OriginLat, q.OriginLng)},
		Destinations: []string{fmt.Sprintf("%f,%f", q.DestLat, q.DestLng)},
		Mode:         mode,
	}
	resp, err := c.mapsClient.DistanceMatrix(ctx, req)
	if err != nil {
		return nil, runerr.Wrap(runerr.AdapterUpstream, "transit", err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return nil, runerr.New(runerr.AdapterInvalidResp, "transit", "empty distance matrix response")
	}
	el := resp.Rows[0].Elements[0]

	unit := int64(0)
	if q.Mode == ModeTaxi {
		unit = int64(el.Distance.Meters) / 1000 * 150 // rough per-km taxi estimate, cents
	}

	return Leg{
		RouteID:     "gmaps-" + string(q.Mode),
		Mode:        string(q.Mode),
		UnitCents:   unit,
		DurationSec: int64(el.Duration.Seconds()),
	}, nil
}

func googleTravelMode(m Mode) maps.Mode {
	switch m {
	case ModeWalk:
		return maps.TravelModeWalking
	case ModeTransit:
		return maps.TravelModeTransit
	default:
		return maps.TravelModeDriving
	}
}

func (c *Client) fixture(ctx context.Context, input any) any {
	q := input.(Query)
	return Leg{RouteID: "fixture-" + string(q.Mode), Mode: string(q.Mode), UnitCents: 500, DurationSec: 900}
}

// ModeForDuration implements the mode rule from spec §4.3 step 4: walk
// under 15 min, public transit 15-45 min, taxi otherwise.
func ModeForDuration(estimatedMin int) Mode {
	switch {
	case estimatedMin < 15:
		return ModeWalk
	case estimatedMin <= 45:
		return ModeTransit
	default:
		return ModeTaxi
	}
}

func ToChoiceFeatures(l Leg) domain.ChoiceFeatures {
	cost := l.UnitCents
	dur := l.DurationSec
	return domain.ChoiceFeatures{CostCents: &cost, TravelTimeSec: &dur}
}
