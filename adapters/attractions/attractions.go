// Package attractions resolves an abstract attraction Choice against
// venue data: first by RAG-named match, then by nearest-admission-cost
// among theme-overlapping results (spec §4.6). The tool-result path
// reuses the minimal-HTTP-client shape of adapters/weather, since no
// corpus venue-data provider exists either.
package attractions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/windmark/itinerary-engine/adapter"
	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/runerr"
)

type Query struct {
	City   string `json:"city"`
	Themes []string `json:"themes"`
}

type Venue struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	AdmissionCents int64   `json:"admission_cents"`
	Indoor        bool     `json:"indoor"`
	IndoorKnown   bool     `json:"indoor_known"`
	Themes        []string `json:"themes"`
	ClosedKnown   bool     `json:"closed_known"`
	Closed        bool     `json:"closed"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	caller     *adapter.Caller
}

func NewClient(baseURL string, policy adapter.Policy, cache adapter.Cache) *Client {
	c := &Client{BaseURL: baseURL, HTTPClient: &http.Client{}}
	c.caller = adapter.NewCaller("attractions", policy, cache, nil, c.doSearch, c.fixture)
	return c
}

func (c *Client) Search(ctx context.Context, q Query) ([]Venue, domain.Provenance, error) {
	res, err := c.caller.Call(ctx, q)
	if err != nil {
		return nil, domain.Provenance{}, err
	}
	var venues []Venue
	if err := json.Unmarshal(res.Value, &venues); err != nil {
		return nil, domain.Provenance{}, runerr.Wrap(runerr.AdapterInvalidResp, "attractions", err)
	}
	return venues, res.Provenance, nil
}

func (c *Client) doSearch(ctx context.Context, input any) (any, error) {
	q := input.(Query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/venues?city=%s", c.BaseURL, q.City), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, runerr.New(runerr.AdapterUpstream, "attractions", fmt.Sprintf("status %d", resp.StatusCode))
	}
	var venues []Venue
	if err := json.NewDecoder(resp.Body).Decode(&venues); err != nil {
		return nil, err
	}
	return venues, nil
}

func (c *Client) fixture(ctx context.Context, input any) any {
	return []Venue{}
}

func ToChoiceFeatures(v Venue) domain.ChoiceFeatures {
	cost := v.AdmissionCents
	indoor := domain.Unknown
	if v.IndoorKnown {
		indoor = domain.TriFromBool(v.Indoor)
	}
	closed := domain.Unknown
	if v.ClosedKnown {
		closed = domain.TriFromBool(v.Closed)
	}
	themes := map[string]bool{}
	for _, t := range v.Themes {
		themes[t] = true
	}
	return domain.ChoiceFeatures{CostCents: &cost, Indoor: indoor, Closed: closed, Themes: themes}
}
