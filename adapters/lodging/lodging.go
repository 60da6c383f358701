// Package lodging adapts a hotel-offers search, grounded on the same
// Amadeus OAuth2 shape as adapters/flights (plugins/amadeus/client.go),
// sharing the adapter.Caller contract.
package lodging

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
	CityCode    string      `json:"city"`
	CheckIn     string      `json:"check_in"`
	CheckOut    string      `json:"check_out"`
	Tier        domain.Tier `json:"tier"`
	KidFriendly bool        `json:"kid_friendly"`
}

type Offer struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	NightlyCents    int64  `json:"nightly_cents"`
	Tier            string `json:"tier"`
	KidFriendly     bool   `json:"kid_friendly"`
	KidFriendlyKnown bool  `json:"kid_friendly_known"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      func(ctx context.Context) (string, error)

	caller *adapter.Caller
}

func NewClient(baseURL string, token func(ctx context.Context) (string, error), policy adapter.Policy, cache adapter.Cache) *Client {
	c := &Client{BaseURL: baseURL, HTTPClient: &http.Client{}, Token: token}
	c.caller = adapter.NewCaller("lodging", policy, cache, nil, c.doSearch, c.fixture)
	return c
}

func (c *Client) Search(ctx context.Context, q Query) ([]Offer, domain.Provenance, error) {
	res, err := c.caller.Call(ctx, q)
	if err != nil {
		return nil, domain.Provenance{}, err
	}
	var offers []Offer
	if err := json.Unmarshal(res.Value, &offers); err != nil {
		return nil, domain.Provenance{}, runerr.Wrap(runerr.AdapterInvalidResp, "lodging", err)
	}
	return offers, res.Provenance, nil
}

func (c *Client) doSearch(ctx context.Context, input any) (any, error) {
	q := input.(Query)
	token := ""
	if c.Token != nil {
		t, err := c.Token(ctx)
		if err != nil {
			return nil, err
		}
		token = t
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v3/shopping/hotel-offers?city=%s&checkin=%s&checkout=%s", c.BaseURL, q.CityCode, q.CheckIn, q.CheckOut), nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, runerr.New(runerr.AdapterUpstream, "lodging", fmt.Sprintf("status %d", resp.StatusCode))
	}

	var offers []Offer
	if err := json.NewDecoder(resp.Body).Decode(&offers); err != nil {
		return nil, err
	}
	return offers, nil
}

func (c *Client) fixture(ctx context.Context, input any) any {
	q := input.(Query)
	return []Offer{{
		ID:           "fixture-" + q.CityCode,
		Name:         "Fixture Inn",
		NightlyCents: 12000,
		Tier:         string(domain.TierMid),
	}}
}

// ToChoiceFeatures isolates Select/Resolve from the raw Offer schema.
func ToChoiceFeatures(o Offer) domain.ChoiceFeatures {
	cost := o.NightlyCents
	tier := domain.Tier(o.Tier)
	if tier == "" {
		tier = domain.TierMid
	}
	kid := domain.Unknown
	if o.KidFriendlyKnown {
		kid = domain.TriFromBool(o.KidFriendly)
	}
	return domain.ChoiceFeatures{
		CostCents:   &cost,
		Tier:        tier,
		KidFriendly: kid,
	}
}
