// Package fx resolves a destination country's display currency and, when
// a non-USD price enters the cost breakdown, its rate against USD.
// Currency-code resolution is grounded verbatim on the teacher's
// plugins/core/currency.go GetCurrencyForCountry. Rate lookup has no
// corpus grounding (no FX-rate client exists in the pack) and is written
// in the same minimal-HTTP-client shape as adapters/weather.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"github.com/windmark/itinerary-engine/adapter"
	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/runerr"
)

// CurrencyForCountry returns the ISO currency code for a country code
// (ISO 3166-1 alpha-2), defaulting to USD. Grounded on
// plugins/core/currency.go.
func CurrencyForCountry(countryCode string) string {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if code == "" {
		return "USD"
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return "USD"
	}
	cur, ok := currency.FromRegion(region)
	if !ok {
		return "USD"
	}
	return cur.String()
}

type Query struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Rate struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	caller     *adapter.Caller
}

func NewClient(baseURL string, policy adapter.Policy, cache adapter.Cache) *Client {
	c := &Client{BaseURL: baseURL, HTTPClient: &http.Client{}}
	c.caller = adapter.NewCaller("fx", policy, cache, nil, c.doFetch, c.fixture)
	return c
}

// Fetch returns the FX rate, per the spec §9 open-question decision: the
// engine only calls this when a non-USD price is about to enter the cost
// breakdown; USD-only runs never reach here.
func (c *Client) Fetch(ctx context.Context, q Query) (Rate, domain.Provenance, error) {
	if q.From == q.To {
		return Rate{From: q.From, To: q.To, Rate: 1.0}, domain.Provenance{Source: domain.SourceDerived}, nil
	}
	res, err := c.caller.Call(ctx, q)
	if err != nil {
		return Rate{}, domain.Provenance{}, err
	}
	var r Rate
	if err := json.Unmarshal(res.Value, &r); err != nil {
		return Rate{}, domain.Provenance{}, runerr.Wrap(runerr.AdapterInvalidResp, "fx", err)
	}
	return r, res.Provenance, nil
}

func (c *Client) doFetch(ctx context.Context, input any) (any, error) {
	q := input.(Query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/rates?from=%s&to=%s", c.BaseURL, q.From, q.To), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, runerr.New(runerr.AdapterUpstream, "fx", fmt.Sprintf("status %d", resp.StatusCode))
	}
	var r Rate
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) fixture(ctx context.Context, input any) any {
	q := input.(Query)
	return Rate{From: q.From, To: q.To, Rate: 1.0}
}
