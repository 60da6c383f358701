// Package weather has no grounding source in the retrieved pack (no
// weather client exists anywhere in _examples); written in the same
// minimal unauthenticated-GET-plus-JSON-decode shape as the teacher's
// plugins/nager/client.go, the closest structural analogue (see
// DESIGN.md).
package weather

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
	City string `json:"city"`
	Date string `json:"date"` // YYYY-MM-DD
}

// Forecast is the raw daily forecast the provider returns.
type Forecast struct {
	Date       string  `json:"date"`
	PrecipProb float64 `json:"precip_prob"`
	WindKph    float64 `json:"wind_kph"`
	TempHighC  float64 `json:"temp_high_c"`
	TempLowC   float64 `json:"temp_low_c"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	caller     *adapter.Caller
}

func NewClient(baseURL string, policy adapter.Policy, cache adapter.Cache) *Client {
	c := &Client{BaseURL: baseURL, HTTPClient: &http.Client{}}
	c.caller = adapter.NewCaller("weather", policy, cache, nil, c.doFetch, c.fixture)
	return c
}

func (c *Client) Fetch(ctx context.Context, q Query) (Forecast, domain.Provenance, error) {
	res, err := c.caller.Call(ctx, q)
	if err != nil {
		return Forecast{}, domain.Provenance{}, err
	}
	var f Forecast
	if err := json.Unmarshal(res.Value, &f); err != nil {
		return Forecast{}, domain.Provenance{}, runerr.Wrap(runerr.AdapterInvalidResp, "weather", err)
	}
	return f, res.Provenance, nil
}

func (c *Client) doFetch(ctx context.Context, input any) (any, error) {
	q := input.(Query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/forecast?city=%s&date=%s", c.BaseURL, q.City, q.Date), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, runerr.New(runerr.AdapterUpstream, "weather", fmt.Sprintf("status %d", resp.StatusCode))
	}

	var f Forecast
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, err
	}
	return f, nil
}

// fixture reports a clear, unremarkable day. weather_unavailable is a
// non-blocking degradation (spec §4.5), never a fatal error: callers
// must still be able to Verify against this forecast.
func (c *Client) fixture(ctx context.Context, input any) any {
	q := input.(Query)
	return Forecast{Date: q.Date, PrecipProb: 0.1, WindKph: 10, TempHighC: 22, TempLowC: 14}
}

// Blocking implements the Weather verifier's threshold check (spec §4.7)
// against the configured thresholds.
func Blocking(f Forecast, precipBlocking, windBlockingKph, tempHighBlockingC, tempLowBlockingC float64) bool {
	return f.PrecipProb > precipBlocking ||
		f.WindKph > windBlockingKph ||
		f.TempHighC > tempHighBlockingC ||
		f.TempLowC < tempLowBlockingC
}
