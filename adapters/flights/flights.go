// Package flights adapts the Amadeus flight-offers search API, grounded
// on the teacher's plugins/amadeus/client.go: OAuth2 client-credentials
// auth, a bearer-token doRequest wrapper, and MapError's HTTP-status
// classification, now wired through the shared adapter.Caller contract
// instead of a bespoke per-client cache/retry implementation.
package flights

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/windmark/itinerary-engine/adapter"
	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/runerr"
)

// Query is the canonicalized input to a flight search; its JSON encoding
// is what the shared cache content-hashes.
type Query struct {
	OriginIATA string `json:"origin"`
	DestIATA   string `json:"dest"`
	Date       string `json:"date"` // YYYY-MM-DD
	Tier       domain.Tier `json:"tier"`
}

// Offer is one raw flight result from the provider, pre feature-mapping.
type Offer struct {
	ID           string  `json:"id"`
	Airline      string  `json:"airline"`
	PriceCents   int64   `json:"price_cents"`
	DurationSec  int64   `json:"duration_sec"`
	Tier         string  `json:"tier"`
}

// Client wraps Amadeus's OAuth2 flight-offers endpoint.
type Client struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	HTTPClient   *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time

	caller *adapter.Caller
}

// NewClient builds a Client and its shared-contract Caller.
func NewClient(clientID, clientSecret, baseURL string, policy adapter.Policy, cache adapter.Cache) *Client {
	c := &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		BaseURL:      baseURL,
		HTTPClient:   &http.Client{},
	}
	c.caller = adapter.NewCaller("flights", policy, cache, nil, c.doSearch, c.fixture)
	return c
}

// Search runs a flight query through the shared adapter contract and
// returns the matching offers with provenance attached.
func (c *Client) Search(ctx context.Context, q Query) ([]Offer, domain.Provenance, error) {
	res, err := c.caller.Call(ctx, q)
	if err != nil {
		return nil, domain.Provenance{}, err
	}
	var offers []Offer
	if err := json.Unmarshal(res.Value, &offers); err != nil {
		return nil, domain.Provenance{}, runerr.Wrap(runerr.AdapterInvalidResp, "flights", err)
	}
	return offers, res.Provenance, nil
}

func (c *Client) doSearch(ctx context.Context, input any) (any, error) {
	q := input.(Query)
	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v2/shopping/flight-offers?origin=%s&dest=%s&date=%s", c.BaseURL, q.OriginIATA, q.DestIATA, q.Date), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, mapStatus(resp.StatusCode)
	}

	var offers []Offer
	if err := json.NewDecoder(resp.Body).Decode(&offers); err != nil {
		return nil, err
	}
	return offers, nil
}

// Token exposes the client's bearer token for sibling adapters (lodging)
// that share the same Amadeus OAuth2 credentials, so they need not
// duplicate the authentication flow.
func (c *Client) Token(ctx context.Context) (string, error) {
	if err := c.authenticate(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

func (c *Client) authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiry.Add(-10*time.Second)) {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/security/oauth2/token",
		strings.NewReader(fmt.Sprintf("grant_type=client_credentials&client_id=%s&client_secret=%s", c.ClientID, c.ClientSecret)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return err
	}
	c.token = token.AccessToken
	c.expiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return nil
}

// fixture is the hard-failure fallback: a single conservative mid-tier
// offer so Generate's downstream slots still have something to resolve
// against, flagged via provenance.source=fixture by the caller.
func (c *Client) fixture(ctx context.Context, input any) any {
	q := input.(Query)
	return []Offer{{
		ID:          "fixture-" + q.OriginIATA + "-" + q.DestIATA,
		Airline:     "unknown",
		PriceCents:  35000,
		DurationSec: 3 * 3600,
		Tier:        string(domain.TierMid),
	}}
}

// mapStatus classifies an HTTP status into the shared error taxonomy,
// generalized from the teacher's MapError (plugins/amadeus/client.go)
// which did the same string-matching per status code.
func mapStatus(status int) error {
	switch {
	case status == 404:
		return runerr.New(runerr.AdapterUpstream, "flights", "not found")
	case status == 429:
		return runerr.New(runerr.AdapterRetryExhaust, "flights", "rate limited")
	case status == 400:
		return runerr.New(runerr.AdapterInvalidResp, "flights", "invalid request")
	case status == 401 || status == 403:
		return runerr.New(runerr.AdapterUpstream, "flights", "authentication failed")
	default:
		return runerr.New(runerr.AdapterUpstream, "flights", fmt.Sprintf("status %d", status))
	}
}

// ToChoiceFeatures is the feature mapper isolating Select/Resolve from the
// raw Offer schema (spec §4.5: "a feature mapper converts raw results to
// ChoiceFeatures before Select ever touches them").
func ToChoiceFeatures(o Offer) domain.ChoiceFeatures {
	cost := o.PriceCents
	dur := o.DurationSec
	tier := domain.Tier(o.Tier)
	if tier == "" {
		tier = domain.TierMid
	}
	return domain.ChoiceFeatures{
		CostCents:     &cost,
		TravelTimeSec: &dur,
		Tier:          tier,
	}
}
