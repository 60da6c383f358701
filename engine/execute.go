package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/windmark/itinerary-engine/adapters/attractions"
	"github.com/windmark/itinerary-engine/adapters/flights"
	"github.com/windmark/itinerary-engine/adapters/fx"
	"github.com/windmark/itinerary-engine/adapters/lodging"
	"github.com/windmark/itinerary-engine/adapters/transit"
	"github.com/windmark/itinerary-engine/adapters/weather"
	"github.com/windmark/itinerary-engine/domain"
)

// execute fans the selected candidate's required lookups out to every
// adapter concurrently, joining before Resolve (spec §4.5). Grounded on
// agents/trip_planner.go's populateOptions/resolveCityCodes concurrency
// pattern, generalized from its raw sync.WaitGroup+channel join into
// golang.org/x/sync/errgroup so a hard adapter failure cancels the
// sibling calls instead of leaking them.
func (e *Engine) execute(ctx context.Context, state domain.PlanState) (domain.PlanState, error) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	plan := state.Plan
	req := state.Request
	destCode := destinationCode(req.City)

	if len(plan.Days) > 0 {
		first := plan.Days[0].Date.Format("2006-01-02")
		g.Go(func() error {
			offers, prov, err := e.Flights.Search(gctx, flights.Query{
				OriginIATA: firstAirport(req.Airports), DestIATA: destCode, Date: first, Tier: domain.TierMid,
			})
			mu.Lock()
			defer mu.Unlock()
			storeFlightOffers(state.FlightsByID, "outbound", offers, prov)
			return err
		})

		if len(plan.Days) > 1 {
			last := plan.Days[len(plan.Days)-1].Date.Format("2006-01-02")
			g.Go(func() error {
				offers, prov, err := e.Flights.Search(gctx, flights.Query{
					OriginIATA: destCode, DestIATA: firstAirport(req.Airports), Date: last, Tier: domain.TierMid,
				})
				mu.Lock()
				defer mu.Unlock()
				storeFlightOffers(state.FlightsByID, "return", offers, prov)
				return err
			})
		}

		checkOut := plan.Days[len(plan.Days)-1].Date.AddDate(0, 0, 1).Format("2006-01-02")
		g.Go(func() error {
			offers, prov, err := e.Lodging.Search(gctx, lodging.Query{
				CityCode: destCode, CheckIn: first, CheckOut: checkOut, Tier: domain.TierMid, KidFriendly: req.Prefs.KidFriendly,
			})
			mu.Lock()
			defer mu.Unlock()
			storeLodgingOffers(state.LodgingsByID, offers, prov)
			return err
		})
	}

	for _, day := range plan.Days {
		date := day.Date
		dateKey := date.Format("2006-01-02")
		g.Go(func() error {
			forecast, prov, err := e.Weather.Fetch(gctx, weather.Query{City: req.City, Date: dateKey})
			mu.Lock()
			defer mu.Unlock()
			state.WeatherByDate[dateKey] = domain.ToolResult{ID: dateKey, Kind: domain.ChoiceAttraction, Provenance: prov}
			state.ForecastsByDate[dateKey] = domain.Forecast{
				PrecipProb: forecast.PrecipProb, WindKph: forecast.WindKph, TempHighC: forecast.TempHighC, TempLowC: forecast.TempLowC,
			}
			return err
		})
	}

	g.Go(func() error {
		venues, prov, err := e.Attractions.Search(gctx, attractions.Query{City: req.City, Themes: themeList(req)})
		mu.Lock()
		defer mu.Unlock()
		for _, v := range venues {
			state.AttractionsByID[v.ID] = domain.ToolResult{ID: v.ID, Kind: domain.ChoiceAttraction, Features: attractions.ToChoiceFeatures(v), Provenance: prov}
		}
		return err
	})

	for _, day := range plan.Days {
		for _, slot := range day.Slots {
			best := slot.Best()
			if best.Kind != domain.ChoiceTransit || slot.Locked {
				continue
			}
			mode := transit.Mode(best.Provenance.RefID)
			if mode == "" {
				mode = transit.ModeTransit
			}
			g.Go(func() error {
				leg, prov, err := e.Transit.Lookup(gctx, transit.Query{Mode: mode})
				mu.Lock()
				defer mu.Unlock()
				state.TransitByID[leg.RouteID] = domain.ToolResult{ID: leg.RouteID, Kind: domain.ChoiceTransit, Features: transit.ToChoiceFeatures(leg), Provenance: prov}
				return err
			})
		}
	}

	if needsFX(plan) {
		g.Go(func() error {
			rate, prov, err := e.Fx.Fetch(gctx, fx.Query{From: "USD", To: "USD"})
			mu.Lock()
			defer mu.Unlock()
			state.Fx = &domain.ToolResult{ID: "fx", Kind: domain.ChoiceMeal, Provenance: prov}
			_ = rate
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return state, err
	}

	return state, nil
}

func firstAirport(airports []string) string {
	if len(airports) == 0 {
		return ""
	}
	return airports[0]
}

// destinationCode is a best-effort stand-in for a city->IATA lookup
// service, which no corpus adapter exposes; it only feeds query inputs
// that adapters either resolve themselves or fall back to a fixture for.
func destinationCode(city string) string {
	c := strings.ToUpper(strings.TrimSpace(city))
	c = strings.ReplaceAll(c, " ", "")
	if len(c) >= 3 {
		return c[:3]
	}
	return fmt.Sprintf("%-3s", c)
}

func needsFX(p domain.Plan) bool {
	return false // USD-only requests never need a rate (spec §9 open question)
}

func storeFlightOffers(byID map[string]domain.ToolResult, leg string, offers []flights.Offer, prov domain.Provenance) {
	for _, o := range offers {
		key := leg + ":" + o.ID
		byID[key] = domain.ToolResult{ID: key, Kind: domain.ChoiceFlight, Features: flights.ToChoiceFeatures(o), Provenance: prov}
	}
}

func storeLodgingOffers(byID map[string]domain.ToolResult, offers []lodging.Offer, prov domain.Provenance) {
	for _, o := range offers {
		byID[o.ID] = domain.ToolResult{ID: o.ID, Kind: domain.ChoiceLodging, Features: lodging.ToChoiceFeatures(o), Provenance: prov}
	}
}
