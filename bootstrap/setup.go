// Package bootstrap wires together one Engine from a loaded Config:
// the AI plugin, every adapter client sharing the common adapter.Policy
// contract, the retriever/hint-extractor pair, and the GORM-backed
// session store. Grounded on the teacher's own bootstrap/setup.go, which
// does the equivalent wiring for its tool registry and agent stack.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/windmark/itinerary-engine/adapter"
	"github.com/windmark/itinerary-engine/adapters/attractions"
	"github.com/windmark/itinerary-engine/adapters/flights"
	"github.com/windmark/itinerary-engine/adapters/fx"
	"github.com/windmark/itinerary-engine/adapters/lodging"
	"github.com/windmark/itinerary-engine/adapters/transit"
	"github.com/windmark/itinerary-engine/adapters/weather"
	"github.com/windmark/itinerary-engine/config"
	"github.com/windmark/itinerary-engine/engine"
	"github.com/windmark/itinerary-engine/persistence"
	"github.com/windmark/itinerary-engine/retrieval"
)

// App holds every wired component a long-running process needs.
type App struct {
	Engine *engine.Engine
	Genkit *genkit.Genkit
	Model  ai.Model
	DB     *gorm.DB
}

// Setup initializes every engine dependency from cfg: the genkit model
// used for structured-hint extraction, one shared Cache and one
// adapter.Policy per adapter (cache TTL from cfg's adapters.*.cache_ttl_s,
// which defaults to 1h for every adapter, weather and fx included), the
// database connection,
// and the persistence store, then constructs the Engine itself.
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	gk, model, err := setupModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cache, err := setupCache(cfg)
	if err != nil {
		return nil, err
	}

	flightsClient := flights.NewClient(cfg.Adapters.Amadeus.ClientID, cfg.Adapters.Amadeus.ClientSecret,
		amadeusBaseURL(cfg.Adapters.Amadeus.Environment), toPolicy(cfg.Adapters.Flights), cache)

	lodgingClient := lodging.NewClient(amadeusBaseURL(cfg.Adapters.Amadeus.Environment),
		flightsClient.Token, toPolicy(cfg.Adapters.Lodging), cache)

	transitClient, err := transit.NewClient(cfg.Adapters.GoogleMaps.APIKey, toPolicy(cfg.Adapters.Transit), cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transit client: %w", err)
	}

	weatherClient := weather.NewClient("https://api.open-meteo.com/v1", toPolicy(cfg.Adapters.Weather), cache)
	fxClient := fx.NewClient("https://api.exchangerate.host", toPolicy(cfg.Adapters.Fx), cache)
	attractionsClient := attractions.NewClient("https://api.opentripmap.com", toPolicy(cfg.Adapters.Attractions), cache)

	db, err := setupDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := persistence.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	store := persistence.NewStore(db)

	retriever := retrieval.NewStaticRetriever(map[string][]retrieval.Chunk{})
	hintExtractor := retrieval.NewGenkitExtractor(gk, model)

	eng := engine.New(cfg, retriever, hintExtractor,
		flightsClient, lodgingClient, transitClient, weatherClient, fxClient, attractionsClient,
		store, engine.NullSink{})

	return &App{Engine: eng, Genkit: gk, Model: model, DB: db}, nil
}

func setupModel(ctx context.Context, cfg *config.Config) (*genkit.Genkit, ai.Model, error) {
	if cfg.AI.Gemini.APIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY must be set")
	}
	log.Println("Using Gemini Plugin for structured-hint extraction...")
	gk := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.AI.Gemini.APIKey}))
	model := googlegenai.GoogleAIModel(gk, cfg.AI.Gemini.Model)
	return gk, model, nil
}

func setupCache(cfg *config.Config) (adapter.Cache, error) {
	if cfg.Adapters.RedisAddr == "" {
		return adapter.NewMemoryCache(), nil
	}
	return adapter.NewRedisCache(cfg.Adapters.RedisAddr), nil
}

func setupDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DB.Driver == "postgres" {
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.DBName, cfg.DB.SSLMode)
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open(cfg.DB.DBName), &gorm.Config{})
}

func toPolicy(p config.AdapterPolicy) adapter.Policy {
	return adapter.Policy{
		SoftTimeout:     msToDuration(p.SoftTimeoutMs),
		HardTimeout:     msToDuration(p.HardTimeoutMs),
		RetryCount:      p.RetryCount,
		RetryJitterMin:  msToDuration(p.RetryJitterMinMs),
		RetryJitterMax:  msToDuration(p.RetryJitterMaxMs),
		BreakerThreshold: p.BreakerThreshold,
		BreakerWindow:    msToDuration(p.BreakerWindowMs),
		BreakerCooldown:  msToDuration(p.BreakerCooldownMs),
		CacheTTL:         secToDuration(p.CacheTTLSec),
	}
}

func msToDuration(ms int) time.Duration  { return time.Duration(ms) * time.Millisecond }
func secToDuration(s int) time.Duration  { return time.Duration(s) * time.Second }

func amadeusBaseURL(env string) string {
	if env == "production" {
		return "https://api.amadeus.com"
	}
	return "https://test.api.amadeus.com"
}
