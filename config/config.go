// Package config aggregates the planning engine's configuration, read once
// at engine construction time. Mutating it mid-run is undefined behavior.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config aggregates all engine configuration.
type Config struct {
	AI       AIConfig       `yaml:"ai"`
	Engine   EngineConfig   `yaml:"engine"`
	Repair   RepairConfig   `yaml:"repair"`
	Adapters AdaptersConfig `yaml:"adapters"`
	Weather  WeatherConfig  `yaml:"weather"`
	Retrieve RetrieveConfig `yaml:"retrieve"`
	Log      LogConfig      `yaml:"log"`
	DB       DatabaseConfig `yaml:"database"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// AIConfig holds the model-backend settings. Setup builds only the Gemini
// backend, which Retrieve's structured-hint extraction (the engine's only
// LLM call) uses; Plugin and OpenAI are loaded but not read by Setup.
type AIConfig struct {
	Plugin string       `yaml:"plugin" env:"AI_PLUGIN" env-default:"gemini"`
	Gemini GeminiConfig `yaml:"gemini"`
	OpenAI OpenAIConfig `yaml:"openai"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key" env:"GEMINI_API_KEY"`
	Model  string `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-1.5-flash"`
}

type OpenAIConfig struct {
	APIKey string `yaml:"api_key" env:"OPENAI_API_KEY"`
	Model  string `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
}

// EngineConfig holds the core bounds spec.md §6 enumerates for Generate,
// Resolve, and Execute.
type EngineConfig struct {
	MaxCandidates     int `yaml:"max_candidates" env:"ENGINE_MAX_CANDIDATES" env-default:"4"`
	FanoutCap         int `yaml:"fanout_cap" env:"ENGINE_FANOUT_CAP" env-default:"4"`
	AirportBufferMin  int `yaml:"airport_buffer_min" env:"ENGINE_AIRPORT_BUFFER_MIN" env-default:"120"`
	TransitBufferMin  int `yaml:"transit_buffer_min" env:"ENGINE_TRANSIT_BUFFER_MIN" env-default:"15"`
	BudgetSlippagePct int `yaml:"budget_slippage_pct" env:"ENGINE_BUDGET_SLIPPAGE_PCT" env-default:"10"`
	RunTimeoutSec     int `yaml:"run_timeout_sec" env:"ENGINE_RUN_TIMEOUT_SEC" env-default:"12"`
}

// RepairConfig bounds the Repair self-loop.
type RepairConfig struct {
	MaxCycles         int     `yaml:"max_cycles" env:"REPAIR_MAX_CYCLES" env-default:"3"`
	MaxMovesPerCycle  int     `yaml:"max_moves_per_cycle" env:"REPAIR_MAX_MOVES_PER_CYCLE" env-default:"2"`
	MinReuseRatio     float64 `yaml:"min_reuse_ratio" env:"REPAIR_MIN_REUSE_RATIO" env-default:"0.5"`
}

// AdapterPolicy is the uniform timeout/retry/breaker/cache contract every
// adapter shares (spec.md §4.5, §9: "avoid duplicating the policy per
// adapter").
type AdapterPolicy struct {
	SoftTimeoutMs   int `yaml:"soft_timeout_ms" env-default:"2000"`
	HardTimeoutMs   int `yaml:"hard_timeout_ms" env-default:"4000"`
	RetryCount      int `yaml:"retry_count" env-default:"1"`
	RetryJitterMinMs int `yaml:"retry_jitter_min_ms" env-default:"200"`
	RetryJitterMaxMs int `yaml:"retry_jitter_max_ms" env-default:"500"`
	BreakerThreshold int `yaml:"breaker_threshold" env-default:"5"`
	BreakerWindowMs  int `yaml:"breaker_window_ms" env-default:"60000"`
	BreakerCooldownMs int `yaml:"breaker_cooldown_ms" env-default:"60000"`
	CacheTTLSec      int `yaml:"cache_ttl_s" env-default:"3600"`
}

// AdaptersConfig holds one policy per adapter, plus credentials where the
// adapter requires them. Every adapter, weather and fx included, shares
// AdapterPolicy's cache_ttl_s default of 3600 (1h); weather and fx have no
// separate default of their own.
type AdaptersConfig struct {
	Flights     AdapterPolicy         `yaml:"flights"`
	Lodging     AdapterPolicy         `yaml:"lodging"`
	Transit     AdapterPolicy         `yaml:"transit"`
	Weather     AdapterPolicy         `yaml:"weather"`
	Fx          AdapterPolicy         `yaml:"fx"`
	Attractions AdapterPolicy         `yaml:"attractions"`
	Amadeus     AmadeusCredentials    `yaml:"amadeus"`
	GoogleMaps  GoogleMapsCredentials `yaml:"googlemaps"`
	RedisAddr   string                `yaml:"redis_addr" env:"ADAPTER_CACHE_REDIS_ADDR"`
}

type AmadeusCredentials struct {
	ClientID     string `yaml:"client_id" env:"AMADEUS_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"AMADEUS_CLIENT_SECRET"`
	Environment  string `yaml:"environment" env:"AMADEUS_ENV" env-default:"test"`
}

type GoogleMapsCredentials struct {
	APIKey string `yaml:"api_key" env:"GOOGLE_MAPS_API_KEY"`
}

// WeatherConfig carries the thresholds spec.md §9 calls out as
// city-dependent-but-loosely-defined in the source: treated as
// configuration with documented defaults.
type WeatherConfig struct {
	PrecipBlocking     float64 `yaml:"precip_blocking" env:"WEATHER_PRECIP_BLOCKING" env-default:"0.70"`
	WindBlockingKph    float64 `yaml:"wind_blocking_kph" env:"WEATHER_WIND_BLOCKING_KPH" env-default:"50"`
	TempHighBlockingC  float64 `yaml:"temp_high_blocking_c" env:"WEATHER_TEMP_HIGH_BLOCKING_C" env-default:"35"`
	TempLowBlockingC   float64 `yaml:"temp_low_blocking_c" env:"WEATHER_TEMP_LOW_BLOCKING_C" env-default:"5"`
}

// RetrieveConfig controls the knowledge retriever call.
type RetrieveConfig struct {
	K         int     `yaml:"k" env:"RETRIEVE_K" env-default:"20"`
	MMRLambda float64 `yaml:"mmr_lambda" env:"RETRIEVE_MMR_LAMBDA" env-default:"0.5"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DB_NAME" env-default:"itinerary_engine.db"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
}

// Load reads configuration from config.yaml, then environment variables.
// Priority: env vars > config file > defaults.
func Load() (*Config, error) {
	var cfg Config

	if err := cleanenv.ReadConfig("config.yaml", &cfg); err != nil {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read env config: %w", err)
		}
	}

	return &cfg, nil
}
