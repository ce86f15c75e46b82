package search

import (
	"net/http"

	"frameworks/lookout/pkg/config"
)

const (
	defaultTavilyURL = "https://api.tavily.com/search"
	defaultBingURL   = "https://api.bing.microsoft.com/v7.0/search"
	defaultLocalURL  = "https://localhost:3000/search"
)

// Defaults carries the operator-configured fallbacks applied to every
// per-request config. Each numeric default doubles as the ceiling the
// client value is clamped against. Loaded once at startup, never mutated.
type Defaults struct {
	MaxResults       int
	SizeLimit        int
	TavilyEndpoint   string
	BingEndpoint     string
	LocalEndpoint    string
	SummaryPrompt    string
	SummarizeCtxSize int
}

// LoadDefaults reads the operator defaults from the environment.
func LoadDefaults() Defaults {
	return Defaults{
		MaxResults:       config.GetEnvInt("LOOKOUT_MAX_SEARCH_RESULTS", 5),
		SizeLimit:        config.GetEnvInt("LOOKOUT_SIZE_PER_SEARCH_RESULT", 400),
		TavilyEndpoint:   config.GetEnv("LOOKOUT_TAVILY_URL", defaultTavilyURL),
		BingEndpoint:     config.GetEnv("LOOKOUT_BING_URL", defaultBingURL),
		LocalEndpoint:    config.GetEnv("LOOKOUT_LOCAL_SEARCH_URL", defaultLocalURL),
		SummaryPrompt:    config.GetEnv("LOOKOUT_SUMMARY_PROMPT", defaultSummaryPrompt),
		SummarizeCtxSize: config.GetEnvInt("LOOKOUT_SUMMARIZE_CTX_SIZE", 4096),
	}
}

// ExecutionConfig is the fully resolved plan for one search call. Built
// fresh per request from the client's search_config object plus the
// operator defaults; never cached across requests.
type ExecutionConfig struct {
	Backend          Backend
	Engine           string
	MaxResults       int
	SizeLimit        int
	Endpoint         string
	Method           string
	Headers          map[string]string
	Parse            ResponseParser
	SummaryPrompt    string
	SummarizeCtxSize int
}

// BuildConfig resolves a backend selector into an ExecutionConfig. The
// client's numeric limits are clamped in every arm; the endpoint is
// fixed per provider except for the local backend, where the client may
// point at its own proxy. Fails before any network call.
func BuildConfig(backend Backend, rawConfig map[string]any, defaults Defaults) (*ExecutionConfig, error) {
	cfg := &ExecutionConfig{
		Backend:          backend,
		MaxResults:       clampLimit(rawConfig, "max_search_results", defaults.MaxResults),
		SizeLimit:        clampLimit(rawConfig, "size_limit_per_result", defaults.SizeLimit),
		SummaryPrompt:    defaults.SummaryPrompt,
		SummarizeCtxSize: defaults.SummarizeCtxSize,
	}
	switch backend {
	case BackendTavily:
		cfg.Engine = "tavily"
		cfg.Endpoint = defaults.TavilyEndpoint
		cfg.Method = http.MethodPost
		cfg.Headers = map[string]string{"Content-Type": "application/json"}
		cfg.Parse = ParseTavilyResults
	case BackendBing:
		cfg.Engine = "bing"
		cfg.Endpoint = defaults.BingEndpoint
		cfg.Method = http.MethodGet
		cfg.Headers = map[string]string{"Accept": "application/json"}
		cfg.Parse = ParseBingResults
	case BackendLocal:
		cfg.Engine = "google"
		cfg.Endpoint = defaults.LocalEndpoint
		if override, ok := rawConfig["endpoint"].(string); ok && override != "" {
			cfg.Endpoint = override
		}
		cfg.Method = http.MethodPost
		cfg.Headers = map[string]string{"Content-Type": "application/json"}
		// The local proxy replies in the same shape as Bing.
		cfg.Parse = ParseBingResults
	default:
		return nil, ErrUnknownBackend
	}
	return cfg, nil
}

// clampLimit reads a numeric limit from the client config. Absent,
// non-numeric and non-positive values fall back to the operator default;
// anything above the default is clamped down to it.
func clampLimit(rawConfig map[string]any, key string, ceiling int) int {
	raw, ok := rawConfig[key]
	if !ok {
		return ceiling
	}
	value, ok := asInt(raw)
	if !ok || value <= 0 {
		return ceiling
	}
	if value > ceiling {
		return ceiling
	}
	return value
}

// asInt accepts the numeric shapes a decoded JSON body can carry.
func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
