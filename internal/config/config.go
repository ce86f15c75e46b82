package config

import (
	"strings"
	"time"

	"frameworks/lookout/pkg/config"
	"frameworks/lookout/pkg/llm"
	"frameworks/lookout/pkg/search"
)

// Config stores environment configuration for Lookout. Loaded once in main
// and passed into handlers read-only.
type Config struct {
	Port                string
	Restricted          bool
	LLM                 llm.Config
	ConsultMaxAttempts  int
	ConsultRetryBackoff time.Duration
	Search              search.Defaults
	BillingKafkaTopic   string
	KafkaBrokers        []string
	KafkaClusterID      string
}

// LoadConfig loads the Lookout configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Port:                config.GetEnv("PORT", "8081"),
		Restricted:          config.GetEnvBool("LOOKOUT_RESTRICTED", false),
		LLM:                 llm.LoadConfig(),
		ConsultMaxAttempts:  config.GetEnvInt("LOOKOUT_CONSULT_MAX_ATTEMPTS", 3),
		ConsultRetryBackoff: parseDuration(config.GetEnv("LOOKOUT_CONSULT_RETRY_BACKOFF", "500ms"), 500*time.Millisecond),
		Search:              search.LoadDefaults(),
		BillingKafkaTopic:   config.GetEnv("BILLING_KAFKA_TOPIC", "billing.usage_reports"),
		KafkaBrokers:        parseBrokerList(config.GetEnv("KAFKA_BROKERS", "")),
		KafkaClusterID:      config.GetEnv("KAFKA_CLUSTER_ID", "local"),
	}
}

func parseBrokerList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var result []string
	for _, broker := range strings.Split(s, ",") {
		broker = strings.TrimSpace(broker)
		if broker != "" {
			result = append(result, broker)
		}
	}
	return result
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
