// Package config loads the pipeline's environment-driven configuration,
// following the agent's config.DefaultConfig/ApplyEnvOverrides shape
// but flattened to plain env vars the way the control plane server
// binary reads its own.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DetectionConfig configures the detection engine binary.
type DetectionConfig struct {
	RedisURL string

	OpenSearchHost     string
	OpenSearchPort     int
	OpenSearchUser     string
	OpenSearchPassword string
	OpenSearchUseSSL   bool
	IndexPrefix        string

	Workers      int
	BatchSize    int
	PollInterval time.Duration

	RulesDir            string
	RulesExtension      string
	RuleReloadInterval  time.Duration

	GeoIPDBPath        string
	ThreatIntelPath    string
	DNSCacheSize       int
	DNSCacheTTL        time.Duration

	HealthReportInterval time.Duration
}

// AlertManagerConfig configures the alert manager binary.
type AlertManagerConfig struct {
	RedisURL string

	Workers        int
	DedupWindow    time.Duration
	ThrottleWindow time.Duration
	ThrottleMax    int

	SlackSecretName      string
	PagerDutySecretName  string
	PagerDutyThreshold   string
	WebhookSecretName    string

	SMTPHost               string
	SMTPPort               int
	SMTPFrom               string
	SMTPTo                 []string
	SMTPUsername           string
	SMTPPasswordSecretName string

	HealthReportInterval time.Duration
}

// DetectionConfigFromEnv reads DetectionConfig from the process
// environment, applying the same defaults spec'd for the pipeline.
func DetectionConfigFromEnv() (DetectionConfig, error) {
	cfg := DetectionConfig{
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		OpenSearchHost:     getEnv("OPENSEARCH_HOST", "localhost"),
		OpenSearchPort:     getEnvInt("OPENSEARCH_PORT", 9200),
		OpenSearchUser:     os.Getenv("OPENSEARCH_USER"),
		OpenSearchPassword: os.Getenv("OPENSEARCH_PASSWORD"),
		OpenSearchUseSSL:   getEnvBool("OPENSEARCH_USE_SSL", false),
		IndexPrefix:        getEnv("INDEX_EVENTS", "siem-events"),

		Workers:      getEnvInt("DETECTION_WORKERS", 2),
		BatchSize:    getEnvInt("DETECTION_BATCH_SIZE", 100),
		PollInterval: getEnvDuration("DETECTION_POLL_INTERVAL", 1*time.Second),

		RulesDir:           getEnv("RULES_DIR", "./rules"),
		RulesExtension:     getEnv("RULES_EXTENSION", ".yml"),
		RuleReloadInterval: getEnvDuration("RULE_RELOAD_INTERVAL", 60*time.Second),

		GeoIPDBPath:     os.Getenv("GEOIP_DB_PATH"),
		ThreatIntelPath: os.Getenv("THREAT_INTEL_FEED_PATH"),
		DNSCacheSize:    getEnvInt("DNS_CACHE_SIZE", 5000),
		DNSCacheTTL:     getEnvDuration("DNS_CACHE_TTL", 1*time.Hour),

		HealthReportInterval: getEnvDuration("HEALTH_REPORT_INTERVAL", 60*time.Second),
	}

	if cfg.Workers <= 0 {
		return cfg, fmt.Errorf("DETECTION_WORKERS must be positive, got %d", cfg.Workers)
	}
	return cfg, nil
}

// AlertManagerConfigFromEnv reads AlertManagerConfig from the process
// environment.
func AlertManagerConfigFromEnv() (AlertManagerConfig, error) {
	cfg := AlertManagerConfig{
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Workers:        getEnvInt("ALERT_WORKERS", 2),
		DedupWindow:    getEnvDuration("ALERT_DEDUP_WINDOW", 300*time.Second),
		ThrottleWindow: getEnvDuration("ALERT_THROTTLE_WINDOW", 3600*time.Second),
		ThrottleMax:    getEnvInt("ALERT_THROTTLE_MAX", 100),

		SlackSecretName:     getEnv("SLACK_SECRET_NAME", "slack-webhook"),
		PagerDutySecretName: getEnv("PAGERDUTY_SECRET_NAME", "pagerduty-routing-key"),
		PagerDutyThreshold:  getEnv("PAGERDUTY_SEVERITY_THRESHOLD", "HIGH"),
		WebhookSecretName:   getEnv("WEBHOOK_SECRET_NAME", "generic-webhook"),

		SMTPHost:               os.Getenv("SMTP_HOST"),
		SMTPPort:               getEnvInt("SMTP_PORT", 587),
		SMTPFrom:               os.Getenv("SMTP_FROM"),
		SMTPTo:                 splitNonEmpty(os.Getenv("SMTP_TO")),
		SMTPUsername:           os.Getenv("SMTP_USERNAME"),
		SMTPPasswordSecretName: getEnv("SMTP_PASSWORD_SECRET_NAME", "smtp-password"),

		HealthReportInterval: getEnvDuration("HEALTH_REPORT_INTERVAL", 60*time.Second),
	}

	if cfg.Workers <= 0 {
		return cfg, fmt.Errorf("ALERT_WORKERS must be positive, got %d", cfg.Workers)
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvDuration reads key as a bare number of seconds ("60") or as a
// Go duration string ("90s", "1h").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	return out
}
