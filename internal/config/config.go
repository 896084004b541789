// Package config provides environment configuration for the API server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Business calendar settings
	OpenAt          time.Duration // offset from local midnight, e.g. 9h
	CloseAt         time.Duration // offset from local midnight, e.g. 17h
	SlotGranularity time.Duration
	Workdays        map[time.Weekday]bool

	// Intent service settings
	IntentProvider  string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	IntentModel     string
	IntentTimeout   time.Duration

	// Session settings
	SessionHistoryLimit int

	// NATS settings (booking event publishing; disabled when URL is empty)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),

		// Business calendar
		OpenAt:          getClockEnv("BUSINESS_HOURS_START", 9*time.Hour),
		CloseAt:         getClockEnv("BUSINESS_HOURS_END", 17*time.Hour),
		SlotGranularity: getDurationEnv("SLOT_GRANULARITY", 30*time.Minute),
		Workdays:        getWorkdaysEnv("BUSINESS_DAYS", "mon,tue,wed,thu,fri"),

		// Intent service
		IntentProvider:  getEnv("INTENT_PROVIDER", "openai"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		IntentModel:     getEnv("INTENT_MODEL", ""),
		IntentTimeout:   getDurationEnv("INTENT_TIMEOUT", 10*time.Second),

		// Sessions
		SessionHistoryLimit: getIntEnv("SESSION_HISTORY_LIMIT", 50),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate checks the startup-fatal conditions: a usable intent-service
// credential and a business-hours window the slot granularity actually fits.
func (c *Config) Validate() error {
	switch c.IntentProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when INTENT_PROVIDER=openai")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when INTENT_PROVIDER=anthropic")
		}
	case "keyword":
		// Rule-based matcher, no credential needed.
	default:
		return fmt.Errorf("unknown INTENT_PROVIDER %q", c.IntentProvider)
	}

	if c.OpenAt < 0 || c.CloseAt > 24*time.Hour || c.OpenAt >= c.CloseAt {
		return fmt.Errorf("business hours %v-%v do not form a window inside one day", c.OpenAt, c.CloseAt)
	}

	span := c.CloseAt - c.OpenAt
	if c.SlotGranularity <= 0 {
		return fmt.Errorf("slot granularity must be positive, got %v", c.SlotGranularity)
	}
	if c.SlotGranularity > span {
		return fmt.Errorf("slot granularity %v exceeds the business-hours span %v", c.SlotGranularity, span)
	}
	if span%c.SlotGranularity != 0 {
		return fmt.Errorf("slot granularity %v does not evenly divide the business-hours span %v", c.SlotGranularity, span)
	}

	if len(c.Workdays) == 0 {
		return fmt.Errorf("BUSINESS_DAYS selects no working days")
	}

	if c.IntentTimeout <= 0 {
		return fmt.Errorf("INTENT_TIMEOUT must be positive, got %v", c.IntentTimeout)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getClockEnv reads an "HH:MM" wall-clock value as an offset from midnight.
func getClockEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	t, err := time.Parse("15:04", value)
	if err != nil {
		return defaultValue
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// getWorkdaysEnv reads a comma-separated weekday list ("mon,tue,...").
// Unrecognized entries are ignored; an empty result falls back to the default.
func getWorkdaysEnv(key, defaultValue string) map[time.Weekday]bool {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	days := make(map[time.Weekday]bool)
	for _, part := range strings.Split(value, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if len(name) > 3 {
			name = name[:3]
		}
		if d, ok := weekdayNames[name]; ok {
			days[d] = true
		}
	}

	if len(days) == 0 && value != defaultValue {
		return getWorkdaysEnvFromDefault(defaultValue)
	}
	return days
}

func getWorkdaysEnvFromDefault(defaultValue string) map[time.Weekday]bool {
	days := make(map[time.Weekday]bool)
	for _, part := range strings.Split(defaultValue, ",") {
		if d, ok := weekdayNames[strings.TrimSpace(part)]; ok {
			days[d] = true
		}
	}
	return days
}
