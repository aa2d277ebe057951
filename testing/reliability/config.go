package reliability

import (
	"os"
	"strconv"
	"time"
)

// Reliability suites are opt-in. WINGTIPS_RELIABILITY_LEVEL selects the tier:
// "basic" runs the fast invariant checks, "stress" adds sustained-load runs.
// The remaining variables tune stress intensity.
type suiteConfig struct {
	Level            string
	Duration         time.Duration
	MaxGoroutines    int
	FailureThreshold float64
}

func loadSuiteConfig() suiteConfig {
	return suiteConfig{
		Level:            os.Getenv("WINGTIPS_RELIABILITY_LEVEL"),
		Duration:         envDuration("WINGTIPS_RELIABILITY_DURATION", 30*time.Second),
		MaxGoroutines:    envInt("WINGTIPS_RELIABILITY_MAX_GOROUTINES", 100),
		FailureThreshold: envFloat("WINGTIPS_RELIABILITY_FAILURE_THRESHOLD", 0.05),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
