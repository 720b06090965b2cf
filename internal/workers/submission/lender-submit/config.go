// internal/workers/submission/lender-submit/config.go
package lendersubmit

import (
	"time"

	"lender-submission-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// MaxRetries is the retry budget the process model gives the task. It lets
	// the worker derive a zero-based attempt from the job's remaining retries.
	MaxRetries int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// FromWorkerConfig overlays the worker section of the service config.
func FromWorkerConfig(wcfg config.WorkerConfig) *Config {
	cfg := LoadConfig()
	if wcfg.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wcfg.Timeout)
	}
	if wcfg.MaxRetries > 0 {
		cfg.MaxRetries = wcfg.MaxRetries
	}
	return cfg
}
