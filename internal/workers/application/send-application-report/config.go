// internal/workers/application/send-application-report/config.go
package sendapplicationreport

import (
	"time"

	"agritrust-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// DefaultRecipients is used when the job does not name any.
	DefaultRecipients []string
	RecentLimit       int
}

func LoadConfig(wc config.WorkerConfig, recipients []string) *Config {
	cfg := &Config{
		Timeout:           30 * time.Second,
		DefaultRecipients: recipients,
		RecentLimit:       10,
	}
	if wc.Timeout > 0 {
		cfg.Timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return cfg
}
