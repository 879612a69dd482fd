package cli

import (
	"github.com/mrlokans/readtrack/internal/config"
	"github.com/mrlokans/readtrack/internal/entrypoint"
)

// openApp builds the tracking core against dbPath. Metrics are disabled
// since a one-shot command has nothing to scrape.
func openApp(dbPath string) (*entrypoint.App, error) {
	cfg := config.NewConfig()
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	cfg.Metrics.Enabled = false
	return entrypoint.NewApp(cfg)
}
