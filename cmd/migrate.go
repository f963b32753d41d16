package cmd

import (
	"fmt"

	"github.com/koopa0/recall/db"
	"github.com/koopa0/recall/internal/config"
	"github.com/koopa0/recall/internal/log"
)

// runMigrate applies pending migrations and exits. Useful in deploy
// pipelines where schema changes land before the new binary.
func runMigrate(cfg *config.Config, logger log.Logger) error {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations complete")
	return nil
}
