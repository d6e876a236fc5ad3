package cmd

import (
	"fmt"

	"github.com/sibylhq/sibyl/db"
	"github.com/sibylhq/sibyl/internal/config"
	"github.com/sibylhq/sibyl/internal/log"
)

// runMigrate applies pending schema migrations and exits. The other
// commands migrate on startup as well; this exists for provisioning a
// database ahead of first use.
func runMigrate(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return err
	}

	fmt.Println("Migrations applied.")
	return nil
}
