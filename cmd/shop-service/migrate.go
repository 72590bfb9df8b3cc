package main

import (
	"github.com/spf13/cobra"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/config"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/db"
)

func newMigrateCmd() *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations (or roll back with --down) and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.DatabaseDSN == "" {
				return config.ErrMissingDSN
			}
			logger := newLogger()
			if down > 0 {
				return db.RollbackMigrations(cfg.DatabaseDSN, down, logger)
			}
			return db.RunMigrations(cfg.DatabaseDSN, logger)
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations instead of applying")
	return cmd
}
