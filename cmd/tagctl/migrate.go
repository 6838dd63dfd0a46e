package main

import (
	"github.com/spf13/cobra"
)

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if _, err := openDB(cfg); err != nil {
				return err
			}
			log.WithField("driver", cfg.Database.Driver).Info("database migrated")
			return nil
		},
	}
}
