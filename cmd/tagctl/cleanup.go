package main

import (
	"github.com/spf13/cobra"

	"github.com/qs3c/feedback_tag_server/internal/pkg/cron"
	"github.com/qs3c/feedback_tag_server/internal/repository"
)

func NewCleanupCommand() *cobra.Command {
	var expireHours int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired local export files once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("expire-hours") {
				cfg.Export.ExpireHours = expireHours
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}

			svc := cron.NewService(repository.NewExportJobRepository(db), cfg.Export.Dir, cfg.Export.ExpireHours, log)
			removed := svc.CleanupNow()
			log.WithField("removed", removed).WithField("dir", cfg.Export.Dir).Info("cleanup finished")
			return nil
		},
	}

	cmd.Flags().IntVar(&expireHours, "expire-hours", 24, "Hours to keep local export files (default from config)")
	return cmd
}
