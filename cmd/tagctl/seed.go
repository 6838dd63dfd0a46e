package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qs3c/feedback_tag_server/internal/repository"
	"github.com/qs3c/feedback_tag_server/internal/seed"
)

func NewSeedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import users and questions from a YAML seed file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			f, err := seed.Load(file)
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}

			result, err := seed.Apply(repository.NewUserRepository(db), repository.NewQuestionRepository(db), f)
			if err != nil {
				return err
			}

			log.WithFields(logrus.Fields{
				"users_created":      result.UsersCreated,
				"users_skipped":      result.UsersSkipped,
				"questions_upserted": result.QuestionsUpserted,
			}).Info("seed applied")
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "Seed file path")
	return cmd
}
