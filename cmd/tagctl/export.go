package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/qs3c/feedback_tag_server/internal/repository"
	"github.com/qs3c/feedback_tag_server/internal/service"
)

func NewExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all responses as CSV",
		Long: `Export all responses as CSV. With --out "-" the CSV is written to stdout;
with --out pointing to a directory the dated default filename is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}

			// 同步导出不需要队列
			exportService := service.NewExportService(
				repository.NewResponseRepository(db),
				repository.NewExportJobRepository(db),
				nil,
			)
			result, err := exportService.Export()
			if err != nil {
				return err
			}

			if out == "-" {
				_, err := cmd.OutOrStdout().Write(result.Data)
				return err
			}

			path := out
			if path == "" {
				path = result.FileName
			} else if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, result.FileName)
			}

			if err := os.WriteFile(path, result.Data, 0o644); err != nil {
				return err
			}
			log.WithField("path", path).WithField("rows", result.Rows).Info("responses exported")
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", `Output file or directory ("-" for stdout)`)
	return cmd
}
