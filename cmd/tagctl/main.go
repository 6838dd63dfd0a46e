package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/config"
	"github.com/qs3c/feedback_tag_server/internal/database"
	"github.com/qs3c/feedback_tag_server/internal/pkg/logger"
)

var (
	configPath string
	logLevel   string
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tagctl",
		Short:        "Operator tooling for the feedback tagging server",
		SilenceUsage: true,
	}

	cmd.AddCommand(
		NewMigrateCommand(),
		NewSeedCommand(),
		NewExportCommand(),
		NewHashPasswordCommand(),
		NewCleanupCommand(),
	)

	cmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to config.yaml")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (trace,debug,info,warn,error), overrides config")
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logrus.WithError(err).Fatal("could not execute command")
	}
}

// loadConfig 读取配置并创建日志
func loadConfig() (*config.Config, *logrus.Entry, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	// CLI 默认文本输出
	cfg.Log.Format = "text"
	return cfg, logger.New(cfg.Log, "tagctl"), nil
}

// openDB 连接数据库并迁移
func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
