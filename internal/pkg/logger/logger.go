package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/feedback_tag_server/config"
)

// New 按配置创建 logrus 实例，默认 JSON 输出到 stdout
func New(cfg config.LogConfig, service string) *logrus.Entry {
	return NewWithOutput(cfg, service, os.Stdout)
}

func NewWithOutput(cfg config.LogConfig, service string, out io.Writer) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(out)

	if cfg.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log.WithField("service", service)
}

// Discard 测试用，丢弃所有输出
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}
