package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// fallbackRunner 先执行主操作，失败时记录日志并执行备用操作，两者都失败返回 ErrBackend
type fallbackRunner struct {
	log     logrus.FieldLogger
	counter *prometheus.CounterVec
}

func newFallbackRunner(log logrus.FieldLogger, counter *prometheus.CounterVec) *fallbackRunner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &fallbackRunner{log: log, counter: counter}
}

func (r *fallbackRunner) run(op string, primary, fallback func() error) error {
	err := primary()
	if err == nil {
		return nil
	}

	r.log.WithError(err).WithField("op", op).Warn("primary store op failed, trying fallback")

	if fbErr := fallback(); fbErr != nil {
		r.observe(op, "failed")
		r.log.WithError(fbErr).WithField("op", op).Error("fallback store op failed")
		return backendError(op, fbErr)
	}

	r.observe(op, "recovered")
	return nil
}

func (r *fallbackRunner) observe(op, result string) {
	if r.counter != nil {
		r.counter.WithLabelValues(op, result).Inc()
	}
}
