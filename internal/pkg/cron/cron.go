package cron

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/feedback_tag_server/internal/repository"
)

type Service struct {
	jobRepo     *repository.ExportJobRepository
	exportDir   string
	expireHours int
	interval    time.Duration
	log         logrus.FieldLogger
	stopChan    chan struct{}
}

func NewService(
	jobRepo *repository.ExportJobRepository,
	exportDir string,
	expireHours int,
	log logrus.FieldLogger,
) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		jobRepo:     jobRepo,
		exportDir:   exportDir,
		expireHours: expireHours,
		interval:    time.Hour,
		log:         log,
		stopChan:    make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runCleanup()
	s.log.Info("cron service started (export cleanup)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	s.log.Info("cron service stopped")
}

// runCleanup 每小时执行一次清理
func (s *Service) runCleanup() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.CleanupNow()
		}
	}
}

// CleanupNow 立即执行一次清理，返回删除的文件数
func (s *Service) CleanupNow() int {
	expireHours := s.expireHours
	if expireHours <= 0 {
		expireHours = 1
	}
	expireDuration := time.Duration(expireHours) * time.Hour

	c1 := s.cleanupExpiredJobs(expireDuration)
	c2 := s.cleanupStaleFiles(expireDuration)

	total := c1 + c2
	if total > 0 {
		s.log.WithFields(logrus.Fields{"jobs": c1, "stale": c2}).Info("export cleanup finished")
	}
	return total
}

// cleanupExpiredJobs 删除已完成导出任务的过期本地文件
func (s *Service) cleanupExpiredJobs(expireDuration time.Duration) int {
	if s.jobRepo == nil {
		return 0
	}

	jobs, err := s.jobRepo.ListCompletedBefore(time.Now().Add(-expireDuration))
	if err != nil {
		s.log.WithError(err).Error("cleanup jobs: failed to list expired exports")
		return 0
	}

	cleaned := 0
	for _, job := range jobs {
		if err := os.Remove(job.FilePath); err != nil && !os.IsNotExist(err) {
			s.log.WithError(err).WithField("path", job.FilePath).Warn("cleanup jobs: failed to remove file")
			continue
		}
		if err := s.jobRepo.ClearFilePath(job.ID); err != nil {
			s.log.WithError(err).WithField("job_id", job.ID).Warn("cleanup jobs: failed to clear file path")
			continue
		}
		cleaned++
	}
	return cleaned
}

// cleanupStaleFiles 清理导出目录下无人认领的过期 CSV
func (s *Service) cleanupStaleFiles(expireDuration time.Duration) int {
	if s.exportDir == "" {
		return 0
	}

	entries, err := os.ReadDir(s.exportDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).WithField("dir", s.exportDir).Warn("cleanup stale: failed to read dir")
		}
		return 0
	}

	cleaned := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if time.Since(info.ModTime()) > expireDuration {
			path := filepath.Join(s.exportDir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.log.WithError(err).WithField("path", path).Warn("cleanup stale: failed to remove file")
			} else {
				cleaned++
			}
		}
	}
	return cleaned
}
