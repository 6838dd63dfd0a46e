package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/internal/model"
	"github.com/qs3c/feedback_tag_server/internal/pkg/metrics"
	"github.com/qs3c/feedback_tag_server/internal/pkg/pubsub"
	"github.com/qs3c/feedback_tag_server/internal/pkg/queue"
	"github.com/qs3c/feedback_tag_server/internal/repository"
	"github.com/qs3c/feedback_tag_server/internal/service"
)

// Uploader 导出文件上传，未配置 OSS 时为 nil
type Uploader interface {
	UploadExport(jobID int64, fileName string, data []byte) (string, error)
}

// Processor 导出任务处理器
type Processor struct {
	jobRepo       *repository.ExportJobRepository
	exportService *service.ExportService
	uploader      Uploader
	publisher     service.EventPublisher
	exportDir     string
	metrics       *metrics.Metrics
	log           logrus.FieldLogger
}

// NewProcessor 创建任务处理器
func NewProcessor(
	jobRepo *repository.ExportJobRepository,
	exportService *service.ExportService,
	uploader Uploader,
	publisher service.EventPublisher,
	exportDir string,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *Processor {
	if m == nil {
		m = metrics.New(nil)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{
		jobRepo:       jobRepo,
		exportService: exportService,
		uploader:      uploader,
		publisher:     publisher,
		exportDir:     exportDir,
		metrics:       m,
		log:           log,
	}
}

// Process 生成 CSV，写入导出目录，配置了 OSS 时上传
func (p *Processor) Process(ctx context.Context, msg *queue.ExportMessage) error {
	job, err := p.jobRepo.GetByID(msg.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.log.WithField("job_id", msg.JobID).Warn("export job not found, dropping message")
			return nil
		}
		return fmt.Errorf("failed to get job: %w", err)
	}

	// 重复投递的消息直接忽略
	if job.Status == model.ExportStatusCompleted || job.Status == model.ExportStatusProcessing {
		return nil
	}

	log := p.log.WithField("job_id", job.ID)

	now := time.Now()
	job.Status = model.ExportStatusProcessing
	job.StartedAt = &now
	job.ErrorMessage = ""
	if err := p.jobRepo.Update(job); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	handleError := func(err error) error {
		completedAt := time.Now()
		job.Status = model.ExportStatusFailed
		job.ErrorMessage = err.Error()
		job.CompletedAt = &completedAt
		if uerr := p.jobRepo.Update(job); uerr != nil {
			log.WithError(uerr).Error("failed to mark job failed")
		}
		p.metrics.ExportJobs.WithLabelValues(model.ExportStatusFailed).Inc()
		p.publish(ctx, job)
		return err
	}

	result, err := p.exportService.Export()
	if err != nil {
		return handleError(fmt.Errorf("build csv: %w", err))
	}

	if err := os.MkdirAll(p.exportDir, 0o755); err != nil {
		return handleError(fmt.Errorf("create export dir: %w", err))
	}
	localPath := filepath.Join(p.exportDir, fmt.Sprintf("%d_%s", job.ID, result.FileName))
	if err := os.WriteFile(localPath, result.Data, 0o644); err != nil {
		return handleError(fmt.Errorf("write export file: %w", err))
	}

	// 上传失败不影响任务完成，由 Reuploader 重试
	var objectURL string
	if p.uploader != nil {
		objectURL, err = p.uploader.UploadExport(job.ID, result.FileName, result.Data)
		if err != nil {
			log.WithError(err).Warn("upload export failed, kept locally")
			objectURL = ""
		}
	}

	completedAt := time.Now()
	job.Status = model.ExportStatusCompleted
	job.FileName = result.FileName
	job.FilePath = localPath
	job.ObjectURL = objectURL
	job.RowCount = result.Rows
	job.CompletedAt = &completedAt
	if err := p.jobRepo.Update(job); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	p.metrics.ExportJobs.WithLabelValues(model.ExportStatusCompleted).Inc()
	p.publish(ctx, job)

	log.WithFields(logrus.Fields{
		"rows":     result.Rows,
		"uploaded": objectURL != "",
		"elapsed":  completedAt.Sub(now).String(),
	}).Info("export job completed")
	return nil
}

func (p *Processor) publish(ctx context.Context, job *model.ExportJob) {
	if p.publisher == nil {
		return
	}
	err := p.publisher.Publish(ctx, &pubsub.Event{
		Type:    pubsub.EventExportFinished,
		JobID:   job.ID,
		Status:  job.Status,
		Message: job.ErrorMessage,
	})
	if err != nil {
		p.log.WithError(err).WithField("job_id", job.ID).Warn("publish export event failed")
	}
}
