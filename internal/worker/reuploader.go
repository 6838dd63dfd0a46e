package worker

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/feedback_tag_server/internal/repository"
)

const (
	reuploadInterval = 5 * time.Minute
	reuploadBatch    = 20
)

// Reuploader 后台重传仅保存在本地的导出文件
type Reuploader struct {
	jobRepo  *repository.ExportJobRepository
	uploader Uploader
	log      logrus.FieldLogger
}

// NewReuploader 创建重传器
func NewReuploader(jobRepo *repository.ExportJobRepository, uploader Uploader, log logrus.FieldLogger) *Reuploader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reuploader{
		jobRepo:  jobRepo,
		uploader: uploader,
		log:      log,
	}
}

// Start 启动后台重传循环
func (r *Reuploader) Start(ctx context.Context) {
	// 启动后先执行一次
	r.RunOnce()

	ticker := time.NewTicker(reuploadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("reuploader stopped")
			return
		case <-ticker.C:
			r.RunOnce()
		}
	}
}

// RunOnce 执行一轮重传，返回成功数
func (r *Reuploader) RunOnce() int {
	jobs, err := r.jobRepo.ListPendingUpload(reuploadBatch)
	if err != nil {
		r.log.WithError(err).Error("reuploader: failed to query local exports")
		return 0
	}

	uploaded := 0
	for _, job := range jobs {
		log := r.log.WithField("job_id", job.ID)

		data, err := os.ReadFile(job.FilePath)
		if err != nil {
			log.WithError(err).Warn("reuploader: failed to read local export")
			continue
		}

		url, err := r.uploader.UploadExport(job.ID, job.FileName, data)
		if err != nil {
			log.WithError(err).Warn("reuploader: upload failed")
			continue
		}

		if err := r.jobRepo.UpdateFields(job.ID, map[string]interface{}{"object_url": url}); err != nil {
			log.WithError(err).Warn("reuploader: failed to save object url")
			continue
		}
		uploaded++
	}

	if uploaded > 0 {
		r.log.WithField("count", uploaded).Info("reuploader: exports uploaded")
	}
	return uploaded
}
