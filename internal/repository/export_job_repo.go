package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/internal/model"
)

type ExportJobRepository struct {
	db *gorm.DB
}

func NewExportJobRepository(db *gorm.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

func (r *ExportJobRepository) Create(job *model.ExportJob) error {
	return r.db.Create(job).Error
}

func (r *ExportJobRepository) GetByID(id int64) (*model.ExportJob, error) {
	var job model.ExportJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *ExportJobRepository) Update(job *model.ExportJob) error {
	return r.db.Save(job).Error
}

func (r *ExportJobRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&model.ExportJob{}).Where("id = ?", id).Update("status", status).Error
}

func (r *ExportJobRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.ExportJob{}).Where("id = ?", id).Updates(fields).Error
}

// GetPendingJobs 获取待处理的任务
func (r *ExportJobRepository) GetPendingJobs(limit int) ([]*model.ExportJob, error) {
	var jobs []*model.ExportJob
	err := r.db.Where("status = ?", model.ExportStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// ListCompletedBefore 获取早于指定时间完成且仍保留本地文件的任务
func (r *ExportJobRepository) ListCompletedBefore(before time.Time) ([]*model.ExportJob, error) {
	var jobs []*model.ExportJob
	err := r.db.Where("status = ? AND completed_at < ? AND file_path <> ''", model.ExportStatusCompleted, before).
		Find(&jobs).Error
	return jobs, err
}

// ClearFilePath 本地文件清理后置空路径
func (r *ExportJobRepository) ClearFilePath(id int64) error {
	return r.db.Model(&model.ExportJob{}).Where("id = ?", id).Update("file_path", "").Error
}

// ListPendingUpload 已完成但尚未上传 OSS 的任务
func (r *ExportJobRepository) ListPendingUpload(limit int) ([]*model.ExportJob, error) {
	var jobs []*model.ExportJob
	err := r.db.Where("status = ? AND object_url = '' AND file_path <> ''", model.ExportStatusCompleted).
		Order("id ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}
