package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/internal/model"
	"github.com/qs3c/feedback_tag_server/internal/model/dto"
	"github.com/qs3c/feedback_tag_server/internal/pkg/queue"
	"github.com/qs3c/feedback_tag_server/internal/repository"
)

var csvHeader = []string{"id", "user_id", "user_name", "question_id", "sentiment", "feedback", "skipped", "timestamp"}

// ExportFileName feedback_responses_YYYY-MM-DD.csv，日期取 UTC
func ExportFileName(at time.Time) string {
	return fmt.Sprintf("feedback_responses_%s.csv", at.UTC().Format("2006-01-02"))
}

// BuildCSV 将记录渲染为 CSV，时间为 ISO-8601 UTC
func BuildCSV(responses []*model.Response) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, r := range responses {
		userName := ""
		if r.User != nil {
			userName = r.User.Name
		}
		rec := []string{
			r.ID,
			strconv.FormatInt(r.UserID, 10),
			userName,
			strconv.FormatInt(r.QuestionID, 10),
			string(r.Sentiment),
			string(r.Feedback),
			strconv.FormatBool(r.Skipped),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportResult 一次导出的文件内容
type ExportResult struct {
	FileName string
	Data     []byte
	Rows     int
}

type ExportService struct {
	responseRepo *repository.ResponseRepository
	jobRepo      *repository.ExportJobRepository
	queue        *queue.Queue
}

func NewExportService(
	responseRepo *repository.ResponseRepository,
	jobRepo *repository.ExportJobRepository,
	q *queue.Queue,
) *ExportService {
	return &ExportService{
		responseRepo: responseRepo,
		jobRepo:      jobRepo,
		queue:        q,
	}
}

// Export 同步导出全部记录
func (s *ExportService) Export() (*ExportResult, error) {
	responses, err := s.responseRepo.ListWithUsers()
	if err != nil {
		return nil, backendError("list responses", err)
	}

	data, err := BuildCSV(responses)
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		FileName: ExportFileName(time.Now()),
		Data:     data,
		Rows:     len(responses),
	}, nil
}

// CreateJob 创建异步导出任务并入队
func (s *ExportService) CreateJob(ctx context.Context) (*dto.ExportJobResponse, error) {
	job := &model.ExportJob{Status: model.ExportStatusPending}
	if err := s.jobRepo.Create(job); err != nil {
		return nil, backendError("create export job", err)
	}

	msg := &queue.ExportMessage{JobID: job.ID, RequestedAt: time.Now()}
	if err := s.queue.Push(ctx, msg); err != nil {
		_ = s.jobRepo.UpdateFields(job.ID, map[string]interface{}{
			"status":        model.ExportStatusFailed,
			"error_message": "入队失败",
		})
		return nil, backendError("enqueue export job", err)
	}

	return ToExportJobResponse(job), nil
}

// GetJob 查询导出任务状态
func (s *ExportService) GetJob(id int64) (*dto.ExportJobResponse, error) {
	job, err := s.jobRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExportJobNotFound
		}
		return nil, backendError("get export job", err)
	}
	return ToExportJobResponse(job), nil
}

func ToExportJobResponse(job *model.ExportJob) *dto.ExportJobResponse {
	resp := &dto.ExportJobResponse{
		JobID:       job.ID,
		Status:      job.Status,
		FileName:    job.FileName,
		DownloadURL: job.ObjectURL,
		RowCount:    job.RowCount,
		Error:       job.ErrorMessage,
		CreatedAt:   job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
