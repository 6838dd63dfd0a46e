package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/internal/model"
	"github.com/qs3c/feedback_tag_server/internal/pkg/metrics"
	"github.com/qs3c/feedback_tag_server/internal/pkg/pubsub"
	"github.com/qs3c/feedback_tag_server/internal/pkg/queue"
	"github.com/qs3c/feedback_tag_server/internal/repository"
	"github.com/qs3c/feedback_tag_server/internal/service"
	tu "github.com/qs3c/feedback_tag_server/internal/testutil"
)

type fakeUploader struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (u *fakeUploader) UploadExport(jobID int64, fileName string, _ []byte) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, jobID)
	if u.err != nil {
		return "", u.err
	}
	return "https://cdn.example.com/exports/" + fileName, nil
}

type fakePublisher struct {
	events []*pubsub.Event
}

func (p *fakePublisher) Publish(_ context.Context, e *pubsub.Event) error {
	p.events = append(p.events, e)
	return nil
}

type processorTestContext struct {
	db        *gorm.DB
	dir       string
	uploader  *fakeUploader
	publisher *fakePublisher
	metrics   *metrics.Metrics
	processor *Processor
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func setupProcessor(t *testing.T, withUploader bool) (*processorTestContext, func()) {
	t.Helper()

	db := tu.SetupTestDB(t)
	jobRepo := repository.NewExportJobRepository(db)
	exportService := service.NewExportService(repository.NewResponseRepository(db), jobRepo, nil)

	tc := &processorTestContext{
		db:        db,
		dir:       filepath.Join(t.TempDir(), "exports"),
		uploader:  &fakeUploader{},
		publisher: &fakePublisher{},
		metrics:   metrics.New(nil),
	}

	var uploader Uploader
	if withUploader {
		uploader = tc.uploader
	}
	tc.processor = NewProcessor(jobRepo, exportService, uploader, tc.publisher, tc.dir, tc.metrics, quietLogger())

	return tc, func() { tu.CleanupTestDB(t, db) }
}

func TestNewProcessor_Defaults(t *testing.T) {
	p := NewProcessor(nil, nil, nil, nil, "", nil, nil)

	assert.NotNil(t, p)
	assert.NotNil(t, p.metrics)
	assert.NotNil(t, p.log)
}

func TestProcessor_Process_WithUpload(t *testing.T) {
	tc, cleanup := setupProcessor(t, true)
	defer cleanup()

	user := tu.TestUser(t, tc.db)
	q := tu.TestQuestion(t, tc.db)
	tu.TestResponse(t, tc.db, user.ID, q.ID)
	tu.TestResponse(t, tc.db, user.ID, q.ID, tu.WithSkipped())
	job := tu.TestExportJob(t, tc.db, model.ExportStatusPending)

	err := tc.processor.Process(context.Background(), &queue.ExportMessage{JobID: job.ID, RequestedAt: time.Now()})
	require.NoError(t, err)

	var reloaded model.ExportJob
	require.NoError(t, tc.db.First(&reloaded, job.ID).Error)
	assert.Equal(t, model.ExportStatusCompleted, reloaded.Status)
	assert.Equal(t, 2, reloaded.RowCount)
	assert.Equal(t, service.ExportFileName(time.Now()), reloaded.FileName)
	assert.Contains(t, reloaded.ObjectURL, reloaded.FileName)
	assert.NotNil(t, reloaded.StartedAt)
	assert.NotNil(t, reloaded.CompletedAt)

	data, err := os.ReadFile(reloaded.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id,user_id,user_name")

	assert.Equal(t, []int64{job.ID}, tc.uploader.calls)
	require.Len(t, tc.publisher.events, 1)
	assert.Equal(t, pubsub.EventExportFinished, tc.publisher.events[0].Type)
	assert.Equal(t, model.ExportStatusCompleted, tc.publisher.events[0].Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(tc.metrics.ExportJobs.WithLabelValues(model.ExportStatusCompleted)))
}

func TestProcessor_Process_LocalOnly(t *testing.T) {
	tc, cleanup := setupProcessor(t, false)
	defer cleanup()

	job := tu.TestExportJob(t, tc.db, model.ExportStatusPending)

	require.NoError(t, tc.processor.Process(context.Background(), &queue.ExportMessage{JobID: job.ID}))

	var reloaded model.ExportJob
	require.NoError(t, tc.db.First(&reloaded, job.ID).Error)
	assert.Equal(t, model.ExportStatusCompleted, reloaded.Status)
	assert.Empty(t, reloaded.ObjectURL)
	assert.Equal(t, 0, reloaded.RowCount)
	assert.FileExists(t, reloaded.FilePath)
}

func TestProcessor_Process_UploadFailureKeepsLocal(t *testing.T) {
	tc, cleanup := setupProcessor(t, true)
	defer cleanup()
	tc.uploader.err = errors.New("oss unavailable")

	job := tu.TestExportJob(t, tc.db, model.ExportStatusPending)

	require.NoError(t, tc.processor.Process(context.Background(), &queue.ExportMessage{JobID: job.ID}))

	var reloaded model.ExportJob
	require.NoError(t, tc.db.First(&reloaded, job.ID).Error)
	assert.Equal(t, model.ExportStatusCompleted, reloaded.Status)
	assert.Empty(t, reloaded.ObjectURL)
	assert.FileExists(t, reloaded.FilePath)
}

func TestProcessor_Process_WriteFailure(t *testing.T) {
	tc, cleanup := setupProcessor(t, false)
	defer cleanup()

	// 导出目录被同名文件占用
	require.NoError(t, os.WriteFile(tc.dir, []byte("x"), 0o644))
	job := tu.TestExportJob(t, tc.db, model.ExportStatusPending)

	err := tc.processor.Process(context.Background(), &queue.ExportMessage{JobID: job.ID})
	assert.Error(t, err)

	var reloaded model.ExportJob
	require.NoError(t, tc.db.First(&reloaded, job.ID).Error)
	assert.Equal(t, model.ExportStatusFailed, reloaded.Status)
	assert.NotEmpty(t, reloaded.ErrorMessage)
	require.Len(t, tc.publisher.events, 1)
	assert.Equal(t, model.ExportStatusFailed, tc.publisher.events[0].Status)
}

func TestProcessor_Process_SkipsFinishedAndMissing(t *testing.T) {
	tc, cleanup := setupProcessor(t, true)
	defer cleanup()

	done := tu.TestExportJob(t, tc.db, model.ExportStatusCompleted)

	require.NoError(t, tc.processor.Process(context.Background(), &queue.ExportMessage{JobID: done.ID}))
	require.NoError(t, tc.processor.Process(context.Background(), &queue.ExportMessage{JobID: 99999}))

	assert.Empty(t, tc.uploader.calls)
	assert.Empty(t, tc.publisher.events)
}
