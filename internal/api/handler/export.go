package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/feedback_tag_server/internal/pkg/response"
	"github.com/qs3c/feedback_tag_server/internal/service"
)

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
	}
}

// Download 同步导出 CSV
// GET /api/v1/export/responses.csv
func (h *ExportHandler) Download(c *gin.Context) {
	result, err := h.exportService.Export()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Attachment(c, result.FileName, "text/csv; charset=utf-8", result.Data)
}

// CreateJob 创建异步导出任务
// POST /api/v1/export/jobs
func (h *ExportHandler) CreateJob(c *gin.Context) {
	job, err := h.exportService.CreateJob(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "导出任务已创建", job)
}

// GetJob 查询导出任务
// GET /api/v1/export/jobs/:id
func (h *ExportHandler) GetJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的任务ID")
		return
	}

	job, err := h.exportService.GetJob(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, job)
}
