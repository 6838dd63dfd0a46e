package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/feedback_tag_server/internal/model/dto"
	"github.com/qs3c/feedback_tag_server/internal/pkg/response"
	"github.com/qs3c/feedback_tag_server/internal/service"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(submissionService *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
	}
}

// Submit 提交标注或跳过
// POST /api/v1/submissions
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.submissionService.Submit(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	message := "提交成功"
	if req.Skipped {
		message = "已跳过"
	}
	response.SuccessWithMessage(c, message, resp)
}
