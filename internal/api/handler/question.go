package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/feedback_tag_server/internal/pkg/response"
	"github.com/qs3c/feedback_tag_server/internal/service"
)

type QuestionHandler struct {
	questionService *service.QuestionService
}

func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
	}
}

// List 题目列表
// GET /api/v1/questions
func (h *QuestionHandler) List(c *gin.Context) {
	items, err := h.questionService.List()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessList(c, len(items), items)
}

// Get 题目详情
// GET /api/v1/questions/:id
func (h *QuestionHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的题目ID")
		return
	}

	item, err := h.questionService.Get(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, item)
}

// Next 下一题
// GET /api/v1/questions/next?user_id=&current_id=
func (h *QuestionHandler) Next(c *gin.Context) {
	userID, ok := queryInt64(c, "user_id")
	if !ok {
		response.ParamError(c, "无效的用户ID")
		return
	}
	currentID, ok := queryInt64(c, "current_id")
	if !ok {
		response.ParamError(c, "无效的题目ID")
		return
	}

	next, err := h.questionService.Next(userID, currentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, next)
}
