package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/feedback_tag_server/internal/model/dto"
	"github.com/qs3c/feedback_tag_server/internal/pkg/response"
	"github.com/qs3c/feedback_tag_server/internal/service"
)

type UserHandler struct {
	leaderboardService *service.LeaderboardService
}

func NewUserHandler(leaderboardService *service.LeaderboardService) *UserHandler {
	return &UserHandler{
		leaderboardService: leaderboardService,
	}
}

// List 用户列表（身份选择）
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.leaderboardService.ListUsers()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessList(c, len(users), users)
}

// Rename 修改显示名
// PUT /api/v1/users/:id
func (h *UserHandler) Rename(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户ID")
		return
	}

	var req dto.RenameUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	user, err := h.leaderboardService.RenameUser(userID, req.Name)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, user)
}

// Leaderboard 排行榜
// GET /api/v1/leaderboard?user_id=
func (h *UserHandler) Leaderboard(c *gin.Context) {
	userID, ok := queryInt64(c, "user_id")
	if !ok {
		response.ParamError(c, "无效的用户ID")
		return
	}

	board, err := h.leaderboardService.Leaderboard(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, board)
}

// Progress 完成进度
// GET /api/v1/progress?user_id=
func (h *UserHandler) Progress(c *gin.Context) {
	userID, ok := queryInt64(c, "user_id")
	if !ok {
		response.ParamError(c, "无效的用户ID")
		return
	}

	progress, err := h.leaderboardService.Progress(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, progress)
}
