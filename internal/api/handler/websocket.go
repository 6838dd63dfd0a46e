package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/qs3c/feedback_tag_server/internal/api/middleware"
	"github.com/qs3c/feedback_tag_server/internal/pkg/response"
	"github.com/qs3c/feedback_tag_server/internal/pkg/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WebSocketHandler struct {
	hub  *ws.Hub
	auth middleware.SessionAuthenticator
}

func NewWebSocketHandler(hub *ws.Hub, auth middleware.SessionAuthenticator) *WebSocketHandler {
	return &WebSocketHandler{
		hub:  hub,
		auth: auth,
	}
}

// Handle 实时事件推送（排行榜更新、导出完成）
// GET /api/v1/ws?token=xxx
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.AuthError(c, "请提供认证信息")
		return
	}

	claims, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		_ = c.Error(err)
		return
	}

	client := &ws.Client{
		SessionID: claims.SessionID(),
		Conn:      conn,
	}
	h.hub.Register(client)

	// 只读取以检测断开
	go func() {
		defer h.hub.Unregister(client)
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
