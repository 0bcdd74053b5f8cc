package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/shieldgate/internal/application/dto"
	"github.com/turtacn/shieldgate/internal/application/service"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// AssistantHandler 助手 HTTP 处理器
type AssistantHandler struct {
	assistant service.AssistantAppService
	logger    logger.Logger
}

// NewAssistantHandler 创建助手处理器
func NewAssistantHandler(assistant service.AssistantAppService, log logger.Logger) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, logger: log.WithComponent("assistant_handler")}
}

// Chat 处理一条客户消息
// POST /api/v1/assistant/chat
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.assistant.ProcessMessage(c.Request.Context(), &req)
	if err != nil {
		if errors.ShouldLogError(err) {
			h.logger.Error(c.Request.Context(), "Assistant request failed", err)
		}
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, resp)
}
