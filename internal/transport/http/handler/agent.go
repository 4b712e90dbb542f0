package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lsm-digest/internal/app"
	"lsm-digest/internal/logger"
	"lsm-digest/internal/transport/http/response"
)

type AgentHandler struct {
	chatService *app.ChatService
	log         logger.Logger
}

func NewAgentHandler(chatService *app.ChatService, log logger.Logger) *AgentHandler {
	return &AgentHandler{chatService: chatService, log: log}
}

// Chat handles POST /agent/:agent?prompt=&username=&sessionId=.
func (h *AgentHandler) Chat(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		sessionID = c.Query("session_id")
	}

	raw, err := h.chatService.Chat(c.Request.Context(), app.ChatInput{
		AgentName: c.Param("agent"),
		Username:  c.Query("username"),
		SessionID: sessionID,
		Prompt:    c.Query("prompt"),
	})
	if err != nil {
		writeError(c, h.log, err, "internal server error during agent interaction")
		return
	}

	response.Raw(c, http.StatusOK, raw)
}
