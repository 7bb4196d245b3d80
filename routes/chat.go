package routes

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"lillith/internal/ai"
	"lillith/internal/database"
	"lillith/internal/logger"
	"lillith/middleware"
	"lillith/models"
	"lillith/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Chatter answers a conversation. Implemented by *ai.ChatClient.
type Chatter interface {
	Chat(ctx context.Context, history []models.ChatMessage, model string) (*ai.ChatResult, error)
}

func SetupChatRoutes(router *gin.Engine, chat Chatter, conversations database.ConversationStore) {
	api := router.Group("/api/chat")

	api.POST("", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		last := req.Messages[len(req.Messages)-1]
		if last.Role != models.RoleUser || strings.TrimSpace(last.Content) == "" {
			utils.RespondWithBadRequest(c, "The last message must be a non-empty user message", nil)
			return
		}

		conversationID := req.ConversationID
		if conversationID == "" {
			conversationID = uuid.NewString()
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
		defer cancel()

		result, err := chat.Chat(ctx, req.Messages, req.Model)
		if err != nil {
			logger.Error("Chat failed", "conversation_id", conversationID, "request_id", middleware.GetRequestID(c), "error", err)
			utils.RespondWithAppError(c, err)
			return
		}

		now := time.Now()
		last.Timestamp = now
		reply := models.ChatMessage{
			Role:      models.RoleAssistant,
			Content:   result.Reply,
			ToolCalls: result.ToolCalls,
			Timestamp: now,
		}
		if err := conversations.Append(ctx, conversationID, result.Model, last, reply); err != nil {
			// The answer is still returned when persistence fails.
			logger.Error("Failed to save conversation", "conversation_id", conversationID, "error", err)
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Reply:          result.Reply,
			ToolCalls:      result.ToolCalls,
			TokensUsed:     result.TokensUsed,
			ConversationID: conversationID,
			Timestamp:      now,
		})
	})

	api.GET("/conversations/:conversation_id", func(c *gin.Context) {
		conv, err := conversations.Get(c.Request.Context(), c.Param("conversation_id"))
		if errors.Is(err, database.ErrConversationNotFound) {
			utils.RespondWithNotFound(c, "Conversation not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve conversation", nil)
			return
		}
		c.JSON(http.StatusOK, conv)
	})
}
