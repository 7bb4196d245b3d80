package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role      string     `bson:"role" json:"role" binding:"required,oneof=user assistant"`
	Content   string     `bson:"content" json:"content"`
	ToolCalls []ToolCall `bson:"tool_calls,omitempty" json:"tool_calls,omitempty"`
	Timestamp time.Time  `bson:"timestamp" json:"timestamp"`
}

// ToolCall records a tool invocation made by the model while answering.
type ToolCall struct {
	Name string         `bson:"name" json:"name"`
	Args map[string]any `bson:"args,omitempty" json:"args,omitempty"`
}

// Conversation is the persisted chat session.
type Conversation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	Model          string             `bson:"model" json:"model"`
	Messages       []ChatMessage      `bson:"messages" json:"messages"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

type ChatRequest struct {
	Messages       []ChatMessage `json:"messages" binding:"required,min=1,dive"`
	Model          string        `json:"model,omitempty"`
	ConversationID string        `json:"conversation_id,omitempty"`
}

type ChatResponse struct {
	Reply          string     `json:"reply"`
	ToolCalls      []ToolCall `json:"tool_calls,omitempty"`
	TokensUsed     int        `json:"tokens_used"`
	ConversationID string     `json:"conversation_id"`
	Timestamp      time.Time  `json:"timestamp"`
}
