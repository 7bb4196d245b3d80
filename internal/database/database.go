// Package database persists conversations and ingestion runs in MongoDB.
package database

import (
	"context"
	"errors"
	"time"

	"lillith/models"
)

// Collection names
const (
	ConversationsCollection = "conversations"
	IngestionRunsCollection = "ingestion_runs"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrRunNotFound          = errors.New("ingestion run not found")
)

// ConversationStore keeps chat history per conversation.
type ConversationStore interface {
	// Append adds messages to a conversation, creating it if needed.
	Append(ctx context.Context, conversationID, model string, msgs ...models.ChatMessage) error
	Get(ctx context.Context, conversationID string) (*models.Conversation, error)
}

// RunStore tracks queued and executing ingestion runs.
type RunStore interface {
	Create(ctx context.Context, run *models.IngestionRun) error
	Get(ctx context.Context, id string) (*models.IngestionRun, error)
	SetTaskID(ctx context.Context, id, taskID string) error
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, stats models.IngestStats) error
	Fail(ctx context.Context, id string, stats models.IngestStats, reason string) error
	// FailStale marks runs stuck in processing since before cutoff as failed.
	FailStale(ctx context.Context, cutoff time.Time) (int64, error)
}
