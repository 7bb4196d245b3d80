package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IngestStats summarises one ingestion run. Stored and dropped counts are
// kept apart so callers can detect degraded runs.
type IngestStats struct {
	DocumentsProcessed int `json:"documents_processed" bson:"documents_processed"`
	ChunksProcessed    int `json:"chunks_processed" bson:"chunks_processed"`
	PointsStored       int `json:"points_stored" bson:"points_stored"`
	ChunksDropped      int `json:"chunks_dropped" bson:"chunks_dropped"`
}

// Add accumulates another run's counters.
func (s *IngestStats) Add(o IngestStats) {
	s.DocumentsProcessed += o.DocumentsProcessed
	s.ChunksProcessed += o.ChunksProcessed
	s.PointsStored += o.PointsStored
	s.ChunksDropped += o.ChunksDropped
}

// IngestionRun tracks a queued or executing ingestion in MongoDB.
type IngestionRun struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SourcePath  string             `bson:"source_path" json:"source_path"`
	Collection  string             `bson:"collection" json:"collection"`
	Metadata    Metadata           `bson:"metadata" json:"metadata"`
	Status      string             `bson:"status" json:"status"` // pending, processing, completed, failed
	TaskID      string             `bson:"task_id,omitempty" json:"task_id,omitempty"`
	Stats       IngestStats        `bson:"stats" json:"stats"`
	Error       string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
	CompletedAt *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// IngestRequest is the body of POST /api/ingest.
type IngestRequest struct {
	SourcePath string   `json:"source_path" binding:"required"`
	Metadata   Metadata `json:"metadata" binding:"required"`
}

// Ingestion run status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
