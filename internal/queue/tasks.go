package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lillith/internal/apperrors"
	"lillith/internal/database"
	"lillith/internal/logger"
	"lillith/models"

	"github.com/hibiken/asynq"
)

const (
	TaskIngestRun = "ingest:run"

	QueueIngest = "critical"
)

type IngestPayload struct {
	RunID      string          `json:"run_id"`
	SourcePath string          `json:"source_path"`
	Metadata   models.Metadata `json:"metadata"`
}

// NewIngestTask creates an ingestion task. The run ID doubles as the task ID
// so a run cannot be queued twice.
func NewIngestTask(payload IngestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	opts := []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Timeout(2 * time.Hour),
		asynq.Queue(QueueIngest),
	}
	if payload.RunID != "" {
		opts = append(opts, asynq.TaskID(payload.RunID))
	}
	return asynq.NewTask(TaskIngestRun, data, opts...), nil
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher records an ingestion run and queues it for the worker.
type Dispatcher struct {
	client Enqueuer
	runs   database.RunStore
}

func NewDispatcher(client Enqueuer, runs database.RunStore) *Dispatcher {
	return &Dispatcher{client: client, runs: runs}
}

// Dispatch creates a pending run and enqueues it. If enqueueing fails the
// run is marked failed.
func (d *Dispatcher) Dispatch(ctx context.Context, sourcePath string, meta models.Metadata) (*models.IngestionRun, error) {
	run := &models.IngestionRun{
		SourcePath: sourcePath,
		Collection: meta.Collection,
		Metadata:   meta,
		Status:     models.StatusPending,
	}
	if err := d.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create ingestion run: %w", err)
	}
	runID := run.ID.Hex()

	task, err := NewIngestTask(IngestPayload{RunID: runID, SourcePath: sourcePath, Metadata: meta})
	if err != nil {
		return nil, err
	}

	info, err := d.client.EnqueueContext(ctx, task)
	if err != nil {
		if ferr := d.runs.Fail(ctx, runID, models.IngestStats{}, "enqueue failed: "+err.Error()); ferr != nil {
			logger.Error("Failed to mark run as failed", "run_id", runID, "error", ferr)
		}
		return nil, fmt.Errorf("enqueue ingestion: %w", err)
	}

	run.TaskID = info.ID
	if err := d.runs.SetTaskID(ctx, runID, info.ID); err != nil {
		logger.Warn("Failed to record task ID", "run_id", runID, "task_id", info.ID, "error", err)
	}

	logger.Info("Ingestion queued", "run_id", runID, "task_id", info.ID, "source", sourcePath, "collection", meta.Collection)
	return run, nil
}

// Ingester is implemented by *ingest.Pipeline.
type Ingester interface {
	Ingest(ctx context.Context, sourcePath string, meta models.Metadata) (*models.IngestStats, error)
}

// TaskProcessor handles ingestion tasks on the worker.
type TaskProcessor struct {
	ingester Ingester
	runs     database.RunStore
}

func NewTaskProcessor(ingester Ingester, runs database.RunStore) *TaskProcessor {
	return &TaskProcessor{ingester: ingester, runs: runs}
}

func (p *TaskProcessor) ProcessIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("Processing ingestion", "run_id", payload.RunID, "source", payload.SourcePath, "collection", payload.Metadata.Collection)

	if payload.RunID != "" {
		if err := p.runs.MarkProcessing(ctx, payload.RunID); err != nil {
			logger.Warn("Failed to mark run processing", "run_id", payload.RunID, "error", err)
		}
	}

	stats, err := p.ingester.Ingest(ctx, payload.SourcePath, payload.Metadata)
	if stats == nil {
		stats = &models.IngestStats{}
	}

	if err != nil {
		logger.Error("Ingestion failed", "run_id", payload.RunID, "source", payload.SourcePath, "error", err)
		if payload.RunID != "" {
			if ferr := p.runs.Fail(ctx, payload.RunID, *stats, err.Error()); ferr != nil {
				logger.Error("Failed to record run failure", "run_id", payload.RunID, "error", ferr)
			}
		}
		if retryable(err, stats) {
			return err
		}
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	if payload.RunID != "" {
		if err := p.runs.Complete(ctx, payload.RunID, *stats); err != nil {
			logger.Error("Failed to record run completion", "run_id", payload.RunID, "error", err)
		}
	}

	logger.Info("Ingestion completed",
		"run_id", payload.RunID,
		"documents", stats.DocumentsProcessed,
		"stored", stats.PointsStored,
		"dropped", stats.ChunksDropped,
	)
	return nil
}

// retryable allows a retry only when every key was throttled before anything
// was stored; retrying after partial storage would duplicate points.
func retryable(err error, stats *models.IngestStats) bool {
	return errors.Is(err, apperrors.ErrCredentialsExhausted) && stats.PointsStored == 0
}
