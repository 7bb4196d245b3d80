package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"lillith/internal/apperrors"
	"lillith/models"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeRuns struct {
	runs   map[string]*models.IngestionRun
	events []string
}

func newFakeRuns() *fakeRuns { return &fakeRuns{runs: map[string]*models.IngestionRun{}} }

func (f *fakeRuns) Create(_ context.Context, run *models.IngestionRun) error {
	run.ID = primitive.NewObjectID()
	f.runs[run.ID.Hex()] = run
	f.events = append(f.events, "create")
	return nil
}

func (f *fakeRuns) Get(_ context.Context, id string) (*models.IngestionRun, error) {
	return f.runs[id], nil
}

func (f *fakeRuns) SetTaskID(_ context.Context, id, taskID string) error {
	f.runs[id].TaskID = taskID
	f.events = append(f.events, "task_id")
	return nil
}

func (f *fakeRuns) MarkProcessing(_ context.Context, id string) error {
	f.runs[id].Status = models.StatusProcessing
	f.events = append(f.events, "processing")
	return nil
}

func (f *fakeRuns) Complete(_ context.Context, id string, stats models.IngestStats) error {
	f.runs[id].Status = models.StatusCompleted
	f.runs[id].Stats = stats
	f.events = append(f.events, "complete")
	return nil
}

func (f *fakeRuns) Fail(_ context.Context, id string, stats models.IngestStats, reason string) error {
	f.runs[id].Status = models.StatusFailed
	f.runs[id].Stats = stats
	f.runs[id].Error = reason
	f.events = append(f.events, "fail")
	return nil
}

func (f *fakeRuns) FailStale(context.Context, time.Time) (int64, error) { return 0, nil }

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (e *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type(), Queue: QueueIngest}, nil
}

type fakeIngester struct {
	stats *models.IngestStats
	err   error
	got   IngestPayload
}

func (f *fakeIngester) Ingest(_ context.Context, path string, meta models.Metadata) (*models.IngestStats, error) {
	f.got = IngestPayload{SourcePath: path, Metadata: meta}
	return f.stats, f.err
}

var meta = models.Metadata{Title: "Tafsir Ibn Kathir", Collection: "Tafseer"}

func TestDispatcher_Dispatch(t *testing.T) {
	runs := newFakeRuns()
	enq := &fakeEnqueuer{}

	run, err := NewDispatcher(enq, runs).Dispatch(context.Background(), "/books/Tafseer", meta)
	require.NoError(t, err)

	assert.Equal(t, "task-1", run.TaskID)
	assert.Equal(t, models.StatusPending, run.Status)
	assert.Equal(t, []string{"create", "task_id"}, runs.events)

	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskIngestRun, enq.tasks[0].Type())

	var payload IngestPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, run.ID.Hex(), payload.RunID)
	assert.Equal(t, "Tafseer", payload.Metadata.Collection)
}

func TestDispatcher_EnqueueFailureMarksRunFailed(t *testing.T) {
	runs := newFakeRuns()
	_, err := NewDispatcher(&fakeEnqueuer{err: errors.New("redis down")}, runs).Dispatch(context.Background(), "/books", meta)
	require.Error(t, err)

	require.Len(t, runs.runs, 1)
	for _, r := range runs.runs {
		assert.Equal(t, models.StatusFailed, r.Status)
		assert.Contains(t, r.Error, "redis down")
	}
}

func newTask(t *testing.T, runID string) *asynq.Task {
	t.Helper()
	task, err := NewIngestTask(IngestPayload{RunID: runID, SourcePath: "/books/Tafseer", Metadata: meta})
	require.NoError(t, err)
	return task
}

func TestProcessIngest_Success(t *testing.T) {
	runs := newFakeRuns()
	run := &models.IngestionRun{}
	require.NoError(t, runs.Create(context.Background(), run))

	ing := &fakeIngester{stats: &models.IngestStats{DocumentsProcessed: 2, PointsStored: 40}}
	err := NewTaskProcessor(ing, runs).ProcessIngest(context.Background(), newTask(t, run.ID.Hex()))
	require.NoError(t, err)

	assert.Equal(t, "/books/Tafseer", ing.got.SourcePath)
	assert.Equal(t, models.StatusCompleted, run.Status)
	assert.Equal(t, 40, run.Stats.PointsStored)
	assert.Equal(t, []string{"create", "processing", "complete"}, runs.events)
}

func TestProcessIngest_FailureHandling(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		stored    int
		skipRetry bool
	}{
		{"exhausted before storing retries", &apperrors.BatchExhaustedError{Attempts: 3, Err: errors.New("429")}, 0, false},
		{"exhausted after storing does not retry", &apperrors.BatchExhaustedError{Attempts: 3, Err: errors.New("429")}, 20, true},
		{"dimension mismatch does not retry", &apperrors.DimensionMismatchError{Collection: "Tafseer", Want: 768, Got: 3072}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := newFakeRuns()
			run := &models.IngestionRun{}
			require.NoError(t, runs.Create(context.Background(), run))

			ing := &fakeIngester{stats: &models.IngestStats{PointsStored: tt.stored}, err: tt.err}
			err := NewTaskProcessor(ing, runs).ProcessIngest(context.Background(), newTask(t, run.ID.Hex()))
			require.Error(t, err)

			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
			assert.Equal(t, models.StatusFailed, run.Status)
			assert.NotEmpty(t, run.Error)
		})
	}
}

func TestProcessIngest_BadPayload(t *testing.T) {
	task := asynq.NewTask(TaskIngestRun, []byte("{not json"))
	err := NewTaskProcessor(&fakeIngester{}, newFakeRuns()).ProcessIngest(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
