package database

import (
	"context"
	"os"
	"testing"
	"time"

	"lillith/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// testDB connects to MONGO_TEST_URI and returns a throwaway database.
func testDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("lillith_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestConversationStore(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := NewMongoConversationStore(db, nil)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	id := uuid.NewString()
	require.NoError(t, store.Append(ctx, id, "gemini-2.5-flash",
		models.ChatMessage{Role: models.RoleUser, Content: "salaam"},
		models.ChatMessage{Role: models.RoleAssistant, Content: "wa alaikum salaam"},
	))
	require.NoError(t, store.Append(ctx, id, "gemini-2.5-flash", models.ChatMessage{Role: models.RoleUser, Content: "weather?"}))

	conv, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, "weather?", conv.Messages[2].Content)
	assert.False(t, conv.Messages[0].Timestamp.IsZero())
	assert.False(t, conv.CreatedAt.IsZero())
}

func TestRunStore_Lifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := NewMongoRunStore(db, nil)

	run := &models.IngestionRun{SourcePath: "/books/Hadith", Collection: "Hadith"}
	require.NoError(t, store.Create(ctx, run))
	require.False(t, run.ID.IsZero())
	id := run.ID.Hex()

	require.NoError(t, store.SetTaskID(ctx, id, "task-1"))
	require.NoError(t, store.MarkProcessing(ctx, id))
	require.NoError(t, store.Complete(ctx, id, models.IngestStats{DocumentsProcessed: 1, PointsStored: 4}))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, "task-1", got.TaskID)
	assert.Equal(t, 4, got.Stats.PointsStored)
	assert.NotNil(t, got.CompletedAt)

	_, err = store.Get(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunStore_FailStale(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := NewMongoRunStore(db, nil)

	run := &models.IngestionRun{SourcePath: "/books/x.pdf", Collection: "Hadith"}
	require.NoError(t, store.Create(ctx, run))
	require.NoError(t, store.MarkProcessing(ctx, run.ID.Hex()))

	n, err := store.FailStale(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := store.Get(ctx, run.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.NotEmpty(t, got.Error)
}
