package database

import (
	"context"
	"errors"
	"time"

	"lillith/internal/telemetry"
	"lillith/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoRunStore is a RunStore on MongoDB.
type MongoRunStore struct {
	col     *mongo.Collection
	metrics *telemetry.Metrics
}

func NewMongoRunStore(db *mongo.Database, metrics *telemetry.Metrics) *MongoRunStore {
	return &MongoRunStore{col: db.Collection(IngestionRunsCollection), metrics: metrics}
}

func (s *MongoRunStore) Create(ctx context.Context, run *models.IngestionRun) error {
	now := time.Now()
	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	if run.Status == "" {
		run.Status = models.StatusPending
	}
	run.CreatedAt = now
	run.UpdatedAt = now

	_, err := s.col.InsertOne(ctx, run)
	s.metrics.RecordDatabaseOperation(ctx, "insert", IngestionRunsCollection, err == nil)
	return err
}

func (s *MongoRunStore) Get(ctx context.Context, id string) (*models.IngestionRun, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrRunNotFound
	}

	var run models.IngestionRun
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&run)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRunNotFound
	}
	s.metrics.RecordDatabaseOperation(ctx, "get", IngestionRunsCollection, err == nil)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *MongoRunStore) SetTaskID(ctx context.Context, id, taskID string) error {
	return s.update(ctx, id, bson.M{"task_id": taskID})
}

func (s *MongoRunStore) MarkProcessing(ctx context.Context, id string) error {
	return s.update(ctx, id, bson.M{"status": models.StatusProcessing, "error": ""})
}

func (s *MongoRunStore) Complete(ctx context.Context, id string, stats models.IngestStats) error {
	return s.update(ctx, id, bson.M{
		"status":       models.StatusCompleted,
		"stats":        stats,
		"completed_at": time.Now(),
	})
}

func (s *MongoRunStore) Fail(ctx context.Context, id string, stats models.IngestStats, reason string) error {
	return s.update(ctx, id, bson.M{
		"status":       models.StatusFailed,
		"stats":        stats,
		"error":        reason,
		"completed_at": time.Now(),
	})
}

func (s *MongoRunStore) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now()
	res, err := s.col.UpdateMany(ctx,
		bson.M{"status": models.StatusProcessing, "updated_at": bson.M{"$lt": cutoff}},
		bson.M{"$set": bson.M{
			"status":       models.StatusFailed,
			"error":        "worker stopped before the run finished",
			"updated_at":   now,
			"completed_at": now,
		}},
	)
	s.metrics.RecordDatabaseOperation(ctx, "fail_stale", IngestionRunsCollection, err == nil)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *MongoRunStore) update(ctx context.Context, id string, fields bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrRunNotFound
	}
	fields["updated_at"] = time.Now()

	res, err := s.col.UpdateByID(ctx, oid, bson.M{"$set": fields})
	s.metrics.RecordDatabaseOperation(ctx, "update", IngestionRunsCollection, err == nil)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRunNotFound
	}
	return nil
}
