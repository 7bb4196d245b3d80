package database

import (
	"context"
	"errors"
	"time"

	"lillith/internal/telemetry"
	"lillith/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConversationStore is a ConversationStore on MongoDB.
type MongoConversationStore struct {
	col     *mongo.Collection
	metrics *telemetry.Metrics
}

func NewMongoConversationStore(db *mongo.Database, metrics *telemetry.Metrics) *MongoConversationStore {
	return &MongoConversationStore{col: db.Collection(ConversationsCollection), metrics: metrics}
}

func (s *MongoConversationStore) Append(ctx context.Context, conversationID, model string, msgs ...models.ChatMessage) error {
	now := time.Now()
	for i := range msgs {
		if msgs[i].Timestamp.IsZero() {
			msgs[i].Timestamp = now
		}
	}

	_, err := s.col.UpdateOne(ctx,
		bson.M{"conversation_id": conversationID},
		bson.M{
			"$push":        bson.M{"messages": bson.M{"$each": msgs}},
			"$set":         bson.M{"model": model, "updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	s.metrics.RecordDatabaseOperation(ctx, "append", ConversationsCollection, err == nil)
	return err
}

func (s *MongoConversationStore) Get(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.col.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&conv)
	s.metrics.RecordDatabaseOperation(ctx, "get", ConversationsCollection, err == nil || errors.Is(err, mongo.ErrNoDocuments))
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}
