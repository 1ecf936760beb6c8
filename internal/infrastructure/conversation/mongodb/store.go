package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/kirillkom/agri-assistant/internal/core/domain"
)

// Store keeps one append-only conversation document per session. It is a
// soft dependency: callers treat every error as non-fatal and proceed
// statelessly.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func New(ctx context.Context, uri, database, collection string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// LastN returns the n most recent messages of a session in chronological
// order. A session without history yields no messages and no error.
func (s *Store) LastN(ctx context.Context, sessionID string, n int) ([]domain.Message, error) {
	if n <= 0 {
		return nil, nil
	}

	var record domain.ConversationRecord
	err := s.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	messages := record.Messages
	if len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	return messages, nil
}

func (s *Store) Append(ctx context.Context, sessionID string, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	_, err := s.collection.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$push": bson.M{"messages": bson.M{"$each": messages}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("append conversation messages: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
