package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bazario/bazario-backend/internal/models"
)

// MessageStore persists conversations and their messages.
type MessageStore interface {
	EnsureIndexes(ctx context.Context) error
	FindOrCreateConversation(ctx context.Context, conv *models.Conversation) (*models.Conversation, bool, error)
	ConversationsByMember(ctx context.Context, memberID string) ([]models.Conversation, error)
	UpdateLastMessage(ctx context.Context, convID primitive.ObjectID, lastMessage, lastMessageID string) error
	InsertMessage(ctx context.Context, msg *models.Message) error
	MessagesByConversation(ctx context.Context, convID string, before *time.Time, limit int64) ([]models.Message, bool, error)
}

type mongoMessageStore struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
}

func NewMessageStore(db *mongo.Database) MessageStore {
	return &mongoMessageStore{
		conversations: db.Collection("conversations"),
		messages:      db.Collection("messages"),
	}
}

// EnsureIndexes supports message pagination and the find-or-create pairing key.
func (s *mongoMessageStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversationId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("idx_conversation_created"),
	})
	if err != nil {
		return err
	}
	_, err = s.conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "groupTitle", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("idx_group_title_unique"),
	})
	return err
}

// FindOrCreateConversation returns the existing conversation for the group
// title, or inserts a new one. The bool reports whether it was created.
func (s *mongoMessageStore) FindOrCreateConversation(ctx context.Context, conv *models.Conversation) (*models.Conversation, bool, error) {
	var existing models.Conversation
	err := s.conversations.FindOne(ctx, bson.M{"groupTitle": conv.GroupTitle}).Decode(&existing)
	if err == nil {
		return &existing, false, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, err
	}

	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	res, err := s.conversations.InsertOne(ctx, conv)
	if err != nil {
		// Lost a race against a concurrent create for the same group.
		if mongo.IsDuplicateKeyError(err) {
			if ferr := s.conversations.FindOne(ctx, bson.M{"groupTitle": conv.GroupTitle}).Decode(&existing); ferr == nil {
				return &existing, false, nil
			}
		}
		return nil, false, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		conv.ID = oid
	}
	return conv, true, nil
}

func (s *mongoMessageStore) ConversationsByMember(ctx context.Context, memberID string) ([]models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cur, err := s.conversations.Find(ctx, bson.M{"members": memberID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var convs []models.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (s *mongoMessageStore) UpdateLastMessage(ctx context.Context, convID primitive.ObjectID, lastMessage, lastMessageID string) error {
	res, err := s.conversations.UpdateOne(ctx, bson.M{"_id": convID}, bson.M{"$set": bson.M{
		"lastMessage":   lastMessage,
		"lastMessageId": lastMessageID,
		"updatedAt":     time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoMessageStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	res, err := s.messages.InsertOne(ctx, msg)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}
	return nil
}

// MessagesByConversation returns paginated history, oldest-first within the
// page, newest page first (before + limit scrolling).
func (s *mongoMessageStore) MessagesByConversation(ctx context.Context, convID string, before *time.Time, limit int64) ([]models.Message, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	filter := bson.M{"conversationId": convID}
	if before != nil {
		filter["createdAt"] = bson.M{"$lt": before.UTC()}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	var msgs []models.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(msgs)) > limit
	if hasMore {
		msgs = msgs[:limit]
	}

	// Reverse to oldest-first for the UI.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, hasMore, nil
}
