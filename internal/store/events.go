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

// EventStore persists promotional events.
type EventStore interface {
	Insert(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	All(ctx context.Context) ([]models.Event, error)
	AllByShop(ctx context.Context, shopID primitive.ObjectID) ([]models.Event, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoEventStore struct {
	col *mongo.Collection
}

func NewEventStore(db *mongo.Database) EventStore {
	return &mongoEventStore{col: db.Collection("events")}
}

func (s *mongoEventStore) Insert(ctx context.Context, event *models.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	res, err := s.col.InsertOne(ctx, event)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		event.ID = oid
	}
	return nil
}

func (s *mongoEventStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var event models.Event
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (s *mongoEventStore) find(ctx context.Context, filter bson.M) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []models.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *mongoEventStore) All(ctx context.Context) ([]models.Event, error) {
	return s.find(ctx, bson.M{})
}

func (s *mongoEventStore) AllByShop(ctx context.Context, shopID primitive.ObjectID) ([]models.Event, error) {
	return s.find(ctx, bson.M{"shopId": shopID})
}

func (s *mongoEventStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
