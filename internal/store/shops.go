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

// ShopStore persists seller accounts.
type ShopStore interface {
	EnsureIndexes(ctx context.Context) error
	Insert(ctx context.Context, shop *models.Shop) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Shop, error)
	FindByEmail(ctx context.Context, email string) (*models.Shop, error)
	FindByEmailWithPassword(ctx context.Context, email string) (*models.Shop, error)
	Update(ctx context.Context, shop *models.Shop) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	All(ctx context.Context) ([]models.Shop, error)
}

type mongoShopStore struct {
	col *mongo.Collection
}

func NewShopStore(db *mongo.Database) ShopStore {
	return &mongoShopStore{col: db.Collection("shops")}
}

func (s *mongoShopStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("idx_email_unique"),
	})
	return err
}

func (s *mongoShopStore) Insert(ctx context.Context, shop *models.Shop) error {
	now := time.Now().UTC()
	if shop.CreatedAt.IsZero() {
		shop.CreatedAt = now
	}
	shop.UpdatedAt = now
	if shop.Role == "" {
		shop.Role = "seller"
	}

	res, err := s.col.InsertOne(ctx, shop)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		shop.ID = oid
	}
	return nil
}

func (s *mongoShopStore) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Shop, error) {
	var shop models.Shop
	err := s.col.FindOne(ctx, filter, opts...).Decode(&shop)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &shop, nil
}

func (s *mongoShopStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Shop, error) {
	return s.findOne(ctx, bson.M{"_id": id}, withoutPassword)
}

func (s *mongoShopStore) FindByEmail(ctx context.Context, email string) (*models.Shop, error) {
	return s.findOne(ctx, bson.M{"email": email}, withoutPassword)
}

func (s *mongoShopStore) FindByEmailWithPassword(ctx context.Context, email string) (*models.Shop, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *mongoShopStore) Update(ctx context.Context, shop *models.Shop) error {
	shop.UpdatedAt = time.Now().UTC()
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": shop.ID}, shop)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoShopStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoShopStore) All(ctx context.Context) ([]models.Shop, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"password": 0})

	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var shops []models.Shop
	if err := cur.All(ctx, &shops); err != nil {
		return nil, err
	}
	return shops, nil
}
