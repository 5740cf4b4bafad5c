package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lendinghub/lending-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements a MongoDB-backed item repository. Items are keyed by
// their string id in _id.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

// EnsureIndexes creates the title index used by List.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "title", Value: 1}}})
	return err
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*models.Item, error) {
	var it models.Item
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&it)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (m *MongoRepo) List(ctx context.Context) ([]*models.Item, error) {
	cur, err := m.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*models.Item{}
	for cur.Next(ctx) {
		var it models.Item
		if err := cur.Decode(&it); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Save(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	_, err := m.col.ReplaceOne(ctx, bson.M{"_id": item.ID}, item, options.Replace().SetUpsert(true))
	return err
}

func (m *MongoRepo) UpdateDetails(ctx context.Context, id, title, author string) (*models.Item, error) {
	update := bson.M{"$set": bson.M{
		"title":     title,
		"author":    author,
		"updatedAt": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var it models.Item
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&it)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Adjust applies $inc under a filter that guards the lower bound, so two
// concurrent decrements can never both take the last copy.
func (m *MongoRepo) Adjust(ctx context.Context, id string, delta int) (*models.Item, error) {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["available"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"available": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var it models.Item
	err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&it)
	if err == nil {
		return &it, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	// distinguish a missing item from an exhausted one
	if _, getErr := m.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrOutOfStock
}
