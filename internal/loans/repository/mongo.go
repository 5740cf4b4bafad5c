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

// MongoRepo implements a MongoDB-backed loan repository.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

// EnsureIndexes creates the indexes the lending flow depends on. The partial
// unique index is what turns a racing second borrow into ErrOpenLoanExists.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "holderId", Value: 1}, {Key: "itemId", Value: 1}},
			Options: options.Index().
				SetName("open_loan_per_holder_item").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"open": true}),
		},
		{Keys: bson.D{{Key: "open", Value: 1}, {Key: "hardExpiresAt", Value: 1}}},
		{Keys: bson.D{{Key: "open", Value: 1}, {Key: "policyReturnAt", Value: 1}}},
		{Keys: bson.D{{Key: "holderId", Value: 1}, {Key: "borrowedAt", Value: -1}}},
		{Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "open", Value: 1}}},
	}
	_, err := m.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (m *MongoRepo) Create(ctx context.Context, loan *models.Loan) error {
	if _, err := m.col.InsertOne(ctx, loan); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrOpenLoanExists
		}
		return err
	}
	return nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*models.Loan, error) {
	var l models.Loan
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (m *MongoRepo) FindOpenByHolderAndItem(ctx context.Context, holderID, itemID string) (*models.Loan, error) {
	var l models.Loan
	err := m.col.FindOne(ctx, bson.M{"holderId": holderID, "itemId": itemID, "open": true}).Decode(&l)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (m *MongoRepo) FindByHolder(ctx context.Context, holderID string) ([]*models.Loan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "borrowedAt", Value: -1}, {Key: "_id", Value: -1}})
	return m.find(ctx, bson.M{"holderId": holderID}, opts)
}

func (m *MongoRepo) FindOpenWithDeadlineBefore(ctx context.Context, t time.Time) ([]*models.Loan, error) {
	return m.find(ctx, bson.M{"open": true, "hardExpiresAt": bson.M{"$ne": nil, "$lte": t}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (m *MongoRepo) FindOpenWithPolicyCutoffBefore(ctx context.Context, t time.Time) ([]*models.Loan, error) {
	return m.find(ctx, bson.M{"open": true, "policyReturnAt": bson.M{"$ne": nil, "$lte": t}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (m *MongoRepo) CountOpenByItem(ctx context.Context, itemID string) (int64, error) {
	return m.col.CountDocuments(ctx, bson.M{"itemId": itemID, "open": true})
}

// Close matches on open=true so the check and the flip are one atomic
// document update; a second closer matches nothing.
func (m *MongoRepo) Close(ctx context.Context, id string, at time.Time, by models.Actor) (*models.Loan, bool, error) {
	update := bson.M{"$set": bson.M{"open": false, "closedAt": at, "closedBy": by}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var l models.Loan
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id, "open": true}, update, opts).Decode(&l)
	if err == nil {
		return &l, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}
	existing, err := m.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (m *MongoRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Loan, error) {
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*models.Loan{}
	for cur.Next(ctx) {
		var l models.Loan
		if err := cur.Decode(&l); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, cur.Err()
}
