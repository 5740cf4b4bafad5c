package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lendinghub/lending-service/internal/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoRepoCreate_DuplicateOpenLoan(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("duplicate key maps to ErrOpenLoanExists", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: lending.loans index: open_loan_per_holder_item",
		}))
		err := repo.Create(context.Background(), &models.Loan{ID: "L2", HolderID: "h", ItemID: "i", Open: true})
		require.ErrorIs(t, err, ErrOpenLoanExists)
	})
}

func TestMongoRepoClose(t *testing.T) {
	closedAt := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("open loan is closed", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "L1"},
			{Key: "holderId", Value: "h"},
			{Key: "itemId", Value: "i"},
			{Key: "open", Value: false},
			{Key: "closedAt", Value: closedAt},
			{Key: "closedBy", Value: "user"},
		}}))
		l, closed, err := repo.Close(context.Background(), "L1", closedAt, models.ActorUser)
		require.NoError(t, err)
		require.True(t, closed)
		require.False(t, l.Open)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		require.Equal(t, "findAndModify", started.CommandName)
		query := started.Command.Lookup("query").Document()
		require.True(t, query.Lookup("open").Boolean())
	})

	mt.Run("already closed loan is a no-op", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(1, "lending.loans", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "L1"},
				{Key: "open", Value: false},
				{Key: "closedAt", Value: closedAt},
				{Key: "closedBy", Value: "system"},
			}),
		)
		l, closed, err := repo.Close(context.Background(), "L1", closedAt.Add(time.Minute), models.ActorUser)
		require.NoError(t, err)
		require.False(t, closed)
		require.Equal(t, models.ActorSystem, l.ClosedBy)
	})

	mt.Run("unknown loan", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "lending.loans", mtest.FirstBatch),
		)
		_, _, err := repo.Close(context.Background(), "nope", closedAt, models.ActorUser)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMongoRepoFindOpenByHolderAndItem_None(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("no open loan", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "lending.loans", mtest.FirstBatch))
		l, err := repo.FindOpenByHolderAndItem(context.Background(), "h", "i")
		require.NoError(t, err)
		require.Nil(t, l)
	})
}
