package database

import (
	"context"
	"fmt"

	"github.com/lendinghub/lending-service/internal/config"
	invrepo "github.com/lendinghub/lending-service/internal/inventory/repository"
	loanrepo "github.com/lendinghub/lending-service/internal/loans/repository"
	"github.com/lendinghub/lending-service/internal/users"
	"github.com/lendinghub/lending-service/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
)

const connectAttempts = 5

// Stores holds the three repositories the service runs on.
type Stores struct {
	Users   users.UserRepository
	Items   invrepo.Repository
	Loans   loanrepo.Repository
	Backend string // "mongo" or "memory"

	client *mongo.Client
}

// OpenStores connects to MongoDB when MONGODB_URI is set and creates the
// indexes; otherwise it returns in-memory stores.
func OpenStores(ctx context.Context, cfg config.MongoDBConfig) (*Stores, error) {
	if cfg.URI == "" {
		logger.Warnf("MONGODB_URI not set; using in-memory stores (data is lost on restart)")
		return &Stores{
			Users:   users.NewMemoryUserRepository(),
			Items:   invrepo.NewMemoryRepo(),
			Loans:   loanrepo.NewMemoryRepo(),
			Backend: "memory",
		}, nil
	}

	client, err := ConnectMongoWithRetry(ctx, cfg.URI, cfg.Timeout, connectAttempts)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.Database)
	u := users.NewMongoUserRepository(db.Collection(UsersCollection))
	i := invrepo.NewMongoRepo(db.Collection(ItemsCollection))
	l := loanrepo.NewMongoRepo(db.Collection(LoansCollection))

	for name, ensure := range map[string]func(context.Context) error{
		UsersCollection: u.EnsureIndexes,
		ItemsCollection: i.EnsureIndexes,
		LoansCollection: l.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}
	logger.Infof("connected to MongoDB database %q", cfg.Database)
	return &Stores{Users: u, Items: i, Loans: l, Backend: "mongo", client: client}, nil
}

// Ping checks the backing database; memory stores are always reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx, nil)
}

func (s *Stores) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
