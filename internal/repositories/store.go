package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Store bundles the repositories of one backend.
type Store struct {
	Users    UserRepository
	Products ProductRepository
	Orders   OrderRepository
	Tx       TxManager

	migrate func(ctx context.Context) error
	ping    func(ctx context.Context) error
	closer  func(ctx context.Context) error
}

// StoreOptions selects and configures a backend.
type StoreOptions struct {
	Driver        string // memory, sqlite, postgres or mongo
	DSN           string
	MongoURI      string
	MongoDatabase string
}

// Open connects to the backend named by opts.Driver.
func Open(ctx context.Context, opts StoreOptions) (*Store, error) {
	switch opts.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "postgres":
		db, err := OpenGORM(opts.Driver, opts.DSN)
		if err != nil {
			return nil, err
		}
		return NewGORMStore(db), nil
	case "mongo":
		client, db, err := ConnectMongo(ctx, opts.MongoURI, opts.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(client, db), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", opts.Driver)
	}
}

// NewMemoryStore returns a process-local store.
func NewMemoryStore() *Store {
	products := NewMemoryProductRepository()
	orders := NewMemoryOrderRepository()
	return &Store{
		Users:    NewMemoryUserRepository(),
		Products: products,
		Orders:   orders,
		Tx:       NewCompensatingTxManager(products, orders),
	}
}

// NewGORMStore wraps an open relational database.
func NewGORMStore(db *gorm.DB) *Store {
	return &Store{
		Users:    NewGORMUserRepository(db),
		Products: NewGORMProductRepository(db),
		Orders:   NewGORMOrderRepository(db),
		Tx:       NewGORMTxManager(db),
		migrate: func(context.Context) error {
			return AutoMigrate(db)
		},
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		closer: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

// NewMongoStore wraps a connected MongoDB database.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *Store {
	products := NewMongoProductRepository(db)
	orders := NewMongoOrderRepository(db)
	return &Store{
		Users:    NewMongoUserRepository(db),
		Products: products,
		Orders:   orders,
		Tx:       NewCompensatingTxManager(products, orders),
		migrate: func(ctx context.Context) error {
			return EnsureMongoIndexes(ctx, db)
		},
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		closer: client.Disconnect,
	}
}

// Migrate creates tables or indexes for the backend.
func (s *Store) Migrate(ctx context.Context) error {
	if s.migrate == nil {
		return nil
	}
	return s.migrate(ctx)
}

// Ping checks that the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the underlying connection, if any.
func (s *Store) Close(ctx context.Context) error {
	if s.closer == nil {
		return nil
	}
	return s.closer(ctx)
}
