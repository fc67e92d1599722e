// Package mongo provides a MongoDB-backed storage.Store.
//
// Documents keep the flat shape {id, description, amount, category, date};
// Mongo's own _id is never returned to callers.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Config selects the server, database and collection.
type Config struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// URI builds a connection string from host and port.
func URI(host string, port int) string {
	return fmt.Sprintf("mongodb://%s:%d/", host, port)
}

type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// New connects, verifies the server answers and ensures indexes exist.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}
	if err := s.ensureIndexes(cctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	slog.InfoContext(ctx, "Connected to MongoDB",
		"database", cfg.Database,
		"collection", cfg.Collection)

	return s, nil
}

// ensureIndexes creates a unique index on id (partial, so documents written
// before ids existed are tolerated) and a descending date index for List.
func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "id", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
		{Keys: bson.D{{Key: "date", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Insert implements storage.Store
func (s *Store) Insert(ctx context.Context, e core.Expense) error {
	if _, err := s.collection.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

// List implements storage.Store
func (s *Store) List(ctx context.Context) ([]core.Expense, error) {
	opts := options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 0}}).
		SetSort(bson.D{{Key: "date", Value: -1}})

	cur, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find expenses: %w", err)
	}

	expenses := make([]core.Expense, 0)
	if err := cur.All(ctx, &expenses); err != nil {
		return nil, fmt.Errorf("decode expenses: %w", err)
	}
	return expenses, nil
}

// DeleteByDescription implements storage.Store
func (s *Store) DeleteByDescription(ctx context.Context, desc string) (bool, error) {
	res, err := s.collection.DeleteOne(ctx, bson.D{{Key: "description", Value: desc}})
	if err != nil {
		return false, fmt.Errorf("delete expense by description: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// DeleteByID implements storage.Store
func (s *Store) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := s.collection.DeleteOne(ctx, bson.D{{Key: "id", Value: id}})
	if err != nil {
		return false, fmt.Errorf("delete expense by id: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// categoryPipeline groups by category and sums amounts.
var categoryPipeline = mongo.Pipeline{
	{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$category"},
		{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
	}}},
}

// CategoryTotals implements storage.Store
func (s *Store) CategoryTotals(ctx context.Context) ([]core.CategoryTotal, error) {
	cur, err := s.collection.Aggregate(ctx, categoryPipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate category totals: %w", err)
	}

	totals := make([]core.CategoryTotal, 0)
	if err := cur.All(ctx, &totals); err != nil {
		return nil, fmt.Errorf("decode category totals: %w", err)
	}
	return totals, nil
}
