package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrStoreMisconfigured is returned when the document store has no connection string.
var ErrStoreMisconfigured = errors.New("mongo: connection string is not defined")

// Mongo holds the process-wide entries collection handle. The connection is
// established lazily on first use and reused for the lifetime of the process.
// Concurrent first uses share a single connection attempt, and the lock is never
// held while dialing. A failed attempt is not cached, so the next request retries.
type Mongo struct {
	uri        string
	dbName     string
	collection string

	// ServerSelectionTimeout bounds the ping of a new connection.
	ServerSelectionTimeout time.Duration

	group     singleflight.Group
	onConnect func(ctx context.Context, coll *mongo.Collection)

	mu     sync.RWMutex
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongo(uri, dbName, collection string) (*Mongo, error) {
	if uri == "" {
		return nil, ErrStoreMisconfigured
	}
	return &Mongo{
		uri:                    uri,
		dbName:                 dbName,
		collection:             collection,
		ServerSelectionTimeout: 10 * time.Second,
	}, nil
}

// OnConnect registers fn to run after a successful connection, before the
// collection is handed out. Call it before the first Collection.
func (m *Mongo) OnConnect(fn func(ctx context.Context, coll *mongo.Collection)) {
	m.onConnect = fn
}

// Collection returns the cached collection, connecting if needed. A caller whose
// ctx ends stops waiting; the shared attempt carries on for the others.
func (m *Mongo) Collection(ctx context.Context) (*mongo.Collection, error) {
	m.mu.RLock()
	coll := m.coll
	m.mu.RUnlock()
	if coll != nil {
		return coll, nil
	}

	ch := m.group.DoChan("connect", func() (interface{}, error) {
		return m.connect(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*mongo.Collection), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Mongo) connect(ctx context.Context) (*mongo.Collection, error) {
	m.mu.RLock()
	coll := m.coll
	m.mu.RUnlock()
	if coll != nil {
		return coll, nil
	}

	// Use longer timeout for Atlas connections
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(m.uri)
	clientOptions.SetServerSelectionTimeout(m.ServerSelectionTimeout)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, m.ServerSelectionTimeout)
	defer pingCancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	coll = client.Database(m.dbName).Collection(m.collection)
	if m.onConnect != nil {
		m.onConnect(connectCtx, coll)
	}

	m.mu.Lock()
	m.client, m.coll = client, coll
	m.mu.Unlock()
	return coll, nil
}

// EnsureEntryIndexes creates the owner index every entry query filters on.
func EnsureEntryIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userEmail", Value: 1}},
		Options: options.Index().SetName("idx_user_email"),
	})
	return err
}

// Disconnect closes the client if one was ever connected.
func (m *Mongo) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := m.client.Disconnect(ctx)
	m.client, m.coll = nil, nil
	return err
}
