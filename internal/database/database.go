package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return "disconnected"
}

// Connection owns the Mongo client lifecycle. EnsureConnected is safe to call
// from every request path; it connects at most once and is idempotent while
// the connection is healthy.
type Connection struct {
	uri      string
	database string
	log      zerolog.Logger

	mu     sync.Mutex
	state  State
	client *mongo.Client
	db     *mongo.Database
}

func New(uri, database string, log zerolog.Logger) *Connection {
	return &Connection{
		uri:      uri,
		database: database,
		log:      log,
		state:    StateDisconnected,
	}
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// EnsureConnected dials Mongo on first use and re-dials after a failure.
func (c *Connection) EnsureConnected(ctx context.Context) (*mongo.Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnected {
		return c.db, nil
	}

	c.state = StateConnecting
	c.log.Info().Str("database", c.database).Msg("connecting to MongoDB")

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(c.uri).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(dialCtx, opts)
	if err != nil {
		c.state = StateFailed
		return nil, err
	}
	if err := client.Ping(dialCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		c.state = StateFailed
		return nil, err
	}

	c.client = client
	c.db = client.Database(c.database)
	c.state = StateConnected
	c.log.Info().Msg("connected to MongoDB")
	return c.db, nil
}

func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		c.state = StateDisconnected
		return nil
	}
	err := c.client.Disconnect(ctx)
	c.client = nil
	c.db = nil
	c.state = StateDisconnected
	return err
}

// Database returns the connected handle, or an error when EnsureConnected has
// not succeeded yet.
func (c *Connection) Database() (*mongo.Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return nil, errors.New("database not connected: " + c.state.String())
	}
	return c.db, nil
}
