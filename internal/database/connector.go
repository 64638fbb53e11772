package database

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/weekgrid/internal/config"
	log "github.com/sirupsen/logrus"
)

var ErrConnectorClosed = errors.New("database connector is closed")

// OpenFunc opens a new pool. It is replaced in tests.
type OpenFunc func(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error)

// Connector hands out one shared pool, opening it on first use. A failed open is not
// remembered, so the next caller retries.
type Connector struct {
	cfg    config.Database
	open   OpenFunc
	mu     sync.Mutex
	pool   *pgxpool.Pool
	closed bool
}

func NewConnector(cfg config.Database) *Connector {
	return NewConnectorWithOpener(cfg, Open)
}

func NewConnectorWithOpener(cfg config.Database, open OpenFunc) *Connector {
	return &Connector{cfg: cfg, open: open}
}

func (c *Connector) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrConnectorClosed
	}
	if c.pool != nil {
		return c.pool, nil
	}
	pool, err := c.open(ctx, c.cfg)
	if err != nil {
		log.Errorf("could not open database pool: %v", err)
		return nil, err
	}
	log.Debugf("database pool opened for %s:%d/%s", c.cfg.Host, c.cfg.Port, c.cfg.Name)
	c.pool = pool
	return pool, nil
}

// Close releases the pool. The connector cannot be used afterwards.
func (c *Connector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}
