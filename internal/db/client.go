// Package db provides PostGIS database connectivity for the pre-ingested
// Ontario datasets and the named-area geometry lookup.
package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// Client wraps the shared connection pool. Connections are established
// lazily on first query, so a missing database degrades the spatial
// handlers to unavailable instead of failing start-up.
type Client struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the pool for a postgres:// URL. It does not ping; the
// first query pays for connection establishment.
func Open(databaseURL string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	logger.Debug("database pool configured", "max_open", maxOpenConns, "max_idle", maxIdleConns)
	return &Client{db: db, logger: logger}, nil
}

// DB returns the underlying pool for handlers issuing their own queries.
func (c *Client) DB() *sql.DB {
	if c == nil {
		return nil
	}
	return c.db
}

// Close releases the pool.
func (c *Client) Close() error {
	c.logger.Info("closing database pool")
	return c.db.Close()
}
