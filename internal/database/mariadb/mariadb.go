// Package mariadb reads staff from the legacy MariaDB attendance database.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Pool is a small read-only connection pool to the legacy database.
type Pool struct {
	db *sql.DB
}

// legacyConfig parses dsn and applies the settings the importer relies on.
func legacyConfig(dsn string) (*mysql.Config, error) {
	if dsn == "" {
		return nil, errors.New("legacy MariaDB DSN is required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse legacy DSN: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = time.Minute
	}
	return cfg, nil
}

// NewPool connects to the legacy database described by dsn.
func NewPool(dsn string) (*Pool, error) {
	cfg, err := legacyConfig(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create MariaDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping MariaDB at %s: %w", cfg.Addr, err)
	}
	return &Pool{db: db}, nil
}

// Close closes the pool.
func (p *Pool) Close() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("close MariaDB: %w", err)
	}
	return nil
}
