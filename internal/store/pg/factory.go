// Package pg implements the store contracts on Postgres (managed mode).
package pg

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nextlevelbuilder/shopchat/internal/store"
)

// OpenDB opens a pooled Postgres connection via the pgx stdlib driver.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPGStores creates all stores backed by Postgres.
func NewPGStores(dsn string) (*store.Stores, *sql.DB, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, nil, err
	}
	return &store.Stores{
		Business: NewPGBusinessStore(db),
		Orders:   NewPGOrderStore(db),
		Usage:    NewPGUsageStore(db),
		Events:   NewPGEventStore(db),
	}, db, nil
}
