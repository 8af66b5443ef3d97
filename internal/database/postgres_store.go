package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// PostgresStore keeps each collection as a JSONB row of the collections table.
// Update holds row locks on every involved collection for one SQL transaction.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenPostgres connects with the pgx driver and applies migrations
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return NewPostgresStore(db, logger), nil
}

// NewPostgresStore wraps an already migrated database handle
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// Get reads a collection document
func (s *PostgresStore) Get(ctx context.Context, c Collection) ([]byte, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT document FROM collections WHERE name = $1`, string(c)).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", c, err)
	}
	return doc, nil
}

// Update runs fn inside a SQL transaction holding row locks on the collections
func (s *PostgresStore) Update(ctx context.Context, fn func(tx Tx) error, collections ...Collection) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	tx := &pgTx{
		loaded:  make(map[Collection][]byte),
		pending: make(map[Collection][]byte),
	}

	for _, c := range lockOrder(collections) {
		_, err := sqlTx.ExecContext(ctx,
			`INSERT INTO collections (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
			string(c),
		)
		if err != nil {
			return fmt.Errorf("failed to prepare %s: %w", c, err)
		}

		var doc []byte
		err = sqlTx.QueryRowContext(ctx,
			`SELECT document FROM collections WHERE name = $1 FOR UPDATE`,
			string(c),
		).Scan(&doc)
		if err != nil {
			return fmt.Errorf("failed to lock %s: %w", c, err)
		}
		tx.loaded[c] = doc
	}

	if err := fn(tx); err != nil {
		return err
	}

	for _, c := range lockOrder(keys(tx.pending)) {
		_, err := sqlTx.ExecContext(ctx,
			`UPDATE collections SET document = $2::jsonb, updated_at = NOW() WHERE name = $1`,
			string(c), string(tx.pending[c]),
		)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", c, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := map[string]string{"driver": "postgres"}
	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	dbStats := s.db.Stats()
	stats["status"] = "up"
	stats["open_connections"] = fmt.Sprint(dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprint(dbStats.InUse)
	stats["idle"] = fmt.Sprint(dbStats.Idle)

	if version, err := MigrationVersion(ctx, s.db); err != nil {
		s.logger.Warn("Failed to read schema version", zap.Error(err))
	} else {
		stats["schema_version"] = fmt.Sprint(version)
	}
	return stats
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	s.logger.Info("Closing database connection")
	return s.db.Close()
}

type pgTx struct {
	loaded  map[Collection][]byte
	pending map[Collection][]byte
}

func (t *pgTx) Get(c Collection) ([]byte, error) {
	if doc, ok := t.pending[c]; ok {
		return doc, nil
	}
	doc, ok := t.loaded[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotLocked, c)
	}
	return doc, nil
}

func (t *pgTx) Put(c Collection, doc []byte) error {
	if _, ok := t.loaded[c]; !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotLocked, c)
	}
	t.pending[c] = doc
	return nil
}
