package grants

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for persistence. It is
// suitable for single-instance deployments where grants must survive
// restarts.
//
// The store uses WAL mode for better concurrent read performance and a
// single writer connection, which is all SQLite supports anyway.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	closeOnce sync.Once

	putStmt       *sql.Stmt
	getStmt       *sql.Stmt
	deleteStmt    *sql.Stmt
	listStmt      *sql.Stmt
	allowanceStmt *sql.Stmt
	sweepStmt     *sql.Stmt

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// SQLiteStoreConfig configures the SQLite grant store.
type SQLiteStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a SQLite grant store with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{DBPath: dbPath})
}

// NewSQLiteStoreWithConfig creates a SQLite grant store with custom
// configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:  db,
		now: time.Now,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS grants (
		id TEXT PRIMARY KEY,
		identity TEXT NOT NULL,
		product TEXT,
		tokens INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_grants_identity ON grants(identity);
	CREATE INDEX IF NOT EXISTS idx_grants_expires_at ON grants(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO grants (id, identity, product, tokens, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			identity = excluded.identity,
			product = excluded.product,
			tokens = excluded.tokens,
			expires_at = excluded.expires_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare put statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT id, identity, product, tokens, created_at, expires_at
		FROM grants WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM grants WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT id, identity, product, tokens, created_at, expires_at
		FROM grants WHERE identity = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	// expires_at = 0 encodes "never expires"
	s.allowanceStmt, err = s.db.Prepare(`
		SELECT COALESCE(SUM(tokens), 0)
		FROM grants
		WHERE identity = ? AND (expires_at = 0 OR expires_at > ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare allowance statement: %w", err)
	}

	s.sweepStmt, err = s.db.Prepare(`
		DELETE FROM grants WHERE expires_at > 0 AND expires_at <= ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare sweep statement: %w", err)
	}

	return nil
}

// Put inserts or replaces a grant by ID.
func (s *SQLiteStore) Put(ctx context.Context, grant *Grant) error {
	if grant == nil {
		return fmt.Errorf("grant cannot be nil")
	}
	if grant.ID == "" {
		return fmt.Errorf("grant ID cannot be empty")
	}
	if grant.Identity == "" {
		return fmt.Errorf("grant identity cannot be empty")
	}
	if grant.Tokens <= 0 {
		return fmt.Errorf("grant tokens must be positive")
	}

	createdAt := grant.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	var expiresAt int64
	if !grant.ExpiresAt.IsZero() {
		expiresAt = grant.ExpiresAt.Unix()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.putStmt.ExecContext(ctx,
		grant.ID, grant.Identity, grant.Product, grant.Tokens,
		createdAt.Unix(), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to save grant: %w", err)
	}
	return nil
}

// Get retrieves a grant by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grant, err := scanGrant(s.getStmt.QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load grant: %w", err)
	}
	return grant, nil
}

// Delete removes a grant by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deleteStmt.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	return nil
}

// List returns all grants for an identity, expired ones included.
func (s *SQLiteStore) List(ctx context.Context, identity string) ([]*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var out []*Grant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		out = append(out, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grants: %w", err)
	}
	return out, nil
}

// Allowance returns the sum of unexpired grant tokens for an identity.
func (s *SQLiteStore) Allowance(ctx context.Context, identity string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	err := s.allowanceStmt.QueryRowContext(ctx, identity, s.now().Unix()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum allowance: %w", err)
	}
	return total, nil
}

// DeleteExpired removes grants that expired before the given instant.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.sweepStmt.ExecContext(ctx, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired grants: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(deleted), nil
}

// Close releases the database. Close is idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{
			s.putStmt, s.getStmt, s.deleteStmt,
			s.listStmt, s.allowanceStmt, s.sweepStmt,
		} {
			if stmt != nil {
				stmt.Close()
			}
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})
	return closeErr
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrant(row rowScanner) (*Grant, error) {
	var (
		grant     Grant
		product   sql.NullString
		createdAt int64
		expiresAt int64
	)
	if err := row.Scan(&grant.ID, &grant.Identity, &product,
		&grant.Tokens, &createdAt, &expiresAt); err != nil {
		return nil, err
	}
	grant.Product = product.String
	grant.CreatedAt = time.Unix(createdAt, 0).UTC()
	if expiresAt > 0 {
		grant.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	}
	return &grant, nil
}
