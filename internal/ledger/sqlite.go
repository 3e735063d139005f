package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// DirPerms is used when creating the ledger directory.
const DirPerms = 0o700

// walJournalSizeLimit caps the WAL journal at 64 MiB.
const walJournalSizeLimit = 67108864

// memoryPath opens an in-memory database, used by tests.
const memoryPath = ":memory:"

// SQLiteStore implements Store on an embedded SQLite database with WAL mode.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	// Prepared statements for the three queries the bot issues.
	insertStmt  *sql.Stmt
	listAllStmt *sql.Stmt
	countStmt   *sql.Stmt
}

// NewSQLiteStore opens the ledger database at dbPath, applying migrations
// and preparing statements. Use ":memory:" for tests.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	logger.Info("opening ledger database", slog.String("path", dbPath))

	if dbPath != memoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), DirPerms); err != nil {
			return nil, fmt.Errorf("ledger: creating directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite: %w", err)
	}

	// Sole-writer discipline: one connection, so statements and the WAL
	// never race even if a future caller forgets the single-writer rule.
	db.SetMaxOpenConns(1)

	ctx := context.Background()

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: prepare statements: %w", err)
	}

	logger.Info("ledger database ready", slog.String("path", dbPath))

	return s, nil
}

// setPragmas configures WAL mode and durability settings.
func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		fmt.Sprintf("PRAGMA journal_size_limit=%d", walJournalSizeLimit),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("ledger: %s: %w", p, err)
		}
	}

	return nil
}

func (s *SQLiteStore) prepareStatements(ctx context.Context) error {
	var err error

	s.insertStmt, err = s.db.PrepareContext(ctx,
		`INSERT INTO uploads (name, file_id, link, size, uploaded_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}

	s.listAllStmt, err = s.db.PrepareContext(ctx,
		`SELECT id, name, file_id, link, size, uploaded_at FROM uploads ORDER BY id`)
	if err != nil {
		return err
	}

	s.countStmt, err = s.db.PrepareContext(ctx, `SELECT COUNT(*) FROM uploads`)

	return err
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	ts := rec.UploadedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	if _, err := s.insertStmt.ExecContext(ctx, rec.Name, rec.FileID, rec.Link, rec.Size, ts.Unix()); err != nil {
		return fmt.Errorf("ledger: appending record for %q: %w", rec.Name, err)
	}

	s.logger.Debug("ledger record appended",
		slog.String("name", rec.Name),
		slog.String("file_id", rec.FileID),
	)

	return nil
}

// ListAll implements Store: full history in insertion order.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]Record, error) {
	rows, err := s.listAllStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: listing records: %w", err)
	}
	defer rows.Close()

	var out []Record

	for rows.Next() {
		var rec Record

		var ts int64
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.FileID, &rec.Link, &rec.Size, &ts); err != nil {
			return nil, fmt.Errorf("ledger: scanning record: %w", err)
		}

		rec.UploadedAt = time.Unix(ts, 0)
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterating records: %w", err)
	}

	return out, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.countStmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger: counting records: %w", err)
	}

	return n, nil
}

// Close releases prepared statements and the database handle.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertStmt, s.listAllStmt, s.countStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}

	return s.db.Close()
}
