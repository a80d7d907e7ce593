// Package ledger records the outcome of every delivery attempt so retained
// artifacts can be listed and redelivered later.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/raoulx24/camrelay/internal/config"
)

const (
	StatusDelivered = "delivered"
	StatusRetained  = "retained"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

//go:embed schema_sqlite.sql
var schemaSQLite string

//go:embed schema_postgres.sql
var schemaPostgres string

// Entry is one drain outcome.
type Entry struct {
	ID         int64
	RunID      string
	Deadline   time.Time
	FilePath   string
	CameraID   string
	Region     string
	Status     string
	Error      string
	RecordedAt time.Time
}

// Store persists entries in sqlite or postgres.
type Store struct {
	db      *sql.DB
	dialect string
	dsn     string
}

// Open connects to the configured ledger and creates its table. The sqlite
// database defaults to ledger.db under the storage path.
func Open(ctx context.Context, cfg config.LedgerConfig, storagePath string) (*Store, error) {
	switch cfg.Driver {
	case "", dialectSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join(storagePath, "ledger.db")
		}
		return openSQLite(ctx, dsn)
	case dialectPostgres:
		return openPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported ledger driver %q", cfg.Driver)
	}
}

func openSQLite(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	// one writer; the drainer is sequential anyway
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, dialect: dialectSQLite, dsn: dsn}
	if err := s.initSchema(ctx, schemaSQLite); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func openPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres ledger: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres ledger: %w", err)
	}

	s := &Store{db: db, dialect: dialectPostgres, dsn: dsn}
	if err := s.initSchema(ctx, schemaPostgres); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context, schema string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create ledger schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Location describes where the ledger lives, for logs.
func (s *Store) Location() string {
	if s.dialect == dialectPostgres {
		return "postgres"
	}
	return s.dsn
}

// Record appends one outcome.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO deliveries (
            run_id, deadline, file_path, camera_id, region, status, error, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		e.RunID,
		formatTime(e.Deadline),
		e.FilePath,
		e.CameraID,
		e.Region,
		e.Status,
		e.Error,
		formatTime(e.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("record delivery of %s: %w", e.FilePath, err)
	}
	return nil
}

// Recent returns the newest entries first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(selectColumns+` FROM deliveries ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent deliveries: %w", err)
	}
	return scanEntries(rows)
}

// Retained returns files whose latest recorded outcome is retained, oldest
// first.
func (s *Store) Retained(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(selectColumns+` FROM deliveries d
        WHERE d.status = ?
          AND d.id = (SELECT MAX(id) FROM deliveries WHERE file_path = d.file_path)
        ORDER BY d.id`), StatusRetained)
	if err != nil {
		return nil, fmt.Errorf("query retained deliveries: %w", err)
	}
	return scanEntries(rows)
}

const selectColumns = `SELECT id, run_id, deadline, file_path, camera_id, region, status, error, recorded_at`

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                  Entry
			deadline, recorded string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &deadline, &e.FilePath, &e.CameraID, &e.Region, &e.Status, &e.Error, &recorded); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		e.Deadline = parseTime(deadline)
		e.RecordedAt = parseTime(recorded)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}

// rebind turns ? placeholders into $n for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
