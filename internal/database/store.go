package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/arturlm/jusbr/internal/model"
)

// Store provides SQLite-based storage for queries, crawl tasks and the
// extracted process records. It manages connection pooling and provides
// methods for CRUD operations.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Store at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, "jusbr.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- Queries are user searches fanned out across tribunals
	CREATE TABLE IF NOT EXISTS queries (
		id TEXT PRIMARY KEY,
		search_term TEXT NOT NULL,
		status TEXT NOT NULL,
		result_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_queries_status ON queries(status);

	-- Crawl tasks track one tribunal's progress within a query
	CREATE TABLE IF NOT EXISTS crawl_tasks (
		id TEXT PRIMARY KEY,
		query_id TEXT NOT NULL,
		tribunal TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_query ON crawl_tasks(query_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_tribunal ON crawl_tasks(query_id, tribunal);

	-- Process records store extracted cases as JSON, deduplicated per
	-- tribunal so re-crawls refresh instead of multiply
	CREATE TABLE IF NOT EXISTS processes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		tribunal TEXT NOT NULL,
		process_number TEXT NOT NULL,
		payload TEXT NOT NULL,
		first_crawled_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_crawled_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(tribunal, process_number)
	);

	CREATE INDEX IF NOT EXISTS idx_processes_query ON processes(query_id);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// CreateQuery inserts a new query row.
func (s *Store) CreateQuery(ctx context.Context, q *model.Query) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO queries (id, search_term, status) VALUES (?, ?, ?)
	`, q.ID, q.SearchTerm, string(q.Status))
	if err != nil {
		return fmt.Errorf("failed to create query: %w", err)
	}
	return nil
}

// GetQuery retrieves a query by id, or nil when it does not exist.
func (s *Store) GetQuery(ctx context.Context, id string) (*model.Query, error) {
	var q model.Query
	var status, createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `
	SELECT id, search_term, status, result_count, created_at, updated_at
	FROM queries WHERE id = ?
	`, id).Scan(&q.ID, &q.SearchTerm, &status, &q.ResultCount, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get query: %w", err)
	}

	q.Status = model.QueryStatus(status)
	q.CreatedAt = parseTimestamp(createdAt)
	q.UpdatedAt = parseTimestamp(updatedAt)
	return &q, nil
}

// FindQueryByTerm returns the most recent query for a search term, or
// nil when the term was never queried. Repeat searches attach to the
// existing query so earlier tribunal results are reused.
func (s *Store) FindQueryByTerm(ctx context.Context, term string) (*model.Query, error) {
	var q model.Query
	var status, createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `
	SELECT id, search_term, status, result_count, created_at, updated_at
	FROM queries WHERE search_term = ? ORDER BY created_at DESC, id DESC LIMIT 1
	`, term).Scan(&q.ID, &q.SearchTerm, &status, &q.ResultCount, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find query by term: %w", err)
	}

	q.Status = model.QueryStatus(status)
	q.CreatedAt = parseTimestamp(createdAt)
	q.UpdatedAt = parseTimestamp(updatedAt)
	return &q, nil
}

// UpdateQueryStatus sets a query's status.
func (s *Store) UpdateQueryStatus(ctx context.Context, id string, status model.QueryStatus) error {
	_, err := s.db.ExecContext(ctx, `
	UPDATE queries SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update query status: %w", err)
	}
	return nil
}

// AddQueryResults adds delta to a query's result count. The increment is
// performed in SQL so tasks finishing concurrently never lose counts to
// a read-modify-write race.
func (s *Store) AddQueryResults(ctx context.Context, id string, delta int) error {
	_, err := s.db.ExecContext(ctx, `
	UPDATE queries SET result_count = result_count + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, delta, id)
	if err != nil {
		return fmt.Errorf("failed to add query results: %w", err)
	}
	return nil
}

// CreateCrawlTask inserts a new crawl task row.
func (s *Store) CreateCrawlTask(ctx context.Context, t *model.CrawlTask) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO crawl_tasks (id, query_id, tribunal, status, attempts, last_error)
	VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.QueryID, string(t.Tribunal), string(t.Status), t.Attempts, t.LastError)
	if err != nil {
		return fmt.Errorf("failed to create crawl task: %w", err)
	}
	return nil
}

// UpdateCrawlTask persists a task's mutable fields.
func (s *Store) UpdateCrawlTask(ctx context.Context, t *model.CrawlTask) error {
	var finishedAt any
	if t.FinishedAt != nil {
		finishedAt = t.FinishedAt.UTC().Format("2006-01-02 15:04:05")
	}
	_, err := s.db.ExecContext(ctx, `
	UPDATE crawl_tasks SET status = ?, attempts = ?, last_error = ?, finished_at = ?
	WHERE id = ?
	`, string(t.Status), t.Attempts, t.LastError, finishedAt, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update crawl task: %w", err)
	}
	return nil
}

// ListCrawlTasks returns every task of a query, oldest first.
func (s *Store) ListCrawlTasks(ctx context.Context, queryID string) ([]model.CrawlTask, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, query_id, tribunal, status, attempts, last_error, started_at, finished_at
	FROM crawl_tasks WHERE query_id = ? ORDER BY started_at, id
	`, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl tasks: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tasks []model.CrawlTask
	for rows.Next() {
		var t model.CrawlTask
		var tribunal, status, startedAt string
		var lastError, finishedAt sql.NullString

		if err := rows.Scan(&t.ID, &t.QueryID, &tribunal, &status, &t.Attempts,
			&lastError, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan crawl task: %w", err)
		}
		t.Tribunal = model.Tribunal(tribunal)
		t.Status = model.TaskStatus(status)
		t.LastError = lastError.String
		t.StartedAt = parseTimestamp(startedAt)
		if finishedAt.Valid {
			finished := parseTimestamp(finishedAt.String)
			t.FinishedAt = &finished
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// HasNonFailedTerminalTask reports whether the tribunal already completed
// successfully for this query. Used to skip re-enqueueing work unless the
// caller forces a re-crawl; failed tasks never block one.
func (s *Store) HasNonFailedTerminalTask(ctx context.Context, queryID string, tribunal model.Tribunal) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM crawl_tasks
	WHERE query_id = ? AND tribunal = ? AND status = ?
	`, queryID, string(tribunal), string(model.TaskDone)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check terminal tasks: %w", err)
	}
	return count > 0, nil
}

// AllTasksTerminal reports whether every task of the query reached a
// final state. A query with no tasks at all is never terminal.
func (s *Store) AllTasksTerminal(ctx context.Context, queryID string) (bool, error) {
	var total, finished int
	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*),
	       COUNT(CASE WHEN status IN (?, ?) THEN 1 END)
	FROM crawl_tasks WHERE query_id = ?
	`, string(model.TaskDone), string(model.TaskFailed), queryID).Scan(&total, &finished)
	if err != nil {
		return false, fmt.Errorf("failed to check task terminality: %w", err)
	}
	return total > 0 && total == finished, nil
}

// ProcessRecord is a stored case with its crawl bookkeeping.
type ProcessRecord struct {
	ID             int64                     `json:"id"`
	QueryID        string                    `json:"query_id"`
	Tribunal       model.Tribunal            `json:"tribunal"`
	ProcessNumber  string                    `json:"process_number"`
	Detail         model.DetailedProcessData `json:"detail"`
	FirstCrawledAt time.Time                 `json:"first_crawled_at"`
	LastCrawledAt  time.Time                 `json:"last_crawled_at"`
}

// UpsertProcessRecord stores an extracted case. The same case crawled
// again, for any query, refreshes the stored payload in place: the
// (tribunal, process number) pair identifies a case globally.
func (s *Store) UpsertProcessRecord(ctx context.Context, queryID string, tribunal model.Tribunal, processNumber string, detail model.DetailedProcessData) error {
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to serialize process: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO processes (query_id, tribunal, process_number, payload)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(tribunal, process_number) DO UPDATE SET
		query_id = excluded.query_id,
		payload = excluded.payload,
		last_crawled_at = CURRENT_TIMESTAMP
	`, queryID, string(tribunal), processNumber, string(payload))
	if err != nil {
		return fmt.Errorf("failed to upsert process: %w", err)
	}
	return nil
}

// ListProcessRecords returns every case stored for a query, oldest first.
func (s *Store) ListProcessRecords(ctx context.Context, queryID string) ([]ProcessRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, query_id, tribunal, process_number, payload, first_crawled_at, last_crawled_at
	FROM processes WHERE query_id = ? ORDER BY id
	`, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var records []ProcessRecord
	for rows.Next() {
		var rec ProcessRecord
		var tribunal, payload, firstAt, lastAt string

		if err := rows.Scan(&rec.ID, &rec.QueryID, &tribunal, &rec.ProcessNumber,
			&payload, &firstAt, &lastAt); err != nil {
			return nil, fmt.Errorf("failed to scan process: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &rec.Detail); err != nil {
			return nil, fmt.Errorf("failed to parse process payload: %w", err)
		}
		rec.Tribunal = model.Tribunal(tribunal)
		rec.FirstCrawledAt = parseTimestamp(firstAt)
		rec.LastCrawledAt = parseTimestamp(lastAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountProcessRecords returns the number of cases stored for a query.
func (s *Store) CountProcessRecords(ctx context.Context, queryID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM processes WHERE query_id = ?
	`, queryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count processes: %w", err)
	}
	return count, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
