package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/qepting91/idea-collector/internal/domain"
)

// Fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Archive keeps a queryable history of collection runs in SQLite.
type Archive struct {
	db *sql.DB
}

// RunSummary is one archived run as listed by ListRuns.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	RunAt        time.Time `json:"run_at"`
	FinishedAt   time.Time `json:"finished_at"`
	SearchTerms  []string  `json:"search_terms"`
	TotalRecords int       `json:"total_records"`
	ErrorCount   int       `json:"error_count"`
	File         string    `json:"file"`
}

func Open(path string) (*Archive, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open archive %s: %w", domain.ErrIO, path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: open archive %s: %w", domain.ErrIO, path, err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate archive %s: %w", domain.ErrIO, path, err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error { return a.db.Close() }

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			run_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			search_terms TEXT NOT NULL DEFAULT '[]',
			total_records INTEGER NOT NULL DEFAULT 0,
			error_count INTEGER NOT NULL DEFAULT 0,
			file TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS run_sources (
			run_id TEXT NOT NULL,
			source TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, source),
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS run_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			source TEXT NOT NULL,
			term TEXT NOT NULL,
			kind TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS records (
			run_id TEXT NOT NULL,
			source TEXT NOT NULL,
			term TEXT NOT NULL,
			id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			community TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			published_at TEXT,
			fetched_at TEXT NOT NULL,
			score INTEGER,
			views INTEGER,
			likes INTEGER,
			comments INTEGER,
			PRIMARY KEY (run_id, source, term, id),
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_run_at ON runs(run_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_records_source_term ON records(source, term);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores res and the run file it was written to in one transaction.
func (a *Archive) SaveRun(ctx context.Context, res domain.CollectionResult, file string) (err error) {
	terms, err := json.Marshal(res.SearchTerms)
	if err != nil {
		return err
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO runs(run_id, run_at, finished_at, search_terms, total_records, error_count, file)
		VALUES(?,?,?,?,?,?,?)
	`, res.RunID, formatTime(res.RunAt), formatTime(res.FinishedAt), string(terms),
		res.TotalRecords, res.ErrorCount(), file); err != nil {
		return fmt.Errorf("archive: insert run %s: %w", res.RunID, err)
	}

	for name, summary := range res.Sources {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_sources(run_id, source, count) VALUES(?,?,?)`,
			res.RunID, name, summary.Count); err != nil {
			return fmt.Errorf("archive: insert source %s: %w", name, err)
		}
		for _, e := range summary.Errors {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO run_errors(run_id, source, term, kind, message) VALUES(?,?,?,?,?)`,
				res.RunID, e.Source, e.Term, e.Kind, e.Message); err != nil {
				return fmt.Errorf("archive: insert error: %w", err)
			}
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO records(run_id, source, term, id, title, text, author, community, url,
			published_at, fetched_at, score, views, likes, comments)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		return fmt.Errorf("archive: prepare records: %w", err)
	}
	defer stmt.Close()
	for _, r := range res.Records {
		if _, err = stmt.ExecContext(ctx,
			res.RunID, r.Source, r.Term, r.ID, r.Title, r.Text, r.Author, r.Community, r.URL,
			nullTime(r.PublishedAt), formatTime(r.FetchedAt),
			nullInt(r.Engagement.Score), nullInt(r.Engagement.Views), nullInt(r.Engagement.Likes), nullInt(r.Engagement.Comments),
		); err != nil {
			return fmt.Errorf("archive: insert record %s/%s: %w", r.Source, r.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// ListRuns returns archived runs newest first. limit <= 0 means no limit.
func (a *Archive) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT run_id, run_at, finished_at, search_terms, total_records, error_count, file
		FROM runs ORDER BY run_at DESC, run_id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s                 RunSummary
			runAt, finishedAt string
			terms             string
		)
		if err := rows.Scan(&s.RunID, &runAt, &finishedAt, &terms, &s.TotalRecords, &s.ErrorCount, &s.File); err != nil {
			return nil, err
		}
		if s.RunAt, err = time.Parse(timeLayout, runAt); err != nil {
			return nil, fmt.Errorf("archive: run %s: %w", s.RunID, err)
		}
		if s.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
			return nil, fmt.Errorf("archive: run %s: %w", s.RunID, err)
		}
		if err := json.Unmarshal([]byte(terms), &s.SearchTerms); err != nil {
			return nil, fmt.Errorf("archive: run %s: %w", s.RunID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountRecords returns the number of archived records for a run.
func (a *Archive) CountRecords(ctx context.Context, runID string) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE run_id=?`, runID).Scan(&n)
	return n, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
