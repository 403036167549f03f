package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"voiceloop/internal/models"
	"voiceloop/internal/storage/interfaces"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

const (
	sqliteFileName      = "performance.db"
	sqliteSchemaVersion = 1
	// fixed width so that text ordering matches time ordering
	sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

const recordColumns = `post_id, platform, text, hashtags, category, authenticity_score,
	likes, comments, shares, saves, engagement_rate, performance_score, insights,
	posted_at, last_checked_at, hours_elapsed`

// SQLiteRepository keeps performance records in SQLite. Every statement runs
// in its own transaction, so separate processes can share the file safely.
type SQLiteRepository struct {
	db *sql.DB
}

func OpenSQLiteRepository(dir string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	dsn := "file:" + filepath.Join(dir, sqliteFileName) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err = migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db}, nil
}

func migrateSQLite(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`)
	if err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	err = db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current)
	if err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}
	if current >= sqliteSchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS performance_records (
			post_id TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			text TEXT NOT NULL,
			hashtags TEXT NOT NULL DEFAULT '[]',
			category TEXT NOT NULL,
			authenticity_score INTEGER NOT NULL,
			likes INTEGER NOT NULL DEFAULT 0,
			comments INTEGER NOT NULL DEFAULT 0,
			shares INTEGER NOT NULL DEFAULT 0,
			saves INTEGER NOT NULL DEFAULT 0,
			engagement_rate REAL NOT NULL DEFAULT 0,
			performance_score REAL NOT NULL DEFAULT 0,
			insights TEXT NOT NULL DEFAULT '[]',
			posted_at TEXT NOT NULL,
			last_checked_at TEXT NOT NULL,
			hours_elapsed REAL NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate: create performance_records: %w", err)
	}
	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_performance_category ON performance_records(category);`)
	if err != nil {
		return fmt.Errorf("migrate: create category index: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?);`, sqliteSchemaVersion)
	if err != nil {
		return fmt.Errorf("migrate: record version: %w", err)
	}
	return tx.Commit()
}

func recordArgs(rec *models.PerformanceRecord) ([]any, error) {
	hashtags, err := json.Marshal(nonNil(rec.Hashtags))
	if err != nil {
		return nil, fmt.Errorf("encode hashtags: %w", err)
	}
	insights, err := json.Marshal(nonNil(rec.Insights))
	if err != nil {
		return nil, fmt.Errorf("encode insights: %w", err)
	}
	return []any{
		rec.PostID, rec.Platform, rec.Text, string(hashtags), rec.Category, rec.AuthenticityScore,
		rec.Likes, rec.Comments, rec.Shares, rec.Saves, rec.EngagementRate, rec.PerformanceScore, string(insights),
		rec.PostedAt.UTC().Format(sqliteTimeLayout), rec.LastCheckedAt.UTC().Format(sqliteTimeLayout), rec.HoursElapsed,
	}, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (*models.PerformanceRecord, error) {
	var rec models.PerformanceRecord
	var hashtags, insights, postedAt, lastCheckedAt string
	err := s.Scan(
		&rec.PostID, &rec.Platform, &rec.Text, &hashtags, &rec.Category, &rec.AuthenticityScore,
		&rec.Likes, &rec.Comments, &rec.Shares, &rec.Saves, &rec.EngagementRate, &rec.PerformanceScore, &insights,
		&postedAt, &lastCheckedAt, &rec.HoursElapsed,
	)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal([]byte(hashtags), &rec.Hashtags); err != nil {
		return nil, fmt.Errorf("decode hashtags of %s: %w", rec.PostID, err)
	}
	if err = json.Unmarshal([]byte(insights), &rec.Insights); err != nil {
		return nil, fmt.Errorf("decode insights of %s: %w", rec.PostID, err)
	}
	if rec.PostedAt, err = time.Parse(sqliteTimeLayout, postedAt); err != nil {
		return nil, fmt.Errorf("parse posted_at of %s: %w", rec.PostID, err)
	}
	if rec.LastCheckedAt, err = time.Parse(sqliteTimeLayout, lastCheckedAt); err != nil {
		return nil, fmt.Errorf("parse last_checked_at of %s: %w", rec.PostID, err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, postID string) (*models.PerformanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM performance_records WHERE post_id = ?`, postID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrRecordNotFound, postID)
	}
	if err != nil {
		return nil, fmt.Errorf("get performance record: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, record *models.PerformanceRecord) error {
	if record == nil || record.PostID == "" {
		return errors.New("create performance record: post id is required")
	}
	args, err := recordArgs(record)
	if err != nil {
		return fmt.Errorf("create performance record: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO performance_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(post_id) DO NOTHING`, args...)
	if err != nil {
		return fmt.Errorf("create performance record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create performance record: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", interfaces.ErrRecordExists, record.PostID)
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, record *models.PerformanceRecord) error {
	if record == nil || record.PostID == "" {
		return errors.New("upsert performance record: post id is required")
	}
	args, err := recordArgs(record)
	if err != nil {
		return fmt.Errorf("upsert performance record: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO performance_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			platform = excluded.platform,
			text = excluded.text,
			hashtags = excluded.hashtags,
			category = excluded.category,
			likes = excluded.likes,
			comments = excluded.comments,
			shares = excluded.shares,
			saves = excluded.saves,
			engagement_rate = excluded.engagement_rate,
			performance_score = excluded.performance_score,
			insights = excluded.insights,
			posted_at = excluded.posted_at,
			last_checked_at = excluded.last_checked_at,
			hours_elapsed = excluded.hours_elapsed`, args...)
	if err != nil {
		return fmt.Errorf("upsert performance record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, where string, args ...any) ([]*models.PerformanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM performance_records `+where+` ORDER BY posted_at, post_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list performance records: %w", err)
	}
	defer rows.Close()

	out := make([]*models.PerformanceRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan performance record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate performance records: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListByCategory(ctx context.Context, category string) ([]*models.PerformanceRecord, error) {
	return r.query(ctx, `WHERE category = ?`, category)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.PerformanceRecord, error) {
	return r.query(ctx, ``)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
