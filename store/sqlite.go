package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/RyanBlaney/sonido-drop/drop"
	"github.com/RyanBlaney/sonido-drop/logging"
)

// Record is one stored analysis
type Record struct {
	ID          int64     `json:"id" yaml:"id"`
	Source      string    `json:"source" yaml:"source"`
	AnalyzedAt  time.Time `json:"analyzed_at" yaml:"analyzed_at"`
	Duration    float64   `json:"duration" yaml:"duration"`
	BPM         float64   `json:"bpm" yaml:"bpm"`
	RawBPM      float64   `json:"raw_bpm" yaml:"raw_bpm"`
	Band        string    `json:"band" yaml:"band"`
	Mode        string    `json:"mode" yaml:"mode"`
	Sensitivity *float64  `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty"`
	MeanLevel   *float64  `json:"mean_level,omitempty" yaml:"mean_level,omitempty"`
	Drop        *float64  `json:"drop,omitempty" yaml:"drop,omitempty"`
	Events      []float64 `json:"events" yaml:"events"`
}

// SQLiteStore keeps a history of analysis reports in a sqlite file
type SQLiteStore struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (or creates) the database at path
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &SQLiteStore{
		db: db,
		logger: logging.WithFields(logging.Fields{
			"component": "report_store",
			"path":      path,
		}),
	}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func createTables(db *sql.DB) error {
	createReportsTable := `
    CREATE TABLE IF NOT EXISTS reports (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        source TEXT NOT NULL,
        analyzed_at INTEGER NOT NULL,
        duration REAL NOT NULL,
        bpm REAL NOT NULL,
        raw_bpm REAL NOT NULL,
        band TEXT NOT NULL,
        mode TEXT NOT NULL,
        sensitivity REAL,
        mean_level REAL,
        drop_time REAL,
        events TEXT NOT NULL
    );
    `

	createSourceIndex := `CREATE INDEX IF NOT EXISTS reports_source ON reports (source);`

	if _, err := db.Exec(createReportsTable); err != nil {
		return fmt.Errorf("error creating reports table: %w", err)
	}
	if _, err := db.Exec(createSourceIndex); err != nil {
		return fmt.Errorf("error creating source index: %w", err)
	}
	return nil
}

// Save stores report and returns its row id
func (s *SQLiteStore) Save(ctx context.Context, report *drop.Report) (int64, error) {
	if report == nil || report.Tempo == nil {
		return 0, fmt.Errorf("cannot store an incomplete report")
	}

	events := report.Events
	if events == nil {
		events = []float64{}
	}
	encoded, err := json.Marshal(events)
	if err != nil {
		return 0, fmt.Errorf("error encoding events: %w", err)
	}

	analyzedAt := report.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (source, analyzed_at, duration, bpm, raw_bpm, band, mode, sensitivity, mean_level, drop_time, events)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.Source, analyzedAt.UnixNano(), report.Duration,
		report.Tempo.BPM, report.Tempo.RawBPM,
		report.Band.Name, string(report.Mode),
		nullable(report.Sensitivity), nullable(report.MeanLevel), nullable(report.Drop),
		string(encoded),
	)
	if err != nil {
		return 0, fmt.Errorf("error saving report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error getting report ID: %w", err)
	}

	s.logger.Debug("Report stored", logging.Fields{
		"id":     id,
		"source": report.Source,
	})
	return id, nil
}

// List returns the most recent records first. limit <= 0 returns all.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	query := selectRecords + ` ORDER BY analyzed_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// BySource returns the records of one source, most recent first
func (s *SQLiteStore) BySource(ctx context.Context, source string) ([]Record, error) {
	return s.query(ctx, selectRecords+` WHERE source = ? ORDER BY analyzed_at DESC, id DESC`, source)
}

const selectRecords = `
	SELECT id, source, analyzed_at, duration, bpm, raw_bpm, band, mode, sensitivity, mean_level, drop_time, events
	FROM reports`

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			r                          Record
			analyzedAt                 int64
			sensitivity, mean, dropped sql.NullFloat64
			events                     string
		)
		if err := rows.Scan(&r.ID, &r.Source, &analyzedAt, &r.Duration, &r.BPM, &r.RawBPM,
			&r.Band, &r.Mode, &sensitivity, &mean, &dropped, &events); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		if err := json.Unmarshal([]byte(events), &r.Events); err != nil {
			return nil, fmt.Errorf("error decoding events of report %d: %w", r.ID, err)
		}

		r.AnalyzedAt = time.Unix(0, analyzedAt).UTC()
		r.Sensitivity = fromNullable(sensitivity)
		r.MeanLevel = fromNullable(mean)
		r.Drop = fromNullable(dropped)
		records = append(records, r)
	}

	return records, rows.Err()
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
