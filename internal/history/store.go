package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"subburn/internal/pipeline"
)

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var _ pipeline.Recorder = (*Store)(nil)

// Open creates or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history database path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Workers finish concurrently but outcomes are written after the pool
	// drains; a single connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// StartRun inserts the run row before any job starts.
func (s *Store) StartRun(ctx context.Context, runID string, sources []string, opts pipeline.Options) error {
	if strings.TrimSpace(runID) == "" {
		return errors.New("run id required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, started_at, model, language, task, srt_only, output_dir, total)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		formatTime(time.Now()),
		opts.Model,
		opts.Language,
		string(opts.Task),
		boolToInt(opts.SRTOnly),
		opts.OutputDir,
		len(sources),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordOutcome stores the result of one job. Re-recording the same position
// replaces the earlier row.
func (s *Store) RecordOutcome(ctx context.Context, runID string, outcome pipeline.Outcome) error {
	errMessage := ""
	if outcome.Err != nil {
		errMessage = outcome.Err.Error()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO outcomes (
            run_id, position, source_path, kind, output_path, subtitle_path,
            cues, failed_stage, error_message, duration_ms
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		outcome.Index,
		outcome.Source,
		string(outcome.Kind),
		nullString(outcome.OutputPath),
		nullString(outcome.SubtitlePath),
		outcome.Cues,
		nullString(outcome.Stage),
		nullString(errMessage),
		outcome.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// FinishRun stamps the run with its completion time and totals.
func (s *Store) FinishRun(ctx context.Context, report pipeline.Report) error {
	finished := report.Finished
	if finished.IsZero() {
		finished = time.Now()
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET finished_at = ?, total = ?, failed = ? WHERE id = ?`,
		formatTime(finished),
		len(report.Outcomes),
		report.Failed(),
		report.RunID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", report.RunID, sql.ErrNoRows)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, started_at, finished_at, model, language, task, srt_only, output_dir, total, failed
        FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run with the given ID, or nil when none exists.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, started_at, finished_at, model, language, task, srt_only, output_dir, total, failed
        FROM runs WHERE id = ?`,
		runID,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RunOutcomes returns the recorded jobs of a run in input order.
func (s *Store) RunOutcomes(ctx context.Context, runID string) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, position, source_path, kind, output_path, subtitle_path,
            cues, failed_stage, error_message, duration_ms
        FROM outcomes WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		var (
			rec          JobRecord
			outputPath   sql.NullString
			subtitlePath sql.NullString
			failedStage  sql.NullString
			errMessage   sql.NullString
			durationMS   int64
		)
		if err := rows.Scan(
			&rec.RunID,
			&rec.Position,
			&rec.SourcePath,
			&rec.Kind,
			&outputPath,
			&subtitlePath,
			&rec.Cues,
			&failedStage,
			&errMessage,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		rec.OutputPath = outputPath.String
		rec.SubtitlePath = subtitlePath.String
		rec.FailedStage = failedStage.String
		rec.ErrorMessage = errMessage.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PruneBefore deletes runs that started before cutoff along with their
// outcomes. It returns the number of runs removed.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return n, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		model       sql.NullString
		language    sql.NullString
		task        sql.NullString
		srtOnly     int
		outputDir   sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&startedRaw,
		&finishedRaw,
		&model,
		&language,
		&task,
		&srtOnly,
		&outputDir,
		&run.Total,
		&run.Failed,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	run.Model = model.String
	run.Language = language.String
	run.Task = task.String
	run.SRTOnly = srtOnly != 0
	run.OutputDir = outputDir.String
	return run, nil
}

// timeLayout keeps a fixed fraction width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
