package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, run_id, video_path, started_at, finished_at, status, frames, keyframes, threshold, metric, error_message"

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// BeginRun records the start of an extraction.
func (s *Store) BeginRun(ctx context.Context, runID, videoPath string, threshold float64, metric string) (*Run, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, errors.New("run id is required")
	}
	now := time.Now().UTC()
	res, err := s.exec(ctx,
		`INSERT INTO runs (run_id, video_path, started_at, status, threshold, metric) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, videoPath, formatTime(now), StatusRunning, threshold, metric,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	return &Run{
		ID:        id,
		RunID:     runID,
		VideoPath: videoPath,
		StartedAt: now,
		Status:    StatusRunning,
		Threshold: threshold,
		Metric:    metric,
	}, nil
}

// FinishRun marks a run completed with its frame and key frame counts.
func (s *Store) FinishRun(ctx context.Context, runID string, frames, keyframes int) error {
	return s.closeRun(ctx, runID, StatusCompleted, frames, keyframes, "")
}

// FailRun marks a run stopped with status and the cause.
func (s *Store) FailRun(ctx context.Context, runID string, status Status, frames, keyframes int, cause error) error {
	if !status.IsTerminal() || status == StatusCompleted {
		status = StatusFailed
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.closeRun(ctx, runID, status, frames, keyframes, msg)
}

func (s *Store) closeRun(ctx context.Context, runID string, status Status, frames, keyframes int, msg string) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, frames = ?, keyframes = ?, error_message = ? WHERE run_id = ?`,
		formatTime(time.Now()), status, frames, keyframes, nullString(msg), runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun fetches a run by id.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		startedRaw  sql.NullString
		finishedRaw sql.NullString
		status      string
		errMsg      sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.RunID,
		&run.VideoPath,
		&startedRaw,
		&finishedRaw,
		&status,
		&run.Frames,
		&run.KeyFrames,
		&run.Threshold,
		&run.Metric,
		&errMsg,
	); err != nil {
		return nil, err
	}
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw)
	run.Status = Status(status)
	run.ErrorMessage = errMsg.String
	return &run, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
