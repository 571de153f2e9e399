package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AddKeyFrames stores the exported key frames of a run in one transaction.
func (s *Store) AddKeyFrames(ctx context.Context, runID string, frames []KeyFrame) error {
	if len(frames) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin keyframes tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO keyframes (run_id, ordinal, frame_index, start_ms, end_ms, quality, image_path, sha256)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare keyframe insert: %w", err)
		}
		defer stmt.Close()

		for _, kf := range frames {
			if _, err := stmt.ExecContext(ctx,
				runID, kf.Ordinal, kf.FrameIndex,
				kf.Start.Milliseconds(), kf.End.Milliseconds(), kf.Quality,
				nullString(kf.ImagePath), nullString(kf.SHA256),
			); err != nil {
				return fmt.Errorf("insert keyframe %d: %w", kf.Ordinal, err)
			}
		}
		return tx.Commit()
	})
}

// KeyFrames lists the key frames of a run in order.
func (s *Store) KeyFrames(ctx context.Context, runID string) ([]KeyFrame, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT run_id, ordinal, frame_index, start_ms, end_ms, quality, image_path, sha256
		 FROM keyframes WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, fmt.Errorf("list keyframes: %w", err)
	}
	defer rows.Close()

	var out []KeyFrame
	for rows.Next() {
		var (
			kf             KeyFrame
			startMS, endMS int64
			imagePath, sha sql.NullString
		)
		if err := rows.Scan(&kf.RunID, &kf.Ordinal, &kf.FrameIndex, &startMS, &endMS, &kf.Quality, &imagePath, &sha); err != nil {
			return nil, fmt.Errorf("scan keyframe: %w", err)
		}
		kf.Start = time.Duration(startMS) * time.Millisecond
		kf.End = time.Duration(endMS) * time.Millisecond
		kf.ImagePath = imagePath.String
		kf.SHA256 = sha.String
		out = append(out, kf)
	}
	return out, rows.Err()
}

// CachedDescription looks up a description by image digest and model.
func (s *Store) CachedDescription(ctx context.Context, sha256, model string) (Description, bool, error) {
	var (
		desc    Description
		created sql.NullString
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT sha256, model, summary, on_screen_text, created_at FROM descriptions WHERE sha256 = ? AND model = ?`,
		sha256, model,
	).Scan(&desc.SHA256, &desc.Model, &desc.Summary, &desc.OnScreenText, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Description{}, false, nil
	}
	if err != nil {
		return Description{}, false, fmt.Errorf("lookup description: %w", err)
	}
	desc.CreatedAt = parseTime(created)
	return desc, true, nil
}

// PutDescription stores or replaces a cached description.
func (s *Store) PutDescription(ctx context.Context, desc Description) error {
	if desc.SHA256 == "" || desc.Model == "" {
		return errors.New("description requires sha256 and model")
	}
	if desc.CreatedAt.IsZero() {
		desc.CreatedAt = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT OR REPLACE INTO descriptions (sha256, model, summary, on_screen_text, created_at) VALUES (?, ?, ?, ?, ?)`,
		desc.SHA256, desc.Model, desc.Summary, desc.OnScreenText, formatTime(desc.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("store description: %w", err)
	}
	return nil
}
