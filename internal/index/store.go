package index

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"autocaption/internal/export"
	"autocaption/internal/keyframe"
	"autocaption/internal/logging"
	"autocaption/internal/services"
)

// DefaultTable holds slide fingerprints unless configured otherwise.
const DefaultTable = "slide_frames"

// Store is a pgvector-backed slide index.
type Store struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// Match is one search hit.
type Match struct {
	Video      string
	RunID      string
	Ordinal    int
	FrameIndex int
	Start      time.Duration
	End        time.Duration
	ImagePath  string
	Similarity float64
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn, table string, logger *slog.Logger) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, services.Wrap(services.ErrConfiguration, "index", "open", "dsn is required", nil)
	}
	if table = strings.TrimSpace(table); table == "" {
		table = DefaultTable
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "index", "open", "parse dsn", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, services.Wrap(services.ErrExternalTool, "index", "ping", "", err)
	}
	return &Store{
		pool:   pool,
		table:  table,
		logger: logging.NewComponentLogger(logger, "index"),
	}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// EnsureSchema creates the vector extension, table, and index if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return services.Wrap(services.ErrExternalTool, "index", "create extension", "", err)
	}
	table := s.ident()
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id BIGSERIAL PRIMARY KEY,
			video TEXT NOT NULL,
			run_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			frame_index INTEGER NOT NULL,
			start_ms BIGINT NOT NULL,
			end_ms BIGINT NOT NULL,
			image_path TEXT,
			fingerprint vector(%[2]d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (video, ordinal)
		);
		CREATE INDEX IF NOT EXISTS %[3]s ON %[1]s USING hnsw (fingerprint vector_cosine_ops);`,
		table, Dimensions, pgx.Identifier{s.table + "_fingerprint_idx"}.Sanitize())
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return services.Wrap(services.ErrExternalTool, "index", "create table", s.table, err)
	}
	return nil
}

// Export replaces the indexed slides of job.Video with kfs.
func (s *Store) Export(ctx context.Context, job export.Job, kfs []keyframe.KeyFrame) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "index", "begin", "", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	table := s.ident()
	batch := &pgx.Batch{}
	batch.Queue(fmt.Sprintf("DELETE FROM %s WHERE video = $1", table), job.Video)
	insert := fmt.Sprintf(`INSERT INTO %s (video, run_id, ordinal, frame_index, start_ms, end_ms, image_path, fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, table)
	for ordinal, kf := range kfs {
		if kf.Frame.Image == nil {
			continue
		}
		var imagePath *string
		if art, ok := job.Artifacts.Frame(ordinal); ok {
			imagePath = &art.Path
		}
		batch.Queue(insert,
			job.Video, job.RunID, ordinal, kf.Index(),
			kf.Start.Milliseconds(), kf.End.Milliseconds(),
			imagePath, Fingerprint(kf.Frame.Image),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return services.Wrap(services.ErrExternalTool, "index", "insert", job.Video, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return services.Wrap(services.ErrExternalTool, "index", "commit", job.Video, err)
	}
	s.logger.Info("slides indexed",
		logging.String("video", job.Video),
		logging.Int("slides", len(kfs)),
	)
	return nil
}

// Search returns up to limit indexed slides closest to img.
func (s *Store) Search(ctx context.Context, img image.Image, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 10
	}
	query := Fingerprint(img)
	if IsZero(query) {
		return nil, services.Wrap(services.ErrValidation, "index", "search", "image has no visible structure", nil)
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT video, run_id, ordinal, frame_index, start_ms, end_ms, COALESCE(image_path, ''),
		       1 - (fingerprint <=> $1) AS similarity
		FROM %s
		ORDER BY fingerprint <=> $1
		LIMIT $2`, s.ident()), query, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "index", "search", "", err)
	}
	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Match, error) {
		var (
			m              Match
			startMs, endMs int64
		)
		err := row.Scan(&m.Video, &m.RunID, &m.Ordinal, &m.FrameIndex, &startMs, &endMs, &m.ImagePath, &m.Similarity)
		m.Start = time.Duration(startMs) * time.Millisecond
		m.End = time.Duration(endMs) * time.Millisecond
		return m, err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, services.Cancelled("index", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "index", "scan", "", err)
	}
	return matches, nil
}
