package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ContentRepository stores chapter content records.
type ContentRepository interface {
	GetContent(ctx context.Context, key string) (*model.ChapterContent, error)
	// SaveContent upserts the record under its key.
	SaveContent(ctx context.Context, c *model.ChapterContent) error
	// ListQuestionPools aggregates MCQ pools by subject for one scope,
	// feeding the daily challenge composer.
	ListQuestionPools(ctx context.Context, board, classLevel, stream string) (map[string][]model.MCQItem, error)
}

type contentRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewContentRepo creates a new ContentRepository.
func NewContentRepo(pool *pgxpool.Pool, logger zerolog.Logger) ContentRepository {
	return &contentRepo{pool: pool, logger: logger}
}

func (r *contentRepo) GetContent(ctx context.Context, key string) (*model.ChapterContent, error) {
	const q = `SELECT doc FROM chapter_contents WHERE content_key = $1`
	var doc []byte
	if err := r.pool.QueryRow(ctx, q, key).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching content %s: %w", key, err)
	}
	var c model.ChapterContent
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, fmt.Errorf("unmarshal content %s: %w", key, err)
	}
	return &c, nil
}

func (r *contentRepo) SaveContent(ctx context.Context, c *model.ChapterContent) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal content %s: %w", c.Key, err)
	}
	const q = `
        INSERT INTO chapter_contents (content_key, board, class_level, stream, subject_name, chapter_id, doc, generated, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
        ON CONFLICT (content_key) DO UPDATE
        SET doc = EXCLUDED.doc,
            generated = EXCLUDED.generated,
            updated_at = NOW()
    `
	if _, err := r.pool.Exec(ctx, q, c.Key, c.Board, c.ClassLevel, c.Stream, c.SubjectName, c.ChapterID, doc, c.Generated); err != nil {
		return fmt.Errorf("saving content %s: %w", c.Key, err)
	}
	return nil
}

func (r *contentRepo) ListQuestionPools(ctx context.Context, board, classLevel, stream string) (map[string][]model.MCQItem, error) {
	const q = `
        SELECT doc FROM chapter_contents
        WHERE board = $1 AND class_level = $2 AND stream = $3
    `
	rows, err := r.pool.Query(ctx, q, board, classLevel, stream)
	if err != nil {
		return nil, fmt.Errorf("listing question pools: %w", err)
	}
	defer rows.Close()

	pools := make(map[string][]model.MCQItem)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning question pool row: %w", err)
		}
		var c model.ChapterContent
		if err := json.Unmarshal(doc, &c); err != nil {
			// One malformed record should not sink the whole challenge.
			r.logger.Warn().Err(err).Msg("Skipping malformed content record")
			continue
		}
		subject := c.SubjectName
		if subject == "" {
			subject = "General"
		}
		pools[subject] = append(pools[subject], c.ManualMCQs...)
		pools[subject] = append(pools[subject], c.WeeklyTestMCQs...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing question pools: %w", err)
	}
	return pools, nil
}
