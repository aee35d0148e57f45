package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/api/schemas"
	"github.com/xkilldash9x/notecrawl/internal/extract"
)

// DBPool abstracts pgxpool.Pool so it can be mocked in tests.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema creates the mirror tables. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS crawl_runs (
    id           TEXT PRIMARY KEY,
    keyword      TEXT NOT NULL,
    crawled_at   TIMESTAMPTZ NOT NULL,
    search_count INT NOT NULL,
    detail_count INT NOT NULL,
    failed_count INT NOT NULL
);
CREATE TABLE IF NOT EXISTS notes (
    note_id        TEXT PRIMARY KEY,
    run_id         TEXT NOT NULL REFERENCES crawl_runs(id),
    title          TEXT NOT NULL,
    content        TEXT NOT NULL DEFAULT '',
    author         TEXT NOT NULL,
    author_id      TEXT NOT NULL,
    likes          INT NOT NULL,
    collects       INT NOT NULL DEFAULT 0,
    comments_count INT NOT NULL DEFAULT 0,
    shares         INT NOT NULL DEFAULT 0,
    note_type      TEXT NOT NULL,
    note_url       TEXT NOT NULL,
    publish_time   TEXT NOT NULL,
    tags           JSONB NOT NULL DEFAULT '[]',
    images         JSONB NOT NULL DEFAULT '[]',
    video_url      TEXT NOT NULL DEFAULT '',
    updated_at     TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS comments (
    comment_id  TEXT NOT NULL,
    note_id     TEXT NOT NULL,
    run_id      TEXT NOT NULL,
    user_name   TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    content     TEXT NOT NULL,
    likes       INT NOT NULL,
    time_text   TEXT NOT NULL,
    ip_location TEXT NOT NULL,
    PRIMARY KEY (run_id, comment_id)
);
`

const (
	sqlInsertRun = `
        INSERT INTO crawl_runs (id, keyword, crawled_at, search_count, detail_count, failed_count)
        VALUES ($1, $2, $3, $4, $5, $6);
    `
	sqlUpsertSummary = `
        INSERT INTO notes (note_id, run_id, title, author, author_id, likes, note_type, note_url, publish_time, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (note_id) DO UPDATE SET
            run_id = EXCLUDED.run_id,
            title = EXCLUDED.title,
            likes = EXCLUDED.likes,
            updated_at = EXCLUDED.updated_at;
    `
	sqlUpsertDetail = `
        INSERT INTO notes (note_id, run_id, title, content, author, author_id, likes, collects, comments_count, shares,
                           note_type, note_url, publish_time, tags, images, video_url, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        ON CONFLICT (note_id) DO UPDATE SET
            run_id = EXCLUDED.run_id,
            title = EXCLUDED.title,
            content = EXCLUDED.content,
            likes = EXCLUDED.likes,
            collects = EXCLUDED.collects,
            comments_count = EXCLUDED.comments_count,
            shares = EXCLUDED.shares,
            tags = EXCLUDED.tags,
            images = EXCLUDED.images,
            video_url = EXCLUDED.video_url,
            updated_at = EXCLUDED.updated_at;
    `
)

var commentColumns = []string{"comment_id", "note_id", "run_id", "user_name", "user_id", "content", "likes", "time_text", "ip_location"}

// Postgres mirrors finished runs into a database.
type Postgres struct {
	pool DBPool
	log  *zap.Logger
}

// Connect opens a pool for url and verifies the connection.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// NewPostgres creates the mirror on pool.
func NewPostgres(pool DBPool, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{pool: pool, log: logger.Named("store.postgres")}
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveAll writes run in a single transaction.
func (p *Postgres) SaveAll(ctx context.Context, run schemas.Run) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			p.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	at := run.CrawledAt.UTC()
	if _, err := tx.Exec(ctx, sqlInsertRun, run.ID, run.Keyword, at, len(run.Summaries), len(run.Details), run.Failed); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, s := range run.Summaries {
		if _, err := tx.Exec(ctx, sqlUpsertSummary,
			s.NoteID, run.ID, s.Title, s.Author, s.AuthorID, s.Likes,
			string(s.NoteType), extract.StripQuery(s.NoteURL), s.PublishTime, at,
		); err != nil {
			return fmt.Errorf("failed to upsert note %s: %w", s.NoteID, err)
		}
	}

	comments := 0
	for _, d := range run.Details {
		tags, err := jsoniter.Marshal(d.Tags)
		if err != nil {
			return err
		}
		images, err := jsoniter.Marshal(d.Images)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sqlUpsertDetail,
			d.NoteID, run.ID, d.Title, d.Content, d.Author, d.AuthorID,
			d.Likes, d.Collects, d.CommentsCount, d.Shares,
			string(d.NoteType), extract.BaseURL+"/explore/"+d.NoteID, d.PublishTime,
			tags, images, d.VideoURL, at,
		); err != nil {
			return fmt.Errorf("failed to upsert note detail %s: %w", d.NoteID, err)
		}
		comments += len(d.Comments)
	}

	if comments > 0 {
		if err := p.copyComments(ctx, tx, run, comments); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	p.log.Info("Run mirrored to database.", zap.String("run_id", run.ID), zap.Int("comments", comments))
	return nil
}

func (p *Postgres) copyComments(ctx context.Context, tx pgx.Tx, run schemas.Run, total int) error {
	rows := make([][]any, 0, total)
	for _, d := range run.Details {
		for _, c := range d.Comments {
			rows = append(rows, []any{
				c.CommentID, c.NoteID, run.ID, c.UserName, c.UserID,
				c.Content, c.Likes, c.Time, c.IPLocation,
			})
		}
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"comments"}, commentColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy comments: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("mismatch in copied comments count: expected %d, got %d", len(rows), n)
	}
	return nil
}
