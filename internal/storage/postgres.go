package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq keyword/value connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewPostgresStorage(ctx context.Context, config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger, now: time.Now}

	if err := storage.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

const tagColumns = `uuid, name, type, related_projects, related_people, usage_count, created_at`

func (s *PostgresStorage) GetAll(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY created_at, name`)
	if err != nil {
		return nil, apperr.Upstream("query tags", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("query tags", err)
	}
	return tags, nil
}

func (s *PostgresStorage) GetByID(ctx context.Context, id string) (models.Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE uuid = $1`, id)
	tag, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Tag{}, fmt.Errorf("tag %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Tag{}, apperr.Upstream("get tag", err)
	}
	return tag, nil
}

func (s *PostgresStorage) CreateOne(ctx context.Context, tag models.Tag) (models.Tag, error) {
	created, err := s.BulkCreate(ctx, []models.Tag{tag})
	if err != nil {
		return models.Tag{}, err
	}
	return created[0], nil
}

// BulkCreate inserts all tags in one transaction.
func (s *PostgresStorage) BulkCreate(ctx context.Context, tags []models.Tag) ([]models.Tag, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Persistence("begin tag batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tags (uuid, name, name_key, type, related_projects, related_people, usage_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return nil, apperr.Persistence("prepare tag insert", err)
	}
	defer stmt.Close()

	now := s.now()
	created := make([]models.Tag, 0, len(tags))
	for _, t := range tags {
		t = stamp(t, now)
		_, err := stmt.ExecContext(ctx,
			t.UUID,
			t.Name,
			t.Key(),
			string(t.Type),
			pq.Array(t.RelatedProjects),
			pq.Array(t.RelatedPeople),
			t.UsageCount,
			t.CreatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				err = fmt.Errorf("%w: %q", ErrDuplicateTag, t.Name)
			}
			return nil, apperr.Persistence("insert tag", err)
		}
		created = append(created, t)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Persistence("commit tag batch", err)
	}

	s.logger.Info("Wrote tags", zap.Int("count", len(created)))
	return created, nil
}

// SaveSummary upserts by day so retried runs overwrite instead of failing.
func (s *PostgresStorage) SaveSummary(ctx context.Context, summary *models.DailySummary) error {
	createdAt := summary.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_summaries (day, slack_summary, gmail_summary, summary, highlights, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (day) DO UPDATE SET
			slack_summary = EXCLUDED.slack_summary,
			gmail_summary = EXCLUDED.gmail_summary,
			summary = EXCLUDED.summary,
			highlights = EXCLUDED.highlights,
			tags = EXCLUDED.tags,
			created_at = EXCLUDED.created_at`,
		summary.Day,
		summary.SlackSummary,
		summary.GmailSummary,
		summary.Summary,
		pq.Array(summary.Highlights),
		pq.Array(summary.Tags),
		createdAt,
	)
	if err != nil {
		return apperr.Persistence("save summary", err)
	}
	return nil
}

func (s *PostgresStorage) GetSummary(ctx context.Context, day string) (*models.DailySummary, error) {
	summary := &models.DailySummary{}
	err := s.db.QueryRowContext(ctx, `
		SELECT day, slack_summary, gmail_summary, summary, highlights, tags, created_at
		FROM daily_summaries
		WHERE day = $1`, day).Scan(
		&summary.Day,
		&summary.SlackSummary,
		&summary.GmailSummary,
		&summary.Summary,
		pq.Array(&summary.Highlights),
		pq.Array(&summary.Tags),
		&summary.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("summary %s: %w", day, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Upstream("get summary", err)
	}
	return summary, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTag(row rowScanner) (models.Tag, error) {
	var (
		tag     models.Tag
		tagType string
	)
	err := row.Scan(
		&tag.UUID,
		&tag.Name,
		&tagType,
		pq.Array(&tag.RelatedProjects),
		pq.Array(&tag.RelatedPeople),
		&tag.UsageCount,
		&tag.CreatedAt,
	)
	if err != nil {
		return models.Tag{}, err
	}
	tag.Type = models.TagType(tagType)
	return tag, nil
}
