package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/daily-summarizer/internal/models"
)

// ErrDuplicateTag is wrapped when a tag with the same normalized name exists.
var ErrDuplicateTag = errors.New("duplicate tag name")

// TagStore persists semantic tags. Every create stamps a fresh UUID and a UTC
// creation time; GetByID wraps apperr.ErrNotFound for unknown ids.
type TagStore interface {
	GetAll(ctx context.Context) ([]models.Tag, error)
	CreateOne(ctx context.Context, tag models.Tag) (models.Tag, error)
	BulkCreate(ctx context.Context, tags []models.Tag) ([]models.Tag, error)
	GetByID(ctx context.Context, id string) (models.Tag, error)
}

type SummaryStore interface {
	SaveSummary(ctx context.Context, summary *models.DailySummary) error
	GetSummary(ctx context.Context, day string) (*models.DailySummary, error)
}

type Storage interface {
	TagStore
	SummaryStore
	Close() error
}

func stamp(tag models.Tag, now time.Time) models.Tag {
	tag.UUID = uuid.New().String()
	tag.CreatedAt = now.UTC()
	if tag.UsageCount == 0 {
		tag.UsageCount = 1
	}
	if tag.RelatedProjects == nil {
		tag.RelatedProjects = []string{}
	}
	if tag.RelatedPeople == nil {
		tag.RelatedPeople = []string{}
	}
	return tag
}
