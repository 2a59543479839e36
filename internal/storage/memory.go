package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/models"
)

type MemoryStorage struct {
	mu        sync.RWMutex
	tags      map[string]models.Tag
	order     []string
	names     map[string]string
	summaries map[string]*models.DailySummary
	now       func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tags:      make(map[string]models.Tag),
		names:     make(map[string]string),
		summaries: make(map[string]*models.DailySummary),
		now:       time.Now,
	}
}

// Tag methods
func (s *MemoryStorage) GetAll(ctx context.Context) ([]models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := make([]models.Tag, 0, len(s.order))
	for _, id := range s.order {
		tags = append(tags, s.tags[id])
	}
	return tags, nil
}

func (s *MemoryStorage) CreateOne(ctx context.Context, tag models.Tag) (models.Tag, error) {
	created, err := s.BulkCreate(ctx, []models.Tag{tag})
	if err != nil {
		return models.Tag{}, err
	}
	return created[0], nil
}

// BulkCreate writes all tags or none.
func (s *MemoryStorage) BulkCreate(ctx context.Context, tags []models.Tag) ([]models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		key := t.Key()
		if _, exists := s.names[key]; exists {
			return nil, apperr.Persistence("bulk create tags", fmt.Errorf("%w: %q", ErrDuplicateTag, t.Name))
		}
		if _, dup := seen[key]; dup {
			return nil, apperr.Persistence("bulk create tags", fmt.Errorf("%w: %q", ErrDuplicateTag, t.Name))
		}
		seen[key] = struct{}{}
	}

	now := s.now()
	created := make([]models.Tag, 0, len(tags))
	for _, t := range tags {
		t = stamp(t, now)
		s.tags[t.UUID] = t
		s.names[t.Key()] = t.UUID
		s.order = append(s.order, t.UUID)
		created = append(created, t)
	}
	return created, nil
}

func (s *MemoryStorage) GetByID(ctx context.Context, id string) (models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tag, exists := s.tags[id]; exists {
		return tag, nil
	}
	return models.Tag{}, fmt.Errorf("tag %s: %w", id, apperr.ErrNotFound)
}

// Summary methods
func (s *MemoryStorage) SaveSummary(ctx context.Context, summary *models.DailySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *summary
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = s.now().UTC()
	}
	s.summaries[summary.Day] = &copied
	return nil
}

func (s *MemoryStorage) GetSummary(ctx context.Context, day string) (*models.DailySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if summary, exists := s.summaries[day]; exists {
		copied := *summary
		return &copied, nil
	}
	return nil, fmt.Errorf("summary %s: %w", day, apperr.ErrNotFound)
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
