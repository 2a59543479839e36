package tags

import (
	"context"
	"sync"

	"github.com/xaenox/daily-summarizer/internal/metrics"
	"github.com/xaenox/daily-summarizer/internal/models"
	"github.com/xaenox/daily-summarizer/internal/storage"
	"go.uber.org/zap"
)

// Creator writes new tags at most once per run. After the first successful
// write every further Create returns the cached result without touching the
// store, until Reset is called. Callers own the run boundary: forgetting Reset
// makes the next run silently reuse the previous run's tags.
type Creator struct {
	mu         sync.Mutex
	store      storage.TagStore
	logger     *zap.Logger
	usageCount int
	cached     []models.Tag
}

func NewCreator(store storage.TagStore, logger *zap.Logger) *Creator {
	return &Creator{
		store:  store,
		logger: logger,
	}
}

// Create persists candidates as new tags with a usage count of 1.
// A failed write does not consume the run's single creation.
func (c *Creator) Create(ctx context.Context, candidates []models.TagCandidate) ([]models.Tag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.usageCount > 0 {
		c.usageCount++
		c.logger.Warn("Tag creation already done in this run, returning cached result",
			zap.Int("usage_count", c.usageCount),
			zap.Int("cached", len(c.cached)),
			zap.Int("requested", len(candidates)))
		return cloneTags(c.cached), nil
	}

	if len(candidates) == 0 {
		return []models.Tag{}, nil
	}

	newTags := make([]models.Tag, 0, len(candidates))
	for _, candidate := range candidates {
		newTags = append(newTags, candidate.NewTag())
	}

	created, err := c.store.BulkCreate(ctx, newTags)
	if err != nil {
		c.logger.Error("Failed to create tags",
			zap.Error(err),
			zap.Int("count", len(newTags)))
		return nil, err
	}

	c.usageCount++
	c.cached = created
	metrics.TagsCreated.Add(float64(len(created)))
	c.logger.Info("Created tags", zap.Int("count", len(created)))

	return cloneTags(created), nil
}

// Reset clears the usage counter and the cached result. Call it between runs.
func (c *Creator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.usageCount = 0
	c.cached = nil
}

func (c *Creator) UsageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usageCount
}

func cloneTags(tags []models.Tag) []models.Tag {
	out := make([]models.Tag, len(tags))
	copy(out, tags)
	return out
}
