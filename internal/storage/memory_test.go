package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/models"
)

func TestMemoryStorage_TagOperations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	t.Run("GetAllEmpty", func(t *testing.T) {
		tags, err := store.GetAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, tags)
		assert.Empty(t, tags)
	})

	t.Run("CreateOne", func(t *testing.T) {
		tag, err := store.CreateOne(ctx, models.Tag{
			Name:          "Project-X",
			Type:          models.ProjectTag,
			RelatedPeople: []string{"Alice"},
		})
		require.NoError(t, err)

		_, parseErr := uuid.Parse(tag.UUID)
		assert.NoError(t, parseErr)
		assert.Equal(t, 1, tag.UsageCount)
		assert.Equal(t, time.UTC, tag.CreatedAt.Location())
		assert.WithinDuration(t, time.Now(), tag.CreatedAt, time.Second)
		assert.Equal(t, []string{}, tag.RelatedProjects)
		assert.Equal(t, []string{"Alice"}, tag.RelatedPeople)
	})

	t.Run("BulkCreate", func(t *testing.T) {
		created, err := store.BulkCreate(ctx, []models.Tag{
			{Name: "Alice", Type: models.PersonTag},
			{Name: "Billing", Type: models.AreaTag},
		})
		require.NoError(t, err)
		require.Len(t, created, 2)
		assert.NotEqual(t, created[0].UUID, created[1].UUID)
		assert.Equal(t, created[0].CreatedAt, created[1].CreatedAt)

		all, err := store.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Project-X", all[0].Name)
		assert.Equal(t, "Billing", all[2].Name)
	})

	t.Run("BulkCreateRejectsDuplicates", func(t *testing.T) {
		_, err := store.BulkCreate(ctx, []models.Tag{
			{Name: "Zeta", Type: models.ProjectTag},
			{Name: "  project-x ", Type: models.ProjectTag},
		})
		assert.ErrorIs(t, err, apperr.ErrPersistence)

		all, err := store.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3, "failed batch must not write partially")
	})

	t.Run("GetByID", func(t *testing.T) {
		all, err := store.GetAll(ctx)
		require.NoError(t, err)

		tag, err := store.GetByID(ctx, all[1].UUID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", tag.Name)

		_, err = store.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestMemoryStorage_Summaries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	_, err := store.GetSummary(ctx, "2024-01-01")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, store.SaveSummary(ctx, &models.DailySummary{Day: "2024-01-01", Summary: "first"}))
	require.NoError(t, store.SaveSummary(ctx, &models.DailySummary{Day: "2024-01-01", Summary: "retried"}))

	got, err := store.GetSummary(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, "retried", got.Summary)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "digest", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=digest sslmode=disable", cfg.DSN())
}
