package tags

import (
	"context"
	"strings"

	"github.com/xaenox/daily-summarizer/internal/models"
	"github.com/xaenox/daily-summarizer/internal/storage"
	"go.uber.org/zap"
)

// Reconciler decides, for candidates extracted from a summary, which tags
// already exist and creates the missing ones through a Creator.
// Matching is exact on the normalized name; there is no fuzzy matching.
type Reconciler struct {
	store   storage.TagStore
	creator *Creator
	logger  *zap.Logger
}

func NewReconciler(store storage.TagStore, creator *Creator, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		creator: creator,
		logger:  logger,
	}
}

func (r *Reconciler) Creator() *Creator {
	return r.creator
}

// Reconcile reads the tag store once, splits candidates into existing and
// missing, and creates the missing ones.
func (r *Reconciler) Reconcile(ctx context.Context, candidates []models.TagCandidate) (*models.TagReconciliationResult, error) {
	existing, err := r.store.GetAll(ctx)
	if err != nil {
		r.logger.Error("Failed to get existing tags", zap.Error(err))
		return nil, err
	}

	valid := r.Normalize(candidates)
	result := &models.TagReconciliationResult{
		ExistingTags:     []models.Tag{},
		NewlyCreatedTags: []models.Tag{},
	}

	var missing []models.TagCandidate
	if len(existing) == 0 {
		missing = valid
	} else {
		byKey := make(map[string]models.Tag, len(existing))
		for _, t := range existing {
			byKey[t.Key()] = t
		}
		for _, c := range valid {
			if t, ok := byKey[c.Key()]; ok {
				result.ExistingTags = append(result.ExistingTags, t)
				continue
			}
			missing = append(missing, c)
		}
	}

	created, err := r.creator.Create(ctx, missing)
	if err != nil {
		return nil, err
	}
	result.NewlyCreatedTags = created

	r.logger.Info("Reconciled tags",
		zap.Int("candidates", len(candidates)),
		zap.Int("existing", len(result.ExistingTags)),
		zap.Int("created", len(result.NewlyCreatedTags)))

	return result, nil
}

// Normalize drops candidates without a name or with an unknown type and
// merges candidates sharing a normalized name, keeping first-seen order.
func (r *Reconciler) Normalize(candidates []models.TagCandidate) []models.TagCandidate {
	valid := make([]models.TagCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.Type.Valid() && strings.TrimSpace(c.Name) != "" {
			r.logger.Warn("Dropping tag candidate with unknown type",
				zap.String("name", c.Name),
				zap.String("type", string(c.Type)))
			continue
		}
		valid = append(valid, c)
	}
	return Merge(valid)
}

// Merge collapses candidates sharing a normalized name into the first one
// seen, uniting their related names. Candidates without a name are dropped.
func Merge(candidates []models.TagCandidate) []models.TagCandidate {
	var out []models.TagCandidate
	index := make(map[string]int, len(candidates))
	for _, c := range candidates {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		if i, ok := index[c.Key()]; ok {
			out[i].RelatedProjects = mergeNames(out[i].RelatedProjects, c.RelatedProjects)
			out[i].RelatedPeople = mergeNames(out[i].RelatedPeople, c.RelatedPeople)
			continue
		}
		index[c.Key()] = len(out)
		out = append(out, c)
	}
	return out
}

func mergeNames(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, name := range append(append([]string{}, a...), b...) {
		key := models.NormalizeTagName(name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(name))
	}
	return out
}
