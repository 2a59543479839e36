package classifier

import (
	"context"
	"strings"
	"unicode"

	"github.com/xaenox/daily-summarizer/internal/models"
)

// Extractor turns a daily summary into tag candidates.
type Extractor interface {
	ExtractTags(ctx context.Context, summary string) ([]models.TagCandidate, error)
}

// SimpleClassifier is the deterministic extractor used when the LLM is
// unavailable: #hashtags become projects and @handles become people.
type SimpleClassifier struct {
	maxTags int
}

func NewSimpleClassifier(maxTags int) *SimpleClassifier {
	return &SimpleClassifier{
		maxTags: maxTags,
	}
}

func (c *SimpleClassifier) ExtractTags(_ context.Context, summary string) ([]models.TagCandidate, error) {
	return c.Classify(summary), nil
}

// Classify extracts candidates in order of first appearance.
func (c *SimpleClassifier) Classify(content string) []models.TagCandidate {
	seen := make(map[string]struct{})
	var projects, people []string

	for _, word := range strings.Fields(content) {
		var tagType models.TagType
		switch {
		case strings.HasPrefix(word, "#"):
			tagType = models.ProjectTag
		case strings.HasPrefix(word, "@"):
			tagType = models.PersonTag
		default:
			continue
		}

		name := strings.TrimRightFunc(word[1:], func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if name == "" {
			continue
		}
		key := string(tagType) + ":" + models.NormalizeTagName(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if tagType == models.ProjectTag {
			projects = append(projects, name)
		} else {
			people = append(people, name)
		}
	}

	// Everything mentioned in one summary is treated as related.
	result := make([]models.TagCandidate, 0, len(projects)+len(people))
	for _, p := range projects {
		result = append(result, models.TagCandidate{
			Name:          p,
			Type:          models.ProjectTag,
			RelatedPeople: people,
		})
	}
	for _, p := range people {
		result = append(result, models.TagCandidate{
			Name:            p,
			Type:            models.PersonTag,
			RelatedProjects: projects,
		})
	}

	// Limit the number of tags
	if c.maxTags > 0 && len(result) > c.maxTags {
		result = result[:c.maxTags]
	}

	return result
}
