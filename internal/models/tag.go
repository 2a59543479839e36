package models

import (
	"strings"
	"time"
)

type TagType string

const (
	ProjectTag TagType = "project"
	PersonTag  TagType = "person"
	AreaTag    TagType = "area"
)

// Valid reports whether t is one of the known tag types.
func (t TagType) Valid() bool {
	switch t {
	case ProjectTag, PersonTag, AreaTag:
		return true
	}
	return false
}

// Tag is a persistent semantic label attached to summaries.
// RelatedProjects and RelatedPeople hold plain names, not ids.
type Tag struct {
	UUID            string    `json:"uuid"`
	Name            string    `json:"name"`
	Type            TagType   `json:"type"`
	RelatedProjects []string  `json:"related_projects"`
	RelatedPeople   []string  `json:"related_people"`
	UsageCount      int       `json:"usage_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// Key returns the normalized name used for uniqueness checks.
func (t Tag) Key() string {
	return NormalizeTagName(t.Name)
}

// TagCandidate is an entity extracted from a summary that may become a Tag
type TagCandidate struct {
	Name            string   `json:"name"`
	Type            TagType  `json:"type"`
	RelatedProjects []string `json:"related_projects,omitempty"`
	RelatedPeople   []string `json:"related_people,omitempty"`
}

func (c TagCandidate) Key() string {
	return NormalizeTagName(c.Name)
}

// NewTag builds an unsaved Tag from a candidate with a usage count of 1.
func (c TagCandidate) NewTag() Tag {
	return Tag{
		Name:            strings.TrimSpace(c.Name),
		Type:            c.Type,
		RelatedProjects: nonNil(c.RelatedProjects),
		RelatedPeople:   nonNil(c.RelatedPeople),
		UsageCount:      1,
	}
}

// TagReconciliationResult is the outcome of one reconciliation run
type TagReconciliationResult struct {
	ExistingTags     []Tag `json:"existing_tags"`
	NewlyCreatedTags []Tag `json:"newly_created_tags"`
}

// NormalizeTagName trims and case-folds a tag name.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
