package models

import "time"

// DailySummary is the persisted result of one workflow run
type DailySummary struct {
	Day          string    `json:"day"`
	SlackSummary string    `json:"slack_summary"`
	GmailSummary string    `json:"gmail_summary,omitempty"`
	Summary      string    `json:"summary"`
	Highlights   []string  `json:"highlights"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"created_at"`
}

// Document is a text indexed in the semantic search store
type Document struct {
	ID       string            `json:"id,omitempty"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score,omitempty"`
}
