package slackfeed

import (
	"strings"

	"github.com/xaenox/daily-summarizer/internal/models"
)

// IsRelevant reports whether userID authored m or is mentioned in it.
// Mentions arrive as <@U123> or <@U123|label>.
func IsRelevant(m models.Message, userID string) bool {
	if userID == "" {
		return false
	}
	if m.AuthorID == userID {
		return true
	}
	return strings.Contains(m.Text, "<@"+userID+">") ||
		strings.Contains(m.Text, "<@"+userID+"|")
}

// FilterRelevant keeps the messages relevant to userID, preserving order.
func FilterRelevant(messages []models.Message, userID string) []models.Message {
	var relevant []models.Message
	for _, m := range messages {
		if IsRelevant(m, userID) {
			relevant = append(relevant, m)
		}
	}
	return relevant
}
