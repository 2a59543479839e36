package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/daily-summarizer/internal/metrics"
	"github.com/xaenox/daily-summarizer/internal/models"
)

// Notifier delivers a text message. Delivery failures are logged by the
// implementation and reported as false, never as an error.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, text string) bool
}

// Multi sends to every notifier in order.
type Multi []Notifier

func (m Multi) Name() string {
	names := make([]string, len(m))
	for i, n := range m {
		names[i] = n.Name()
	}
	return strings.Join(names, ",")
}

// Notify reports whether at least one notifier delivered the message.
func (m Multi) Notify(ctx context.Context, text string) bool {
	delivered := false
	for _, n := range m {
		if n.Notify(ctx, text) {
			delivered = true
		}
	}
	return delivered
}

// FormatSummary renders a daily summary as plain text.
func FormatSummary(s *models.DailySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily summary for %s\n\n", s.Day)
	if s.Summary != "" {
		b.WriteString(s.Summary)
		b.WriteString("\n")
	} else {
		b.WriteString("No activity found for this day.\n")
	}
	if len(s.Highlights) > 0 {
		b.WriteString("\nHighlights:\n")
		for _, h := range s.Highlights {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	if len(s.Tags) > 0 {
		tags := make([]string, len(s.Tags))
		for i, t := range s.Tags {
			tags[i] = "#" + strings.ReplaceAll(t, " ", "_")
		}
		fmt.Fprintf(&b, "\nTags: %s\n", strings.Join(tags, " "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func record(notifier string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	metrics.NotificationsSent.WithLabelValues(notifier, result).Inc()
}
