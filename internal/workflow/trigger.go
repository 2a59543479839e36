package workflow

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/window"
)

type dayDetail struct {
	Day string `json:"day"`
}

type triggerEvent struct {
	Body   *string    `json:"body"`
	Detail *dayDetail `json:"detail"`
	Day    string     `json:"day"`
}

// ParseTrigger extracts the requested day from an invocation payload. It
// accepts {"body": "<json string>"} from an HTTP proxy, {"detail": {"day": ...}}
// from an event bus, or {"day": ...}. A missing day means today in loc.
func ParseTrigger(raw []byte, loc *time.Location) (string, error) {
	day, err := dayFrom(raw, 0)
	if err != nil {
		return "", err
	}
	if day == "" {
		return window.Today(loc), nil
	}
	if _, err := window.Resolve(day, loc); err != nil {
		return "", err
	}
	return day, nil
}

func dayFrom(raw []byte, depth int) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var ev triggerEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return "", apperr.InvalidInput("malformed trigger payload: %v", err)
	}

	if ev.Body != nil && depth == 0 {
		day, err := dayFrom([]byte(*ev.Body), depth+1)
		if err != nil {
			return "", apperr.InvalidInput("malformed request body")
		}
		if day != "" {
			return day, nil
		}
	}
	if ev.Detail != nil && strings.TrimSpace(ev.Detail.Day) != "" {
		return strings.TrimSpace(ev.Detail.Day), nil
	}
	return strings.TrimSpace(ev.Day), nil
}
