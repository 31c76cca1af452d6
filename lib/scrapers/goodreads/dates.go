package goodreads

import (
	"strings"
	"time"
)

// date layouts seen across listing cells and timeline entries
var dateLayouts = []string{
	"Jan 02, 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"January 02, 2006",
	"2006-01-02",
	time.RFC3339,
}

// parseDate tries the known goodreads date renderings; unparseable or empty
// text maps to nil rather than an error.
func parseDate(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, text)
		if err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}
