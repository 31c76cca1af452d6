package goodreads

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"goodreads-scraper/lib/library"
	"goodreads-scraper/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// ParseReviewPage extracts per-user state off a review ("status") page: the
// full shelf list, the reading timeline and the review body. Unlike the
// listing shelf cell, the shelf links here are complete, so this is the
// authoritative source for shelves.
func ParseReviewPage(doc *goquery.Document) ReviewPageFields {
	var fields ReviewPageFields

	fields.Shelves, fields.ReadingStatus = extractReviewShelves(doc)

	timeline := extractTimeline(doc)
	fields.ReadRecords = timeline.records
	fields.DateAdded = timeline.dateAdded
	if fields.ReadingStatus == "" {
		fields.ReadingStatus = timeline.status
	}

	fields.ReviewText = extractReviewText(doc)
	fields.ReviewDate = parseDate(textutil.Sanitize(
		doc.Find(`span[itemprop="datePublished"], span.reviewDate`).First().Text(), 0,
	))
	fields.ReviewLikes = extractLikesCount(doc)

	return fields
}

// extractReviewShelves collects the shelf slugs the book is filed under and
// derives the reading status from the first builtin status slug found.
func extractReviewShelves(doc *goquery.Document) (shelves []string, status string) {
	seen := map[string]bool{}
	doc.Find(`a[href*="shelf="]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		// only shelf links scoped to a user's list, not site-wide genre links
		if !strings.Contains(href, "/review/list") && !strings.Contains(href, "/list/") {
			return
		}
		slug := href[strings.Index(href, "shelf=")+len("shelf="):]
		slug = strings.SplitN(slug, "&", 2)[0]
		slug = strings.ToLower(strings.TrimSpace(slug))
		if slug == "" || slug == "all" || seen[slug] {
			return
		}
		seen[slug] = true
		shelves = append(shelves, slug)
		if status == "" {
			if s, ok := library.StatusFromShelf(slug); ok {
				status = string(s)
			}
		}
	})
	return shelves, status
}

// timelineState is the outcome of walking the reading timeline.
type timelineState struct {
	records   []RawReadRecord
	dateAdded *time.Time
	status    string
}

// extractTimeline walks the reading timeline, which renders newest-first.
// Each "Finished Reading" pairs with the next (older) "Started Reading";
// a start with no finish above it is an in-progress read. The oldest
// "Shelved" entry is when the book entered the library. Records come back
// oldest-first so the last one is the most recent read-through.
func extractTimeline(doc *goquery.Document) timelineState {
	var state timelineState
	var pending *RawReadRecord

	doc.Find(".readingTimeline__text").Each(func(_ int, entry *goquery.Selection) {
		text := textutil.Sanitize(entry.Text(), 0)
		date, event := splitTimelineEntry(text)

		switch {
		case strings.EqualFold(event, "Finished Reading"):
			state.records = append(state.records, RawReadRecord{DateFinished: date})
			pending = &state.records[len(state.records)-1]
		case strings.EqualFold(event, "Started Reading"):
			if pending != nil && pending.DateStarted == nil {
				pending.DateStarted = date
				pending = nil
			} else {
				state.records = append(state.records, RawReadRecord{DateStarted: date})
			}
		case strings.HasPrefix(strings.ToLower(event), "shelved"):
			// keep overwriting so the oldest entry wins
			if date != nil {
				state.dateAdded = date
			}
			lowered := strings.ToLower(event)
			if idx := strings.Index(lowered, "shelved as \""); idx >= 0 {
				slug := lowered[idx+len("shelved as \""):]
				slug = strings.SplitN(slug, "\"", 2)[0]
				if s, ok := library.StatusFromShelf(slug); ok && state.status == "" {
					state.status = string(s)
				}
			}
		}
	})

	for i, j := 0, len(state.records)-1; i < j; i, j = i+1, j-1 {
		state.records[i], state.records[j] = state.records[j], state.records[i]
	}
	return state
}

// splitTimelineEntry separates "March 5, 2020 – Started Reading" into its
// date and event halves. Some entries carry no date ("Started Reading" on
// its own).
func splitTimelineEntry(text string) (*time.Time, string) {
	for _, sep := range []string{"–", "-", "—"} {
		parts := strings.SplitN(text, sep, 2)
		if len(parts) != 2 {
			continue
		}
		if date := parseDate(strings.TrimSpace(parts[0])); date != nil {
			return date, strings.TrimSpace(parts[1])
		}
	}
	return nil, text
}

// extractReviewText pulls the review body, preferring the expanded
// container over the truncated preview span.
func extractReviewText(doc *goquery.Document) string {
	review := doc.Find(`div.reviewText span[id^="freeText"]`)
	var longest string
	review.Each(func(_ int, span *goquery.Selection) {
		text := textutil.Sanitize(span.Text(), 0)
		if len(text) > len(longest) {
			longest = text
		}
	})
	if longest == "" {
		longest = textutil.Sanitize(doc.Find(`div[itemprop="reviewBody"]`).First().Text(), 0)
	}
	return longest
}

var likesRegex = regexp.MustCompile(`([\d,]+)\s+likes?`)

func extractLikesCount(doc *goquery.Document) int {
	text := strings.ToLower(doc.Find("a.likesCount, span.likesCount").First().Text())
	if match := likesRegex.FindStringSubmatch(text); match != nil {
		n, _ := strconv.Atoi(strings.ReplaceAll(match[1], ",", ""))
		return n
	}
	return 0
}
