package library

import (
	"strings"
	"time"
)

const maxReviewLen = 50000

// ReadRecord is one read-through of a book. Both dates are optional; a
// record with neither date still counts as a read instance.
type ReadRecord struct {
	DateStarted  *time.Time `json:"date_started"`
	DateFinished *time.Time `json:"date_finished"`
}

// NewReadRecord rejects records whose start date falls after the finish date.
func NewReadRecord(started, finished *time.Time) (ReadRecord, error) {
	if started != nil && finished != nil && started.After(*finished) {
		return ReadRecord{}, invalid(
			"read_record", "date_started %s is after date_finished %s",
			started.Format(time.RFC3339), finished.Format(time.RFC3339),
		)
	}
	return ReadRecord{DateStarted: started, DateFinished: finished}, nil
}

// Review is the user's free-text review of a book. Text may be empty for
// rating-only reviews.
type Review struct {
	Text       string     `json:"review_text"`
	Date       *time.Time `json:"review_date"`
	LikesCount int        `json:"likes_count,omitempty"`
}

func NewReview(text string, date *time.Time, likes int) (Review, error) {
	if len(text) > maxReviewLen {
		return Review{}, invalid("review.text", "exceeds %d chars: %d", maxReviewLen, len(text))
	}
	if likes < 0 {
		return Review{}, invalid("review.likes_count", "must not be negative: %d", likes)
	}
	return Review{Text: text, Date: date, LikesCount: likes}, nil
}

// UserBookRelation joins one user to one Book: rating, reading status, shelf
// assignments, review and reading timeline. Owned exclusively by a Library.
type UserBookRelation struct {
	Book          Book          `json:"book"`
	UserRating    int           `json:"user_rating,omitempty"`
	ReadingStatus ReadingStatus `json:"reading_status,omitempty"`
	Shelves       []Shelf       `json:"shelves"`
	Review        *Review       `json:"review"`
	DateAdded     *time.Time    `json:"date_added"`
	ReadRecords   []ReadRecord  `json:"read_records"`
	ScrapedAt     *time.Time    `json:"scraped_at,omitempty"`
}

type UserBookParams struct {
	Book          Book
	UserRating    int
	ReadingStatus ReadingStatus
	Shelves       []Shelf
	Review        *Review
	DateAdded     *time.Time
	ReadRecords   []ReadRecord
	ScrapedAt     *time.Time
}

// NewUserBookRelation validates the relation and deduplicates shelves by
// case-insensitive name, keeping first occurrence. Construction fails if no
// shelf survives deduplication.
func NewUserBookRelation(p UserBookParams) (UserBookRelation, error) {
	if p.UserRating != 0 && (p.UserRating < 1 || p.UserRating > 5) {
		return UserBookRelation{}, invalid("user_book.user_rating", "out of range [1, 5]: %d", p.UserRating)
	}
	if p.ReadingStatus != "" {
		if _, ok := builtinShelves[string(p.ReadingStatus)]; !ok {
			return UserBookRelation{}, invalid("user_book.reading_status", "unknown status %q", p.ReadingStatus)
		}
	}

	seen := make(map[string]bool, len(p.Shelves))
	var shelves []Shelf
	for _, shelf := range p.Shelves {
		key := strings.ToLower(shelf.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		shelves = append(shelves, shelf)
	}
	if len(shelves) == 0 {
		return UserBookRelation{}, invalid("user_book.shelves", "at least one shelf is required")
	}

	return UserBookRelation{
		Book:          p.Book,
		UserRating:    p.UserRating,
		ReadingStatus: p.ReadingStatus,
		Shelves:       shelves,
		Review:        p.Review,
		DateAdded:     p.DateAdded,
		ReadRecords:   p.ReadRecords,
		ScrapedAt:     p.ScrapedAt,
	}, nil
}
