package library

import (
	"strconv"
	"strings"
	"time"
)

// SchemaVersion is the current export schema version.
const SchemaVersion = "1.0.0"

// Library is the root aggregate for one user's full catalog. It exclusively
// owns its relations; it is created once per scrape run and read-only
// afterwards.
type Library struct {
	UserID        string             `json:"user_id"`
	Username      string             `json:"username"`
	ProfileURL    string             `json:"profile_url"`
	UserBooks     []UserBookRelation `json:"user_books"`
	ScrapedAt     time.Time          `json:"scraped_at"`
	SchemaVersion string             `json:"schema_version"`
}

// NewLibrary assembles the aggregate, stamping the scrape time in UTC and
// the current schema version.
func NewLibrary(userID, username, profileURL string, books []UserBookRelation) (*Library, error) {
	if userID == "" {
		return nil, invalid("library.user_id", "must not be empty")
	}
	if username == "" {
		return nil, invalid("library.username", "must not be empty")
	}
	if profileURL == "" {
		return nil, invalid("library.profile_url", "must not be empty")
	}
	return &Library{
		UserID:        userID,
		Username:      username,
		ProfileURL:    profileURL,
		UserBooks:     books,
		ScrapedAt:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
	}, nil
}

// ValidateSchemaVersion checks a MAJOR.MINOR.PATCH numeric version string.
func ValidateSchemaVersion(v string) error {
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return invalid("library.schema_version", "expected MAJOR.MINOR.PATCH, got %q", v)
	}
	for _, part := range parts {
		if _, err := strconv.Atoi(part); err != nil || part == "" {
			return invalid("library.schema_version", "non-numeric part in %q", v)
		}
	}
	return nil
}

// TotalBooks is the number of catalog entries in the library.
func (l *Library) TotalBooks() int {
	return len(l.UserBooks)
}

func (l *Library) BooksByStatus(status ReadingStatus) []UserBookRelation {
	var out []UserBookRelation
	for _, ub := range l.UserBooks {
		if ub.ReadingStatus == status {
			out = append(out, ub)
		}
	}
	return out
}

func (l *Library) BooksByShelf(name string) []UserBookRelation {
	name = strings.ToLower(name)
	var out []UserBookRelation
	for _, ub := range l.UserBooks {
		for _, shelf := range ub.Shelves {
			if shelf.Name == name {
				out = append(out, ub)
				break
			}
		}
	}
	return out
}

func (l *Library) BooksWithRating(minRating int) []UserBookRelation {
	var out []UserBookRelation
	for _, ub := range l.UserBooks {
		if ub.UserRating >= minRating && ub.UserRating > 0 {
			out = append(out, ub)
		}
	}
	return out
}

func (l *Library) BooksWithReviews() []UserBookRelation {
	var out []UserBookRelation
	for _, ub := range l.UserBooks {
		if ub.Review != nil {
			out = append(out, ub)
		}
	}
	return out
}
