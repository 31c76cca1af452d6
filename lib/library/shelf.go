package library

import "strings"

// ReadingStatus is one of the builtin reading-status shelves on Goodreads.
type ReadingStatus string

const (
	StatusRead             ReadingStatus = "read"
	StatusCurrentlyReading ReadingStatus = "currently-reading"
	StatusToRead           ReadingStatus = "to-read"
	StatusDidNotFinish     ReadingStatus = "did-not-finish"
	StatusPaused           ReadingStatus = "paused"
	StatusReference        ReadingStatus = "reference"
	StatusToReadNext       ReadingStatus = "to-read-next"
	StatusToReadOwned      ReadingStatus = "to-read-owned"
)

var builtinShelves = map[string]ReadingStatus{
	"read":              StatusRead,
	"currently-reading": StatusCurrentlyReading,
	"to-read":           StatusToRead,
	"did-not-finish":    StatusDidNotFinish,
	"paused":            StatusPaused,
	"reference":         StatusReference,
	"to-read-next":      StatusToReadNext,
	"to-read-owned":     StatusToReadOwned,
}

// StatusFromShelf maps a shelf slug to its reading status.
// Custom shelves return ok=false.
func StatusFromShelf(slug string) (ReadingStatus, bool) {
	status, ok := builtinShelves[strings.ToLower(strings.TrimSpace(slug))]
	return status, ok
}

func IsBuiltinShelf(name string) bool {
	_, ok := builtinShelves[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Shelf is a named category a book is filed under for one user, either one
// of the builtin reading-status shelves or a user-defined shelf.
type Shelf struct {
	Name      string `json:"name"`
	IsBuiltin bool   `json:"is_builtin"`
	BookCount int    `json:"book_count,omitempty"`
}

// NewShelf normalizes the shelf name to lowercase and rejects names outside
// the 1-200 char range after trimming.
func NewShelf(name string) (Shelf, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return Shelf{}, invalid("shelf.name", "must not be empty")
	}
	if len(normalized) > 200 {
		return Shelf{}, invalid("shelf.name", "exceeds 200 chars: %d", len(normalized))
	}
	return Shelf{
		Name:      normalized,
		IsBuiltin: IsBuiltinShelf(normalized),
	}, nil
}

// ShelfFromStatus builds the builtin shelf backing a reading status.
func ShelfFromStatus(status ReadingStatus) Shelf {
	return Shelf{Name: string(status), IsBuiltin: true}
}
