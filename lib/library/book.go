package library

import (
	"strings"
)

const (
	maxTitleLen     = 1000
	maxAuthorLen    = 500
	maxGenreLen     = 50
	maxGenres       = 100
	maxPublisherLen = 200
)

// LiteraryAward is a prize a book has won or been nominated for.
type LiteraryAward struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Year     int    `json:"year,omitempty"`
}

// Book holds catalog metadata for a title, independent of any user.
// Construct through NewBook; a Book that came out of NewBook is never
// mutated afterwards.
type Book struct {
	GoodreadsID       string          `json:"goodreads_id"`
	Title             string          `json:"title"`
	Author            string          `json:"author"`
	AdditionalAuthors []string        `json:"additional_authors"`
	ISBN              string          `json:"isbn,omitempty"`
	ISBN13            string          `json:"isbn13,omitempty"`
	PublicationDate   string          `json:"publication_date,omitempty"`
	Publisher         string          `json:"publisher,omitempty"`
	PageCount         int             `json:"page_count,omitempty"`
	Language          string          `json:"language,omitempty"`
	Setting           string          `json:"setting,omitempty"`
	LiteraryAwards    []LiteraryAward `json:"literary_awards,omitempty"`
	Genres            []string        `json:"genres"`
	AverageRating     float64         `json:"average_rating,omitempty"`
	RatingsCount      int             `json:"ratings_count,omitempty"`
	CoverImageURL     string          `json:"cover_image_url,omitempty"`
	GoodreadsURL      string          `json:"goodreads_url"`
}

// BookParams carries the raw field values for NewBook. All optional fields
// may be left at their zero value.
type BookParams struct {
	GoodreadsID       string
	Title             string
	Author            string
	AdditionalAuthors []string
	ISBN              string
	ISBN13            string
	PublicationDate   string
	Publisher         string
	PageCount         int
	Language          string
	Setting           string
	LiteraryAwards    []LiteraryAward
	Genres            []string
	AverageRating     float64
	RatingsCount      int
	CoverImageURL     string
	GoodreadsURL      string
}

// NewBook validates and normalizes the params into an immutable Book.
func NewBook(p BookParams) (Book, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return Book{}, invalid("book.title", "must not be empty")
	}
	if len(title) > maxTitleLen {
		return Book{}, invalid("book.title", "exceeds %d chars: %d", maxTitleLen, len(title))
	}

	author := strings.TrimSpace(p.Author)
	if author == "" {
		return Book{}, invalid("book.author", "must not be empty")
	}
	if len(author) > maxAuthorLen {
		return Book{}, invalid("book.author", "exceeds %d chars: %d", maxAuthorLen, len(author))
	}

	if p.GoodreadsID == "" {
		return Book{}, invalid("book.goodreads_id", "must not be empty")
	}
	if p.GoodreadsURL == "" {
		return Book{}, invalid("book.goodreads_url", "must not be empty")
	}

	isbn, err := normalizeISBN(p.ISBN, 10)
	if err != nil {
		return Book{}, err
	}
	isbn13, err := normalizeISBN(p.ISBN13, 13)
	if err != nil {
		return Book{}, err
	}

	if p.AverageRating < 0 || p.AverageRating > 5 {
		return Book{}, invalid("book.average_rating", "out of range [0, 5]: %v", p.AverageRating)
	}
	if p.RatingsCount < 0 {
		return Book{}, invalid("book.ratings_count", "must not be negative: %d", p.RatingsCount)
	}

	pageCount := p.PageCount
	if pageCount < 0 {
		pageCount = 0
	}

	return Book{
		GoodreadsID:       p.GoodreadsID,
		Title:             title,
		Author:            author,
		AdditionalAuthors: p.AdditionalAuthors,
		ISBN:              isbn,
		ISBN13:            isbn13,
		PublicationDate:   strings.TrimSpace(p.PublicationDate),
		Publisher:         strings.TrimSpace(p.Publisher),
		PageCount:         pageCount,
		Language:          strings.TrimSpace(p.Language),
		Setting:           strings.TrimSpace(p.Setting),
		LiteraryAwards:    p.LiteraryAwards,
		Genres:            NormalizeGenres(p.Genres),
		AverageRating:     p.AverageRating,
		RatingsCount:      p.RatingsCount,
		CoverImageURL:     strings.TrimSpace(p.CoverImageURL),
		GoodreadsURL:      p.GoodreadsURL,
	}, nil
}

// normalizeISBN strips hyphens and spaces and checks the digit length.
// An empty input passes through as empty.
func normalizeISBN(raw string, wantLen int) (string, error) {
	if raw == "" {
		return "", nil
	}
	stripped := strings.NewReplacer("-", "", " ", "").Replace(raw)
	if len(stripped) != wantLen {
		return "", invalid("book.isbn", "expected %d chars, got %d (%q)", wantLen, len(stripped), raw)
	}
	for i, c := range stripped {
		if c >= '0' && c <= '9' {
			continue
		}
		// ISBN-10 check digit may be X
		if wantLen == 10 && i == 9 && (c == 'X' || c == 'x') {
			continue
		}
		return "", invalid("book.isbn", "non-digit character in %q", raw)
	}
	return stripped, nil
}

// NormalizeGenres lowercases, trims and truncates each tag to 50 chars,
// removes duplicates preserving first occurrence, and caps the list at 100
// entries. The operation is idempotent.
func NormalizeGenres(genres []string) []string {
	if len(genres) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(genres))
	var out []string
	for _, g := range genres {
		g = strings.ToLower(strings.TrimSpace(g))
		if len(g) > maxGenreLen {
			g = g[:maxGenreLen]
		}
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
		if len(out) == maxGenres {
			break
		}
	}
	return out
}
