package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"goodreads-scraper/lib/library"
)

// csvHeader is the fixed column contract. Order and names are stable across
// releases; downstream spreadsheets key on them.
var csvHeader = []string{
	"user_id",
	"username",
	"goodreads_book_id",
	"title",
	"author",
	"additional_authors",
	"isbn",
	"isbn13",
	"publication_year",
	"publisher",
	"page_count",
	"language",
	"genres",
	"average_rating",
	"ratings_count",
	"user_rating",
	"reading_status",
	"shelf_name",
	"is_builtin_shelf",
	"has_review",
	"review_text_preview",
	"review_date",
	"likes_count",
	"date_added",
	"date_started",
	"date_finished",
	"scraped_at",
	"schema_version",
}

const (
	csvTimeLayout = "2006-01-02T15:04:05Z"
	// review text gets truncated in the flat export; the full text lives in
	// the JSON export
	maxReviewPreview = 1000
)

// WriteCSV renders the library as a flat CSV, one row per (book, shelf)
// pair. The stream is prefixed with a UTF-8 BOM so spreadsheet apps decode
// it correctly.
func WriteCSV(w io.Writer, lib *library.Library) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, ub := range lib.UserBooks {
		for _, shelf := range ub.Shelves {
			if err := cw.Write(csvRow(lib, ub, shelf)); err != nil {
				return fmt.Errorf("write row for %q: %w", ub.Book.Title, err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the CSV export to path, creating or truncating it.
func WriteCSVFile(path string, lib *library.Library) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteCSV(f, lib); err != nil {
		return err
	}
	return f.Close()
}

func csvRow(lib *library.Library, ub library.UserBookRelation, shelf library.Shelf) []string {
	book := ub.Book

	var started, finished *time.Time
	if len(ub.ReadRecords) > 0 {
		// the last record is the most recent read-through
		last := ub.ReadRecords[len(ub.ReadRecords)-1]
		started, finished = last.DateStarted, last.DateFinished
	}

	scrapedAt := lib.ScrapedAt
	if ub.ScrapedAt != nil {
		scrapedAt = *ub.ScrapedAt
	}

	return []string{
		lib.UserID,
		lib.Username,
		book.GoodreadsID,
		book.Title,
		book.Author,
		strings.Join(book.AdditionalAuthors, "|"),
		book.ISBN,
		book.ISBN13,
		publicationYear(book.PublicationDate),
		book.Publisher,
		formatInt(book.PageCount),
		book.Language,
		strings.Join(book.Genres, "|"),
		formatFloat(book.AverageRating),
		formatInt(book.RatingsCount),
		formatInt(ub.UserRating),
		string(ub.ReadingStatus),
		shelf.Name,
		strconv.FormatBool(shelf.IsBuiltin),
		strconv.FormatBool(ub.Review != nil),
		reviewPreview(ub.Review),
		formatTimePtr(reviewDate(ub.Review)),
		reviewLikes(ub.Review),
		formatTimePtr(ub.DateAdded),
		formatTimePtr(started),
		formatTimePtr(finished),
		scrapedAt.UTC().Format(csvTimeLayout),
		lib.SchemaVersion,
	}
}

var yearRegex = regexp.MustCompile(`\b(\d{4})\b`)

// publicationYear pulls a 4-digit year out of the free-form publication
// date text.
func publicationYear(date string) string {
	return yearRegex.FindString(date)
}

// reviewPreview caps the text at exactly maxReviewPreview chars, the last
// three being the "..." marker.
func reviewPreview(r *library.Review) string {
	if r == nil {
		return ""
	}
	if len(r.Text) > maxReviewPreview {
		return r.Text[:maxReviewPreview-3] + "..."
	}
	return r.Text
}

func reviewDate(r *library.Review) *time.Time {
	if r == nil {
		return nil
	}
	return r.Date
}

func reviewLikes(r *library.Review) string {
	if r == nil {
		return ""
	}
	return strconv.Itoa(r.LikesCount)
}

// formatInt renders 0 as empty since 0 means "unset" for the optional
// numeric fields.
func formatInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func formatFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(csvTimeLayout)
}
