package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"goodreads-scraper/lib/library"
)

// BookWriter writes one JSON file per book into a directory, as each book
// is converted. Satisfies the scraper's incremental sink interface.
type BookWriter struct {
	dir string
	// tracks filenames already written so title collisions get a suffix
	written map[string]int
}

func NewBookWriter(dir string) (*BookWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &BookWriter{dir: dir, written: map[string]int{}}, nil
}

// WriteBook writes a single relation to <YYYYMMDD>_<title>.json. The date
// prefix comes from the book's publication date, or 00000000 when that is
// missing or unparseable, so files still sort sensibly by name.
func (w *BookWriter) WriteBook(rel library.UserBookRelation) error {
	name := fmt.Sprintf("%s_%s", datePrefix(rel.Book.PublicationDate), sanitizeFilename(rel.Book.Title))
	if n := w.written[name]; n > 0 {
		w.written[name] = n + 1
		name = fmt.Sprintf("%s_%d", name, n+1)
	} else {
		w.written[name] = 1
	}

	out, err := json.MarshalIndent(rel, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %q: %w", rel.Book.Title, err)
	}
	out = append(out, '\n')
	return os.WriteFile(filepath.Join(w.dir, name+".json"), out, 0o644)
}

// WriteLibraryMetadata writes the library-level fields, without the
// relations, to _library_metadata.json. The leading underscore keeps it
// sorted ahead of the book files.
func (w *BookWriter) WriteLibraryMetadata(lib *library.Library) error {
	meta := struct {
		UserID        string    `json:"user_id"`
		Username      string    `json:"username"`
		ProfileURL    string    `json:"profile_url"`
		TotalBooks    int       `json:"total_books"`
		ScrapedAt     time.Time `json:"scraped_at"`
		SchemaVersion string    `json:"schema_version"`
	}{
		UserID:        lib.UserID,
		Username:      lib.Username,
		ProfileURL:    lib.ProfileURL,
		TotalBooks:    lib.TotalBooks(),
		ScrapedAt:     lib.ScrapedAt,
		SchemaVersion: lib.SchemaVersion,
	}

	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal library metadata: %w", err)
	}
	out = append(out, '\n')
	return os.WriteFile(filepath.Join(w.dir, "_library_metadata.json"), out, 0o644)
}

var unsafeFilenameRegex = regexp.MustCompile(`[^a-z0-9_-]+`)

// sanitizeFilename reduces a title to a filesystem-safe slug, capped at 100
// chars.
func sanitizeFilename(title string) string {
	name := strings.ToLower(strings.TrimSpace(title))
	name = unsafeFilenameRegex.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if len(name) > 100 {
		name = strings.Trim(name[:100], "_")
	}
	if name == "" {
		name = "untitled"
	}
	return name
}

func datePrefix(publicationDate string) string {
	for _, layout := range []string{"January 2, 2006", "Jan 2, 2006", "2006-01-02", "2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(publicationDate)); err == nil {
			return t.Format("20060102")
		}
	}
	if year := yearRegex.FindString(publicationDate); year != "" {
		return year + "0101"
	}
	return "00000000"
}
