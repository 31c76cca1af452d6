package export

import (
	"fmt"
	"io"
	"os"

	"goodreads-scraper/lib/library"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonLibrary is the on-disk JSON shape: the library plus a redundant
// top-level count so consumers can sanity-check without walking user_books.
type jsonLibrary struct {
	*library.Library
	TotalBooks int `json:"total_books"`
}

// WriteJSON renders the library as indented UTF-8 JSON.
func WriteJSON(w io.Writer, lib *library.Library) error {
	out, err := json.MarshalIndent(jsonLibrary{
		Library:    lib,
		TotalBooks: lib.TotalBooks(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal library: %w", err)
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

// WriteJSONFile writes the JSON export to path, creating or truncating it.
func WriteJSONFile(path string, lib *library.Library) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteJSON(f, lib); err != nil {
		return err
	}
	return f.Close()
}
