package export

import (
	"bytes"
	stdjson "encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	lib := testLibrary(t, nil, "read", "favorites")

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, lib))

	var decoded struct {
		UserID        string `json:"user_id"`
		Username      string `json:"username"`
		ProfileURL    string `json:"profile_url"`
		TotalBooks    int    `json:"total_books"`
		SchemaVersion string `json:"schema_version"`
		UserBooks     []struct {
			Book struct {
				Title  string   `json:"title"`
				ISBN13 string   `json:"isbn13"`
				Genres []string `json:"genres"`
			} `json:"book"`
			ReadingStatus string `json:"reading_status"`
			Shelves       []struct {
				Name      string `json:"name"`
				IsBuiltin bool   `json:"is_builtin"`
			} `json:"shelves"`
		} `json:"user_books"`
	}
	require.NoError(t, stdjson.Unmarshal(buf.Bytes(), &decoded))

	require.Equal(t, "172435467", decoded.UserID)
	require.Equal(t, 1, decoded.TotalBooks)
	require.Equal(t, "1.0.0", decoded.SchemaVersion)
	require.Len(t, decoded.UserBooks, 1)
	require.Equal(t, "The Fault in Our Stars", decoded.UserBooks[0].Book.Title)
	require.Equal(t, "read", decoded.UserBooks[0].ReadingStatus)
	require.Len(t, decoded.UserBooks[0].Shelves, 2)
	require.True(t, decoded.UserBooks[0].Shelves[0].IsBuiltin)

	// stable indentation so exports diff cleanly between runs
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("{\n  \"")))
}
