package goodreads

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"goodreads-scraper/lib/library"
	"goodreads-scraper/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const testProfileURL = "https://www.goodreads.com/user/show/172435467-tim-brown"

func testRow(id, title, author string, shelves []string) string {
	var shelfLinks strings.Builder
	for _, s := range shelves {
		fmt.Fprintf(&shelfLinks, `<a href="?shelf=%s">%s</a>`, s, s)
	}
	return fmt.Sprintf(`
	<tr class="bookalike review">
	  <td class="field title"><a href="/book/show/%s-slug" title="%s">%s</a></td>
	  <td class="field author"><a href="/author/show/1">%s</a></td>
	  <td class="field rating"><span class="staticStars" title="4 of 5 stars"></span></td>
	  <td class="field shelf">%s</td>
	  <td class="field date_added"><span>Jan 05, 2021</span></td>
	  <td class="field actions"><a href="/review/show/%s">view</a></td>
	</tr>`, id, title, title, author, shelfLinks.String(), id)
}

func listingFrame(rows, sidebar string) string {
	return `<html><head><title>Tim Brown's books</title></head><body>
	  <a class="userProfileName" href="/user/show/172435467-tim-brown">Tim Brown</a>
	  ` + sidebar + `
	  <table id="books"><tbody>` + rows + `</tbody></table>
	</body></html>`
}

// testListing renders a one-page shelf listing with a facet sidebar.
func testListing(rows string, facets map[string]int) string {
	var sidebar strings.Builder
	sidebar.WriteString(`<div id="paginatedShelfList">`)
	for slug, count := range facets {
		fmt.Fprintf(&sidebar, `<a href="/review/list/172435467?shelf=%s">%s (%d)</a>`, slug, slug, count)
	}
	sidebar.WriteString(`</div>`)
	return listingFrame(rows, sidebar.String())
}

// orderedListing is testListing with a deterministic sidebar order, for
// tests where the shelf crawl order matters.
func orderedListing(rows string, shelves ...string) string {
	var sidebar strings.Builder
	sidebar.WriteString(`<div id="paginatedShelfList">`)
	for _, slug := range shelves {
		fmt.Fprintf(&sidebar, `<a href="/review/list/172435467?shelf=%s">%s (1)</a>`, slug, slug)
	}
	sidebar.WriteString(`</div>`)
	return listingFrame(rows, sidebar.String())
}

// withNextLink appends a pagination block pointing at the next page.
func withNextLink(listing string, shelf string, page int) string {
	next := fmt.Sprintf(
		`<div id="reviewPagination"><a class="next_page" href="/review/list/172435467?page=%d&shelf=%s">next »</a></div>`,
		page, shelf,
	)
	return strings.Replace(listing, "</body>", next+"</body>", 1)
}

// newTestServer serves listing pages keyed by shelf slug (plus ":page" past
// page one); review and book pages 404 unless provided.
func newTestServer(t *testing.T, listings map[string]string, reviews, books map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/review/list/"):
			key := r.URL.Query().Get("shelf")
			if page := r.URL.Query().Get("page"); page != "" {
				key += ":" + page
			}
			html, ok := listings[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprint(w, html)
		case strings.HasPrefix(r.URL.Path, "/review/show/"):
			id := strings.TrimPrefix(r.URL.Path, "/review/show/")
			html, ok := reviews[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprint(w, html)
		case strings.HasPrefix(r.URL.Path, "/book/show/"):
			id := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/book/show/"), "-", 2)[0]
			html, ok := books[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprint(w, html)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestScraper(server *httptest.Server, opts Options) *Scraper {
	opts.BaseURL = server.URL
	return NewScraper(NewClient(ClientOptions{}), opts)
}

func TestScrapeLibrarySingleReadBook(t *testing.T) {
	row := testRow("11870085", "The Fault in Our Stars", "John Green", []string{"read"})
	server := newTestServer(t, map[string]string{
		"all":  testListing(row, map[string]int{"read": 1}),
		"read": testListing(row, map[string]int{"read": 1}),
	}, nil, nil)

	lib, err := newTestScraper(server, Options{}).ScrapeLibrary(context.Background(), testProfileURL)
	require.NoError(t, err)

	require.Equal(t, "172435467", lib.UserID)
	require.Equal(t, "Tim Brown", lib.Username)
	require.Equal(t, testProfileURL, lib.ProfileURL)
	require.Len(t, lib.UserBooks, 1)

	ub := lib.UserBooks[0]
	require.Equal(t, "The Fault in Our Stars", ub.Book.Title)
	require.Equal(t, "John Green", ub.Book.Author)
	require.Equal(t, "11870085", ub.Book.GoodreadsID)
	require.Equal(t, 4, ub.UserRating)
	require.Equal(t, library.StatusRead, ub.ReadingStatus)
	require.NotNil(t, ub.DateAdded)
	require.NotNil(t, ub.ScrapedAt)

	// status is read but the timeline never surfaced dates, so a single
	// undated read-through is recorded
	require.Len(t, ub.ReadRecords, 1)
	require.Nil(t, ub.ReadRecords[0].DateStarted)
	require.Nil(t, ub.ReadRecords[0].DateFinished)
}

func TestScrapeLibraryCrossShelfDeduplication(t *testing.T) {
	row := testRow("11870085", "The Fault in Our Stars", "John Green", []string{"read"})
	facets := map[string]int{"read": 1, "favorites": 1}
	server := newTestServer(t, map[string]string{
		"all":       testListing(row, facets),
		"read":      testListing(row, facets),
		"favorites": testListing(row, facets),
	}, nil, nil)

	lib, err := newTestScraper(server, Options{}).ScrapeLibrary(context.Background(), testProfileURL)
	require.NoError(t, err)
	require.Len(t, lib.UserBooks, 1)

	var shelfNames []string
	for _, shelf := range lib.UserBooks[0].Shelves {
		shelfNames = append(shelfNames, shelf.Name)
	}
	require.Contains(t, shelfNames, "read")
	require.Contains(t, shelfNames, "favorites")
}

func TestScrapeLibraryEnrichment(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "scrapers/goodreads")
	defer cleanup()

	row := testRow("11870085", "The Fault in Our Stars", "John Green", []string{"read"})
	review := `<html><body>
	  <div class="shelves">
	    <a href="/review/list/172435467?shelf=read">read</a>
	    <a href="/review/list/172435467?shelf=favorites">favorites</a>
	  </div>
	  <div class="readingTimeline">
	    <div class="readingTimeline__text">March 28, 2021 – Finished Reading</div>
	    <div class="readingTimeline__text">March 5, 2021 – Started Reading</div>
	    <div class="readingTimeline__text">January 5, 2021 – Shelved</div>
	  </div>
	  <div class="reviewText"><span id="freeTextContainer1">Loved it.</span></div>
	  <a class="likesCount">3 likes</a>
	  <div class="uitext">Published January 10, 2012 by Dutton Books</div>
	</body></html>`
	book := `<html><head><script type="application/ld+json">
	{"@type":"Book","name":"The Fault in Our Stars","isbn":"9780525478812",
	 "numberOfPages":313,"inLanguage":"English",
	 "aggregateRating":{"ratingValue":4.18,"ratingCount":4500000},
	 "author":[{"name":"John Green"}]}
	</script></head><body></body></html>`

	server := newTestServer(t,
		map[string]string{
			"all":  testListing(row, map[string]int{"read": 1}),
			"read": testListing(row, map[string]int{"read": 1}),
		},
		map[string]string{"11870085": review},
		map[string]string{"11870085": book},
	)

	lib, err := newTestScraper(server, Options{}).ScrapeLibrary(context.Background(), testProfileURL)
	require.NoError(t, err)
	require.Len(t, lib.UserBooks, 1)

	ub := lib.UserBooks[0]
	require.Equal(t, "9780525478812", ub.Book.ISBN13)
	require.Equal(t, 313, ub.Book.PageCount)
	require.Equal(t, 4.18, ub.Book.AverageRating)
	require.Equal(t, 4500000, ub.Book.RatingsCount)

	// the book page carries no publisher; the review page's published line
	// fills the gap
	require.Equal(t, "Dutton Books", ub.Book.Publisher)
	require.Equal(t, "January 10, 2012", ub.Book.PublicationDate)

	require.Len(t, ub.Shelves, 2)
	require.Equal(t, "read", ub.Shelves[0].Name)
	require.Equal(t, "favorites", ub.Shelves[1].Name)

	require.Len(t, ub.ReadRecords, 1)
	require.NotNil(t, ub.ReadRecords[0].DateStarted)
	require.NotNil(t, ub.ReadRecords[0].DateFinished)

	require.NotNil(t, ub.Review)
	require.Equal(t, "Loved it.", ub.Review.Text)
	require.Equal(t, 3, ub.Review.LikesCount)
}

func TestScrapeLibraryShelfStatusWinsOverReviewPage(t *testing.T) {
	row := testRow("7", "Long Way Down", "Jason Reynolds", []string{"to-read"})
	// the owner later moved the book to "read"; the crawl still reports
	// what the crawled shelf said
	review := `<html><body><div class="shelves">
	  <a href="/review/list/172435467?shelf=read">read</a>
	</div></body></html>`
	server := newTestServer(t, map[string]string{
		"all":     testListing(row, map[string]int{"to-read": 1}),
		"to-read": testListing(row, map[string]int{"to-read": 1}),
	}, map[string]string{"7": review}, nil)

	lib, err := newTestScraper(server, Options{}).ScrapeLibrary(context.Background(), testProfileURL)
	require.NoError(t, err)
	require.Len(t, lib.UserBooks, 1)
	require.Equal(t, library.StatusToRead, lib.UserBooks[0].ReadingStatus)
}

func TestScrapeLibraryLimitIgnoresDuplicates(t *testing.T) {
	book1 := testRow("1", "Book One", "A", nil)
	book2 := testRow("2", "Book Two", "B", nil)
	book3 := testRow("3", "Book Three", "C", nil)
	server := newTestServer(t, map[string]string{
		"all":       orderedListing(book1, "read", "favorites"),
		"read":      orderedListing(book1, "read", "favorites"),
		"favorites": orderedListing(book1+book2+book3, "read", "favorites"),
	}, nil, nil)

	// book one repeats on favorites; it only contributes shelf membership
	// there, leaving the limit of 2 for the two fresh books
	lib, err := newTestScraper(server, Options{Limit: 2}).ScrapeLibrary(context.Background(), testProfileURL)
	require.NoError(t, err)
	require.Len(t, lib.UserBooks, 3)
}

func TestScrapeLibraryPerShelfLimit(t *testing.T) {
	rows := testRow("1", "Book One", "A", []string{"read"}) +
		testRow("2", "Book Two", "B", []string{"read"}) +
		testRow("3", "Book Three", "C", []string{"read"})
	server := newTestServer(t, map[string]string{
		"all":  testListing(rows, map[string]int{"read": 3}),
		"read": testListing(rows, map[string]int{"read": 3}),
	}, nil, nil)

	lib, err := newTestScraper(server, Options{Limit: 2}).ScrapeLibrary(context.Background(), testProfileURL)
	require.NoError(t, err)
	require.Len(t, lib.UserBooks, 2)
}

func TestScrapeLibraryPaginatedShelf(t *testing.T) {
	facets := map[string]int{"read": 2}
	page1 := withNextLink(testListing(testRow("1", "Book One", "A", []string{"read"}), facets), "read", 2)
	page2 := testListing(testRow("2", "Book Two", "B", []string{"read"}), facets)
	server := newTestServer(t, map[string]string{
		"all":    testListing("", facets),
		"read":   page1,
		"read:2": page2,
	}, nil, nil)

	lib, err := newTestScraper(server, Options{}).ScrapeLibrary(context.Background(), testProfileURL)
	require.NoError(t, err)
	require.Len(t, lib.UserBooks, 2)
	require.Equal(t, "Book One", lib.UserBooks[0].Book.Title)
	require.Equal(t, "Book Two", lib.UserBooks[1].Book.Title)
}

func TestScrapeLibraryShelfFilter(t *testing.T) {
	readRow := testRow("1", "Book One", "A", []string{"read"})
	toReadRow := testRow("2", "Book Two", "B", []string{"to-read"})
	facets := map[string]int{"read": 1, "to-read": 1}
	server := newTestServer(t, map[string]string{
		"all":     testListing(readRow+toReadRow, facets),
		"read":    testListing(readRow, facets),
		"to-read": testListing(toReadRow, facets),
	}, nil, nil)

	lib, err := newTestScraper(server, Options{Shelf: "to-read"}).
		ScrapeLibrary(context.Background(), testProfileURL)
	require.NoError(t, err)
	require.Len(t, lib.UserBooks, 1)
	require.Equal(t, "Book Two", lib.UserBooks[0].Book.Title)
	require.Equal(t, library.StatusToRead, lib.UserBooks[0].ReadingStatus)
}

func TestScrapeLibraryInvalidURL(t *testing.T) {
	server := newTestServer(t, nil, nil, nil)
	scraper := newTestScraper(server, Options{})

	_, err := scraper.ScrapeLibrary(context.Background(), "https://www.goodreads.com/book/show/12345-a-book")
	require.ErrorIs(t, err, ErrInvalidURL)

	_, err = scraper.ScrapeLibrary(context.Background(), "not a url")
	require.ErrorIs(t, err, ErrInvalidURL)
}

func TestScrapeLibraryPrivateProfile(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"all": `<html><body><div class="mediumText">This profile is private</div></body></html>`,
	}, nil, nil)

	_, err := newTestScraper(server, Options{}).ScrapeLibrary(context.Background(), testProfileURL)
	require.ErrorIs(t, err, ErrPrivateProfile)
}

func TestScrapeLibraryProgressAndSink(t *testing.T) {
	row := testRow("11870085", "The Fault in Our Stars", "John Green", []string{"read"})
	server := newTestServer(t, map[string]string{
		"all":  testListing(row, map[string]int{"read": 1}),
		"read": testListing(row, map[string]int{"read": 1}),
	}, nil, nil)

	progress := &recordingObserver{}
	sink := &recordingSink{}
	lib, err := newTestScraper(server, Options{Progress: progress, Sink: sink}).
		ScrapeLibrary(context.Background(), testProfileURL)
	require.NoError(t, err)

	require.NotEmpty(t, progress.calls)
	require.Len(t, sink.books, 1)
	require.Equal(t, lib.UserBooks[0].Book.GoodreadsID, sink.books[0].Book.GoodreadsID)
}

type recordingObserver struct {
	calls []string
}

func (o *recordingObserver) Progress(current, total int, message string) {
	o.calls = append(o.calls, fmt.Sprintf("%d/%d %s", current, total, message))
}

type recordingSink struct {
	books []library.UserBookRelation
}

func (s *recordingSink) WriteBook(rel library.UserBookRelation) error {
	s.books = append(s.books, rel)
	return nil
}
