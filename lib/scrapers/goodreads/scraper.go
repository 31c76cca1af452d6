package goodreads

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"goodreads-scraper/lib/library"

	"go.opentelemetry.io/otel/codes"
)

// ProgressObserver receives scrape progress callbacks. total is 0 when the
// amount of upcoming work is not known yet.
type ProgressObserver interface {
	Progress(current, total int, message string)
}

// BookSink receives each converted relation as soon as it exists, before
// the full library is assembled. Used for incremental per-book output.
type BookSink interface {
	WriteBook(rel library.UserBookRelation) error
}

// Options configures a scrape run. The zero value gets sensible defaults
// from NewScraper.
type Options struct {
	// RateLimit is the minimum delay between page fetches.
	RateLimit time.Duration
	// MaxRetries bounds retries on transient fetch failures.
	MaxRetries int
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// Limit caps the number of items taken from each shelf. 0 means no cap.
	Limit int
	// Shelf restricts the crawl to a single shelf slug. Empty crawls every
	// discovered shelf.
	Shelf string
	// Sort is the listing sort key passed through to goodreads, for example
	// "date_added" or "title". Empty uses the site default.
	Sort string
	// Shuffle randomizes the final relation order.
	Shuffle bool
	// Progress, when set, receives progress callbacks.
	Progress ProgressObserver
	// Sink, when set, receives each relation as it is converted.
	Sink BookSink
	// BaseURL replaces the goodreads origin on every fetched URL. Tests
	// point this at a local server.
	BaseURL string
}

// Scraper crawls one public goodreads profile into a Library aggregate.
type Scraper struct {
	client *Client
	opts   Options
}

func NewScraper(client *Client, opts Options) *Scraper {
	if opts.RateLimit <= 0 {
		opts.RateLimit = time.Second
	}
	if client == nil {
		client = NewClient(ClientOptions{
			Delay:      opts.RateLimit,
			MaxRetries: opts.MaxRetries,
			Timeout:    opts.Timeout,
		})
	}
	return &Scraper{client: client, opts: opts}
}

// crawlItem is one deduplicated book accumulated across shelf crawls.
type crawlItem struct {
	row    ListingRow
	book   BookFields
	review ReviewPageFields
}

// ScrapeLibrary runs the full pipeline: validate the URL, discover shelves,
// crawl every shelf with cross-shelf deduplication, enrich each item from
// its review and book pages, then convert into the validated model. Items
// that fail enrichment or validation are logged and skipped; only URL,
// privacy and fetch errors on the entry page abort the run.
func (s *Scraper) ScrapeLibrary(ctx context.Context, profileURL string) (*library.Library, error) {
	ctx, span := tracer.Start(ctx, "ScrapeLibrary")
	defer span.End()

	ok, normalized, userID := ValidateProfileURL(profileURL)
	if !ok {
		span.SetStatus(codes.Error, "invalid profile url")
		hint := ""
		if IsBookURL(profileURL) {
			hint = " (this is a book URL, not a profile URL)"
		}
		return nil, fmt.Errorf(
			"%w: expected https://www.goodreads.com/user/show/USER_ID-username, got %q%s",
			ErrInvalidURL, profileURL, hint,
		)
	}

	slog.InfoContext(ctx, "starting scrape", "user_id", userID, "url", normalized)

	username, facets, err := s.discover(ctx, normalized)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "shelf discovery failed")
		return nil, err
	}
	slog.InfoContext(ctx, "discovered shelves", "count", len(facets), "username", username)

	items, err := s.crawlShelves(ctx, normalized, facets)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "shelf crawl failed")
		return nil, err
	}
	slog.InfoContext(ctx, "crawl complete", "unique_books", len(items))

	s.enrich(ctx, items)

	relations := s.convert(ctx, items)
	if s.opts.Shuffle {
		rand.Shuffle(len(relations), func(i, j int) {
			relations[i], relations[j] = relations[j], relations[i]
		})
	}

	if username == "" || username == "unknown" {
		username = usernameFromProfileURL(normalized)
	}
	return library.NewLibrary(userID, username, normalized, relations)
}

// discover fetches the first listing page to confirm the profile is public
// and to read the shelf sidebar. The catch-all "all" facet is dropped since
// every shelf gets crawled individually.
func (s *Scraper) discover(ctx context.Context, profileURL string) (string, []ShelfFacet, error) {
	entryURL, err := s.listingURL(profileURL, 1, "all")
	if err != nil {
		return "", nil, err
	}
	doc, err := s.client.GetDocument(ctx, entryURL)
	if err != nil {
		return "", nil, err
	}
	if IsPrivateProfile(doc) {
		return "", nil, fmt.Errorf("%w: %s", ErrPrivateProfile, profileURL)
	}

	page := ParseListingPage(doc)

	var facets []ShelfFacet
	for _, facet := range ParseShelfFacets(doc) {
		if facet.Slug == "all" {
			continue
		}
		if s.opts.Shelf != "" && facet.Slug != s.opts.Shelf {
			continue
		}
		facets = append(facets, facet)
	}
	if len(facets) == 0 {
		if s.opts.Shelf != "" {
			// crawl the requested shelf even when the sidebar hides it
			facets = []ShelfFacet{{Slug: s.opts.Shelf}}
		} else {
			// no sidebar rendered; crawl the combined listing instead
			facets = []ShelfFacet{{Slug: "all", Count: len(page.Rows)}}
		}
	}

	return page.Username, facets, nil
}

// crawlShelves walks every shelf's pagination, deduplicating books by
// goodreads id. The first shelf to surface a book owns its row; later
// sightings only contribute their shelf membership.
func (s *Scraper) crawlShelves(ctx context.Context, profileURL string, facets []ShelfFacet) ([]*crawlItem, error) {
	total := 0
	for _, facet := range facets {
		total += facet.Count
	}

	var items []*crawlItem
	byID := map[string]*crawlItem{}
	seenRows := 0

	for _, facet := range facets {
		taken := 0

		for page := 1; ; page++ {
			pageURL, err := s.listingURL(profileURL, page, facet.Slug)
			if err != nil {
				return nil, err
			}
			doc, err := s.client.GetDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("shelf %q page %d: %w", facet.Slug, page, err)
			}

			listing := ParseListingPage(doc)
			for _, row := range listing.Rows {
				if s.opts.Limit > 0 && taken >= s.opts.Limit {
					break
				}
				seenRows++

				// books already seen on an earlier shelf only contribute
				// their shelf membership and do not count against the limit
				if existing, ok := byID[row.GoodreadsID]; ok && row.GoodreadsID != "" {
					existing.row.Shelves = appendShelf(existing.row.Shelves, facet.Slug)
					continue
				}
				taken++
				row.Shelves = appendShelf(row.Shelves, facet.Slug)
				if row.ReadingStatus == "" {
					if status, ok := library.StatusFromShelf(facet.Slug); ok {
						row.ReadingStatus = string(status)
					}
				}

				item := &crawlItem{row: row}
				items = append(items, item)
				if row.GoodreadsID != "" {
					byID[row.GoodreadsID] = item
				}
			}

			s.progress(seenRows, total, fmt.Sprintf("shelf %s: page %d", facet.Slug, page))
			slog.DebugContext(
				ctx, "crawled listing page",
				"shelf", facet.Slug, "page", page, "rows", len(listing.Rows),
			)

			if !listing.HasNextPage || (s.opts.Limit > 0 && taken >= s.opts.Limit) {
				break
			}
		}
	}

	return items, nil
}

func appendShelf(shelves []string, slug string) []string {
	if slug == "all" {
		return shelves
	}
	for _, s := range shelves {
		if s == slug {
			return shelves
		}
	}
	return append(shelves, slug)
}

// enrich fetches the review page then the book page for every item. Both
// merges are additive: fetched fields only fill what the listing row left
// empty, so enrichment failures degrade to listing-level data instead of
// losing the item.
func (s *Scraper) enrich(ctx context.Context, items []*crawlItem) {
	for i, item := range items {
		var fromReview BookFields
		if item.row.ReviewURL != "" {
			doc, err := s.client.GetDocument(ctx, s.rebase(item.row.ReviewURL))
			if err != nil {
				slog.WarnContext(
					ctx, "review page fetch failed",
					"book", item.row.Title, "url", item.row.ReviewURL, "err", err,
				)
			} else {
				item.review = ParseReviewPage(doc)
				// the status page repeats a few detail fields, notably the
				// publisher line; kept aside to fill book-page gaps
				fromReview = ParseBookPage(doc)
			}
		}

		if item.row.BookURL != "" {
			doc, err := s.client.GetDocument(ctx, s.rebase(item.row.BookURL))
			if err != nil {
				slog.WarnContext(
					ctx, "book page fetch failed",
					"book", item.row.Title, "url", item.row.BookURL, "err", err,
				)
			} else {
				item.book = ParseBookPage(doc)
			}
		}
		fillBookFields(&item.book, fromReview)

		s.progress(i+1, len(items), item.row.Title)
	}
}

// convert turns the accumulated raw items into validated relations. Rows
// that fail model validation are dropped with a warning.
func (s *Scraper) convert(ctx context.Context, items []*crawlItem) []library.UserBookRelation {
	now := time.Now().UTC()
	var relations []library.UserBookRelation

	for _, item := range items {
		rel, err := s.convertItem(item, now)
		if err != nil {
			slog.WarnContext(
				ctx, "skipping invalid book",
				"book", item.row.Title, "id", item.row.GoodreadsID, "err", err,
			)
			continue
		}

		if s.opts.Sink != nil {
			if err := s.opts.Sink.WriteBook(rel); err != nil {
				slog.WarnContext(ctx, "book sink write failed", "book", rel.Book.Title, "err", err)
			}
		}
		relations = append(relations, rel)
	}

	return relations
}

func (s *Scraper) convertItem(item *crawlItem, scrapedAt time.Time) (library.UserBookRelation, error) {
	row, fields, review := item.row, item.book, item.review

	book, err := library.NewBook(library.BookParams{
		GoodreadsID:       row.GoodreadsID,
		Title:             firstNonEmpty(row.Title, fields.Title),
		Author:            firstNonEmpty(row.Author, fields.Author),
		AdditionalAuthors: fields.AdditionalAuthors,
		ISBN:              fields.ISBN,
		ISBN13:            fields.ISBN13,
		PublicationDate:   fields.PublicationDate,
		Publisher:         fields.Publisher,
		PageCount:         fields.PageCount,
		Language:          fields.Language,
		Setting:           fields.Setting,
		LiteraryAwards:    convertAwards(fields.Awards),
		Genres:            fields.Genres,
		AverageRating:     fields.AverageRating,
		RatingsCount:      fields.RatingsCount,
		CoverImageURL:     firstNonEmpty(fields.CoverImageURL, row.CoverImageURL),
		GoodreadsURL:      row.BookURL,
	})
	if err != nil {
		return library.UserBookRelation{}, err
	}

	// the shelf that surfaced the row owns the status; the review page
	// only fills it when the listing gave none
	status := firstNonEmpty(row.ReadingStatus, review.ReadingStatus)

	shelfNames := review.Shelves
	if len(shelfNames) == 0 {
		shelfNames = row.Shelves
	}
	if status != "" {
		shelfNames = prependShelf(shelfNames, status)
	}
	if len(shelfNames) == 0 {
		// an item always came off at least one shelf; "unknown" marks
		// rows where extraction could not recover which
		shelfNames = []string{"unknown"}
	}
	var shelves []library.Shelf
	for _, name := range shelfNames {
		shelf, err := library.NewShelf(name)
		if err != nil {
			continue
		}
		shelves = append(shelves, shelf)
	}

	records := convertReadRecords(review.ReadRecords)
	if len(records) == 0 && status == string(library.StatusRead) {
		// the read happened even if the timeline never said when
		records = []library.ReadRecord{{}}
	}

	var rev *library.Review
	if review.ReviewText != "" {
		r, err := library.NewReview(review.ReviewText, review.ReviewDate, review.ReviewLikes)
		if err == nil {
			rev = &r
		}
	}

	dateAdded := review.DateAdded
	if dateAdded == nil {
		dateAdded = row.DateAdded
	}

	return library.NewUserBookRelation(library.UserBookParams{
		Book:          book,
		UserRating:    row.UserRating,
		ReadingStatus: library.ReadingStatus(status),
		Shelves:       shelves,
		Review:        rev,
		DateAdded:     dateAdded,
		ReadRecords:   records,
		ScrapedAt:     &scrapedAt,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func prependShelf(shelves []string, slug string) []string {
	for _, s := range shelves {
		if s == slug {
			return shelves
		}
	}
	return append([]string{slug}, shelves...)
}

func convertAwards(raw []RawAward) []library.LiteraryAward {
	var awards []library.LiteraryAward
	for _, a := range raw {
		if a.Name == "" {
			continue
		}
		awards = append(awards, library.LiteraryAward{
			Name:     a.Name,
			Category: a.Category,
			Year:     a.Year,
		})
	}
	return awards
}

func convertReadRecords(raw []RawReadRecord) []library.ReadRecord {
	var records []library.ReadRecord
	for _, r := range raw {
		record, err := library.NewReadRecord(r.DateStarted, r.DateFinished)
		if err != nil {
			continue
		}
		records = append(records, record)
	}
	return records
}

func (s *Scraper) listingURL(profileURL string, page int, shelf string) (string, error) {
	u, err := BuildListingURL(profileURL, page, shelf, s.opts.Sort)
	if err != nil {
		return "", err
	}
	return s.rebase(u), nil
}

func (s *Scraper) rebase(u string) string {
	if s.opts.BaseURL == "" || u == "" {
		return u
	}
	return strings.Replace(u, "https://www.goodreads.com", s.opts.BaseURL, 1)
}

func (s *Scraper) progress(current, total int, message string) {
	if s.opts.Progress != nil {
		s.opts.Progress.Progress(current, total, message)
	}
}
