package goodreads

import "time"

// The extractors in this package are tolerant by design: they never fail on
// missing data, they just leave fields at their zero value. The structs
// below are the loosely-typed intermediate representation sitting between
// the HTML extractors and the strict model constructors in lib/library.

// ListingRow is one row of a shelf listing table.
type ListingRow struct {
	GoodreadsID   string
	Title         string
	Author        string
	BookURL       string
	ReviewURL     string
	CoverImageURL string
	// 0 means unrated
	UserRating int
	// shelf slugs visible in the row's shelf cell; often incomplete,
	// the review page has the authoritative list
	Shelves       []string
	ReadingStatus string
	DateAdded     *time.Time
}

// ListingPage is the extraction result for one page of a shelf listing.
type ListingPage struct {
	UserID      string
	Username    string
	Rows        []ListingRow
	HasNextPage bool
}

// ShelfFacet is one shelf exposed in the listing page's navigation, with
// the item count shown next to it.
type ShelfFacet struct {
	Slug  string
	Count int
}

// RawAward mirrors library.LiteraryAward before validation.
type RawAward struct {
	Name     string
	Category string
	Year     int
}

// BookFields holds the extended metadata pulled off a book detail page.
// Every field is optional; zero values mean "not found".
type BookFields struct {
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
	Awards            []RawAward
	Genres            []string
	AverageRating     float64
	RatingsCount      int
	CoverImageURL     string
}

// RawReadRecord is one read-through found in the review page timeline.
type RawReadRecord struct {
	DateStarted  *time.Time
	DateFinished *time.Time
}

// ReviewPageFields is the extraction result for a review ("status") page:
// the authoritative shelf list plus lifecycle dates, and the user's review
// when the page shows one.
type ReviewPageFields struct {
	Shelves       []string
	ReadingStatus string
	DateAdded     *time.Time
	ReadRecords   []RawReadRecord
	ReviewText    string
	ReviewDate    *time.Time
	ReviewLikes   int
}
