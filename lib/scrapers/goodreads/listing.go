package goodreads

import (
	"regexp"
	"strconv"
	"strings"

	"goodreads-scraper/lib/htmlutil"
	"goodreads-scraper/lib/library"
	"goodreads-scraper/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// ParseListingPage extracts the owner metadata, book rows and pagination
// state from one page of a shelf listing. Malformed rows are skipped
// without failing the page; a row needs at least a title and an author to
// be kept.
func ParseListingPage(doc *goquery.Document) ListingPage {
	userID, username := extractUserMetadata(doc)

	var rows []ListingRow
	doc.Find("tr.bookalike.review").Each(func(_ int, tr *goquery.Selection) {
		row, ok := parseListingRow(tr)
		if ok {
			rows = append(rows, row)
		}
	})

	return ListingPage{
		UserID:      userID,
		Username:    username,
		Rows:        rows,
		HasNextPage: HasNextPage(doc),
	}
}

// extractUserMetadata recovers the owner id and username, falling back
// through the profile link, the og:url meta tag, then the page title.
func extractUserMetadata(doc *goquery.Document) (userID, username string) {
	userID = "unknown"
	username = "unknown"

	profileLink := doc.Find("a.userProfileName").First()
	if href, ok := profileLink.Attr("href"); ok {
		if id := userIDFromPath(href); id != "" {
			userID = id
		}
		if name := textutil.Sanitize(profileLink.Text(), 0); name != "" {
			username = name
		}
	}

	if userID == "unknown" {
		content, ok := doc.Find(`meta[property="og:url"]`).Attr("content")
		if ok {
			if id := userIDFromPath(content); id != "" {
				userID = id
			}
		}
	}

	if username == "unknown" {
		// listing page titles render as "NAME's books on Goodreads"
		title := textutil.Sanitize(doc.Find("title").Text(), 0)
		for _, sep := range []string{"’s", "'s"} {
			if idx := strings.Index(title, sep); idx > 0 {
				username = title[:idx]
				break
			}
		}
	}

	return userID, username
}

// userIDFromPath extracts the numeric id from a /user/show/<id>-slug path
// or URL.
func userIDFromPath(href string) string {
	idx := strings.Index(href, "/user/show/")
	if idx < 0 {
		return ""
	}
	rest := href[idx+len("/user/show/"):]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if end == 0 {
		return ""
	}
	if end < 0 {
		return rest
	}
	return rest[:end]
}

func parseListingRow(tr *goquery.Selection) (ListingRow, bool) {
	var row ListingRow

	titleLink := tr.Find("td.field.title a").First()
	if href, ok := titleLink.Attr("href"); ok && strings.Contains(href, "/book/show/") {
		id := href[strings.Index(href, "/book/show/")+len("/book/show/"):]
		id = strings.SplitN(id, "-", 2)[0]
		id = strings.SplitN(id, "?", 2)[0]
		id = strings.SplitN(id, ".", 2)[0]
		row.GoodreadsID = id
		row.BookURL = "https://www.goodreads.com" + href
	}
	row.Title = textutil.Sanitize(titleLink.AttrOr("title", ""), 0)
	if row.Title == "" {
		row.Title = textutil.Sanitize(titleLink.Text(), 0)
	}

	row.Author = textutil.Sanitize(tr.Find("td.field.author a").First().Text(), 0)

	row.UserRating = parseStarRating(tr.Find("td.field.rating span.staticStars").First())

	row.Shelves, row.ReadingStatus = parseShelfCell(tr.Find("td.field.shelf").First())

	dateText := tr.Find("td.field.date_added span").First().Text()
	if dateText == "" {
		dateText = tr.Find("td.field.date_added").First().Text()
		dateText = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(dateText), "date added"))
	}
	row.DateAdded = parseDate(textutil.Sanitize(dateText, 0))

	if href, ok := tr.Find(`td.field.actions a[href*="/review/show/"]`).First().Attr("href"); ok {
		row.ReviewURL = absoluteURL(href)
	} else if href, ok := tr.Find(`a[href*="/review/show/"]`).First().Attr("href"); ok {
		row.ReviewURL = absoluteURL(href)
	}

	if src, ok := tr.Find("td.field.cover img").First().Attr("src"); ok {
		row.CoverImageURL = src
	}

	// minimum viable row
	if row.Title == "" || row.Author == "" {
		return ListingRow{}, false
	}
	return row, true
}

func absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return "https://www.goodreads.com" + href
}

var starRatingRegex = regexp.MustCompile(`(\d)\s+of\s+5\s+stars`)

// parseStarRating reads a "N of 5 stars" marker out of the static stars
// element, checking the title attribute first and the text second.
func parseStarRating(stars *goquery.Selection) int {
	if stars.Length() == 0 {
		return 0
	}
	for _, content := range []string{stars.AttrOr("title", ""), stars.Text()} {
		match := starRatingRegex.FindStringSubmatch(strings.ToLower(content))
		if match == nil {
			continue
		}
		rating, err := strconv.Atoi(match[1])
		if err == nil && rating >= 1 && rating <= 5 {
			return rating
		}
	}
	return 0
}

// parseShelfCell reads the shelf links out of a row's shelf cell. The cell
// frequently shows only a subset of shelves; the review page is the
// authoritative source fetched later.
func parseShelfCell(cell *goquery.Selection) (shelves []string, readingStatus string) {
	cell.Find("a").Each(func(_ int, a *goquery.Selection) {
		name := strings.ToLower(textutil.Sanitize(a.Text(), 0))
		if name == "" || name == "[edit]" || name == "view" {
			return
		}
		shelves = append(shelves, name)
		if readingStatus == "" {
			if status, ok := library.StatusFromShelf(name); ok {
				readingStatus = string(status)
			}
		}
	})
	return shelves, readingStatus
}

var facetCountRegex = regexp.MustCompile(`\(([\d,]+)\)`)

// ParseShelfFacets returns the (slug, count) pairs exposed in the shelf
// navigation sidebar. The caller is expected to drop the catch-all "all"
// pseudo-shelf before crawling.
func ParseShelfFacets(doc *goquery.Document) []ShelfFacet {
	var facets []ShelfFacet
	seen := map[string]bool{}

	anchors := htmlutil.GetAnchors(doc.Find("#paginatedShelfList a, div.userShelves a"))
	for _, anchor := range anchors {
		slug := ""
		if idx := strings.Index(anchor.Href, "shelf="); idx >= 0 {
			slug = anchor.Href[idx+len("shelf="):]
			slug = strings.SplitN(slug, "&", 2)[0]
		}
		if slug == "" {
			// facet text renders as "shelfname (123)"
			slug = strings.ToLower(strings.TrimSpace(strings.SplitN(anchor.Name, "(", 2)[0]))
			slug = strings.ReplaceAll(slug, " ", "-")
		}
		if slug == "" || seen[slug] {
			continue
		}

		count := 0
		if match := facetCountRegex.FindStringSubmatch(anchor.Name); match != nil {
			count, _ = strconv.Atoi(strings.ReplaceAll(match[1], ",", ""))
		}

		seen[slug] = true
		facets = append(facets, ShelfFacet{Slug: slug, Count: count})
	}

	return facets
}
