package goodreads

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// BuildListingURL constructs the shelf listing URL for a profile, page and
// sort order. Default values (page 1, no sort) are omitted so the URLs stay
// canonical; the shelf parameter is always explicit, including "all".
func BuildListingURL(profileURL string, page int, shelf, sort string) (string, error) {
	userID, err := ExtractUserID(profileURL)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if page > 1 {
		query.Set("page", fmt.Sprint(page))
	}
	if shelf == "" {
		shelf = "all"
	}
	query.Set("shelf", shelf)
	if sort != "" {
		query.Set("sort", sort)
	}

	return fmt.Sprintf(
		"https://www.goodreads.com/review/list/%s?%s",
		userID, query.Encode(),
	), nil
}

// findNextLink locates the "next" control inside the pagination block.
func findNextLink(doc *goquery.Document) *goquery.Selection {
	var next *goquery.Selection
	doc.Find("#reviewPagination a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if a.HasClass("next_page") || strings.Contains(strings.ToLower(a.Text()), "next") {
			next = a
			return false
		}
		return true
	})
	return next
}

// HasNextPage reports whether the listing page links to a further page.
// A missing pagination block or next control is the crawl's terminal
// condition.
func HasNextPage(doc *goquery.Document) bool {
	next := findNextLink(doc)
	if next == nil {
		return false
	}
	_, ok := next.Attr("href")
	return ok
}

// NextPageURL resolves the next page's URL against the current one.
// Returns "" when there is no next page.
func NextPageURL(doc *goquery.Document, currentURL string) string {
	next := findNextLink(doc)
	if next == nil {
		return ""
	}
	href, ok := next.Attr("href")
	if !ok || href == "" {
		return ""
	}

	base, err := url.Parse(currentURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
