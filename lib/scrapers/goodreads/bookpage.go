package goodreads

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"goodreads-scraper/lib/htmlutil"
	"goodreads-scraper/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// ParseBookPage pulls extended metadata off a book detail page. Strategies
// run in priority order (embedded JSON-LD, then structured markup, then
// text-pattern matching) and each one only fills fields the previous ones
// left unset: first match wins per field.
func ParseBookPage(doc *goquery.Document) BookFields {
	var fields BookFields
	for _, strategy := range bookPageStrategies {
		fillBookFields(&fields, strategy(doc))
	}
	return fields
}

var bookPageStrategies = []func(*goquery.Document) BookFields{
	extractFromJSONLD,
	extractFromMicrodata,
	extractFromTextPatterns,
}

// fillBookFields copies src into dst, only writing fields dst has not set
// yet.
func fillBookFields(dst *BookFields, src BookFields) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Author == "" {
		dst.Author = src.Author
	}
	if len(dst.AdditionalAuthors) == 0 {
		dst.AdditionalAuthors = src.AdditionalAuthors
	}
	if dst.ISBN == "" {
		dst.ISBN = src.ISBN
	}
	if dst.ISBN13 == "" {
		dst.ISBN13 = src.ISBN13
	}
	if dst.PublicationDate == "" {
		dst.PublicationDate = src.PublicationDate
	}
	if dst.Publisher == "" {
		dst.Publisher = src.Publisher
	}
	if dst.PageCount == 0 {
		dst.PageCount = src.PageCount
	}
	if dst.Language == "" {
		dst.Language = src.Language
	}
	if dst.Setting == "" {
		dst.Setting = src.Setting
	}
	if len(dst.Awards) == 0 {
		dst.Awards = src.Awards
	}
	if len(dst.Genres) == 0 {
		dst.Genres = src.Genres
	}
	if dst.AverageRating == 0 {
		dst.AverageRating = src.AverageRating
	}
	if dst.RatingsCount == 0 {
		dst.RatingsCount = src.RatingsCount
	}
	if dst.CoverImageURL == "" {
		dst.CoverImageURL = src.CoverImageURL
	}
}

type jsonldBook struct {
	Type            string `json:"@type"`
	Name            string `json:"name"`
	Image           string `json:"image"`
	ISBN            string `json:"isbn"`
	NumberOfPages   int    `json:"numberOfPages"`
	InLanguage      string `json:"inLanguage"`
	Awards          string `json:"awards"`
	AggregateRating struct {
		RatingValue float64 `json:"ratingValue"`
		RatingCount int     `json:"ratingCount"`
	} `json:"aggregateRating"`
	Author []struct {
		Name string `json:"name"`
	} `json:"author"`
}

// extractFromJSONLD reads the structured-data blob goodreads embeds in a
// script tag. The most reliable source when present.
func extractFromJSONLD(doc *goquery.Document) BookFields {
	var fields BookFields

	for _, script := range doc.Find(`script[type="application/ld+json"]`).Nodes {
		text := htmlutil.GetText(script)
		var blob jsonldBook
		if err := json.Unmarshal([]byte(text), &blob); err != nil {
			continue
		}
		if blob.Type != "Book" {
			continue
		}

		fields.Title = textutil.Sanitize(blob.Name, 0)
		fields.CoverImageURL = blob.Image
		switch len(stripISBN(blob.ISBN)) {
		case 13:
			fields.ISBN13 = stripISBN(blob.ISBN)
		case 10:
			fields.ISBN = stripISBN(blob.ISBN)
		}
		fields.PageCount = blob.NumberOfPages
		fields.Language = blob.InLanguage
		fields.AverageRating = blob.AggregateRating.RatingValue
		fields.RatingsCount = blob.AggregateRating.RatingCount
		if len(blob.Author) > 0 {
			fields.Author = textutil.Sanitize(blob.Author[0].Name, 0)
			for _, a := range blob.Author[1:] {
				name := textutil.Sanitize(a.Name, 0)
				if name != "" {
					fields.AdditionalAuthors = append(fields.AdditionalAuthors, name)
				}
			}
		}
		if blob.Awards != "" {
			fields.Awards = []RawAward{{Name: textutil.Sanitize(blob.Awards, 0)}}
		}
		break
	}

	return fields
}

func stripISBN(raw string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(raw)
}

// extractFromMicrodata falls back to itemprop-annotated markup, which the
// older page layout still serves.
func extractFromMicrodata(doc *goquery.Document) BookFields {
	var fields BookFields

	if v, err := strconv.ParseFloat(
		strings.TrimSpace(doc.Find(`[itemprop="ratingValue"]`).First().Text()), 64,
	); err == nil {
		fields.AverageRating = v
	}
	fields.RatingsCount = parseCount(doc.Find(`[itemprop="ratingCount"]`).First())
	if fields.RatingsCount == 0 {
		if v, ok := doc.Find(`[itemprop="ratingCount"]`).First().Attr("content"); ok {
			fields.RatingsCount, _ = strconv.Atoi(strings.ReplaceAll(v, ",", ""))
		}
	}

	pagesText := doc.Find(`[itemprop="numberOfPages"]`).First().Text()
	if match := pagesRegex.FindStringSubmatch(pagesText); match != nil {
		fields.PageCount, _ = strconv.Atoi(match[1])
	} else if v, err := strconv.Atoi(strings.TrimSpace(pagesText)); err == nil {
		fields.PageCount = v
	}

	fields.Language = textutil.Sanitize(doc.Find(`[itemprop="inLanguage"]`).First().Text(), 0)
	switch isbn := stripISBN(textutil.Sanitize(doc.Find(`[itemprop="isbn"]`).First().Text(), 0)); len(isbn) {
	case 13:
		fields.ISBN13 = isbn
	case 10:
		fields.ISBN = isbn
	}

	doc.Find("a.bookPageGenreLink").Each(func(_ int, a *goquery.Selection) {
		genre := textutil.Sanitize(a.Text(), 0)
		if genre != "" {
			fields.Genres = append(fields.Genres, strings.ToLower(genre))
		}
	})
	if len(fields.Genres) == 0 {
		doc.Find(`[data-testid="genresList"] a`).Each(func(_ int, a *goquery.Selection) {
			genre := textutil.Sanitize(a.Text(), 0)
			if genre != "" && !strings.HasPrefix(genre, "...") {
				fields.Genres = append(fields.Genres, strings.ToLower(genre))
			}
		})
	}

	if src, ok := doc.Find("img#coverImage").First().Attr("src"); ok {
		fields.CoverImageURL = src
	} else if src, ok := doc.Find("div.BookCover img").First().Attr("src"); ok {
		fields.CoverImageURL = src
	}

	doc.Find(`a[href*="/award/show/"]`).Each(func(_ int, a *goquery.Selection) {
		award := parseAward(textutil.Sanitize(a.Text(), 0))
		if award.Name != "" {
			fields.Awards = append(fields.Awards, award)
		}
	})

	return fields
}

var (
	pagesRegex = regexp.MustCompile(`(?i)(\d+)\s*pages`)
	// "First published March 5, 2012" / "Published 2012 by Dutton Books"
	publishedRegex = regexp.MustCompile(`(?i)(?:first\s+)?published\s+(.+?)(?:\s+by\s+(.+?))?\s*$`)
	ratingRegex    = regexp.MustCompile(`(\d\.\d+)\s+avg`)
	countRegex     = regexp.MustCompile(`([\d,]+)\s+ratings?`)
	awardYearRegex = regexp.MustCompile(`\((\d{4})\)\s*$`)
)

// parseAward splits "Some Prize for Fiction (2012)" into its parts. The
// category, when present, trails a "for".
func parseAward(text string) RawAward {
	var award RawAward
	if match := awardYearRegex.FindStringSubmatch(text); match != nil {
		award.Year, _ = strconv.Atoi(match[1])
		text = strings.TrimSpace(awardYearRegex.ReplaceAllString(text, ""))
	}
	if idx := strings.LastIndex(text, " for "); idx > 0 {
		award.Category = strings.TrimSpace(text[idx+len(" for "):])
		text = strings.TrimSpace(text[:idx])
	}
	award.Name = text
	return award
}

func parseCount(sel *goquery.Selection) int {
	text := strings.ReplaceAll(strings.TrimSpace(sel.Text()), ",", "")
	if match := regexp.MustCompile(`\d+`).FindString(text); match != "" {
		n, _ := strconv.Atoi(match)
		return n
	}
	return 0
}

// extractFromTextPatterns is the last-resort strategy: regexes over the
// details section text. Kept deliberately loose since the markup churns.
func extractFromTextPatterns(doc *goquery.Document) BookFields {
	var fields BookFields

	details := doc.Find("#details, div.FeaturedDetails, div.BookDetails").Text()
	if details == "" {
		details = doc.Text()
	}

	for _, line := range strings.Split(details, "\n") {
		line = textutil.Sanitize(line, 0)
		if line == "" {
			continue
		}

		if fields.PageCount == 0 {
			if match := pagesRegex.FindStringSubmatch(line); match != nil {
				fields.PageCount, _ = strconv.Atoi(match[1])
			}
		}
		if fields.PublicationDate == "" {
			if match := publishedRegex.FindStringSubmatch(line); match != nil {
				fields.PublicationDate = strings.TrimSpace(match[1])
				if match[2] != "" {
					fields.Publisher = textutil.Sanitize(match[2], 200)
				}
			}
		}
		if fields.AverageRating == 0 {
			if match := ratingRegex.FindStringSubmatch(line); match != nil {
				fields.AverageRating, _ = strconv.ParseFloat(match[1], 64)
			}
		}
		if fields.RatingsCount == 0 {
			if match := countRegex.FindStringSubmatch(line); match != nil {
				fields.RatingsCount, _ = strconv.Atoi(strings.ReplaceAll(match[1], ",", ""))
			}
		}
		if fields.Setting == "" {
			if rest, ok := strings.CutPrefix(line, "Setting"); ok {
				fields.Setting = textutil.Sanitize(rest, 0)
			}
		}
		if fields.Language == "" {
			if rest, ok := strings.CutPrefix(line, "Language"); ok {
				fields.Language = textutil.Sanitize(rest, 0)
			}
		}
		if fields.ISBN13 == "" && fields.ISBN == "" {
			if rest, ok := strings.CutPrefix(line, "ISBN"); ok {
				rest = strings.TrimPrefix(rest, "13")
				rest = strings.TrimLeft(rest, ": ")
				isbn := stripISBN(strings.SplitN(rest, " ", 2)[0])
				switch len(isbn) {
				case 13:
					fields.ISBN13 = isbn
				case 10:
					fields.ISBN = isbn
				}
			}
		}
	}

	return fields
}
