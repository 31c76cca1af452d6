package goodreads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseReviewPage(t *testing.T) {
	html := `<html><body>
	  <div class="shelves">
	    <a href="/review/list/172435467?shelf=read">read</a>
	    <a href="/review/list/172435467?shelf=favorites">favorites</a>
	    <a href="/review/list/172435467?shelf=owned-books">owned-books</a>
	    <a href="/genres/fiction?shelf=ignored">fiction</a>
	  </div>
	  <div class="readingTimeline">
	    <div class="readingTimeline__text">March 28, 2021 – Finished Reading</div>
	    <div class="readingTimeline__text">March 5, 2021 – Started Reading</div>
	    <div class="readingTimeline__text">January 5, 2021 – Shelved</div>
	  </div>
	  <div class="reviewText"><span id="freeTextContainer123">An absolute favorite. Reread it every spring.</span></div>
	  <span class="reviewDate">April 2, 2021</span>
	  <a class="likesCount">12 likes</a>
	</body></html>`

	fields := ParseReviewPage(mustDoc(t, html))

	require.Equal(t, []string{"read", "favorites", "owned-books"}, fields.Shelves)
	require.Equal(t, "read", fields.ReadingStatus)

	require.Len(t, fields.ReadRecords, 1)
	require.NotNil(t, fields.ReadRecords[0].DateStarted)
	require.NotNil(t, fields.ReadRecords[0].DateFinished)
	require.Equal(t, time.Date(2021, time.March, 5, 0, 0, 0, 0, time.UTC), *fields.ReadRecords[0].DateStarted)
	require.Equal(t, time.Date(2021, time.March, 28, 0, 0, 0, 0, time.UTC), *fields.ReadRecords[0].DateFinished)

	require.NotNil(t, fields.DateAdded)
	require.Equal(t, time.Date(2021, time.January, 5, 0, 0, 0, 0, time.UTC), *fields.DateAdded)

	require.Equal(t, "An absolute favorite. Reread it every spring.", fields.ReviewText)
	require.NotNil(t, fields.ReviewDate)
	require.Equal(t, 12, fields.ReviewLikes)
}

func TestParseReviewPageMultipleReads(t *testing.T) {
	html := `<html><body><div class="readingTimeline">
	  <div class="readingTimeline__text">June 20, 2023 – Finished Reading</div>
	  <div class="readingTimeline__text">June 1, 2023 – Started Reading</div>
	  <div class="readingTimeline__text">March 28, 2021 – Finished Reading</div>
	  <div class="readingTimeline__text">March 5, 2021 – Started Reading</div>
	  <div class="readingTimeline__text">January 5, 2021 – Shelved</div>
	</div></body></html>`

	fields := ParseReviewPage(mustDoc(t, html))
	require.Len(t, fields.ReadRecords, 2)

	// oldest read first, most recent read last
	require.Equal(t, time.Date(2021, time.March, 5, 0, 0, 0, 0, time.UTC), *fields.ReadRecords[0].DateStarted)
	require.Equal(t, time.Date(2021, time.March, 28, 0, 0, 0, 0, time.UTC), *fields.ReadRecords[0].DateFinished)
	require.Equal(t, time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), *fields.ReadRecords[1].DateStarted)
	require.Equal(t, time.Date(2023, time.June, 20, 0, 0, 0, 0, time.UTC), *fields.ReadRecords[1].DateFinished)
}

func TestParseReviewPageStatusFromTimeline(t *testing.T) {
	html := `<html><body><div class="readingTimeline">
	  <div class="readingTimeline__text">January 5, 2021 – Shelved as "currently-reading"</div>
	  <div class="readingTimeline__text">January 5, 2021 – Started Reading</div>
	</div></body></html>`

	fields := ParseReviewPage(mustDoc(t, html))
	require.Equal(t, "currently-reading", fields.ReadingStatus)
	require.Len(t, fields.ReadRecords, 1)
	require.NotNil(t, fields.ReadRecords[0].DateStarted)
	require.Nil(t, fields.ReadRecords[0].DateFinished)
}

func TestParseReviewPageEmpty(t *testing.T) {
	fields := ParseReviewPage(mustDoc(t, "<html><body></body></html>"))
	require.Empty(t, fields.Shelves)
	require.Empty(t, fields.ReadRecords)
	require.Equal(t, "", fields.ReviewText)
	require.Nil(t, fields.DateAdded)
}
