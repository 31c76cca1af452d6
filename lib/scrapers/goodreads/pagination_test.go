package goodreads

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildListingURL(t *testing.T) {
	profile := "https://www.goodreads.com/user/show/172435467-tim-brown"

	cases := []struct {
		page   int
		shelf  string
		sort   string
		expect string
	}{
		{page: 1, shelf: "all", expect: "https://www.goodreads.com/review/list/172435467?shelf=all"},
		{page: 1, shelf: "", expect: "https://www.goodreads.com/review/list/172435467?shelf=all"},
		{page: 2, shelf: "read", expect: "https://www.goodreads.com/review/list/172435467?page=2&shelf=read"},
		{page: 3, shelf: "to-read", sort: "date_added", expect: "https://www.goodreads.com/review/list/172435467?page=3&shelf=to-read&sort=date_added"},
	}

	for _, test := range cases {
		got, err := BuildListingURL(profile, test.page, test.shelf, test.sort)
		require.NoError(t, err)
		require.Equal(t, test.expect, got)
	}

	_, err := BuildListingURL("https://www.goodreads.com/book/show/1", 1, "all", "")
	require.ErrorIs(t, err, ErrInvalidURL)
}

func TestNextPage(t *testing.T) {
	withNext := mustDoc(t, `<html><body>
	  <div id="reviewPagination">
	    <a href="?page=1">1</a>
	    <a href="?page=2&shelf=read" class="next_page">next »</a>
	  </div>
	</body></html>`)
	require.True(t, HasNextPage(withNext))
	require.Equal(t,
		"https://www.goodreads.com/review/list/172435467?page=2&shelf=read",
		NextPageURL(withNext, "https://www.goodreads.com/review/list/172435467?page=1&shelf=read"),
	)

	lastPage := mustDoc(t, `<html><body>
	  <div id="reviewPagination"><em class="current">2</em><a href="?page=1">« previous</a></div>
	</body></html>`)
	require.False(t, HasNextPage(lastPage))
	require.Equal(t, "", NextPageURL(lastPage, "https://www.goodreads.com/review/list/172435467"))

	noPagination := mustDoc(t, `<html><body><table></table></body></html>`)
	require.False(t, HasNextPage(noPagination))
}
