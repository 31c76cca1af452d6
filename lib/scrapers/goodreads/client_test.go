package goodreads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return NewClient(ClientOptions{MaxRetries: 2})
}

func TestClientStatusClassification(t *testing.T) {
	cases := []struct {
		status    int
		expectErr error
		// how many times the server should have been hit; 4xx is never
		// retried
		expectRequests int32
	}{
		{status: 404, expectErr: ErrNotFound, expectRequests: 1},
		{status: 429, expectErr: ErrRateLimited, expectRequests: 1},
		{status: 403, expectErr: ErrNetwork, expectRequests: 1},
		{status: 500, expectErr: ErrNetwork, expectRequests: 3},
	}

	for _, test := range cases {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			w.WriteHeader(test.status)
		}))

		_, err := testClient().GetDocument(context.Background(), server.URL)
		require.ErrorIs(t, err, test.expectErr, "status %d", test.status)
		require.Equal(t, test.expectRequests, requests.Load(), "status %d", test.status)
		server.Close()
	}
}

func TestClientRetriesThenSucceeds(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html><body><p>ok</p></body></html>"))
	}))
	defer server.Close()

	doc, err := testClient().GetDocument(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, "ok", doc.Find("p").Text())
	require.Equal(t, int32(2), requests.Load())
}

func TestClientContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testClient().GetDocument(ctx, server.URL)
	require.Error(t, err)
}

func TestClientRateLimiterSpacing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	delay := time.Millisecond * 50
	client := NewClient(ClientOptions{Delay: delay})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.GetDocument(context.Background(), server.URL)
		require.NoError(t, err)
	}
	// first request fires immediately, the next two wait for a token each
	require.GreaterOrEqual(t, time.Since(start), 2*delay)
}

func TestIsPrivateProfile(t *testing.T) {
	private := mustDoc(t, `<html><body><div>This Profile Is Private</div></body></html>`)
	require.True(t, IsPrivateProfile(private))

	private = mustDoc(t, `<html><body><div class="privateProfile">sign in</div></body></html>`)
	require.True(t, IsPrivateProfile(private))

	public := mustDoc(t, `<html><body><table id="books"></table></body></html>`)
	require.False(t, IsPrivateProfile(public))
}
