package goodreads

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"goodreads-scraper/lib/restyutil"
	"goodreads-scraper/lib/textutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("scrapers/goodreads")

// Client fetches goodreads pages with pacing and bounded retries. All
// fetches go through the same rate limiter, so page requests are serialized
// no matter how they interleave.
type Client struct {
	http       *resty.Client
	limiter    *rate.Limiter
	maxRetries int
}

type ClientOptions struct {
	// Delay is the minimum gap between requests. Zero means no pacing.
	Delay time.Duration
	// MaxRetries bounds retry attempts on transient failures.
	MaxRetries int
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// DebugOutput, when set, receives full request/response transcripts.
	DebugOutput restyutil.InstrumentOutput
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(opts.Timeout)

	restyutil.InstrumentClient(client, tracer, opts.DebugOutput)

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	return &Client{
		http:       client,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: opts.MaxRetries,
	}
}

// GetDocument fetches a page and parses it into a goquery document.
// Transient failures (connection errors, 5xx) are retried with exponential
// backoff; 404, 429 and other 4xx statuses fail immediately with the
// matching sentinel error.
func (c *Client) GetDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrNetwork, pageURL, err)
	}
	return doc, nil
}

func (c *Client) get(ctx context.Context, pageURL string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Second * (1 << (attempt - 1))
			slog.WarnContext(
				ctx, "retrying request",
				"url", pageURL,
				"attempt", attempt,
				"backoff", backoff,
				"err", lastErr,
			)
			if err := sleepCtx(ctx, backoff); err != nil {
				return "", err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		res, err := c.http.R().SetContext(ctx).Get(pageURL)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrNetwork, err)
			continue
		}

		status := res.StatusCode()
		switch {
		case status >= 200 && status < 300:
			return res.String(), nil
		case status == 404:
			return "", fmt.Errorf("%w: %s", ErrNotFound, pageURL)
		case status == 429:
			return "", fmt.Errorf("%w: %s", ErrRateLimited, pageURL)
		case status >= 500:
			lastErr = fmt.Errorf("%w: status %d from %s", ErrNetwork, status, pageURL)
			continue
		default:
			return "", fmt.Errorf("%w: status %d from %s", ErrNetwork, status, pageURL)
		}
	}

	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// markers are matched whitespace-insensitively; goodreads has used several
// renderings of the private-profile notice over time
var privateProfileMarkers = []string{
	"thisprofileisprivate",
	"privateprofile",
	"profile-private",
	"signintoseethispage",
}

// IsPrivateProfile checks a profile or listing page for private-profile
// markers. Distinct from fetch failure: the page itself loaded fine.
func IsPrivateProfile(doc *goquery.Document) bool {
	html, err := doc.Html()
	if err != nil {
		return false
	}
	return textutil.MatchName(html, privateProfileMarkers)
}
