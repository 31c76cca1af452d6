package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"goodreads-scraper/lib/configutil"
	"goodreads-scraper/lib/export"
	"goodreads-scraper/lib/library"
	"goodreads-scraper/lib/restyutil"
	"goodreads-scraper/lib/scrapers/goodreads"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// Config supplies defaults for the scrape flags from an optional
// scrape.json5 next to the working directory.
type Config struct {
	Format      string `json:"format"`
	Output      string `json:"output"`
	RateLimitMs int    `json:"rate_limit_ms"`
	MaxRetries  int    `json:"max_retries"`
	TimeoutSec  int    `json:"timeout_sec"`
	Sort        string `json:"sort"`
}

var (
	format          *string
	output          *string
	rateLimit       *time.Duration
	maxRetries      *int
	timeout         *time.Duration
	limit           *int
	shelf           *string
	sortKey         *string
	individualBooks *bool
	outputDir       *string
	debugHTTP       *bool
)

func init() {
	flags := scrapeCmd.Flags()
	format = flags.String("format", "json", "Output format: json or csv.")
	output = flags.StringP("output", "o", "", "Output file path. Defaults to goodreads_library.<format>.")
	rateLimit = flags.Duration("rate-limit", time.Second, "Minimum delay between page fetches.")
	maxRetries = flags.Int("max-retries", 3, "Retry attempts for transient fetch failures.")
	timeout = flags.Duration("timeout", time.Second*30, "Per-request timeout.")
	limit = flags.Int("limit", 0, "Maximum books to take per shelf. 0 means no limit.")
	shelf = flags.String("shelf", "", "Only crawl a single shelf (by slug, e.g. \"currently-reading\").")
	sortKey = flags.String("sort", "", `Listing sort key passed to goodreads (e.g. "date_added", "title"). "random" shuffles client-side.`)
	individualBooks = flags.Bool("individual-books", false, "Also write one JSON file per book as books are scraped.")
	outputDir = flags.String("output-dir", "books", "Directory for per-book files.")
	debugHTTP = flags.Bool("debug-http", false, "Dump full HTTP transcripts to .dev/resty/grscrape.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <profile-url>",
	Short: "Scrapes a public goodreads profile's library and exports it.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		applyConfigDefaults(cmd)

		if *format != "json" && *format != "csv" {
			fail(fmt.Errorf("unknown format %q, expected json or csv", *format))
		}
		outPath := *output
		if outPath == "" {
			outPath = "goodreads_library." + *format
		}

		opts := goodreads.Options{
			RateLimit:  *rateLimit,
			MaxRetries: *maxRetries,
			Timeout:    *timeout,
			Limit:      *limit,
			Shelf:      *shelf,
			Sort:       *sortKey,
		}
		if opts.Sort == "random" {
			opts.Sort = ""
			opts.Shuffle = true
		}

		var bookWriter *export.BookWriter
		if *individualBooks {
			var err error
			bookWriter, err = export.NewBookWriter(*outputDir)
			if err != nil {
				fail(err)
			}
			opts.Sink = bookWriter
		}

		var clientOpts goodreads.ClientOptions
		clientOpts.Delay = opts.RateLimit
		clientOpts.MaxRetries = opts.MaxRetries
		clientOpts.Timeout = opts.Timeout
		if *debugHTTP {
			clientOpts.DebugOutput = restyutil.NewFilesystemOutput(".dev/resty/grscrape")
		}

		pw := progress.NewWriter()
		pw.SetOutputWriter(os.Stderr)
		pw.SetUpdateFrequency(time.Millisecond * 250)
		go pw.Render()
		tracker := &progress.Tracker{Message: "scraping library"}
		pw.AppendTracker(tracker)
		opts.Progress = trackerObserver{tracker}

		scraper := goodreads.NewScraper(goodreads.NewClient(clientOpts), opts)

		t1 := time.Now()
		lib, err := scraper.ScrapeLibrary(cmd.Context(), args[0])
		tracker.MarkAsDone()
		pw.Stop()
		for pw.IsRenderInProgress() {
			time.Sleep(time.Millisecond * 10)
		}
		if err != nil {
			fail(err)
		}

		switch *format {
		case "json":
			err = export.WriteJSONFile(outPath, lib)
		case "csv":
			err = export.WriteCSVFile(outPath, lib)
		}
		if err != nil {
			fail(err)
		}
		if bookWriter != nil {
			if err := bookWriter.WriteLibraryMetadata(lib); err != nil {
				fail(err)
			}
		}

		slog.Info("scrape complete", "seconds", time.Since(t1).Seconds())
		printSummary(lib, outPath)
	},
}

// applyConfigDefaults overlays scrape.json5 values onto flags the user did
// not set explicitly. Flags always win over the config file.
func applyConfigDefaults(cmd *cobra.Command) {
	cfg, err := configutil.ReadConfig[Config]("scrape.json5")
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		fail(err)
	}

	flags := cmd.Flags()
	if cfg.Format != "" && !flags.Changed("format") {
		*format = cfg.Format
	}
	if cfg.Output != "" && !flags.Changed("output") {
		*output = cfg.Output
	}
	if cfg.RateLimitMs > 0 && !flags.Changed("rate-limit") {
		*rateLimit = time.Duration(cfg.RateLimitMs) * time.Millisecond
	}
	if cfg.MaxRetries > 0 && !flags.Changed("max-retries") {
		*maxRetries = cfg.MaxRetries
	}
	if cfg.TimeoutSec > 0 && !flags.Changed("timeout") {
		*timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}
	if cfg.Sort != "" && !flags.Changed("sort") {
		*sortKey = cfg.Sort
	}
}

type trackerObserver struct {
	tracker *progress.Tracker
}

func (o trackerObserver) Progress(current, total int, message string) {
	if total > 0 {
		o.tracker.UpdateTotal(int64(total))
	}
	o.tracker.SetValue(int64(current))
	o.tracker.UpdateMessage(message)
}

func printSummary(lib *library.Library, outPath string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendRows([]table.Row{
		{"user", fmt.Sprintf("%s (%s)", lib.Username, lib.UserID)},
		{"books", lib.TotalBooks()},
		{"read", len(lib.BooksByStatus(library.StatusRead))},
		{"currently reading", len(lib.BooksByStatus(library.StatusCurrentlyReading))},
		{"to read", len(lib.BooksByStatus(library.StatusToRead))},
		{"reviews", len(lib.BooksWithReviews())},
		{"output", outPath},
	})
	t.Render()
}

// fail prints the error with a category-specific remediation hint and
// exits.
func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	switch {
	case errors.Is(err, goodreads.ErrInvalidURL):
		fmt.Fprintln(os.Stderr, "hint: pass a profile URL shaped like https://www.goodreads.com/user/show/12345-username")
	case errors.Is(err, goodreads.ErrPrivateProfile):
		fmt.Fprintln(os.Stderr, "hint: only public profiles can be scraped; the owner controls this in their goodreads privacy settings")
	case errors.Is(err, goodreads.ErrRateLimited):
		fmt.Fprintln(os.Stderr, "hint: goodreads is pushing back; re-run with a larger --rate-limit")
	case errors.Is(err, goodreads.ErrNotFound):
		fmt.Fprintln(os.Stderr, "hint: the profile does not exist; double-check the user id in the URL")
	case errors.Is(err, goodreads.ErrNetwork):
		fmt.Fprintln(os.Stderr, "hint: check your connection and retry; transient failures are already retried with backoff")
	}
	os.Exit(1)
}
