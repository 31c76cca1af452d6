package main

import (
	"goodreads-scraper/cmd/grscrape/commands"
	"goodreads-scraper/lib/osutil"
	"goodreads-scraper/lib/telemetry"
)

func main() {
	// Ctrl+C cancels the crawl instead of killing it mid-request
	ctx := osutil.SignalContext()

	t, err := telemetry.SetupFromEnv(ctx, "grscrape")
	if err == nil {
		defer t.Shutdown(ctx)
	}
	telemetry.InitSlog(false)

	commands.ExecuteContext(ctx)
}
