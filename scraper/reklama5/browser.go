package reklama5

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	apperrors "reklama5-scraper/pkg/errors"
	"reklama5-scraper/utils"
)

// BrowserFetcher renders pages in headless Chrome. It is slower than
// HTTPFetcher and meant for networks where plain requests get blocked.
type BrowserFetcher struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc

	timeout time.Duration
	retry   *utils.RetryConfig
	logger  *utils.Logger
}

var _ Fetcher = (*BrowserFetcher)(nil)

// NewBrowserFetcher starts a headless browser. chromeBin may be empty to
// search the usual install locations.
func NewBrowserFetcher(chromeBin string, timeout time.Duration, maxAttempts int, logger *utils.Logger) (*BrowserFetcher, error) {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[browser] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(userAgents[0]),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	// Suppress chromedp log noise
	browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// Start the browser now so every Fetch opens a tab in it.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		cancelAlloc()
		return nil, apperrors.NewFetch("browser", "start "+chromeBin, err)
	}

	return &BrowserFetcher{
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		browserCtx:  browserCtx,
		cancel:      cancel,
		timeout:     timeout,
		retry: &utils.RetryConfig{
			MaxAttempts: maxAttempts,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}, nil
}

// Fetch loads url in a fresh tab and returns the rendered document.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var html string
	err := b.retry.Do(ctx, "browser "+shorten(url), func() error {
		tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
		defer cancelTab()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
		defer cancelTimeout()

		// Stop the tab when the caller gives up.
		stop := context.AfterFunc(ctx, cancelTab)
		defer stop()

		var out string
		if err := chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.OuterHTML("html", &out, chromedp.ByQuery),
		); err != nil {
			return apperrors.NewFetch(url, "chromedp navigate", err)
		}
		html = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() error {
	b.cancel()
	b.cancelAlloc()
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
