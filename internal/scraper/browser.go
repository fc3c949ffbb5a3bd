package scraper

import (
	"context"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/chromedp/chromedp"

	"github.com/calmackay/commutecast/internal/utils"
)

// browserManager owns the single shared headless-browser process. The
// session is created lazily, and a session found dead is torn down and
// recreated on next use, never reused.
type browserManager struct {
	mu          sync.Mutex
	allocStop   context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
}

// get returns a live browser context, launching the browser if needed.
// Callers must not cancel the returned context; they derive tab
// contexts from it instead.
func (m *browserManager) get() (context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browserCtx != nil && m.browserCtx.Err() == nil {
		return m.browserCtx, nil
	}
	m.teardownLocked()

	utils.Log.Info("starting new browser instance")
	launch := func() error {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.WindowSize(1280, 720),
		)
		allocCtx, allocStop := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, browserStop := chromedp.NewContext(allocCtx)

		// Run with no actions forces the browser process to start, so a
		// broken environment fails here instead of mid-scrape.
		if err := chromedp.Run(browserCtx); err != nil {
			browserStop()
			allocStop()
			return err
		}

		m.allocStop = allocStop
		m.browserCtx = browserCtx
		m.browserStop = browserStop
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	if err := backoff.Retry(launch, policy); err != nil {
		return nil, err
	}
	return m.browserCtx, nil
}

// close tears down the browser session if one exists.
func (m *browserManager) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
}

func (m *browserManager) teardownLocked() {
	if m.browserStop != nil {
		m.browserStop()
		m.browserStop = nil
		m.browserCtx = nil
	}
	if m.allocStop != nil {
		m.allocStop()
		m.allocStop = nil
		utils.Log.Info("browser closed")
	}
}
