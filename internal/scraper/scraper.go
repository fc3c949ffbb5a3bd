// Package scraper acquires live bus departures from the transit
// operator's public live-times page, as the free fallback behind the
// metered primary API. A shared headless browser renders the page, and
// selector-chain heuristics extract structured departures from it.
package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/calmackay/commutecast/internal/utils"
	"github.com/calmackay/commutecast/pkg/transit"
)

// DefaultBaseURL is the live bus times page scraped as a fallback.
const DefaultBaseURL = "https://www.lothianbuses.com/live-travel-info/live-bus-times/"

// DefaultRequestTimeout bounds one full navigate-and-extract pass.
const DefaultRequestTimeout = 30 * time.Second

// Candidate selectors for the stop search input, tried in order. When
// none matches, the scraper falls back to a direct query-parameter URL.
var searchInputSelectors = []string{
	`input[name="stop"]`,
	`input[placeholder*="stop"]`,
	`input[id*="stop"]`,
	`input[type="search"]`,
	`#stop-search`,
	`.stop-search input`,
	`input.form-control`,
}

// Scraper drives the headless browser against the live-times page.
type Scraper struct {
	baseURL string
	timeout time.Duration
	browser *browserManager
	now     func() time.Time
}

func New(baseURL string, timeout time.Duration) *Scraper {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Scraper{
		baseURL: baseURL,
		timeout: timeout,
		browser: &browserManager{},
		now:     time.Now,
	}
}

// Prewarm launches the browser ahead of the first request.
func (s *Scraper) Prewarm() error {
	_, err := s.browser.get()
	return err
}

// Close tears down the shared browser session.
func (s *Scraper) Close() {
	s.browser.close()
}

// Scrape fetches live departures for one stop. It never returns an
// error: failures produce a structurally valid result with a diagnostic
// Error string and an empty departure list.
func (s *Scraper) Scrape(ctx context.Context, stopCode string) *transit.StopDepartures {
	res := &transit.StopDepartures{
		StopCode:    stopCode,
		GeneratedAt: s.now().Format(time.RFC3339),
		Departures:  []transit.Departure{},
	}

	html, err := s.fetchPage(ctx, stopCode)
	if err != nil {
		res.Error = fmt.Sprintf("error scraping stop %s: %v", stopCode, err)
		utils.Log.Error(res.Error)
		return res
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		res.Error = fmt.Sprintf("error parsing page for stop %s: %v", stopCode, err)
		utils.Log.Error(res.Error)
		return res
	}

	deps, stopName := extractDepartures(doc, s.now())
	res.StopName = stopName
	if len(deps) == 0 {
		res.Error = "no departure data found - website structure may have changed"
		utils.Log.Warnf("stop %s: %s", stopCode, res.Error)
		return res
	}
	res.Departures = deps
	return res
}

// fetchPage navigates to the live-times page, searches for the stop (or
// falls back to a direct URL), and returns the rendered HTML. The tab is
// always released, on every exit path.
func (s *Scraper) fetchPage(ctx context.Context, stopCode string) (string, error) {
	browserCtx, err := s.browser.get()
	if err != nil {
		return "", fmt.Errorf("browser launch: %w", err)
	}

	tab, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tab, cancelTimeout := context.WithTimeout(tab, s.timeout)
	defer cancelTimeout()

	// Stop if the caller gave up while we were waiting for the browser.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	utils.Log.Infof("navigating to live bus times for stop %s", stopCode)
	if err := chromedp.Run(tab, chromedp.Navigate(s.baseURL)); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}

	if input := s.findSearchInput(tab); input != "" {
		utils.Log.Debugf("found search input with selector %q", input)
		err = chromedp.Run(tab,
			chromedp.SendKeys(input, stopCode, chromedp.ByQuery),
			chromedp.SendKeys(input, kb.Enter, chromedp.ByQuery),
			chromedp.Sleep(3*time.Second),
		)
	} else {
		directURL := fmt.Sprintf("%s?stop=%s", s.baseURL, stopCode)
		utils.Log.Infof("no search input found, trying direct URL %s", directURL)
		err = chromedp.Run(tab,
			chromedp.Navigate(directURL),
			chromedp.Sleep(2*time.Second),
		)
	}
	if err != nil {
		return "", fmt.Errorf("load departures: %w", err)
	}

	var html string
	if err := chromedp.Run(tab, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capture page: %w", err)
	}
	return html, nil
}

// findSearchInput tries each candidate selector with a short wait,
// returning the first one that appears.
func (s *Scraper) findSearchInput(tab context.Context) string {
	for _, sel := range searchInputSelectors {
		sub, cancel := context.WithTimeout(tab, 3*time.Second)
		err := chromedp.Run(sub, chromedp.WaitVisible(sel, chromedp.ByQuery))
		cancel()
		if err == nil {
			return sel
		}
	}
	return ""
}

// StopFetcher is the piece of the scraper the cache fronts. Satisfied
// by *Scraper; tests substitute a fake.
type StopFetcher interface {
	Scrape(ctx context.Context, stopCode string) *transit.StopDepartures
}

// Service is the cache-fronted scraping engine exposed over HTTP. The
// miss path is serialized so two concurrent misses for the same stop
// cannot double-scrape or double-populate the cache.
type Service struct {
	mu      sync.Mutex
	cache   *Cache
	fetcher StopFetcher
}

func NewService(fetcher StopFetcher, cache *Cache) *Service {
	return &Service{cache: cache, fetcher: fetcher}
}

// StopDepartures returns departures for stopCode, served from cache
// within the TTL window. Fresh results, including error-carrying ones,
// are cached.
func (s *Service) StopDepartures(ctx context.Context, stopCode string) *transit.StopDepartures {
	key := strings.ToUpper(strings.TrimSpace(stopCode))

	if hit := s.cache.Get(key); hit != nil {
		return hit
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another caller may have populated the entry while we waited.
	if hit := s.cache.Get(key); hit != nil {
		return hit
	}

	utils.Log.Infof("fetching fresh data for stop %s", key)
	data := s.fetcher.Scrape(ctx, key)
	s.cache.Set(key, data)
	return data
}

// ClearCache drops every cached stop.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// CacheTTL exposes the configured TTL for the health endpoint.
func (s *Service) CacheTTL() time.Duration {
	return s.cache.TTL()
}
