// Package scraper drives a headless browser through a TikTok profile and
// collects the audio titles of its videos.
//
// The engine owns navigation, scrolling, and anti-detection measures;
// selector logic lives in extract.go so it stays testable without a browser.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"songlift/internal/models"
	"songlift/internal/shared"
)

const (
	profileURLFormat = "https://www.tiktok.com/@%s"
	tiktokOrigin     = "https://www.tiktok.com"
	cookieDomain     = ".tiktok.com"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

	// scrollStableRounds is how many consecutive scrolls with no new videos
	// end the grid walk.
	scrollStableRounds = 2

	minPause = 800 * time.Millisecond
	maxPause = 2500 * time.Millisecond
)

// hideWebdriver masks the most common headless fingerprints before any page
// script runs.
const hideWebdriver = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3]});
`

// ProgressFunc receives scrape progress: the stage name, how many videos
// have been visited, and how many are queued.
type ProgressFunc func(stage string, current, total int)

// Engine scrapes profiles with a stealth-configured headless browser.
type Engine struct {
	cfg     shared.ScraperConfig
	headers *shared.CurlHeaders
	logger  *log.Logger
}

// NewEngine creates a scrape engine. headers may be nil; when present, its
// cookies and user agent are replayed into the browser so the session looks
// like the one exported from DevTools.
func NewEngine(cfg shared.ScraperConfig, headers *shared.CurlHeaders, logger *log.Logger) *Engine {
	if cfg.MaxVideos <= 0 {
		cfg.MaxVideos = 1000
	}
	if cfg.MaxScrolls <= 0 {
		cfg.MaxScrolls = 30
	}
	if cfg.NavTimeoutSec <= 0 {
		cfg.NavTimeoutSec = 60
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Engine{cfg: cfg, headers: headers, logger: logger}
}

func (e *Engine) userAgent() string {
	if e.headers != nil {
		if ua := e.headers.UserAgent(); ua != "" {
			return ua
		}
	}
	return defaultUserAgent
}

// allocatorOptions builds the browser launch flags. The automation banner
// and blink automation flag are disabled so TikTok's bot checks see an
// ordinary Chrome profile.
func (e *Engine) allocatorOptions() []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("window-size", "1280,900"),
		chromedp.UserAgent(e.userAgent()),
	)
}

// setCookies installs the exported session cookies on the TikTok domain.
func (e *Engine) setCookies(ctx context.Context) error {
	if e.headers == nil {
		return nil
	}

	pairs := e.headers.CookiePairs()
	if len(pairs) == 0 {
		return nil
	}

	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, pair := range pairs {
			err := network.SetCookie(pair[0], pair[1]).
				WithDomain(cookieDomain).
				WithPath("/").
				Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", pair[0], err)
			}
		}
		return nil
	}))
}

// pause sleeps a human-looking random interval between page actions,
// returning early when the context is cancelled.
func pause(ctx context.Context, min, max time.Duration) {
	timer := time.NewTimer(shared.HumanDelay(min, max))
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// ScrapeProfile walks a profile's video grid and returns the deduplicated
// audio titles in first-seen order. The profile name must already be
// normalized (no leading @).
func (e *Engine) ScrapeProfile(ctx context.Context, profile string, onProgress func(stage string, current, total int)) (*models.ScrapeResult, error) {
	if profile == "" {
		return nil, fmt.Errorf("profile is required: %w", shared.ErrInvalidInput)
	}
	if onProgress == nil {
		onProgress = func(string, int, int) {}
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, e.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Install the fingerprint mask before any document loads so it applies
	// to every navigation.
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, mapNavError(fmt.Errorf("failed to start browser: %w", err))
	}
	if err := e.setCookies(browserCtx); err != nil {
		return nil, mapNavError(err)
	}

	html, err := e.loadProfile(browserCtx, profile)
	if err != nil {
		return nil, err
	}

	if IsEmptyProfile(html) {
		e.logger.Info("profile has no videos", "profile", profile)
		return &models.ScrapeResult{Profile: profile, UniqueTitles: []string{}}, nil
	}

	links, err := e.collectVideoLinks(browserCtx, profile)
	if err != nil {
		return nil, err
	}
	if len(links) > e.cfg.MaxVideos {
		links = links[:e.cfg.MaxVideos]
	}

	e.logger.Info("collected video grid", "profile", profile, "videos", len(links))
	onProgress("grid", 0, len(links))

	titles, visited, err := e.visitVideos(browserCtx, links, onProgress)
	if err != nil {
		return nil, err
	}

	result := &models.ScrapeResult{
		Profile:            profile,
		TotalVideosScraped: visited,
		UniqueTitles:       titles,
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}

	return result, nil
}

// loadProfile navigates to the profile page, recovering once from an
// anti-bot interstitial by reloading.
func (e *Engine) loadProfile(ctx context.Context, profile string) (string, error) {
	url := fmt.Sprintf(profileURLFormat, profile)

	html, err := e.navigate(ctx, url)
	if err != nil {
		return "", err
	}

	if IsBlocked(html) {
		e.logger.Warn("hit interstitial on profile load, reloading once", "profile", profile)
		pause(ctx, 2*time.Second, 4*time.Second)

		html, err = e.reload(ctx)
		if err != nil {
			return "", err
		}
		if IsBlocked(html) {
			return "", shared.ErrBlocked
		}
	}

	if IsMissingProfile(html) {
		return "", fmt.Errorf("profile %q: %w", profile, shared.ErrProfileNotFound)
	}

	return html, nil
}

// collectVideoLinks scrolls the grid until the video count stabilizes, the
// scroll budget runs out, or enough videos are loaded.
func (e *Engine) collectVideoLinks(ctx context.Context, profile string) ([]string, error) {
	var links []string
	stable := 0

	for scroll := 0; scroll < e.cfg.MaxScrolls; scroll++ {
		html, err := e.pageHTML(ctx)
		if err != nil {
			return nil, err
		}

		found, err := VideoLinks(html)
		if err != nil {
			return nil, err
		}

		if len(found) == len(links) {
			stable++
			if stable >= scrollStableRounds {
				break
			}
		} else {
			stable = 0
		}
		links = found

		if len(links) >= e.cfg.MaxVideos {
			break
		}

		err = chromedp.Run(ctx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		)
		if err != nil {
			return nil, mapNavError(err)
		}

		// The new tiles only render after the lazy loader fires, so the
		// stability check above is meaningless without this wait.
		pause(ctx, minPause, maxPause)
	}

	if len(links) == 0 {
		// A profile that renders a grid with zero tiles after scrolling is
		// indistinguishable from a hidden or removed one.
		return nil, fmt.Errorf("profile %q has no reachable videos: %w", profile, shared.ErrProfileNotFound)
	}

	return links, nil
}

// visitVideos opens each video and extracts its audio title, deduplicating
// while preserving first-seen order.
func (e *Engine) visitVideos(ctx context.Context, links []string, onProgress ProgressFunc) ([]string, int, error) {
	titles := []string{}
	seen := make(map[string]bool)
	visited := 0

	for i, link := range links {
		html, err := e.navigate(ctx, absoluteURL(link))
		if err != nil {
			if errors.Is(err, shared.ErrTimeout) {
				// One slow video should not sink the whole scrape.
				e.logger.Warn("video navigation timed out, skipping", "url", link)
				visited++
				onProgress("videos", i+1, len(links))
				continue
			}
			return nil, visited, err
		}
		visited++

		title, err := videoPageTitle(html)
		if err != nil {
			return nil, visited, err
		}

		if title != "" && !seen[title] {
			seen[title] = true
			titles = append(titles, title)
		}

		onProgress("videos", i+1, len(links))
		pause(ctx, minPause, maxPause)
	}

	return titles, visited, nil
}

// videoPageTitle extracts the audio title from a fetched video document.
// Countermeasures can appear at any point in the walk, so an interstitial
// here aborts the scrape instead of yielding empty titles.
func videoPageTitle(html string) (string, error) {
	if IsBlocked(html) {
		return "", fmt.Errorf("hit interstitial during video visits: %w", shared.ErrBlocked)
	}
	return AudioTitle(html)
}

// navigate loads a URL under the per-page timeout and returns the rendered
// document.
func (e *Engine) navigate(ctx context.Context, url string) (string, error) {
	navCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.NavTimeoutSec)*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", mapNavError(err)
	}

	return html, nil
}

func (e *Engine) reload(ctx context.Context) (string, error) {
	navCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.NavTimeoutSec)*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(navCtx,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", mapNavError(err)
	}

	return html, nil
}

func (e *Engine) pageHTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", mapNavError(err)
	}
	return html, nil
}

func mapNavError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	return err
}

func absoluteURL(link string) string {
	if strings.HasPrefix(link, "/") {
		return tiktokOrigin + link
	}
	return link
}
