package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"songlift/internal/shared"
)

func TestNewEngine(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		e := NewEngine(shared.ScraperConfig{}, nil, nil)

		if e.cfg.MaxVideos != 1000 {
			t.Errorf("expected default max videos 1000, got %d", e.cfg.MaxVideos)
		}
		if e.cfg.MaxScrolls != 30 {
			t.Errorf("expected default max scrolls 30, got %d", e.cfg.MaxScrolls)
		}
		if e.cfg.NavTimeoutSec != 60 {
			t.Errorf("expected default nav timeout 60s, got %d", e.cfg.NavTimeoutSec)
		}
		if e.logger == nil {
			t.Error("expected a default logger")
		}
	})

	t.Run("Configured Values Kept", func(t *testing.T) {
		cfg := shared.ScraperConfig{MaxVideos: 50, MaxScrolls: 5, NavTimeoutSec: 10}
		e := NewEngine(cfg, nil, nil)

		if e.cfg.MaxVideos != 50 || e.cfg.MaxScrolls != 5 || e.cfg.NavTimeoutSec != 10 {
			t.Errorf("configured values were overridden: %+v", e.cfg)
		}
	})
}

func TestUserAgent(t *testing.T) {
	t.Run("From Exported Session", func(t *testing.T) {
		headers := &shared.CurlHeaders{Headers: map[string]string{"user-agent": "Custom UA"}}
		e := NewEngine(shared.ScraperConfig{}, headers, nil)

		if got := e.userAgent(); got != "Custom UA" {
			t.Errorf("expected exported user agent, got %q", got)
		}
	})

	t.Run("Fallback", func(t *testing.T) {
		e := NewEngine(shared.ScraperConfig{}, nil, nil)

		if got := e.userAgent(); got != defaultUserAgent {
			t.Errorf("expected default user agent, got %q", got)
		}
	})
}

func TestScrapeProfileValidation(t *testing.T) {
	e := NewEngine(shared.ScraperConfig{}, nil, nil)

	_, err := e.ScrapeProfile(context.Background(), "", nil)
	if !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty profile, got %v", err)
	}
}

func TestPause(t *testing.T) {
	t.Run("Waits The Interval", func(t *testing.T) {
		start := time.Now()
		pause(context.Background(), 30*time.Millisecond, 30*time.Millisecond)

		if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
			t.Errorf("pause returned after %s, want at least 30ms", elapsed)
		}
	})

	t.Run("Cancelled Context Returns Early", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		pause(ctx, 5*time.Second, 5*time.Second)

		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("pause ignored cancellation, took %s", elapsed)
		}
	})
}

func TestVideoPageTitle(t *testing.T) {
	t.Run("Extracts Title", func(t *testing.T) {
		html := `<html><body><div class="DivMusicText">Flowers - Miley Cyrus</div></body></html>`

		title, err := videoPageTitle(html)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if title != "Flowers - Miley Cyrus" {
			t.Errorf("videoPageTitle() = %q", title)
		}
	})

	t.Run("Interstitial Aborts The Visit", func(t *testing.T) {
		html := `<html><body><h1>Something went wrong</h1></body></html>`

		if _, err := videoPageTitle(html); !errors.Is(err, shared.ErrBlocked) {
			t.Errorf("expected ErrBlocked for an interstitial, got %v", err)
		}
	})
}

func TestAbsoluteURL(t *testing.T) {
	tt := []struct {
		in   string
		want string
	}{
		{"/@someuser/video/111", "https://www.tiktok.com/@someuser/video/111"},
		{"https://www.tiktok.com/@u/video/2", "https://www.tiktok.com/@u/video/2"},
	}

	for _, tc := range tt {
		if got := absoluteURL(tc.in); got != tc.want {
			t.Errorf("absoluteURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMapNavError(t *testing.T) {
	wrapped := fmt.Errorf("run: %w", context.DeadlineExceeded)
	if !errors.Is(mapNavError(wrapped), shared.ErrTimeout) {
		t.Error("deadline errors should map to ErrTimeout")
	}

	plain := errors.New("browser crashed")
	if errors.Is(mapNavError(plain), shared.ErrTimeout) {
		t.Error("non-deadline errors should pass through unchanged")
	}
}
