package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"songlift/internal/shared"
	tu "songlift/internal/testing"
)

func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "songlift.db")
	return config
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Fatal("expected registered commands")
		}

		names := map[string]bool{}
		for _, command := range commands {
			names[command.Name] = true
		}

		for _, want := range []string{"setup", "auth", "scrape", "classify", "run", "sync", "cache", "serve"} {
			if !names[want] {
				t.Errorf("missing command %q", want)
			}
		}
	})

	t.Run("musicService", func(t *testing.T) {
		t.Run("missing client id", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = ""
			runner := NewRunner(RunnerOpts{Config: config})

			if _, err := runner.musicService(); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("with client id", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = "client123"
			runner := NewRunner(RunnerOpts{Config: config})

			if _, err := runner.musicService(); err != nil {
				t.Errorf("expected a service, got %v", err)
			}
		})
	})

	t.Run("newClassifier", func(t *testing.T) {
		t.Run("missing api key", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Gemini.APIKey = ""
			runner := NewRunner(RunnerOpts{Config: config})

			if _, err := runner.newClassifier(); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("with api key", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Gemini.APIKey = "key123"
			runner := NewRunner(RunnerOpts{Config: config})

			if _, err := runner.newClassifier(); err != nil {
				t.Errorf("expected a classifier, got %v", err)
			}
		})
	})

	t.Run("newScraper", func(t *testing.T) {
		t.Run("without curl file", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig()})

			if _, err := runner.newScraper(); err != nil {
				t.Errorf("expected an engine, got %v", err)
			}
		})

		t.Run("missing curl file fails", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Scraper.CurlFile = filepath.Join(t.TempDir(), "missing.sh")
			runner := NewRunner(RunnerOpts{Config: config})

			if _, err := runner.newScraper(); err == nil {
				t.Error("expected an error for a missing cURL file")
			}
		})
	})

	t.Run("database", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Config: testConfig(t)})

		db, err := runner.database()
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		// Migrations ran, so the session table exists.
		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='auth_sessions'").Scan(&name)
		if err != nil {
			t.Fatalf("expected migrated schema: %v", err)
		}

		again, err := runner.database()
		if err != nil || again != db {
			t.Error("expected the open handle to be reused")
		}
	})

	t.Run("optionalScrapeCache", func(t *testing.T) {
		t.Run("returns repository when database opens", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: testConfig(t)})

			if cache := runner.optionalScrapeCache(); cache == nil {
				t.Error("expected a scrape cache with a working database")
			}
			if runner.db != nil {
				defer runner.db.Close()
			}
		})

		t.Run("untyped nil when database unavailable", func(t *testing.T) {
			config := testConfig(t)
			config.Database.Path = "/dev/null/songlift.db"
			runner := NewRunner(RunnerOpts{Config: config})

			if cache := runner.optionalScrapeCache(); cache != nil {
				t.Errorf("expected nil interface, got %T", cache)
			}
		})
	})

	t.Run("reloadConfig", func(t *testing.T) {
		t.Run("missing file keeps current config", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			runner.reloadConfig(filepath.Join(t.TempDir(), "nope.toml"))

			if runner.config != config {
				t.Error("expected config to be unchanged")
			}
		})

		t.Run("valid file replaces config", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			content := "[credentials.spotify]\nclient_id = \"from-file\"\n"
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}

			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig()})
			runner.reloadConfig(path)

			if runner.config.Credentials.Spotify.ClientID != "from-file" {
				t.Errorf("expected config from file, got %q", runner.config.Credentials.Spotify.ClientID)
			}
		})
	})
}
