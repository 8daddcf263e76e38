package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"songlift/internal/models"
	"songlift/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestSessionRepository(t *testing.T) {
	t.Run("Get On Empty Store", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)

		session, err := repo.Get()
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if session != nil {
			t.Errorf("expected nil session on empty store, got %+v", session)
		}
	})

	t.Run("Put And Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		want := &models.AuthSession{
			AccessToken: "token-abc",
			ExpiresAt:   time.Now().Add(time.Hour).UnixMilli(),
			UserID:      "user123",
		}

		if err := repo.Put(want); err != nil {
			t.Fatalf("failed to put session: %v", err)
		}

		got, err := repo.Get()
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if got == nil {
			t.Fatal("expected a session after put")
		}
		if got.AccessToken != want.AccessToken {
			t.Errorf("expected token %s, got %s", want.AccessToken, got.AccessToken)
		}
		if got.ExpiresAt != want.ExpiresAt {
			t.Errorf("expected expiry %d, got %d", want.ExpiresAt, got.ExpiresAt)
		}
		if got.UserID != want.UserID {
			t.Errorf("expected user %s, got %s", want.UserID, got.UserID)
		}
	})

	t.Run("Put Replaces Previous Session", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)

		first := &models.AuthSession{AccessToken: "old", ExpiresAt: 1000, UserID: "user1"}
		if err := repo.Put(first); err != nil {
			t.Fatalf("failed to put first session: %v", err)
		}

		second := &models.AuthSession{AccessToken: "new", ExpiresAt: 2000, UserID: "user2"}
		if err := repo.Put(second); err != nil {
			t.Fatalf("failed to put second session: %v", err)
		}

		got, err := repo.Get()
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if got.AccessToken != "new" || got.UserID != "user2" {
			t.Errorf("expected replacement session, got %+v", got)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM auth_sessions").Scan(&count); err != nil {
			t.Fatalf("failed to count sessions: %v", err)
		}
		if count != 1 {
			t.Errorf("expected a single stored session, got %d rows", count)
		}
	})

	t.Run("Put Rejects Invalid Session", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)

		if err := repo.Put(nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for nil session, got %v", err)
		}
		if err := repo.Put(&models.AuthSession{UserID: "u"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing token, got %v", err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)

		if err := repo.Clear(); err != nil {
			t.Fatalf("clearing an empty store should succeed: %v", err)
		}

		session := &models.AuthSession{AccessToken: "token", ExpiresAt: 1000, UserID: "u"}
		if err := repo.Put(session); err != nil {
			t.Fatalf("failed to put session: %v", err)
		}

		if err := repo.Clear(); err != nil {
			t.Fatalf("failed to clear session: %v", err)
		}

		got, err := repo.Get()
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil session after clear, got %+v", got)
		}
	})

	t.Run("Verifier Is Single Use", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)

		if err := repo.PutVerifier("state1", "verifier1"); err != nil {
			t.Fatalf("failed to put verifier: %v", err)
		}

		got, err := repo.TakeVerifier("state1")
		if err != nil {
			t.Fatalf("failed to take verifier: %v", err)
		}
		if got != "verifier1" {
			t.Errorf("expected verifier1, got %s", got)
		}

		if _, err := repo.TakeVerifier("state1"); !errors.Is(err, shared.ErrNoVerifier) {
			t.Errorf("expected ErrNoVerifier on second take, got %v", err)
		}
	})

	t.Run("Take Unknown State", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)

		if _, err := repo.TakeVerifier("missing"); !errors.Is(err, shared.ErrNoVerifier) {
			t.Errorf("expected ErrNoVerifier for unknown state, got %v", err)
		}
	})

	t.Run("Verifiers Are Keyed By State", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)

		if err := repo.PutVerifier("stateA", "verifierA"); err != nil {
			t.Fatalf("failed to put verifier: %v", err)
		}
		if err := repo.PutVerifier("stateB", "verifierB"); err != nil {
			t.Fatalf("failed to put verifier: %v", err)
		}

		got, err := repo.TakeVerifier("stateB")
		if err != nil {
			t.Fatalf("failed to take verifier: %v", err)
		}
		if got != "verifierB" {
			t.Errorf("expected verifierB, got %s", got)
		}

		remaining, err := repo.TakeVerifier("stateA")
		if err != nil {
			t.Fatalf("taking stateB should not consume stateA: %v", err)
		}
		if remaining != "verifierA" {
			t.Errorf("expected verifierA, got %s", remaining)
		}
	})
}

func TestScrapeResultRepository(t *testing.T) {
	t.Run("Save And Latest", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewScrapeResultRepository(db)
		result := &models.ScrapeResult{
			Profile:            "someuser",
			TotalVideosScraped: 3,
			UniqueTitles:       []string{"song one - artist", "original sound"},
		}

		id, err := repo.Save(result)
		if err != nil {
			t.Fatalf("failed to save scrape result: %v", err)
		}
		if id == "" {
			t.Error("expected a generated ID")
		}

		got, err := repo.Latest("someuser")
		if err != nil {
			t.Fatalf("failed to load scrape result: %v", err)
		}
		if got == nil {
			t.Fatal("expected a cached result")
		}
		if got.TotalVideosScraped != 3 {
			t.Errorf("expected 3 videos, got %d", got.TotalVideosScraped)
		}
		if len(got.UniqueTitles) != 2 || got.UniqueTitles[0] != "song one - artist" {
			t.Errorf("unexpected titles: %v", got.UniqueTitles)
		}
	})

	t.Run("Latest For Unknown Profile", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewScrapeResultRepository(db)

		got, err := repo.Latest("nobody")
		if err != nil {
			t.Fatalf("failed to query: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for unknown profile, got %+v", got)
		}
	})

	t.Run("Latest Returns Most Recent", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewScrapeResultRepository(db)

		older := &models.ScrapeResult{Profile: "someuser", TotalVideosScraped: 1, UniqueTitles: []string{"old"}}
		if _, err := repo.Save(older); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		// Distinct timestamps so ordering is deterministic.
		if _, err := db.Exec("UPDATE scrape_results SET scraped_at = ?", time.Now().Add(-time.Hour)); err != nil {
			t.Fatalf("failed to backdate: %v", err)
		}

		newer := &models.ScrapeResult{Profile: "someuser", TotalVideosScraped: 2, UniqueTitles: []string{"new"}}
		if _, err := repo.Save(newer); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := repo.Latest("someuser")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got.TotalVideosScraped != 2 {
			t.Errorf("expected the most recent result, got %+v", got)
		}
	})

	t.Run("Save Rejects Invalid Result", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewScrapeResultRepository(db)

		if _, err := repo.Save(&models.ScrapeResult{Profile: ""}); err == nil {
			t.Error("expected validation error for empty profile")
		}
	})

	t.Run("Prune", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewScrapeResultRepository(db)

		result := &models.ScrapeResult{Profile: "someuser", TotalVideosScraped: 1, UniqueTitles: []string{"t"}}
		if _, err := repo.Save(result); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if _, err := db.Exec("UPDATE scrape_results SET scraped_at = ?", time.Now().Add(-48*time.Hour)); err != nil {
			t.Fatalf("failed to backdate: %v", err)
		}

		removed, err := repo.Prune(24 * time.Hour)
		if err != nil {
			t.Fatalf("failed to prune: %v", err)
		}
		if removed != 1 {
			t.Errorf("expected 1 pruned row, got %d", removed)
		}
	})
}
