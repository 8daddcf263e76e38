package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"songlift/internal/models"
	"songlift/internal/shared"
)

// currentSessionID is the fixed primary key for the single stored session.
// Writing a new session replaces the previous one.
const currentSessionID = "current"

// SessionRepository persists the Spotify auth session and in-flight PKCE
// verifiers. It implements services.SessionStore.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get retrieves the stored session, or nil if none has been saved.
func (r *SessionRepository) Get() (*models.AuthSession, error) {
	query := `
		SELECT access_token, expires_at, user_id
		FROM auth_sessions
		WHERE id = ?
	`

	var session models.AuthSession
	err := r.db.QueryRow(query, currentSessionID).Scan(&session.AccessToken, &session.ExpiresAt, &session.UserID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return &session, nil
}

// Put stores the session, replacing any previous one. The token, expiry, and
// user ID are written in a single transaction so a concurrent Get never sees
// fields from two different sessions.
func (r *SessionRepository) Put(session *models.AuthSession) error {
	if session == nil {
		return fmt.Errorf("session must not be nil: %w", shared.ErrInvalidInput)
	}
	if session.AccessToken == "" || session.UserID == "" {
		return fmt.Errorf("session missing token or user: %w", shared.ErrInvalidInput)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM auth_sessions WHERE id = ?", currentSessionID); err != nil {
		return fmt.Errorf("failed to clear previous session: %w", err)
	}

	query := `
		INSERT INTO auth_sessions (id, access_token, expires_at, user_id, updated_at) VALUES (?, ?, ?, ?, ?)
	`

	if _, err := tx.Exec(query, currentSessionID, session.AccessToken, session.ExpiresAt, session.UserID, time.Now()); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return tx.Commit()
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (r *SessionRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM auth_sessions WHERE id = ?", currentSessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// PutVerifier stores a PKCE verifier keyed by the state parameter of the
// authorization request that carried its challenge.
func (r *SessionRepository) PutVerifier(state, verifier string) error {
	if state == "" || verifier == "" {
		return fmt.Errorf("state and verifier are required: %w", shared.ErrInvalidInput)
	}

	query := `
		INSERT OR REPLACE INTO pkce_verifiers (state, verifier, created_at) VALUES (?, ?, ?)
	`

	if _, err := r.db.Exec(query, state, verifier, time.Now()); err != nil {
		return fmt.Errorf("failed to store verifier: %w", err)
	}
	return nil
}

// TakeVerifier retrieves and deletes the verifier for the given state in one
// transaction. A verifier can be taken exactly once; a second take (or a take
// for an unknown state) returns [shared.ErrNoVerifier].
func (r *SessionRepository) TakeVerifier(state string) (string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var verifier string
	err = tx.QueryRow("SELECT verifier FROM pkce_verifiers WHERE state = ?", state).Scan(&verifier)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no verifier for state %q: %w", state, shared.ErrNoVerifier)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query verifier: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM pkce_verifiers WHERE state = ?", state); err != nil {
		return "", fmt.Errorf("failed to delete verifier: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit verifier take: %w", err)
	}

	return verifier, nil
}
