package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"songlift/internal/models"
	"songlift/internal/services"
	"songlift/internal/shared"
)

// CallbackResult contains the result of an authorization flow.
type CallbackResult struct {
	Session *models.AuthSession
	err     error
}

func (c *CallbackResult) Error() error {
	return c.err
}

// CallbackHandler handles the authorization code redirect for the PKCE flow.
// The state parameter looks up the stored verifier (consumed on read), the
// code is exchanged with that verifier, and the resulting session is
// persisted. Implements the Handler interface.
type CallbackHandler struct {
	music      services.MusicService
	store      services.SessionStore
	resultChan chan CallbackResult
	once       sync.Once

	mu          sync.Mutex
	callbackHit bool
}

// NewCallbackHandler creates a handler wired to the given provider and store.
func NewCallbackHandler(music services.MusicService, store services.SessionStore) *CallbackHandler {
	return &CallbackHandler{
		music:      music,
		store:      store,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the authorization redirect.
//
// Only the first callback is processed to prevent replay.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		err := fmt.Errorf("authorization refused: %s: %w", errParam, shared.ErrNotAuthorized)
		h.send(CallbackResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		err := fmt.Errorf("missing code or state parameter: %w", shared.ErrInvalidInput)
		h.send(CallbackResult{err: err})
		http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
		return
	}

	verifier, err := h.store.TakeVerifier(state)
	if err != nil {
		if errors.Is(err, shared.ErrNoVerifier) {
			h.send(CallbackResult{err: err})
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}
		h.send(CallbackResult{err: err})
		http.Error(w, "Verifier lookup failed", http.StatusInternalServerError)
		return
	}

	session, err := h.music.Exchange(r.Context(), code, verifier)
	if err != nil {
		h.send(CallbackResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	if err := h.store.Put(session); err != nil {
		h.send(CallbackResult{err: fmt.Errorf("failed to persist session: %w", err)})
		http.Error(w, "Failed to persist session", http.StatusInternalServerError)
		return
	}

	h.send(CallbackResult{Session: session})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>&#10003; Authorization Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// send delivers the result through the channel (only once).
func (h *CallbackHandler) send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}
