package tasks

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"songlift/internal/models"
	"songlift/internal/server"
	"songlift/internal/services"
	"songlift/internal/shared"
)

// authTimeout bounds how long the flow waits for the user to approve.
const authTimeout = 2 * time.Minute

// InteractiveAuth runs the authorization code flow with PKCE: it opens the
// consent page in the user's browser and serves the redirect on a temporary
// local listener. Implements [AuthFlow].
type InteractiveAuth struct {
	music       services.MusicService
	store       services.SessionStore
	redirectURI string
	openBrowser func(url string) error
	logger      *log.Logger
}

// NewInteractiveAuth creates the flow. redirectURI must match the one
// registered with the application (e.g. http://localhost:8089/callback).
func NewInteractiveAuth(music services.MusicService, store services.SessionStore, redirectURI string, logger *log.Logger) *InteractiveAuth {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &InteractiveAuth{
		music:       music,
		store:       store,
		redirectURI: redirectURI,
		openBrowser: shared.OpenBrowser,
		logger:      logger,
	}
}

// Authorize obtains a fresh session. The verifier is stored keyed by state
// before the browser opens and consumed exactly once in the callback, which
// is served by [server.CallbackHandler] on a temporary loopback listener.
func (a *InteractiveAuth) Authorize(ctx context.Context) (*models.AuthSession, error) {
	if a.music == nil || a.store == nil {
		return nil, fmt.Errorf("authorization flow missing service or store: %w", shared.ErrInvalidConfig)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	verifier, err := shared.GenerateVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verifier: %w", err)
	}

	if err := a.store.PutVerifier(state, verifier); err != nil {
		return nil, err
	}

	redirect, err := url.Parse(a.redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI %q: %w", a.redirectURI, shared.ErrInvalidConfig)
	}
	callbackPath := redirect.Path
	if callbackPath == "" {
		callbackPath = "/callback"
	}

	callback := server.NewCallbackHandler(a.music, a.store)

	mux := http.NewServeMux()
	mux.Handle(callbackPath, callback)

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	srv := &http.Server{Handler: mux}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := a.music.AuthURL(state, shared.ChallengeS256(verifier))
	if err := a.openBrowser(authURL); err != nil {
		a.logger.Warn("could not open browser, visit manually", "url", authURL)
	} else {
		a.logger.Info("waiting for authorization in browser")
	}

	select {
	case result := <-callback.Result():
		return result.Session, result.Error()
	case err := <-serveErr:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("authorization not completed within %s: %w", authTimeout, shared.ErrTimeout)
	}
}
