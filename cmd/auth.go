package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"songlift/internal/tasks"
)

// AuthLogin runs the interactive PKCE flow and stores the resulting session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	music, err := r.musicService()
	if err != nil {
		return err
	}
	store, err := r.sessionStore()
	if err != nil {
		return err
	}

	flow := tasks.NewInteractiveAuth(music, store, r.config.Credentials.Spotify.RedirectURI, r.logger)

	session, err := flow.Authorize(ctx)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	r.writePlain("Authorized as %s\n", session.UserID)
	r.writePlain("Session expires %s\n", time.UnixMilli(session.ExpiresAt).Format(time.RFC1123))
	return nil
}

// AuthStatus shows whether a stored session exists and when it expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	store, err := r.sessionStore()
	if err != nil {
		return err
	}

	session, err := store.Get()
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	if session == nil {
		r.writePlain("Not authorized\n")
		r.writePlain("Run 'songlift auth login' to connect your Spotify account\n")
		return nil
	}

	expiry := time.UnixMilli(session.ExpiresAt)
	if session.Valid(time.Now()) {
		r.writePlain("Authorized as %s\n", session.UserID)
		r.writePlain("Session expires %s\n", expiry.Format(time.RFC1123))
	} else {
		r.writePlain("Session for %s expired %s\n", session.UserID, expiry.Format(time.RFC1123))
		r.writePlain("Run 'songlift auth login' to reauthorize\n")
	}
	return nil
}

// AuthLogout clears the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	store, err := r.sessionStore()
	if err != nil {
		return err
	}

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	r.writePlain("Session cleared\n")
	return nil
}
