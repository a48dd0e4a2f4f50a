package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/riffline/riffline/internal/sessioncache"
	"github.com/riffline/riffline/internal/shared"
	"github.com/urfave/cli/v3"
)

// SessionShow prints the cached session state.
func (r *Runner) SessionShow(ctx context.Context, cmd *cli.Command) error {
	session, err := r.sessions.Load()
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return r.writePlain("%s\n", r.palette.Warn.Render("No session cached. Run `riffline session login` first."))
		}
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(session, true)
	}

	status := r.palette.OK.Render("valid")
	if !session.Valid(time.Now()) {
		status = r.palette.Err.Render("expired")
	}

	return r.writePlain("Session %s, expires %s\n", status, session.ExpiresAt.Format(time.RFC3339))
}

// SessionImport extracts a grant from a login redirect URL and caches it.
func (r *Runner) SessionImport(ctx context.Context, cmd *cli.Command) error {
	rawURL := cmd.StringArg("url")
	if rawURL == "" {
		return fmt.Errorf("%w: redirect URL required", shared.ErrMissingArgument)
	}

	loc, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %v", shared.ErrValidation, err)
	}

	grant, _, ok := sessioncache.ExtractFromLocation(loc)
	if !ok {
		return fmt.Errorf("%w: URL has no access_token parameter", shared.ErrValidation)
	}

	if err := r.sessions.Persist(grant.AccessToken, grant.ExpiresIn); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	return r.writePlain("%s\n", r.palette.OK.Render("✓ Session imported"))
}

// SessionClear forgets the cached session.
func (r *Runner) SessionClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.sessions.Clear(); err != nil {
		return err
	}
	return r.writePlain("%s\n", r.palette.OK.Render("✓ Session cleared"))
}

// SessionLogin opens the login endpoint in a browser. The redirect lands
// back on the configured server, which must be running.
func (r *Runner) SessionLogin(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	loginURL := fmt.Sprintf("http://%s/api/auth/login", config.Server.Addr())

	r.logger.Info("opening login page", "url", loginURL)
	if err := shared.OpenBrowser(loginURL); err != nil {
		return r.writePlain("Open this URL in your browser:\n  %s\n", loginURL)
	}

	return r.writePlain("After logging in, import the redirect URL with `riffline session import <url>`\n")
}
