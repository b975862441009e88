package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/desertthunder/playlistcake/internal/formatter"
	"github.com/desertthunder/playlistcake/internal/server"
	"github.com/desertthunder/playlistcake/internal/services"
	"github.com/desertthunder/playlistcake/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin runs the OAuth2 authorization code flow and stores the tokens in the config file.
//
// Starts a local HTTP server, opens the browser for user authorization, and exchanges the code for tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	srv, err := r.service()
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, srv, cmd.Duration("timeout"))
	if err != nil {
		return err
	}
	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("%s", formatter.Success("Authorization successful"))
	r.writePlainln("%s", formatter.Success("Tokens saved to %s", r.configPath))
	r.writePlainln("\nYou can now use: cake list top_tracks")
	return nil
}

// AuthStatus reports whether the stored token works by fetching the current user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.pipeline(ctx); err != nil {
		return err
	}

	user, err := r.client.CurrentUser(ctx)
	if err != nil {
		return err
	}

	name, _ := user.String("display_name")
	if name == "" {
		name = user.ID()
	}
	country, _ := user.String("country")
	product, _ := user.String("product")

	r.writePlainln("%s", formatter.Success("Authenticated as %s", name))
	r.writePlainln("User ID: %s", user.ID())
	if country != "" {
		r.writePlainln("Country: %s", country)
	}
	if product != "" {
		r.writePlainln("Plan: %s", product)
	}
	if expiry := r.cfg().Credentials.Spotify.TokenExpiry; !expiry.IsZero() {
		r.writePlainln("Token expires: %s", expiry.Local().Format(time.RFC1123))
	}
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, srv *services.SpotifyService, timeout time.Duration) (*oauth2.Token, error) {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	state := shared.GenerateID()
	oauthHandler := server.NewOAuthHandler(srv, state)
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(oauthHandler)

	config := r.cfg()
	addr := net.JoinHostPort(config.Server.Host, strconv.Itoa(config.Server.Port))
	httpServer, err := server.Start(addr, router)
	if err != nil {
		return nil, err
	}
	r.logger.Info("started OAuth callback server", "addr", httpServer.Addr())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := srv.AuthURL(state)
	r.writePlainln("→ Opening browser for Spotify authorization...")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "err", err)
		r.writePlainln("%s", formatter.Warning("Could not open browser automatically."))
		r.writePlainln("Please open this URL in your browser:\n%s\n", authURL)
	}

	r.writePlainln("→ Waiting for authorization (%s timeout)...", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-httpServer.Errors():
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Log in to Spotify using OAuth2",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: 2 * time.Minute,
			},
		},
		Action: r.AuthLogin,
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the authenticated Spotify user",
				Action: r.AuthStatus,
			},
		},
	}
}
