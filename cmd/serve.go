package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/desertthunder/releasedash/internal/server"
	"github.com/desertthunder/releasedash/internal/session"
	"github.com/desertthunder/releasedash/internal/shared"
	"github.com/desertthunder/releasedash/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the web dashboard until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if cmd.IsSet("port") {
		r.config.Server.Port = cmd.Int("port")
	}

	oauth, err := r.oauthClient()
	if err != nil {
		return err
	}

	cfg := r.config.Session
	cookies, err := server.NewCookieCodec(server.CookieOpts{
		Name:   cfg.CookieName,
		Secret: []byte(cfg.Secret),
		TTL:    cfg.CookieTTL(),
		Secure: strings.HasPrefix(r.config.Provider.RedirectURI, "https://"),
	})
	if err != nil {
		return err
	}
	if cfg.Secret == "" {
		r.logger.Warn("no session secret configured, sessions end on restart")
	}

	dashboard, err := web.NewDashboard(web.DashboardOpts{
		Store:   session.NewStore(),
		Manager: r.manager(oauth),
		OAuth:   oauth,
		Catalog: r.catalog(),
		Cookies: cookies,
		Logger:  shared.WithLogger(r.logger, "component", "web"),
	})
	if err != nil {
		return err
	}

	if !cmd.Bool("no-banner") {
		r.writePlain("%s\n", figure.NewFigure("releasedash", "cybermedium", true).String())
	}
	r.writePlain("→ Dashboard at http://%s (redirect URI %s)\n", r.config.Server.Addr(), r.config.Provider.RedirectURI)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.ServerOpts{
		Addr:    r.config.Server.Addr(),
		Handler: dashboard.Handler(),
		Logger:  r.logger,
	})
	return srv.Run(ctx)
}
