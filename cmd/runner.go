package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/releasedash/internal/services"
	"github.com/desertthunder/releasedash/internal/session"
	"github.com/desertthunder/releasedash/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	session    *session.Session
	openURL    func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Session    *session.Session   // Reused across commands; a fresh unauthenticated session when nil
	OpenURL    func(string) error // Opens the authorization URL; defaults to [shared.OpenBrowser]
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Session == nil {
		opts.Session = session.NewSession()
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		session:    opts.Session,
		openURL:    opts.OpenURL,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Before loads the configuration file and applies root flag overrides.
//
// A missing file at the default path is not an error; the embedded defaults are used instead.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path != "" {
		r.configPath = path
	}

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.logger.Debug("loaded config", "path", r.configPath)
	} else if cmd.IsSet("config") {
		return ctx, fmt.Errorf("%w: %s", shared.ErrMissingConfig, r.configPath)
	}

	if id := cmd.String("client-id"); id != "" {
		r.config.Provider.ClientID = id
	}
	if secret := cmd.String("client-secret"); secret != "" {
		r.config.Provider.ClientSecret = secret
	}

	level := cmd.String("log-level")
	if level == "" {
		level = r.config.Log.Level
	}
	if err := shared.SetLogLevel(r.logger, level); err != nil {
		return ctx, err
	}

	return ctx, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, authCommand, releasesCommand, tracksCommand, tuiCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// oauthClient builds the token endpoint client from the current configuration.
func (r *Runner) oauthClient() (*services.OAuthClient, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	return services.NewOAuthClient(services.OAuthOpts{
		Provider:   r.config.Provider,
		HTTPClient: r.httpClient,
		Timeout:    r.config.HTTP.Timeout(),
	})
}

// manager builds the token lifecycle manager around exchanger.
func (r *Runner) manager(exchanger services.TokenExchanger) *session.Manager {
	return session.NewManager(session.ManagerOpts{
		Exchanger:       exchanger,
		Logger:          shared.WithLogger(r.logger, "component", "session"),
		RefreshMargin:   r.config.Session.RefreshMargin(),
		DefaultLifetime: r.config.Session.DefaultLifetime(),
	})
}

// catalog builds the catalog client from the current configuration.
func (r *Runner) catalog() *services.CatalogClient {
	return services.NewCatalogClient(services.CatalogOpts{
		BaseURL:    r.config.Provider.APIBaseURL,
		HTTPClient: r.httpClient,
		Timeout:    r.config.HTTP.Timeout(),
		RateLimit:  r.config.HTTP.RateLimit,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
