package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/releasedash/internal/shared"
	"github.com/desertthunder/releasedash/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI authorizes if needed, then launches the interactive release browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	sess, _, err := r.authorize(ctx)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/releasedash-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	oauth, err := r.oauthClient()
	if err != nil {
		return err
	}
	model := ui.NewModel(ctx, r.manager(oauth), r.catalog(), sess)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
