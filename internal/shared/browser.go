package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenBrowser opens rawURL in the default browser. `auth login` and the TUI use it to send the user to the
// provider's authorization page.
//
// The launcher is started and not waited on.
func OpenBrowser(rawURL string) error {
	cmd, err := browserCommand(runtime.GOOS, rawURL)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()

	return nil
}

// browserCommand returns the platform's URL launcher for rawURL.
func browserCommand(goos, rawURL string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", rawURL), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", rawURL), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL), nil
	default:
		return nil, fmt.Errorf("%w: cannot open a browser on %s, visit %s", ErrUnsupportedPlatform, goos, rawURL)
	}
}
