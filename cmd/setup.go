package main

import (
	"context"

	"github.com/desertthunder/releasedash/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the embedded example configuration to --path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Configuration written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set provider.client_id and provider.client_secret (or RELEASEDASH_CLIENT_ID / RELEASEDASH_CLIENT_SECRET)\n")
	r.writePlain("2. Register %s as a redirect URI with the provider\n", r.config.Provider.RedirectURI)
	r.writePlain("3. Run 'releasedash serve' and open http://%s\n", r.config.Server.Addr())
	return nil
}
