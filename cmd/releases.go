package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/desertthunder/releasedash/internal/formatter"
	"github.com/desertthunder/releasedash/internal/services"
	"github.com/desertthunder/releasedash/internal/shared"
	"github.com/urfave/cli/v3"
)

// Releases lists new releases, optionally with each album's tracks.
func (r *Runner) Releases(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	sess, manager, err := r.authorize(ctx)
	if err != nil {
		return err
	}
	catalog := services.NewCachedCatalog(r.catalog(), sess.Cache)

	r.ensure(ctx, manager)
	albums, err := catalog.NewReleases(ctx, sess.Record.AccessToken)
	if err != nil {
		return err
	}

	r.logger.Info("listed new releases", "count", len(albums))

	releases := make([]formatter.Release, len(albums))
	for i, album := range albums {
		releases[i] = formatter.Release{Album: album}
		if !cmd.Bool("tracks") {
			continue
		}

		r.ensure(ctx, manager)
		tracks, err := catalog.AlbumTracks(ctx, sess.Record.AccessToken, album.ID)
		if err != nil {
			return fmt.Errorf("album %s: %w", album.ID, err)
		}
		releases[i].Tracks = tracks
	}

	data, err := formatter.Releases(format, releases)
	if err != nil {
		return err
	}

	return r.emit(cmd.String("output"), data, fmt.Sprintf("%d releases", len(releases)))
}

// Tracks lists one album's tracks in provider order.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	albumID := cmd.StringArg("album-id")
	if albumID == "" {
		return fmt.Errorf("%w: album-id", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	sess, manager, err := r.authorize(ctx)
	if err != nil {
		return err
	}

	r.ensure(ctx, manager)
	tracks, err := services.NewCachedCatalog(r.catalog(), sess.Cache).AlbumTracks(ctx, sess.Record.AccessToken, albumID)
	if err != nil {
		return err
	}

	data, err := formatter.Tracks(format, tracks)
	if err != nil {
		return err
	}

	return r.emit(cmd.String("output"), data, fmt.Sprintf("%d tracks", len(tracks)))
}

// emit writes data to path, or to the runner's output when path is empty.
func (r *Runner) emit(path string, data []byte, what string) error {
	if path != "" {
		if err := formatter.WriteFile(path, data); err != nil {
			return err
		}
		r.logger.Info("export written", "path", path)
		return r.writePlain("✓ Wrote %s to %s\n", what, path)
	}

	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
