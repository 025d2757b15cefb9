package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/resolver"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/desertthunder/songdl/internal/sources"
	"github.com/desertthunder/songdl/internal/tagger"
	"github.com/desertthunder/songdl/internal/tasks"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// Resolve prints the search plan for a free-text query and, unless --plan is set, the resolved URL.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}
	defer r.close()

	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	title, artist, media, ok := sources.ParseLine(query)
	if !ok {
		return fmt.Errorf("%w: %q is not a track", shared.ErrInvalidArgument, query)
	}
	track, err := models.NewTrack(title, artist, "")
	if err != nil {
		return err
	}
	track = track.WithMedia(media)

	planOnly := cmd.Bool("plan")
	var res *resolver.Resolver
	if planOnly {
		res = resolver.New(nil, resolver.Options{OfficialSuffix: r.config.Resolver.OfficialSuffix, Logger: r.logger})
	} else if res, err = r.newResolver(ctx, r.pacer()); err != nil {
		return err
	}

	r.writePlainHeader(track.String())
	if track.IsPreResolved() {
		r.writePlain("pre-resolved: %s\n", track.Media())
	} else {
		for i, q := range res.Queries(track) {
			r.writePlain("%d. [%s] %s\n", i+1, q.Tier, q.Text)
		}
		if r.config.Resolver.DegradedRetry {
			r.writePlain("   [%s] %s\n", models.TierDegraded, resolver.DegradedQuery(track))
		}
	}
	if planOnly {
		return nil
	}

	found, err := res.Resolve(ctx, track)
	if errors.Is(err, shared.ErrNoResult) && r.config.Resolver.DegradedRetry {
		found, err = res.ResolveDegraded(ctx, track)
	}
	if errors.Is(err, shared.ErrNoResult) {
		r.writePlain("\nno result\n")
		return nil
	}
	if err != nil {
		return err
	}

	r.writePlain("\n%s (%s)\n", found.URL, found.Tier)
	return nil
}

type inspection struct {
	Path  string         `json:"path"`
	Size  int64          `json:"size"`
	Tags  *tagger.Fields `json:"tags,omitempty"`
	Error string         `json:"error,omitempty"`
}

// Inspect prints the embedded tags of each file argument.
func (r *Runner) Inspect(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: at least one file", shared.ErrMissingArgument)
	}

	results := make([]inspection, 0, len(paths))
	for _, path := range paths {
		item := inspection{Path: path}
		if info, err := os.Stat(path); err == nil {
			item.Size = info.Size()
		}
		fields, err := tagger.Read(path)
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Tags = fields
		}
		results = append(results, item)
	}

	if cmd.Bool("json") {
		return r.writeJSON(results, true)
	}

	for _, item := range results {
		r.writePlain("%s (%s)\n", item.Path, humanize.Bytes(uint64(max(item.Size, 0))))
		if item.Tags == nil {
			r.writePlain("  no tags: %s\n", item.Error)
			continue
		}
		r.writePlain("  Title:  %s\n", item.Tags.Title)
		r.writePlain("  Artist: %s\n", item.Tags.Artist)
		r.writePlain("  Album:  %s\n", item.Tags.Album)
		r.writePlain("  Format: %s\n", item.Tags.Format)
	}
	return nil
}

// Clean removes temp artifacts left in the output directory by interrupted runs.
func (r *Runner) Clean(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	dir := r.config.Output.Dir
	removed, err := tasks.SweepTemp(dir)
	if err != nil {
		return err
	}

	r.logger.Debug("swept temp files", "dir", dir, "removed", removed)
	r.writePlain("Removed %d partial downloads from %s\n", removed, dir)
	return nil
}
