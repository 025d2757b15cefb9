package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/repositories"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

type cacheRow struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	URL     string `json:"url"`
	Tier    string `json:"tier"`
	Query   string `json:"query"`
	Created string `json:"created_at"`
}

type runRow struct {
	RunID    string `json:"run_id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Outcome  string `json:"outcome"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
	Created  string `json:"created_at"`
}

// openCache opens the cache database whether or not lookups are enabled for downloads.
func (r *Runner) openCache(cmd *cli.Command) (*sql.DB, error) {
	if err := r.prepare(cmd); err != nil {
		return nil, err
	}
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenCacheDatabase(r.config.Cache)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

// CacheList prints remembered resolutions, oldest first.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if tier := strings.TrimSpace(cmd.String("tier")); tier != "" {
		if _, err := models.ParseTier(tier); err != nil {
			return err
		}
		criteria["tier"] = tier
	}

	db, err := r.openCache(cmd)
	if err != nil {
		return err
	}
	defer r.close()

	entries, err := repositories.NewMediaCacheRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		rows := make([]cacheRow, 0, len(entries))
		for _, e := range entries {
			media := e.Media()
			rows = append(rows, cacheRow{
				Key:     e.Key(),
				Title:   e.Title(),
				Artist:  e.Artist(),
				URL:     media.URL,
				Tier:    media.Tier.String(),
				Query:   media.Query,
				Created: e.CreatedAt().UTC().Format("2006-01-02T15:04:05Z"),
			})
		}
		return r.writeJSON(rows, true)
	}

	if len(entries) == 0 {
		r.writePlain("No cached resolutions\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Cached resolutions (%d)", len(entries)))
	for _, e := range entries {
		media := e.Media()
		r.writePlain("%s - %s\n", e.Artist(), e.Title())
		r.writePlain("  %s [%s] %s\n", media.URL, media.Tier, humanize.Time(e.CreatedAt()))
	}
	return nil
}

// CacheClear forgets every remembered resolution.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openCache(cmd)
	if err != nil {
		return err
	}
	defer r.close()

	n, err := repositories.NewMediaCacheRepository(db).Clear()
	if err != nil {
		return err
	}

	r.logger.Debug("cleared cache", "entries", n)
	r.writePlain("Removed %d cached resolutions\n", n)
	return nil
}

// CacheRuns prints the run ledger grouped by run, oldest first.
func (r *Runner) CacheRuns(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{"run_id": strings.TrimSpace(cmd.String("run-id"))}
	if outcome := strings.TrimSpace(cmd.String("outcome")); outcome != "" {
		if _, err := models.ParseOutcome(outcome); err != nil {
			return err
		}
		criteria["outcome"] = outcome
	}

	db, err := r.openCache(cmd)
	if err != nil {
		return err
	}
	defer r.close()

	records, err := repositories.NewRunRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		rows := make([]runRow, 0, len(records))
		for _, rec := range records {
			rows = append(rows, runRow{
				RunID:    rec.RunID(),
				Title:    rec.Title(),
				Artist:   rec.Artist(),
				Outcome:  rec.Outcome(),
				Filename: rec.Filename(),
				URL:      rec.MediaURL(),
				Error:    rec.ErrorText(),
				Created:  rec.CreatedAt().UTC().Format("2006-01-02T15:04:05Z"),
			})
		}
		return r.writeJSON(rows, true)
	}

	if len(records) == 0 {
		r.writePlain("No recorded runs\n")
		return nil
	}

	current := ""
	for _, rec := range records {
		if rec.RunID() != current {
			current = rec.RunID()
			r.writePlainHeader(fmt.Sprintf("Run %s (%s)", current, humanize.Time(rec.CreatedAt())))
		}
		name := rec.Title()
		if rec.Artist() != "" {
			name = rec.Artist() + " - " + rec.Title()
		}
		r.writePlain("%-18s %s\n", rec.Outcome(), name)
		if rec.ErrorText() != "" {
			r.writePlain("  %s\n", rec.ErrorText())
		}
	}
	return nil
}
