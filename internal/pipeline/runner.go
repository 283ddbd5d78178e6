// Package pipeline orchestrates one warehouse run end to end and schedules
// recurring runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"playlistpulse/internal/core"
	"playlistpulse/internal/extract"
	"playlistpulse/internal/reconcile"
	"playlistpulse/internal/warehouse"
)

// Extractor pulls the tracked playlists' current state from the catalog.
type Extractor interface {
	ExtractTrackedPlaylists(ctx context.Context, playlistIDs []string) (*extract.Result, error)
}

// Reconciler resolves extraction output into loadable fact rows.
type Reconciler interface {
	Reconcile(ctx context.Context, extracted reconcile.Extraction, date string) (*reconcile.FactSet, error)
}

// Recorder receives run-level metrics. The HTTP server implements it; a
// NopRecorder serves one-shot runs and tests.
type Recorder interface {
	RecordRun(status string)
	RecordRunDuration(d time.Duration)
	RecordRowsInserted(table string, n int)
	RecordDuplicate(table string)
}

// NopRecorder discards all measurements.
type NopRecorder struct{}

func (NopRecorder) RecordRun(string)                {}
func (NopRecorder) RecordRunDuration(time.Duration) {}
func (NopRecorder) RecordRowsInserted(string, int)  {}
func (NopRecorder) RecordDuplicate(string)          {}

type Runner struct {
	store      *warehouse.Store
	extractor  Extractor
	reconciler Reconciler
	recorder   Recorder
	logger     *zap.Logger
	location   *time.Location
}

func NewRunner(
	store *warehouse.Store,
	extractor Extractor,
	reconciler Reconciler,
	recorder Recorder,
	logger *zap.Logger,
	location *time.Location,
) *Runner {
	return &Runner{
		store:      store,
		extractor:  extractor,
		reconciler: reconciler,
		recorder:   recorder,
		logger:     logger,
		location:   location,
	}
}

// Run performs one complete warehouse run: ensure schema, extract the tracked
// playlists, load the date and dimension rows, reconcile, load facts.
// Dimensions always land before facts so every fact's keys resolve.
func (r *Runner) Run(ctx context.Context) error {
	started := time.Now()

	err := r.run(ctx)

	r.recorder.RecordRunDuration(time.Since(started))
	if err != nil {
		r.recorder.RecordRun("failure")
		return err
	}

	r.recorder.RecordRun("success")
	r.logger.Info("Run completed", zap.Duration("elapsed", time.Since(started)))
	return nil
}

func (r *Runner) run(ctx context.Context) error {
	if err := r.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	playlists, err := r.store.TrackedPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("list tracked playlists: %w", err)
	}
	if len(playlists) == 0 {
		r.logger.Warn("No playlists registered, nothing to do")
		return nil
	}

	extracted, err := r.extractor.ExtractTrackedPlaylists(ctx, playlists)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	today := core.NewDateRow(time.Now().In(r.location))
	r.loadDate(ctx, today)
	r.loadDimensions(ctx, extracted)

	facts, err := r.reconciler.Reconcile(ctx, reconcile.Extraction{
		TrackArtists:   extracted.TrackArtists,
		TrackPlaylists: extracted.TrackPlaylists,
	}, today.Date)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	return r.loadFacts(ctx, facts)
}

func (r *Runner) loadDate(ctx context.Context, row core.DateRow) {
	err := r.store.InsertDate(ctx, row)
	switch {
	case err == nil:
		r.recorder.RecordRowsInserted("date_dim", 1)
	case errors.Is(err, warehouse.ErrDuplicateRow):
		r.recorder.RecordDuplicate("date_dim")
		r.logger.Debug("Date row already present", zap.String("date", row.Date))
	default:
		r.logger.Error("Failed to insert date row", zap.String("date", row.Date), zap.Error(err))
	}
}

// loadDimensions inserts the run's track and artist rows. Duplicates are the
// steady state on every run after the first; other row failures are logged and
// the load moves on, leaving the row for reconciliation to reject if a fact
// needs it.
func (r *Runner) loadDimensions(ctx context.Context, extracted *extract.Result) {
	inserted := 0
	for _, track := range extracted.Tracks {
		err := r.store.InsertTrack(ctx, track)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, warehouse.ErrDuplicateRow):
			r.recorder.RecordDuplicate("track_dim")
		default:
			r.logger.Error("Failed to insert track row",
				zap.String("trackID", track.SpotifyID), zap.Error(err))
		}
	}
	r.recorder.RecordRowsInserted("track_dim", inserted)

	inserted = 0
	for _, artist := range extracted.Artists {
		err := r.store.InsertArtist(ctx, artist)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, warehouse.ErrDuplicateRow):
			r.recorder.RecordDuplicate("artist_dim")
		default:
			r.logger.Error("Failed to insert artist row",
				zap.String("artistID", artist.SpotifyID), zap.Error(err))
		}
	}
	r.recorder.RecordRowsInserted("artist_dim", inserted)
}

// loadFacts loads each fact table in its own transaction. A failed table rolls
// back wholesale without touching the other; both failures are reported.
func (r *Runner) loadFacts(ctx context.Context, facts *reconcile.FactSet) error {
	var errs []error

	if err := r.store.InsertTrackArtistFacts(ctx, facts.TrackArtists); err != nil {
		r.logger.Error("Track-artist fact load failed", zap.Error(err))
		errs = append(errs, err)
	} else {
		r.recorder.RecordRowsInserted("track_artist_fact", len(facts.TrackArtists))
	}

	if err := r.store.InsertTrackPlaylistFacts(ctx, facts.TrackPlaylists); err != nil {
		r.logger.Error("Track-playlist fact load failed", zap.Error(err))
		errs = append(errs, err)
	} else {
		r.recorder.RecordRowsInserted("track_playlist_fact", len(facts.TrackPlaylists))
	}

	return errors.Join(errs...)
}
