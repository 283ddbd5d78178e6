// Package reconcile translates natural catalog IDs into warehouse surrogate
// keys and assembles the point-in-time fact rows for a run.
package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"playlistpulse/internal/core"
	"playlistpulse/internal/warehouse"
)

// Keyer is the warehouse read surface the reconciler resolves against.
type Keyer interface {
	TrackKeyMap(ctx context.Context) (map[string]int64, error)
	ArtistKeyMap(ctx context.Context) (map[string]int64, error)
	PlaylistKeyMap(ctx context.Context) (map[string]int64, error)
	DateKey(ctx context.Context, date string) (string, error)
	DistinctTrackArtistPairs(ctx context.Context) ([]warehouse.SurrogatePair, error)
}

// MetricsSource provides fresh popularity measurements by natural ID.
type MetricsSource interface {
	TrackMetrics(ctx context.Context, ids []string) (map[string]core.TrackMetrics, error)
	ArtistMetrics(ctx context.Context, ids []string) (map[string]core.ArtistMetrics, error)
}

// FactSet is the reconciler's output: fully key-resolved fact rows ready for
// the warehouse loader.
type FactSet struct {
	TrackArtists   []core.TrackArtistFact
	TrackPlaylists []core.TrackPlaylistFact
}

type Reconciler struct {
	keyer   Keyer
	metrics MetricsSource
	logger  *zap.Logger
}

func NewReconciler(keyer Keyer, metrics MetricsSource, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		keyer:   keyer,
		metrics: metrics,
		logger:  logger,
	}
}

// Reconcile resolves the run's extraction output against the warehouse
// dimensions and assembles fact rows dated with the given calendar day.
//
// Track-artist facts cover the union of every historical (track, artist)
// pairing and this run's pairings, each carrying metrics fetched fresh this
// run. Track-playlist facts cover only this run's placements, so tracking a
// new playlist starts from today and never backfills.
func (r *Reconciler) Reconcile(ctx context.Context, extracted Extraction, date string) (*FactSet, error) {
	dateKey, err := r.keyer.DateKey(ctx, date)
	if err != nil {
		return nil, err
	}

	trackKeys, err := r.keyer.TrackKeyMap(ctx)
	if err != nil {
		return nil, err
	}
	artistKeys, err := r.keyer.ArtistKeyMap(ctx)
	if err != nil {
		return nil, err
	}
	playlistKeys, err := r.keyer.PlaylistKeyMap(ctx)
	if err != nil {
		return nil, err
	}

	trackMetrics, artistMetrics, err := r.refreshMetrics(ctx, trackKeys, artistKeys)
	if err != nil {
		return nil, err
	}

	pairs, err := r.unionPairs(ctx, extracted.TrackArtists, trackKeys, artistKeys)
	if err != nil {
		return nil, err
	}

	set := &FactSet{}

	for _, pair := range pairs {
		track, ok := trackMetrics[pair.TrackKey]
		if !ok {
			return nil, fmt.Errorf("%w: no metrics for track key %d", core.ErrUnresolvedReference, pair.TrackKey)
		}
		artist, ok := artistMetrics[pair.ArtistKey]
		if !ok {
			return nil, fmt.Errorf("%w: no metrics for artist key %d", core.ErrUnresolvedReference, pair.ArtistKey)
		}

		set.TrackArtists = append(set.TrackArtists, core.TrackArtistFact{
			TrackKey:         pair.TrackKey,
			ArtistKey:        pair.ArtistKey,
			DateKey:          dateKey,
			TrackPopularity:  track.Popularity,
			ArtistPopularity: artist.Popularity,
			ArtistFollowers:  artist.Followers,
		})
	}

	for _, row := range extracted.TrackPlaylists {
		trackKey, ok := trackKeys[row.TrackSpotifyID]
		if !ok {
			return nil, fmt.Errorf("%w: track %s not in warehouse", core.ErrUnresolvedReference, row.TrackSpotifyID)
		}
		playlistKey, ok := playlistKeys[row.PlaylistSpotifyID]
		if !ok {
			return nil, fmt.Errorf("%w: playlist %s not in warehouse", core.ErrUnresolvedReference, row.PlaylistSpotifyID)
		}
		track, ok := trackMetrics[trackKey]
		if !ok {
			return nil, fmt.Errorf("%w: no metrics for track key %d", core.ErrUnresolvedReference, trackKey)
		}

		set.TrackPlaylists = append(set.TrackPlaylists, core.TrackPlaylistFact{
			TrackKey:        trackKey,
			PlaylistKey:     playlistKey,
			DateKey:         dateKey,
			Position:        row.Position,
			TrackPopularity: track.Popularity,
		})
	}

	r.logger.Info("Reconciled fact rows",
		zap.String("dateKey", dateKey),
		zap.Int("trackArtistFacts", len(set.TrackArtists)),
		zap.Int("trackPlaylistFacts", len(set.TrackPlaylists)))

	return set, nil
}

// Extraction is the slice of the extraction output the reconciler consumes.
type Extraction struct {
	TrackArtists   []core.TrackArtistPair
	TrackPlaylists []core.TrackPlaylistRow
}

// refreshMetrics fetches popularity for every track and artist the warehouse
// knows about, not just this run's, so dormant pairings keep accruing
// measurements. Results are keyed by surrogate key.
func (r *Reconciler) refreshMetrics(
	ctx context.Context,
	trackKeys, artistKeys map[string]int64,
) (map[int64]core.TrackMetrics, map[int64]core.ArtistMetrics, error) {
	trackIDs := make([]string, 0, len(trackKeys))
	for id := range trackKeys {
		trackIDs = append(trackIDs, id)
	}
	artistIDs := make([]string, 0, len(artistKeys))
	for id := range artistKeys {
		artistIDs = append(artistIDs, id)
	}

	byTrackID, err := r.metrics.TrackMetrics(ctx, trackIDs)
	if err != nil {
		return nil, nil, err
	}
	byArtistID, err := r.metrics.ArtistMetrics(ctx, artistIDs)
	if err != nil {
		return nil, nil, err
	}

	trackMetrics := make(map[int64]core.TrackMetrics, len(byTrackID))
	for id, m := range byTrackID {
		trackMetrics[trackKeys[id]] = m
	}
	artistMetrics := make(map[int64]core.ArtistMetrics, len(byArtistID))
	for id, m := range byArtistID {
		artistMetrics[artistKeys[id]] = m
	}

	r.logger.Debug("Refreshed catalog metrics",
		zap.Int("tracks", len(trackMetrics)),
		zap.Int("artists", len(artistMetrics)))

	return trackMetrics, artistMetrics, nil
}

// unionPairs merges the historical distinct fact pairings with this run's,
// translated to surrogate keys, deduplicated.
func (r *Reconciler) unionPairs(
	ctx context.Context,
	current []core.TrackArtistPair,
	trackKeys, artistKeys map[string]int64,
) ([]warehouse.SurrogatePair, error) {
	historical, err := r.keyer.DistinctTrackArtistPairs(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[warehouse.SurrogatePair]struct{}, len(historical)+len(current))
	pairs := make([]warehouse.SurrogatePair, 0, len(historical)+len(current))

	add := func(p warehouse.SurrogatePair) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}

	for _, p := range historical {
		add(p)
	}

	for _, pair := range current {
		trackKey, ok := trackKeys[pair.TrackSpotifyID]
		if !ok {
			return nil, fmt.Errorf("%w: track %s not in warehouse", core.ErrUnresolvedReference, pair.TrackSpotifyID)
		}
		artistKey, ok := artistKeys[pair.ArtistSpotifyID]
		if !ok {
			return nil, fmt.Errorf("%w: artist %s not in warehouse", core.ErrUnresolvedReference, pair.ArtistSpotifyID)
		}
		add(warehouse.SurrogatePair{TrackKey: trackKey, ArtistKey: artistKey})
	}

	return pairs, nil
}
