// Package extract drives the catalog client across the tracked playlists and
// flattens the responses into deduplicated entity and relationship collections.
package extract

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"playlistpulse/internal/core"
	"playlistpulse/internal/spotify"
	"playlistpulse/internal/store"
)

const (
	// albumCacheSize bounds the per-process album enrichment cache. Albums
	// shared across tracked playlists are looked up once.
	albumCacheSize = 512
	// dedupCapacity sizes the per-run natural-ID dedup stores.
	dedupCapacity = 10000
	// dedupFalsePositiveRate tunes the dedup stores' Bloom front.
	dedupFalsePositiveRate = 0.001

	bareYearLength = 4
)

// Catalog is the subset of the catalog client the extractor drives.
type Catalog interface {
	FetchPlaylistPage(ctx context.Context, playlistID string, offset int) (*spotify.PlaylistPage, error)
	AlbumInfo(ctx context.Context, ids []string) (map[string]core.AlbumInfo, error)
}

// Result carries the four flattened collections produced by extraction.
type Result struct {
	Tracks         []core.TrackRow
	Artists        []core.ArtistRow
	TrackArtists   []core.TrackArtistPair
	TrackPlaylists []core.TrackPlaylistRow
}

type Extractor struct {
	catalog    Catalog
	logger     *zap.Logger
	pacer      core.Pacer
	albumCache *lru.Cache[string, core.AlbumInfo]
}

func NewExtractor(catalog Catalog, logger *zap.Logger, pacer core.Pacer) *Extractor {
	albumCache, _ := lru.New[string, core.AlbumInfo](albumCacheSize)

	return &Extractor{
		catalog:    catalog,
		logger:     logger,
		pacer:      pacer,
		albumCache: albumCache,
	}
}

// CollectPlaylistItems pages through a playlist until the fetched item count
// reaches the playlist's reported total. Entries with a null track reference
// (removed or region-blocked tracks) are dropped; every kept track gets a
// 1-based position equal to its absolute index in the playlist.
func (e *Extractor) CollectPlaylistItems(ctx context.Context, playlistID string) (*Result, error) {
	result := &Result{}
	fetched := 0

	for {
		page, err := e.catalog.FetchPlaylistPage(ctx, playlistID, fetched)
		if err != nil {
			return nil, err
		}

		for i, entry := range page.Entries {
			if entry.Removed {
				continue
			}

			track := entry.Track
			track.AlbumReleaseDate = normalizeReleaseDate(track.AlbumReleaseDate)
			result.Tracks = append(result.Tracks, track)

			result.TrackPlaylists = append(result.TrackPlaylists, core.TrackPlaylistRow{
				TrackSpotifyID:    track.SpotifyID,
				PlaylistSpotifyID: playlistID,
				Position:          fetched + i + 1,
			})

			for _, artist := range entry.Artists {
				result.Artists = append(result.Artists, artist)
				result.TrackArtists = append(result.TrackArtists, core.TrackArtistPair{
					TrackSpotifyID:  track.SpotifyID,
					ArtistSpotifyID: artist.SpotifyID,
				})
			}
		}

		fetched += page.Count

		if fetched >= page.Total || page.Count == 0 {
			e.logger.Info("Collected playlist items",
				zap.String("playlistID", playlistID),
				zap.Int("fetched", fetched),
				zap.Int("kept", len(result.Tracks)))
			break
		}

		if err := e.pacer.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// EnrichAlbums fills each track row's UPC and label by batching the distinct
// album IDs through the catalog, joined back by album ID. A track whose album
// the catalog no longer returns (delisted) keeps empty enrichment fields.
func (e *Extractor) EnrichAlbums(ctx context.Context, tracks []core.TrackRow) ([]core.TrackRow, error) {
	var missing []string
	seen := make(map[string]struct{})

	for _, track := range tracks {
		if _, ok := seen[track.AlbumSpotifyID]; ok {
			continue
		}
		seen[track.AlbumSpotifyID] = struct{}{}

		if _, ok := e.albumCache.Get(track.AlbumSpotifyID); !ok {
			missing = append(missing, track.AlbumSpotifyID)
		}
	}

	if len(missing) > 0 {
		info, err := e.catalog.AlbumInfo(ctx, missing)
		if err != nil {
			return nil, err
		}
		for id, album := range info {
			e.albumCache.Add(id, album)
		}
	}

	enriched := make([]core.TrackRow, len(tracks))
	for i, track := range tracks {
		if album, ok := e.albumCache.Get(track.AlbumSpotifyID); ok {
			track.AlbumUPC = album.UPC
			track.LabelName = album.Label
		} else {
			e.logger.Warn("Album missing from catalog response",
				zap.String("trackID", track.SpotifyID),
				zap.String("albumID", track.AlbumSpotifyID))
		}
		enriched[i] = track
	}

	return enriched, nil
}

// ExtractTrackedPlaylists collects and enriches every tracked playlist in
// sequence, flattening the per-playlist collections and deduplicating tracks,
// artists and track-artist pairs by natural ID. Track-playlist rows are never
// deduplicated: a track legitimately appears once per playlist it sits on.
// An upstream failure skips the affected playlist and the run continues.
func (e *Extractor) ExtractTrackedPlaylists(ctx context.Context, playlistIDs []string) (*Result, error) {
	combined := &Result{}
	trackSeen := store.NewDedupStore(dedupCapacity, dedupFalsePositiveRate)
	artistSeen := store.NewDedupStore(dedupCapacity, dedupFalsePositiveRate)
	pairSeen := store.NewDedupStore(dedupCapacity, dedupFalsePositiveRate)

	for i, playlistID := range playlistIDs {
		if i > 0 {
			if err := e.pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}

		result, err := e.extractPlaylist(ctx, playlistID)
		if err != nil {
			if core.IsUpstream(err) {
				e.logger.Warn("Skipping playlist after upstream failure",
					zap.String("playlistID", playlistID),
					zap.Error(err))
				continue
			}
			return nil, err
		}

		for _, track := range result.Tracks {
			if trackSeen.Add(track.SpotifyID) {
				combined.Tracks = append(combined.Tracks, track)
			}
		}
		for _, artist := range result.Artists {
			if artistSeen.Add(artist.SpotifyID) {
				combined.Artists = append(combined.Artists, artist)
			}
		}
		for _, pair := range result.TrackArtists {
			if pairSeen.Add(pair.Key()) {
				combined.TrackArtists = append(combined.TrackArtists, pair)
			}
		}
		combined.TrackPlaylists = append(combined.TrackPlaylists, result.TrackPlaylists...)

		e.logger.Info("Finished collecting playlist data", zap.String("playlistID", playlistID))
	}

	e.logger.Info("Finished collecting data for all tracked playlists",
		zap.Int("playlists", len(playlistIDs)),
		zap.Int("tracks", len(combined.Tracks)),
		zap.Int("artists", len(combined.Artists)),
		zap.Int("trackArtistPairs", len(combined.TrackArtists)),
		zap.Int("trackPlaylistRows", len(combined.TrackPlaylists)))

	return combined, nil
}

func (e *Extractor) extractPlaylist(ctx context.Context, playlistID string) (*Result, error) {
	result, err := e.CollectPlaylistItems(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	result.Tracks, err = e.EnrichAlbums(ctx, result.Tracks)
	if err != nil {
		return nil, fmt.Errorf("album enrichment for playlist %s: %w", playlistID, err)
	}

	return result, nil
}

func normalizeReleaseDate(date string) string {
	if len(date) == bareYearLength {
		return date + "-01-01"
	}
	return date
}
