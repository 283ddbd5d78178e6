package extract

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"playlistpulse/internal/core"
	"playlistpulse/internal/spotify"
)

type fakeCatalog struct {
	pages      map[string][]*spotify.PlaylistPage
	albums     map[string]core.AlbumInfo
	pageErr    error
	albumErr   error
	pageCalls  int
	albumCalls int
}

func (f *fakeCatalog) FetchPlaylistPage(_ context.Context, playlistID string, offset int) (*spotify.PlaylistPage, error) {
	f.pageCalls++
	if f.pageErr != nil {
		return nil, f.pageErr
	}

	pages := f.pages[playlistID]
	fetched := 0
	for _, page := range pages {
		if fetched == offset {
			return page, nil
		}
		fetched += page.Count
	}

	return &spotify.PlaylistPage{}, nil
}

func (f *fakeCatalog) AlbumInfo(_ context.Context, ids []string) (map[string]core.AlbumInfo, error) {
	f.albumCalls++
	if f.albumErr != nil {
		return nil, f.albumErr
	}

	out := make(map[string]core.AlbumInfo)
	for _, id := range ids {
		if album, ok := f.albums[id]; ok {
			out[id] = album
		}
	}

	return out, nil
}

func entry(trackID, albumID, releaseDate string, artistIDs ...string) spotify.PlaylistEntry {
	e := spotify.PlaylistEntry{
		Track: core.TrackRow{
			SpotifyID:        trackID,
			Name:             "track " + trackID,
			AlbumSpotifyID:   albumID,
			AlbumReleaseDate: releaseDate,
		},
	}
	for _, id := range artistIDs {
		e.Artists = append(e.Artists, core.ArtistRow{SpotifyID: id, Name: "artist " + id})
	}
	return e
}

func newTestExtractor(catalog Catalog) *Extractor {
	return NewExtractor(catalog, zap.NewNop(), core.NopPacer{})
}

func TestCollectPlaylistItems_PagesUntilTotal(t *testing.T) {
	catalog := &fakeCatalog{
		pages: map[string][]*spotify.PlaylistPage{
			"pl1": {
				{
					Entries: []spotify.PlaylistEntry{
						entry("t1", "al1", "2024-03-01", "a1"),
						entry("t2", "al1", "2024-03-01", "a1", "a2"),
					},
					Count: 2,
					Total: 3,
				},
				{
					Entries: []spotify.PlaylistEntry{
						entry("t3", "al2", "2024", "a3"),
					},
					Count: 1,
					Total: 3,
				},
			},
		},
	}

	result, err := newTestExtractor(catalog).CollectPlaylistItems(context.Background(), "pl1")
	if err != nil {
		t.Fatalf("CollectPlaylistItems: %v", err)
	}

	if len(result.Tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(result.Tracks))
	}
	if catalog.pageCalls != 2 {
		t.Errorf("expected 2 page fetches, got %d", catalog.pageCalls)
	}
	if result.Tracks[2].AlbumReleaseDate != "2024-01-01" {
		t.Errorf("bare-year release date not normalized: %q", result.Tracks[2].AlbumReleaseDate)
	}
	if len(result.TrackArtists) != 4 {
		t.Errorf("expected 4 track-artist pairs, got %d", len(result.TrackArtists))
	}
}

func TestCollectPlaylistItems_Positions(t *testing.T) {
	removed := spotify.PlaylistEntry{Removed: true}
	catalog := &fakeCatalog{
		pages: map[string][]*spotify.PlaylistPage{
			"pl1": {
				{
					Entries: []spotify.PlaylistEntry{
						entry("t1", "al1", "2024-03-01", "a1"),
						removed,
						entry("t2", "al1", "2024-03-01", "a1"),
					},
					Count: 3,
					Total: 4,
				},
				{
					Entries: []spotify.PlaylistEntry{
						entry("t3", "al2", "2024-03-01", "a2"),
					},
					Count: 1,
					Total: 4,
				},
			},
		},
	}

	result, err := newTestExtractor(catalog).CollectPlaylistItems(context.Background(), "pl1")
	if err != nil {
		t.Fatalf("CollectPlaylistItems: %v", err)
	}

	if len(result.Tracks) != 3 {
		t.Fatalf("expected removed entry to be dropped, got %d tracks", len(result.Tracks))
	}

	wantPositions := []int{1, 3, 4}
	for i, row := range result.TrackPlaylists {
		if row.Position != wantPositions[i] {
			t.Errorf("row %d: expected position %d, got %d", i, wantPositions[i], row.Position)
		}
	}
}

func TestEnrichAlbums(t *testing.T) {
	catalog := &fakeCatalog{
		albums: map[string]core.AlbumInfo{
			"al1": {UPC: "0123456789012", Label: "Anjunadeep"},
		},
	}
	e := newTestExtractor(catalog)

	tracks := []core.TrackRow{
		{SpotifyID: "t1", AlbumSpotifyID: "al1"},
		{SpotifyID: "t2", AlbumSpotifyID: "al1"},
		{SpotifyID: "t3", AlbumSpotifyID: "al-gone"},
	}

	enriched, err := e.EnrichAlbums(context.Background(), tracks)
	if err != nil {
		t.Fatalf("EnrichAlbums: %v", err)
	}

	if enriched[0].LabelName != "Anjunadeep" || enriched[1].AlbumUPC != "0123456789012" {
		t.Errorf("shared album not joined onto both tracks: %+v", enriched[:2])
	}
	if enriched[2].LabelName != "" || enriched[2].AlbumUPC != "" {
		t.Errorf("delisted album should leave empty fields, got %+v", enriched[2])
	}

	// Second enrichment with the same album must come from the cache.
	if _, err := e.EnrichAlbums(context.Background(), tracks[:2]); err != nil {
		t.Fatalf("EnrichAlbums (cached): %v", err)
	}
	if catalog.albumCalls != 2 {
		t.Errorf("expected cached album to skip a fetch, got %d calls", catalog.albumCalls)
	}
}

func TestExtractTrackedPlaylists_Dedup(t *testing.T) {
	shared := entry("t1", "al1", "2024-03-01", "a1")
	catalog := &fakeCatalog{
		pages: map[string][]*spotify.PlaylistPage{
			"pl1": {{Entries: []spotify.PlaylistEntry{shared}, Count: 1, Total: 1}},
			"pl2": {{Entries: []spotify.PlaylistEntry{shared, entry("t2", "al1", "2024-03-01", "a1")}, Count: 2, Total: 2}},
		},
		albums: map[string]core.AlbumInfo{
			"al1": {UPC: "111", Label: "Test Label"},
		},
	}

	result, err := newTestExtractor(catalog).ExtractTrackedPlaylists(context.Background(), []string{"pl1", "pl2"})
	if err != nil {
		t.Fatalf("ExtractTrackedPlaylists: %v", err)
	}

	if len(result.Tracks) != 2 {
		t.Errorf("expected track shared across playlists to appear once, got %d tracks", len(result.Tracks))
	}
	if len(result.Artists) != 1 {
		t.Errorf("expected 1 deduplicated artist, got %d", len(result.Artists))
	}
	if len(result.TrackArtists) != 2 {
		t.Errorf("expected 2 deduplicated pairs, got %d", len(result.TrackArtists))
	}
	if len(result.TrackPlaylists) != 3 {
		t.Errorf("track-playlist rows must not deduplicate across playlists, got %d", len(result.TrackPlaylists))
	}
}

func TestExtractTrackedPlaylists_SkipsFailedPlaylist(t *testing.T) {
	failing := &fakeCatalog{
		pageErr: &core.UpstreamError{Op: "playlist items", Err: context.DeadlineExceeded},
	}

	result, err := newTestExtractor(failing).ExtractTrackedPlaylists(context.Background(), []string{"pl1"})
	if err != nil {
		t.Fatalf("upstream failure must not fail the run: %v", err)
	}
	if len(result.Tracks) != 0 || len(result.TrackPlaylists) != 0 {
		t.Errorf("failed playlist must contribute no rows, got %+v", result)
	}
}
