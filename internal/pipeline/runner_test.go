package pipeline

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"playlistpulse/internal/core"
	"playlistpulse/internal/extract"
	"playlistpulse/internal/reconcile"
	"playlistpulse/internal/warehouse"
)

type fakeExtractor struct {
	result *extract.Result
	calls  int
}

func (f *fakeExtractor) ExtractTrackedPlaylists(_ context.Context, _ []string) (*extract.Result, error) {
	f.calls++
	return f.result, nil
}

type fakeMetrics struct{}

func (fakeMetrics) TrackMetrics(_ context.Context, ids []string) (map[string]core.TrackMetrics, error) {
	out := make(map[string]core.TrackMetrics)
	for _, id := range ids {
		out[id] = core.TrackMetrics{Popularity: 42}
	}
	return out, nil
}

func (fakeMetrics) ArtistMetrics(_ context.Context, ids []string) (map[string]core.ArtistMetrics, error) {
	out := make(map[string]core.ArtistMetrics)
	for _, id := range ids {
		out[id] = core.ArtistMetrics{Popularity: 33, Followers: 1000}
	}
	return out, nil
}

func newMemoryStore(t *testing.T) *warehouse.Store {
	t.Helper()

	config := &core.WarehouseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1}
	store, err := warehouse.Open(config, zap.NewNop())
	if err != nil {
		t.Fatalf("open warehouse: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func newTestRunner(t *testing.T, store *warehouse.Store, extractor Extractor) *Runner {
	t.Helper()

	logger := zap.NewNop()
	reconciler := reconcile.NewReconciler(store, fakeMetrics{}, logger)

	return NewRunner(store, extractor, reconciler, NopRecorder{}, logger, time.UTC)
}

func extractionFixture() *extract.Result {
	return &extract.Result{
		Tracks: []core.TrackRow{
			{SpotifyID: "t1", Name: "Track One", AlbumSpotifyID: "al1", AlbumReleaseDate: "2024-01-01"},
		},
		Artists: []core.ArtistRow{
			{SpotifyID: "a1", Name: "Artist One"},
		},
		TrackArtists: []core.TrackArtistPair{
			{TrackSpotifyID: "t1", ArtistSpotifyID: "a1"},
		},
		TrackPlaylists: []core.TrackPlaylistRow{
			{TrackSpotifyID: "t1", PlaylistSpotifyID: "pl1", Position: 1},
		},
	}
}

func registerPlaylist(t *testing.T, store *warehouse.Store) {
	t.Helper()

	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := store.InsertPlaylist(ctx, core.PlaylistRow{SpotifyID: "pl1", Name: "Test Playlist"}); err != nil {
		t.Fatalf("register playlist: %v", err)
	}
}

func TestRunner_RunLoadsWarehouse(t *testing.T) {
	store := newMemoryStore(t)
	registerPlaylist(t, store)
	runner := newTestRunner(t, store, &fakeExtractor{result: extractionFixture()})

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	ctx := context.Background()

	trackKeys, err := store.TrackKeyMap(ctx)
	if err != nil {
		t.Fatalf("TrackKeyMap: %v", err)
	}
	if len(trackKeys) != 1 {
		t.Errorf("expected 1 track dimension row, got %d", len(trackKeys))
	}

	pairs, err := store.DistinctTrackArtistPairs(ctx)
	if err != nil {
		t.Fatalf("DistinctTrackArtistPairs: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 track-artist fact pair, got %d", len(pairs))
	}

	history, err := store.PopularityHistory(ctx, pairs[0].TrackKey, pairs[0].ArtistKey)
	if err != nil {
		t.Fatalf("PopularityHistory: %v", err)
	}
	if len(history) != 1 || history[0].TrackPopularity != 42 || history[0].ArtistFollowers != 1000 {
		t.Errorf("unexpected popularity history: %+v", history)
	}
}

func TestRunner_SameDayRerunAddsNothing(t *testing.T) {
	store := newMemoryStore(t)
	registerPlaylist(t, store)
	runner := newTestRunner(t, store, &fakeExtractor{result: extractionFixture()})

	ctx := context.Background()
	if err := runner.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// The second run hits the fact tables' composite primary keys and must
	// roll back wholesale, leaving exactly the first run's rows.
	if err := runner.Run(ctx); err == nil {
		t.Fatal("expected second same-day run to fail the fact load")
	}

	pairs, err := store.DistinctTrackArtistPairs(ctx)
	if err != nil {
		t.Fatalf("DistinctTrackArtistPairs: %v", err)
	}
	if len(pairs) != 1 {
		t.Errorf("same-day rerun must not add fact rows, got %d pairs", len(pairs))
	}

	history, err := store.PopularityHistory(ctx, pairs[0].TrackKey, pairs[0].ArtistKey)
	if err != nil {
		t.Fatalf("PopularityHistory: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 measurement after rerun, got %d", len(history))
	}
}

func TestRunner_NoRegisteredPlaylists(t *testing.T) {
	store := newMemoryStore(t)
	extractor := &fakeExtractor{result: extractionFixture()}
	runner := newTestRunner(t, store, extractor)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run with empty registry: %v", err)
	}
	if extractor.calls != 0 {
		t.Errorf("extractor must not run without registered playlists, got %d calls", extractor.calls)
	}
}
