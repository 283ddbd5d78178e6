// Package spotify provides the catalog client: paginated playlist reads and
// batched metadata lookups against the Spotify Web API.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"playlistpulse/internal/core"
)

const (
	// PlaylistPageSize is the number of playlist items requested per page.
	PlaylistPageSize = 50
	// TrackBatchSize is the maximum track IDs per batched lookup.
	TrackBatchSize = 50
	// ArtistBatchSize is the maximum artist IDs per batched lookup.
	ArtistBatchSize = 50
	// AlbumBatchSize is the maximum album IDs per batched lookup.
	AlbumBatchSize = 20

	albumsEndpoint = "https://api.spotify.com/v1/albums"
)

// Client talks to the Spotify Web API using app-level client credentials.
// The token is exchanged once at construction and reused for the whole run;
// expiry mid-run surfaces as an upstream failure.
type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
	http   *http.Client
	pacer  core.Pacer
}

func NewClient(ctx context.Context, config *core.SpotifyConfig, logger *zap.Logger, pacer core.Pacer) (*Client, error) {
	creds := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	token, err := creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("client credentials exchange failed: %w", err)
	}

	httpClient := spotifyauth.New().Client(ctx, token)

	logger.Info("Authenticated with catalog service")

	return &Client{
		config: config,
		logger: logger,
		client: spotify.New(httpClient),
		http:   httpClient,
		pacer:  pacer,
	}, nil
}

// PlaylistPage is one page of playlist entries plus the playlist's reported
// total item count. Count includes removed entries so callers can advance the
// offset correctly.
type PlaylistPage struct {
	Entries []PlaylistEntry
	Count   int
	Total   int
}

// PlaylistEntry is a single playlist item. Removed marks entries whose track
// reference is null (deleted or region-blocked tracks).
type PlaylistEntry struct {
	Track   core.TrackRow
	Artists []core.ArtistRow
	Removed bool
}

// FetchPlaylistPage returns up to PlaylistPageSize entries starting at offset.
func (c *Client) FetchPlaylistPage(ctx context.Context, playlistID string, offset int) (*PlaylistPage, error) {
	page, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
		spotify.Limit(PlaylistPageSize), spotify.Offset(offset))
	if err != nil {
		c.logger.Error("Playlist page fetch failed",
			zap.String("playlistID", playlistID),
			zap.Int("offset", offset),
			zap.Error(err))
		return nil, &core.UpstreamError{Op: "playlist items", Err: err}
	}

	out := &PlaylistPage{
		Count: len(page.Items),
		Total: int(page.Total),
	}

	for i := range page.Items {
		track := page.Items[i].Track.Track
		if track == nil {
			out.Entries = append(out.Entries, PlaylistEntry{Removed: true})
			continue
		}

		entry := PlaylistEntry{Track: convertTrack(track)}
		for _, artist := range track.Artists {
			entry.Artists = append(entry.Artists, core.ArtistRow{
				SpotifyID: string(artist.ID),
				Name:      artist.Name,
			})
		}
		out.Entries = append(out.Entries, entry)
	}

	c.logger.Debug("Fetched playlist page",
		zap.String("playlistID", playlistID),
		zap.Int("offset", offset),
		zap.Int("count", out.Count),
		zap.Int("total", out.Total))

	return out, nil
}

// TrackMetrics looks up current popularity for the given track IDs, chunked
// into batches of TrackBatchSize with a paced wait between calls. The result
// is keyed by Spotify ID; IDs the service no longer knows are absent.
func (c *Client) TrackMetrics(ctx context.Context, ids []string) (map[string]core.TrackMetrics, error) {
	out := make(map[string]core.TrackMetrics, len(ids))

	for _, chunk := range chunkIDs(ids, TrackBatchSize) {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		tracks, err := c.client.GetTracks(ctx, chunk)
		if err != nil {
			c.logger.Error("Track metrics fetch failed", zap.Int("batchSize", len(chunk)), zap.Error(err))
			return nil, &core.UpstreamError{Op: "track metrics", Err: err}
		}

		for _, track := range tracks {
			if track == nil {
				continue
			}
			out[string(track.ID)] = core.TrackMetrics{Popularity: int(track.Popularity)}
		}
	}

	c.logger.Info("Fetched track metrics", zap.Int("requested", len(ids)), zap.Int("resolved", len(out)))
	return out, nil
}

// ArtistMetrics looks up current popularity and follower counts for the given
// artist IDs, chunked into batches of ArtistBatchSize.
func (c *Client) ArtistMetrics(ctx context.Context, ids []string) (map[string]core.ArtistMetrics, error) {
	out := make(map[string]core.ArtistMetrics, len(ids))

	for _, chunk := range chunkIDs(ids, ArtistBatchSize) {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		artists, err := c.client.GetArtists(ctx, chunk...)
		if err != nil {
			c.logger.Error("Artist metrics fetch failed", zap.Int("batchSize", len(chunk)), zap.Error(err))
			return nil, &core.UpstreamError{Op: "artist metrics", Err: err}
		}

		for _, artist := range artists {
			if artist == nil {
				continue
			}
			out[string(artist.ID)] = core.ArtistMetrics{
				Popularity: int(artist.Popularity),
				Followers:  int(artist.Followers.Count),
			}
		}
	}

	c.logger.Info("Fetched artist metrics", zap.Int("requested", len(ids)), zap.Int("resolved", len(out)))
	return out, nil
}

type albumBatchResponse struct {
	Albums []struct {
		ID          string            `json:"id"`
		Label       string            `json:"label"`
		ExternalIDs map[string]string `json:"external_ids"`
	} `json:"albums"`
}

// AlbumInfo looks up label and UPC for the given album IDs, chunked into
// batches of AlbumBatchSize. The wrapper library does not expose the album
// label field, so this hits the batched albums endpoint directly through the
// authenticated HTTP client. Delisted albums are simply absent from the result.
func (c *Client) AlbumInfo(ctx context.Context, ids []string) (map[string]core.AlbumInfo, error) {
	out := make(map[string]core.AlbumInfo, len(ids))

	for _, chunk := range chunkIDs(ids, AlbumBatchSize) {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		batch, err := c.fetchAlbumBatch(ctx, chunk)
		if err != nil {
			c.logger.Error("Album info fetch failed", zap.Int("batchSize", len(chunk)), zap.Error(err))
			return nil, err
		}

		for _, album := range batch.Albums {
			if album.ID == "" {
				continue
			}
			out[album.ID] = core.AlbumInfo{
				UPC:   album.ExternalIDs["upc"],
				Label: album.Label,
			}
		}
	}

	c.logger.Info("Fetched album info", zap.Int("requested", len(ids)), zap.Int("resolved", len(out)))
	return out, nil
}

func (c *Client) fetchAlbumBatch(ctx context.Context, ids []spotify.ID) (*albumBatchResponse, error) {
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = string(id)
	}

	endpoint := albumsEndpoint + "?ids=" + url.QueryEscape(strings.Join(idStrs, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, &core.UpstreamError{Op: "album info", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &core.UpstreamError{Op: "album info", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &core.UpstreamError{
			Op:  "album info",
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var batch albumBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, &core.UpstreamError{Op: "album info", Err: fmt.Errorf("decode response: %w", err)}
	}

	return &batch, nil
}

// FindPlaylist searches the catalog for a playlist by keyword and returns the
// best match. Used when registering a playlist for tracking by name.
func (c *Client) FindPlaylist(ctx context.Context, query string) (core.PlaylistRow, error) {
	results, err := c.client.Search(ctx, query, spotify.SearchTypePlaylist, spotify.Limit(1))
	if err != nil {
		return core.PlaylistRow{}, &core.UpstreamError{Op: "playlist search", Err: err}
	}

	if results.Playlists == nil || len(results.Playlists.Playlists) == 0 {
		return core.PlaylistRow{}, fmt.Errorf("no playlist found for query %q", query)
	}

	match := &results.Playlists.Playlists[0]
	c.logger.Info("Playlist search matched",
		zap.String("query", query),
		zap.String("playlistID", string(match.ID)),
		zap.String("name", match.Name))

	return core.PlaylistRow{SpotifyID: string(match.ID), Name: match.Name}, nil
}

func convertTrack(track *spotify.FullTrack) core.TrackRow {
	return core.TrackRow{
		SpotifyID:        string(track.ID),
		Name:             track.Name,
		DurationMS:       int(track.Duration),
		ISRC:             track.ExternalIDs["isrc"],
		AlbumPosition:    int(track.TrackNumber),
		AlbumSpotifyID:   string(track.Album.ID),
		AlbumName:        track.Album.Name,
		AlbumReleaseDate: track.Album.ReleaseDate,
		AlbumType:        track.Album.AlbumType,
		AlbumTotalTracks: int(track.Album.TotalTracks),
	}
}

func chunkIDs(ids []string, size int) [][]spotify.ID {
	var chunks [][]spotify.ID

	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}

		chunk := make([]spotify.ID, 0, end-start)
		for _, id := range ids[start:end] {
			chunk = append(chunk, spotify.ID(id))
		}
		chunks = append(chunks, chunk)
	}

	return chunks
}
