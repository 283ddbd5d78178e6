package warehouse

import (
	"context"
	"fmt"
)

// Read-only queries backing the reporting surface. The pipeline itself never
// depends on these.

// PlaylistInfo is one registered playlist as exposed to reporting.
type PlaylistInfo struct {
	Key       int64  `json:"key"`
	SpotifyID string `json:"spotifyId"`
	Name      string `json:"name"`
}

// Playlists lists the registered playlists.
func (s *Store) Playlists(ctx context.Context) ([]PlaylistInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT playlist_id, playlist_spotify_id, playlist_name FROM playlist_dim ORDER BY playlist_id`)
	if err != nil {
		return nil, fmt.Errorf("playlist query failed: %w", err)
	}
	defer rows.Close()

	var out []PlaylistInfo
	for rows.Next() {
		var p PlaylistInfo
		if err := rows.Scan(&p.Key, &p.SpotifyID, &p.Name); err != nil {
			return nil, fmt.Errorf("playlist scan failed: %w", err)
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

// Labels lists the distinct label names observed across the track dimension.
func (s *Store) Labels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT label_name FROM track_dim WHERE label_name != '' ORDER BY label_name`)
	if err != nil {
		return nil, fmt.Errorf("label query failed: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("label scan failed: %w", err)
		}
		out = append(out, label)
	}

	return out, rows.Err()
}

// LabelPlacement summarizes how many placements a label landed on a playlist
// within a date range, and at what average position.
type LabelPlacement struct {
	Label           string  `json:"label"`
	TracksPlaced    int     `json:"tracksPlaced"`
	AveragePosition float64 `json:"averagePosition"`
}

// LabelPlacements aggregates playlist placements by label between two
// calendar dates (inclusive).
func (s *Store) LabelPlacements(ctx context.Context, playlistKey int64, from, to string) ([]LabelPlacement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			td.label_name,
			COUNT(tpf.track_playlist_position) AS tracks_placed,
			ROUND(AVG(tpf.track_playlist_position), 2) AS average_track_position
		FROM track_playlist_fact tpf
		JOIN date_dim dd ON tpf.date_id = dd.date_id
		JOIN track_dim td ON tpf.track_id = td.track_id
		WHERE tpf.playlist_id = ? AND dd.date BETWEEN ? AND ?
		GROUP BY td.label_name
		ORDER BY tracks_placed DESC, average_track_position ASC`,
		playlistKey, from, to)
	if err != nil {
		return nil, fmt.Errorf("label placement query failed: %w", err)
	}
	defer rows.Close()

	var out []LabelPlacement
	for rows.Next() {
		var p LabelPlacement
		if err := rows.Scan(&p.Label, &p.TracksPlaced, &p.AveragePosition); err != nil {
			return nil, fmt.Errorf("label placement scan failed: %w", err)
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

// PopularityPoint is one dated measurement for a (track, artist) pairing.
type PopularityPoint struct {
	Date             string `json:"date"`
	TrackPopularity  int    `json:"trackPopularity"`
	ArtistPopularity int    `json:"artistPopularity"`
	ArtistFollowers  int    `json:"artistFollowers"`
}

// PopularityHistory returns the dated measurement series for a pairing,
// oldest first.
func (s *Store) PopularityHistory(ctx context.Context, trackKey, artistKey int64) ([]PopularityPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dd.date, taf.track_popularity, taf.artist_popularity, taf.artist_followers
		FROM track_artist_fact taf
		JOIN date_dim dd ON taf.date_id = dd.date_id
		WHERE taf.track_id = ? AND taf.artist_id = ?
		ORDER BY dd.date`,
		trackKey, artistKey)
	if err != nil {
		return nil, fmt.Errorf("popularity history query failed: %w", err)
	}
	defer rows.Close()

	var out []PopularityPoint
	for rows.Next() {
		var p PopularityPoint
		if err := rows.Scan(&p.Date, &p.TrackPopularity, &p.ArtistPopularity, &p.ArtistFollowers); err != nil {
			return nil, fmt.Errorf("popularity history scan failed: %w", err)
		}
		out = append(out, p)
	}

	return out, rows.Err()
}
