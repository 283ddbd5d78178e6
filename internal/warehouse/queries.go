package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"playlistpulse/internal/core"
)

// TrackKeyMap reads the full track dimension into a natural→surrogate key map.
func (s *Store) TrackKeyMap(ctx context.Context) (map[string]int64, error) {
	return s.keyMap(ctx, `SELECT track_spotify_id, track_id FROM track_dim`)
}

// ArtistKeyMap reads the full artist dimension into a natural→surrogate key map.
func (s *Store) ArtistKeyMap(ctx context.Context) (map[string]int64, error) {
	return s.keyMap(ctx, `SELECT artist_spotify_id, artist_id FROM artist_dim`)
}

// PlaylistKeyMap reads the full playlist dimension into a natural→surrogate key map.
func (s *Store) PlaylistKeyMap(ctx context.Context) (map[string]int64, error) {
	return s.keyMap(ctx, `SELECT playlist_spotify_id, playlist_id FROM playlist_dim`)
}

func (s *Store) keyMap(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("key map query failed: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var naturalID string
		var key int64
		if err := rows.Scan(&naturalID, &key); err != nil {
			return nil, fmt.Errorf("key map scan failed: %w", err)
		}
		out[naturalID] = key
	}

	return out, rows.Err()
}

// DateKey resolves the date dimension key for the given calendar date.
// Returns core.ErrMissingDateRow if the row was never loaded.
func (s *Store) DateKey(ctx context.Context, date string) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx, `SELECT date_id FROM date_dim WHERE date = ?`, date).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", core.ErrMissingDateRow, date)
	}
	if err != nil {
		return "", fmt.Errorf("date key lookup failed: %w", err)
	}

	return key, nil
}

// SurrogatePair is a (track, artist) surrogate key combination.
type SurrogatePair struct {
	TrackKey  int64
	ArtistKey int64
}

// DistinctTrackArtistPairs returns every (track, artist) combination that has
// ever appeared in the track-artist fact table.
func (s *Store) DistinctTrackArtistPairs(ctx context.Context) ([]SurrogatePair, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT track_id, artist_id FROM track_artist_fact`)
	if err != nil {
		return nil, fmt.Errorf("distinct pair query failed: %w", err)
	}
	defer rows.Close()

	var pairs []SurrogatePair
	for rows.Next() {
		var p SurrogatePair
		if err := rows.Scan(&p.TrackKey, &p.ArtistKey); err != nil {
			return nil, fmt.Errorf("distinct pair scan failed: %w", err)
		}
		pairs = append(pairs, p)
	}

	return pairs, rows.Err()
}

// TrackedPlaylists returns the natural IDs of every registered playlist, in
// registration order.
func (s *Store) TrackedPlaylists(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT playlist_spotify_id FROM playlist_dim ORDER BY playlist_id`)
	if err != nil {
		return nil, fmt.Errorf("tracked playlist query failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("tracked playlist scan failed: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
