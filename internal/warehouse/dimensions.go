package warehouse

import (
	"context"
	"fmt"

	"playlistpulse/internal/core"
)

const (
	insertDateSQL = `INSERT INTO date_dim (
		date_id, date, date_description, calendar_year, calendar_quarter,
		calendar_month_num, calendar_month_name, calendar_month_day_num, day_of_week)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertTrackSQL = `INSERT INTO track_dim (
		track_spotify_id, track_name, track_duration_ms, track_isrc,
		track_album_position, album_id, album_name, album_release_date,
		album_type, album_total_tracks, album_upc, label_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertArtistSQL = `INSERT INTO artist_dim (artist_spotify_id, artist_name) VALUES (?, ?)`

	insertPlaylistSQL = `INSERT INTO playlist_dim (playlist_spotify_id, playlist_name) VALUES (?, ?)`
)

// InsertDate adds the run's calendar-day row. A second run on the same day
// surfaces as ErrDuplicateRow.
func (s *Store) InsertDate(ctx context.Context, row core.DateRow) error {
	return s.insertDimension(ctx, insertDateSQL,
		row.ID, row.Date, row.Description, row.Year, row.Quarter,
		row.MonthNum, row.MonthName, row.DayNum, row.DayOfWeek)
}

// InsertTrack adds one track dimension row; the surrogate key is assigned by
// the store on first insert.
func (s *Store) InsertTrack(ctx context.Context, row core.TrackRow) error {
	return s.insertDimension(ctx, insertTrackSQL,
		row.SpotifyID, row.Name, row.DurationMS, row.ISRC,
		row.AlbumPosition, row.AlbumSpotifyID, row.AlbumName, row.AlbumReleaseDate,
		row.AlbumType, row.AlbumTotalTracks, row.AlbumUPC, row.LabelName)
}

// InsertArtist adds one artist dimension row.
func (s *Store) InsertArtist(ctx context.Context, row core.ArtistRow) error {
	return s.insertDimension(ctx, insertArtistSQL, row.SpotifyID, row.Name)
}

// InsertPlaylist registers a playlist for tracking.
func (s *Store) InsertPlaylist(ctx context.Context, row core.PlaylistRow) error {
	return s.insertDimension(ctx, insertPlaylistSQL, row.SpotifyID, row.Name)
}

func (s *Store) insertDimension(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	if err == nil {
		return nil
	}

	if isConstraintViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateRow, err)
	}

	return err
}
