package warehouse

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"playlistpulse/internal/core"
)

const (
	insertTrackArtistFactSQL = `INSERT INTO track_artist_fact (
		track_id, artist_id, date_id, track_popularity, artist_popularity, artist_followers)
		VALUES (?, ?, ?, ?, ?, ?)`

	insertTrackPlaylistFactSQL = `INSERT INTO track_playlist_fact (
		track_id, playlist_id, date_id, track_playlist_position, track_popularity)
		VALUES (?, ?, ?, ?, ?)`
)

// InsertTrackArtistFacts bulk-inserts the run's track-artist measurement rows
// inside a single transaction. Any failure rolls the whole table's load back;
// isolation is per table per run, never per row.
func (s *Store) InsertTrackArtistFacts(ctx context.Context, rows []core.TrackArtistFact) error {
	if len(rows) == 0 {
		return nil
	}

	err := s.bulkInsert(ctx, insertTrackArtistFactSQL, len(rows), func(i int) []any {
		r := rows[i]
		return []any{r.TrackKey, r.ArtistKey, r.DateKey, r.TrackPopularity, r.ArtistPopularity, r.ArtistFollowers}
	})
	if err != nil {
		return fmt.Errorf("track_artist_fact load failed: %w", err)
	}

	s.logger.Info("Loaded track-artist facts", zap.Int("rows", len(rows)))
	return nil
}

// InsertTrackPlaylistFacts bulk-inserts the run's playlist placement rows.
func (s *Store) InsertTrackPlaylistFacts(ctx context.Context, rows []core.TrackPlaylistFact) error {
	if len(rows) == 0 {
		return nil
	}

	err := s.bulkInsert(ctx, insertTrackPlaylistFactSQL, len(rows), func(i int) []any {
		r := rows[i]
		return []any{r.TrackKey, r.PlaylistKey, r.DateKey, r.Position, r.TrackPopularity}
	})
	if err != nil {
		return fmt.Errorf("track_playlist_fact load failed: %w", err)
	}

	s.logger.Info("Loaded track-playlist facts", zap.Int("rows", len(rows)))
	return nil
}

func (s *Store) bulkInsert(ctx context.Context, query string, n int, args func(i int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}
