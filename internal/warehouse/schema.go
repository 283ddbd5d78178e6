package warehouse

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Surrogate keys are assigned on first insert via AUTOINCREMENT; natural
// (Spotify) IDs carry UNIQUE constraints so duplicate insert attempts fail at
// the constraint rather than creating a second row. Fact tables use composite
// primary keys over (entity keys, date key) to make same-day re-runs no-ops.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS date_dim (
		date_id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		date_description TEXT,
		calendar_year TEXT,
		calendar_quarter INTEGER,
		calendar_month_num INTEGER,
		calendar_month_name TEXT,
		calendar_month_day_num INTEGER,
		day_of_week TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS playlist_dim (
		playlist_id INTEGER PRIMARY KEY AUTOINCREMENT,
		playlist_spotify_id TEXT NOT NULL UNIQUE,
		playlist_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS track_dim (
		track_id INTEGER PRIMARY KEY AUTOINCREMENT,
		track_spotify_id TEXT NOT NULL UNIQUE,
		track_name TEXT,
		track_duration_ms INTEGER,
		track_isrc TEXT,
		track_album_position INTEGER,
		album_id TEXT,
		album_name TEXT,
		album_release_date TEXT,
		album_type TEXT,
		album_total_tracks INTEGER,
		album_upc TEXT,
		label_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS artist_dim (
		artist_id INTEGER PRIMARY KEY AUTOINCREMENT,
		artist_spotify_id TEXT NOT NULL UNIQUE,
		artist_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS track_artist_fact (
		track_id INTEGER NOT NULL,
		artist_id INTEGER NOT NULL,
		date_id TEXT NOT NULL,
		track_popularity INTEGER,
		artist_popularity INTEGER,
		artist_followers INTEGER,
		PRIMARY KEY (track_id, artist_id, date_id),
		FOREIGN KEY (track_id) REFERENCES track_dim (track_id),
		FOREIGN KEY (artist_id) REFERENCES artist_dim (artist_id),
		FOREIGN KEY (date_id) REFERENCES date_dim (date_id)
	)`,
	`CREATE TABLE IF NOT EXISTS track_playlist_fact (
		track_id INTEGER NOT NULL,
		playlist_id INTEGER NOT NULL,
		date_id TEXT NOT NULL,
		track_playlist_position INTEGER,
		track_popularity INTEGER,
		PRIMARY KEY (track_id, playlist_id, date_id),
		FOREIGN KEY (track_id) REFERENCES track_dim (track_id),
		FOREIGN KEY (playlist_id) REFERENCES playlist_dim (playlist_id),
		FOREIGN KEY (date_id) REFERENCES date_dim (date_id)
	)`,
}

// EnsureSchema creates the warehouse's dimension and fact tables if absent.
// Safe to call on every run.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema object: %w", err)
		}
	}

	s.logger.Info("Warehouse schema ensured", zap.Int("tables", len(schemaStatements)))
	return nil
}
