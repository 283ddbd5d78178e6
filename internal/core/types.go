package core

import (
	"context"
	"fmt"
	"time"
)

// TrackRow is one track dimension row keyed by its Spotify ID. Album UPC and
// label are filled in by the enrichment step after the initial playlist pass.
type TrackRow struct {
	SpotifyID        string
	Name             string
	DurationMS       int
	ISRC             string
	AlbumPosition    int
	AlbumSpotifyID   string
	AlbumName        string
	AlbumReleaseDate string
	AlbumType        string
	AlbumTotalTracks int
	AlbumUPC         string
	LabelName        string
}

// ArtistRow is one artist dimension row.
type ArtistRow struct {
	SpotifyID string
	Name      string
}

// PlaylistRow is one manually registered playlist dimension row.
type PlaylistRow struct {
	SpotifyID string
	Name      string
}

// TrackArtistPair links a track to one of its artists by natural (Spotify) IDs.
type TrackArtistPair struct {
	TrackSpotifyID  string
	ArtistSpotifyID string
}

// TrackPlaylistRow records a track's 1-based position on a playlist at
// extraction time, keyed by natural IDs.
type TrackPlaylistRow struct {
	TrackSpotifyID    string
	PlaylistSpotifyID string
	Position          int
}

// TrackMetrics holds the point-in-time measurements for a track.
type TrackMetrics struct {
	Popularity int
}

// ArtistMetrics holds the point-in-time measurements for an artist.
type ArtistMetrics struct {
	Popularity int
	Followers  int
}

// AlbumInfo is the enrichment payload looked up per album: the catalog
// product code and the releasing label.
type AlbumInfo struct {
	UPC   string
	Label string
}

// TrackArtistFact is one append-only measurement row keyed by warehouse
// surrogate keys plus the run's date key.
type TrackArtistFact struct {
	TrackKey         int64
	ArtistKey        int64
	DateKey          string
	TrackPopularity  int
	ArtistPopularity int
	ArtistFollowers  int
}

// TrackPlaylistFact is one append-only playlist placement row.
type TrackPlaylistFact struct {
	TrackKey        int64
	PlaylistKey     int64
	DateKey         string
	Position        int
	TrackPopularity int
}

// DateRow is one calendar-day dimension row with derived reporting fields.
// The 8-digit ID doubles as the fact tables' date foreign key.
type DateRow struct {
	ID          string
	Date        string
	Description string
	Year        string
	Quarter     int
	MonthNum    int
	MonthName   string
	DayNum      int
	DayOfWeek   string
}

// NewDateRow derives a date dimension row from the given instant.
func NewDateRow(t time.Time) DateRow {
	return DateRow{
		ID:          t.Format("20060102"),
		Date:        t.Format("2006-01-02"),
		Description: t.Format("January 02, 2006"),
		Year:        t.Format("2006"),
		Quarter:     (int(t.Month())-1)/3 + 1,
		MonthNum:    int(t.Month()),
		MonthName:   t.Month().String(),
		DayNum:      t.Day(),
		DayOfWeek:   t.Weekday().String(),
	}
}

// Key returns the pair's natural composite key, used for deduplication.
func (p TrackArtistPair) Key() string {
	return fmt.Sprintf("%s|%s", p.TrackSpotifyID, p.ArtistSpotifyID)
}

// Pacer spaces consecutive external calls. *rate.Limiter satisfies it; tests
// inject a no-wait implementation.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NopPacer never waits.
type NopPacer struct{}

func (NopPacer) Wait(context.Context) error { return nil }
