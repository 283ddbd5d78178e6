package core

import (
	"testing"
	"time"
)

func TestNewDateRow(t *testing.T) {
	tests := []struct {
		name        string
		date        time.Time
		wantID      string
		wantQuarter int
		wantDesc    string
		wantDOW     string
	}{
		{
			name:        "new year's day",
			date:        time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
			wantID:      "20240101",
			wantQuarter: 1,
			wantDesc:    "January 01, 2024",
			wantDOW:     "Monday",
		},
		{
			name:        "end of q2",
			date:        time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC),
			wantID:      "20240630",
			wantQuarter: 2,
			wantDesc:    "June 30, 2024",
			wantDOW:     "Sunday",
		},
		{
			name:        "start of q4",
			date:        time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC),
			wantID:      "20231001",
			wantQuarter: 4,
			wantDesc:    "October 01, 2023",
			wantDOW:     "Sunday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := NewDateRow(tt.date)

			if row.ID != tt.wantID {
				t.Errorf("ID = %q, expected %q", row.ID, tt.wantID)
			}
			if row.Quarter != tt.wantQuarter {
				t.Errorf("Quarter = %d, expected %d", row.Quarter, tt.wantQuarter)
			}
			if row.Description != tt.wantDesc {
				t.Errorf("Description = %q, expected %q", row.Description, tt.wantDesc)
			}
			if row.DayOfWeek != tt.wantDOW {
				t.Errorf("DayOfWeek = %q, expected %q", row.DayOfWeek, tt.wantDOW)
			}
			if row.Date != tt.date.Format("2006-01-02") {
				t.Errorf("Date = %q", row.Date)
			}
		})
	}
}

func TestTrackArtistPairKey(t *testing.T) {
	a := TrackArtistPair{TrackSpotifyID: "t1", ArtistSpotifyID: "a1"}
	b := TrackArtistPair{TrackSpotifyID: "t1", ArtistSpotifyID: "a2"}

	if a.Key() == b.Key() {
		t.Errorf("distinct pairs must have distinct keys: %q", a.Key())
	}
	if a.Key() != "t1|a1" {
		t.Errorf("Key() = %q, expected %q", a.Key(), "t1|a1")
	}
}
