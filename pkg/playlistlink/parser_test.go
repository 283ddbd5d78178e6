package playlistlink

import (
	"errors"
	"testing"
)

const testID = "37i9dQZF1DXcBWIGoYBM5M"

func TestParse_ValidReferences(t *testing.T) {
	tests := []struct {
		name string
		ref  string
	}{
		{"bare ID", testID},
		{"URI", "spotify:playlist:" + testID},
		{"share URL", "https://open.spotify.com/playlist/" + testID},
		{"share URL with tracking params", "https://open.spotify.com/playlist/" + testID + "?si=abc123"},
		{"locale-prefixed URL", "https://open.spotify.com/intl-de/playlist/" + testID},
		{"legacy host", "https://play.spotify.com/playlist/" + testID},
		{"whitespace padding", "  " + testID + "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Parse(tt.ref)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.ref, err)
			}
			if id != testID {
				t.Errorf("Parse(%q) = %q, expected %q", tt.ref, id, testID)
			}
		})
	}
}

func TestParse_InvalidReferences(t *testing.T) {
	tests := []struct {
		name string
		ref  string
	}{
		{"empty", ""},
		{"too short", "abc123"},
		{"track URL", "https://open.spotify.com/track/" + testID},
		{"track URI", "spotify:track:" + testID},
		{"wrong host", "https://example.com/playlist/" + testID},
		{"ID with invalid characters", "37i9dQZF1DXcBWIGoYBM5!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.ref); err == nil {
				t.Errorf("Parse(%q) succeeded, expected an error", tt.ref)
			}
		})
	}
}

func TestParse_NotPlaylistClassification(t *testing.T) {
	_, err := Parse("https://open.spotify.com/album/" + testID)
	if !errors.Is(err, ErrNotPlaylist) {
		t.Errorf("expected ErrNotPlaylist, got %v", err)
	}

	_, err = Parse("spotify:album:" + testID)
	if !errors.Is(err, ErrNotPlaylist) {
		t.Errorf("expected ErrNotPlaylist for album URI, got %v", err)
	}
}
