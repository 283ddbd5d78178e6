package spotify

import (
	"encoding/json"
	"testing"

	"github.com/zmb3/spotify/v2"
)

func TestChunkIDs(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		size       int
		wantChunks int
		wantLast   int
	}{
		{"empty", 0, 50, 0, 0},
		{"single partial chunk", 3, 50, 1, 3},
		{"exact chunk", 50, 50, 1, 50},
		{"one over", 51, 50, 2, 1},
		{"several chunks", 45, 20, 3, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]string, tt.count)
			for i := range ids {
				ids[i] = "id"
			}

			chunks := chunkIDs(ids, tt.size)
			if len(chunks) != tt.wantChunks {
				t.Fatalf("chunkIDs(%d, %d) produced %d chunks, expected %d",
					tt.count, tt.size, len(chunks), tt.wantChunks)
			}
			if tt.wantChunks > 0 {
				if got := len(chunks[len(chunks)-1]); got != tt.wantLast {
					t.Errorf("last chunk has %d IDs, expected %d", got, tt.wantLast)
				}
			}

			total := 0
			for _, chunk := range chunks {
				total += len(chunk)
			}
			if total != tt.count {
				t.Errorf("chunks cover %d IDs, expected %d", total, tt.count)
			}
		})
	}
}

func TestConvertTrack(t *testing.T) {
	track := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:          "4uLU6hMCjMI75M1A2tKUQC",
			Name:        "Never Gonna Give You Up",
			Duration:    213573,
			TrackNumber: 1,
		},
		Album: spotify.SimpleAlbum{
			ID:          "6XhjNHCyCDyyGJRM5mg40G",
			Name:        "Whenever You Need Somebody",
			ReleaseDate: "1987-11-12",
			AlbumType:   "album",
			TotalTracks: 10,
		},
		ExternalIDs: map[string]string{"isrc": "GBARL9300135"},
	}

	row := convertTrack(track)

	if row.SpotifyID != "4uLU6hMCjMI75M1A2tKUQC" {
		t.Errorf("SpotifyID = %q", row.SpotifyID)
	}
	if row.DurationMS != 213573 {
		t.Errorf("DurationMS = %d", row.DurationMS)
	}
	if row.ISRC != "GBARL9300135" {
		t.Errorf("ISRC = %q", row.ISRC)
	}
	if row.AlbumPosition != 1 {
		t.Errorf("AlbumPosition = %d", row.AlbumPosition)
	}
	if row.AlbumSpotifyID != "6XhjNHCyCDyyGJRM5mg40G" || row.AlbumTotalTracks != 10 {
		t.Errorf("album fields = %q / %d", row.AlbumSpotifyID, row.AlbumTotalTracks)
	}
	if row.AlbumReleaseDate != "1987-11-12" || row.AlbumType != "album" {
		t.Errorf("album release fields = %q / %q", row.AlbumReleaseDate, row.AlbumType)
	}
	if row.AlbumUPC != "" || row.LabelName != "" {
		t.Errorf("enrichment fields must start empty, got %q / %q", row.AlbumUPC, row.LabelName)
	}
}

func TestAlbumBatchResponseDecoding(t *testing.T) {
	payload := `{
		"albums": [
			{
				"id": "6XhjNHCyCDyyGJRM5mg40G",
				"label": "RCA Records",
				"external_ids": {"upc": "886443671584"}
			},
			null
		]
	}`

	var batch albumBatchResponse
	if err := json.Unmarshal([]byte(payload), &batch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(batch.Albums) != 2 {
		t.Fatalf("expected 2 album slots, got %d", len(batch.Albums))
	}
	if batch.Albums[0].Label != "RCA Records" {
		t.Errorf("Label = %q", batch.Albums[0].Label)
	}
	if batch.Albums[0].ExternalIDs["upc"] != "886443671584" {
		t.Errorf("UPC = %q", batch.Albums[0].ExternalIDs["upc"])
	}

	// A delisted album decodes to the zero value and is skipped by its empty ID.
	if batch.Albums[1].ID != "" {
		t.Errorf("null album slot must decode with empty ID, got %q", batch.Albums[1].ID)
	}
}
