// Package playlistlink parses the playlist references users paste when
// registering a playlist: share URLs, spotify: URIs and bare IDs.
package playlistlink

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	uriPrefix = "spotify:playlist:"
	// pathParts is the expected segment count of a playlist share URL path.
	pathParts = 2
)

var (
	// ErrNotPlaylist is returned for references that point at something other
	// than a playlist (tracks, albums, arbitrary URLs).
	ErrNotPlaylist = errors.New("reference is not a playlist")

	// Playlist IDs are base62.
	idPattern = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)
)

// Parse extracts the playlist ID from any of the supported reference forms:
//
//	https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=...
//	spotify:playlist:37i9dQZF1DXcBWIGoYBM5M
//	37i9dQZF1DXcBWIGoYBM5M
func Parse(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty playlist reference")
	}

	if strings.HasPrefix(ref, "spotify:") {
		return parseURI(ref)
	}

	if strings.Contains(ref, "://") {
		return parseURL(ref)
	}

	if !idPattern.MatchString(ref) {
		return "", fmt.Errorf("%q is not a valid playlist ID", ref)
	}

	return ref, nil
}

func parseURI(ref string) (string, error) {
	if !strings.HasPrefix(ref, uriPrefix) {
		return "", fmt.Errorf("%w: %q", ErrNotPlaylist, ref)
	}

	id := strings.TrimPrefix(ref, uriPrefix)
	if !idPattern.MatchString(id) {
		return "", fmt.Errorf("invalid playlist ID in URI %q", ref)
	}

	return id, nil
}

func parseURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("failed to parse playlist URL: %w", err)
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname != "open.spotify.com" && hostname != "play.spotify.com" {
		return "", fmt.Errorf("%w: unsupported host %q", ErrNotPlaylist, hostname)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")

	// Locale-prefixed paths like /intl-de/playlist/<id> are valid share URLs.
	if len(parts) == pathParts+1 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}

	if len(parts) != pathParts || parts[0] != "playlist" {
		return "", fmt.Errorf("%w: %q", ErrNotPlaylist, u.Path)
	}

	if !idPattern.MatchString(parts[1]) {
		return "", fmt.Errorf("invalid playlist ID in URL %q", ref)
	}

	return parts[1], nil
}
