package ytvideodata

import (
	"errors"
	"regexp"
)

var (
	ErrVideoIDNotFound    = errors.New("video id not found in url")
	ErrPlaylistIDNotFound = errors.New("playlist id not found in url")
)

var (
	videoIDRe    = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)
	playlistIDRe = regexp.MustCompile(`(?:youtube\.com/playlist\?list=|youtube\.com/watch\?.*&list=)([^"&?/\s]{34})`)
)

func ExtractVideoID(url string) (string, error) {
	m := videoIDRe.FindStringSubmatch(url)
	if m == nil {
		return "", ErrVideoIDNotFound
	}
	return m[1], nil
}

func ExtractPlaylistID(url string) (string, error) {
	m := playlistIDRe.FindStringSubmatch(url)
	if m == nil {
		return "", ErrPlaylistIDNotFound
	}
	return m[1], nil
}
