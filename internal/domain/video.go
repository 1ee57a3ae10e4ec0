package domain

import "fmt"

type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Uploader  string `json:"uploader"`
	Thumbnail string `json:"thumbnail"`
	URL       string `json:"url"`
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func ThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/mqdefault.jpg", videoID)
}

// FallbackVideo is used when metadata lookup fails.
func FallbackVideo(videoID string) Video {
	return Video{
		ID:        videoID,
		Title:     "Video " + videoID,
		Uploader:  "Unknown Channel",
		Thumbnail: ThumbnailURL(videoID),
		URL:       WatchURL(videoID),
	}
}

// PlaceholderVideo is shown while metadata is being fetched.
func PlaceholderVideo(videoID string) Video {
	return Video{
		ID:        videoID,
		Title:     "Loading...",
		Uploader:  "Loading...",
		Thumbnail: ThumbnailURL(videoID),
		URL:       WatchURL(videoID),
	}
}
