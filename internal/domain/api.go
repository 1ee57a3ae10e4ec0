package domain

// Request and response bodies of the room store API.

type CreateRoomResponse struct {
	Success bool   `json:"success"`
	RoomID  string `json:"room_id"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type LeaveRoomRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type LeaveRoomResponse struct {
	Success bool  `json:"success"`
	Room    *Room `json:"room"`
}

type VideoMetadataRequest struct {
	URL string `json:"url" validate:"required"`
}

type VideoMetadata struct {
	VideoID   string `json:"video_id"`
	Title     string `json:"title"`
	Uploader  string `json:"uploader"`
	Thumbnail string `json:"thumbnail"`
	URL       string `json:"url,omitempty"`
}

func (m VideoMetadata) Video() Video {
	url := m.URL
	if url == "" {
		url = WatchURL(m.VideoID)
	}
	return Video{
		ID:        m.VideoID,
		Title:     m.Title,
		Uploader:  m.Uploader,
		Thumbnail: m.Thumbnail,
		URL:       url,
	}
}

type PlaylistMetadataRequest struct {
	URL        string `json:"url" validate:"required"`
	PlaylistID string `json:"playlistId"`
}

type PlaylistMetadata struct {
	PlaylistID string          `json:"playlist_id"`
	Title      string          `json:"title"`
	Videos     []VideoMetadata `json:"videos"`
}

type Health struct {
	Status     string `json:"status"`
	RoomsCount int    `json:"rooms_count"`
}
