package room

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/iter"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/pkg/ytvideodata"
)

// videoMetadata never fails. Lookup errors yield fallback metadata.
func (s service) videoMetadata(ctx context.Context, videoID string) domain.VideoMetadata {
	fallback := domain.FallbackVideo(videoID)
	metadata := domain.VideoMetadata{
		VideoID:   videoID,
		Title:     fallback.Title,
		Uploader:  fallback.Uploader,
		Thumbnail: fallback.Thumbnail,
	}

	data, err := s.videoData.Get(ctx, videoID)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get video data", "video_id", videoID, "error", err)
		return metadata
	}

	if data.Title != "" {
		metadata.Title = data.Title
	}
	if data.AuthorName != "" {
		metadata.Uploader = data.AuthorName
	}

	return metadata
}

func (s service) GetVideoMetadata(ctx context.Context, videoURL string) (domain.VideoMetadata, error) {
	videoID, err := ytvideodata.ExtractVideoID(videoURL)
	if err != nil {
		return domain.VideoMetadata{}, ErrInvalidVideoURL
	}

	metadata := s.videoMetadata(ctx, videoID)
	metadata.URL = videoURL
	return metadata, nil
}

type GetPlaylistMetadataParams struct {
	URL        string
	PlaylistID string
}

// GetPlaylistMetadata returns the first videos of a playlist in order.
// Per-video lookups run concurrently.
func (s service) GetPlaylistMetadata(ctx context.Context, params *GetPlaylistMetadataParams) (domain.PlaylistMetadata, error) {
	playlistID := params.PlaylistID
	if playlistID == "" {
		var err error
		playlistID, err = ytvideodata.ExtractPlaylistID(params.URL)
		if err != nil {
			return domain.PlaylistMetadata{}, ErrInvalidPlaylistURL
		}
	}

	data, err := s.videoData.GetPlaylist(ctx, playlistID, s.cfg.PlaylistLimit)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get playlist data", "playlist_id", playlistID, "error", err)
		return domain.PlaylistMetadata{}, fmt.Errorf("%w: %w", ErrPlaylistUnavailable, err)
	}

	mapper := iter.Mapper[string, domain.VideoMetadata]{MaxGoroutines: s.cfg.MetadataWorkers}
	videos := mapper.Map(data.VideoIDs, func(videoID *string) domain.VideoMetadata {
		return s.videoMetadata(ctx, *videoID)
	})

	return domain.PlaylistMetadata{
		PlaylistID: playlistID,
		Title:      data.Title,
		Videos:     videos,
	}, nil
}
