package ytvideodata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
		err  error
	}{
		{url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{url: "https://youtu.be/dQw4w9WgXcQ?t=42", want: "dQw4w9WgXcQ"},
		{url: "https://www.youtube.com/embed/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{url: "https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&list=x", want: "dQw4w9WgXcQ"},
		{url: "https://vimeo.com/12345", err: ErrVideoIDNotFound},
		{url: "https://youtu.be/short", err: ErrVideoIDNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPlaylistID(t *testing.T) {
	const id = "PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf"

	got, err := ExtractPlaylistID("https://www.youtube.com/playlist?list=" + id)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = ExtractPlaylistID("https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=" + id)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ExtractPlaylistID("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	assert.ErrorIs(t, err, ErrPlaylistIDNotFound)
}

func TestGetWithEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oembed", r.URL.Path)
		fmt.Fprint(w, `{"title":"Never Gonna","author_name":"Rick","thumbnail_url":"thumb"}`)
	}))
	defer srv.Close()

	data, err := New(&Config{BaseURL: srv.URL}).Get(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna", data.Title)
	assert.Equal(t, "Rick", data.AuthorName)
}

func TestGetFallsBackToPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Hidden Gem - YouTube</title>
<link itemprop="name" content="Some Channel"></head><body></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	data, err := New(&Config{BaseURL: srv.URL}).Get(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Hidden Gem", data.Title)
	assert.Equal(t, "Some Channel", data.AuthorName)
	assert.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/mqdefault.jpg", data.ThumbnailUrl)
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(&Config{BaseURL: srv.URL}).Get(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestGetPlaylist(t *testing.T) {
	page := `<html><head><title>Mix - YouTube</title></head><body>
<script>var ytInitialData = {"contents":{"list":[
{"playlistVideoRenderer":{"videoId":"aaaaaaaaaaa"}},
{"playlistVideoRenderer":{"videoId":"bbbbbbbbbbb"}},
{"playlistVideoRenderer":{"videoId":"aaaaaaaaaaa"}},
{"playlistVideoRenderer":{"videoId":"ccccccccccc"}}
]}};</script></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/playlist", r.URL.Path)
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	c := New(&Config{BaseURL: srv.URL})
	data, err := c.GetPlaylist(context.Background(), "PL1", 0)
	require.NoError(t, err)
	assert.Equal(t, "Mix", data.Title)
	assert.Equal(t, []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"}, data.VideoIDs)

	data, err = c.GetPlaylist(context.Background(), "PL1", 2)
	require.NoError(t, err)
	assert.Len(t, data.VideoIDs, 2)
}

func TestGetPlaylistEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Nothing</title></head></html>`)
	}))
	defer srv.Close()

	_, err := New(&Config{BaseURL: srv.URL}).GetPlaylist(context.Background(), "PL1", 50)
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}
