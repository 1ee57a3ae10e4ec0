package ytvideodata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/net/html"
)

var ErrPlaylistNotFound = errors.New("playlist not found")

const initialDataMarker = "ytInitialData"

var videoIDInPageRe = regexp.MustCompile(`"videoId":"([^"]{11})"`)

type PlaylistData struct {
	ID       string
	Title    string
	VideoIDs []string
}

// GetPlaylist scrapes the playlist page and returns up to limit video ids in
// playlist order.
func (c *Client) GetPlaylist(ctx context.Context, playlistId string, limit int) (*PlaylistData, error) {
	resp, err := c.get(ctx, c.baseURL+"/playlist?list="+url.QueryEscape(playlistId))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist page: %w", err)
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	data := PlaylistData{ID: playlistId, Title: trimSiteSuffix(getTitle(doc))}
	if data.Title == "" {
		data.Title = "Playlist " + playlistId
	}

	if script := getScript(doc, initialDataMarker); script != "" {
		data.VideoIDs = videoIDsFromInitialData(script)
	}
	if len(data.VideoIDs) == 0 {
		data.VideoIDs = videoIDsFromText(string(body))
	}
	if len(data.VideoIDs) == 0 {
		return nil, ErrPlaylistNotFound
	}
	if limit > 0 && len(data.VideoIDs) > limit {
		data.VideoIDs = data.VideoIDs[:limit]
	}

	return &data, nil
}

func videoIDsFromInitialData(script string) []string {
	start := strings.Index(script, initialDataMarker)
	if start < 0 {
		return nil
	}
	brace := strings.IndexByte(script[start:], '{')
	if brace < 0 {
		return nil
	}

	var root any
	if err := json.NewDecoder(strings.NewReader(script[start+brace:])).Decode(&root); err != nil {
		return nil
	}

	var ids []string
	seen := make(map[string]struct{})
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			keys := maps.Keys(t)
			slices.Sort(keys)
			for _, key := range keys {
				value := t[key]
				if key == "playlistPanelVideoRenderer" || key == "playlistVideoRenderer" {
					if r, ok := value.(map[string]any); ok {
						if id, ok := r["videoId"].(string); ok {
							if _, dup := seen[id]; !dup {
								seen[id] = struct{}{}
								ids = append(ids, id)
							}
						}
					}
				}
				walk(value)
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		}
	}
	walk(root)

	return ids
}

func videoIDsFromText(text string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, m := range videoIDInPageRe.FindAllStringSubmatch(text, -1) {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	return ids
}
