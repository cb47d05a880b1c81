package soundcloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PizzaHomicide/crossplay/internal/log"
)

const (
	DefaultAPIBase = "https://api.soundcloud.com"
	userAgent      = "crossplay"
)

// ErrNotStreamable is returned for resolved resources that cannot be streamed, e.g. playlists or private tracks
var ErrNotStreamable = errors.New("resource is not a streamable track")

// Client is responsible for communicating with the soundcloud HTTP API
type Client struct {
	httpClient *http.Client
	apiBase    string
	clientID   string
	logger     *log.Logger
}

// NewClient creates a new soundcloud client.  apiBase defaults to the public API.
func NewClient(clientID, apiBase string, timeout time.Duration, logger *log.Logger) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.L()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiBase:    strings.TrimRight(apiBase, "/"),
		clientID:   clientID,
		logger:     logger,
	}
}

// User is the uploader of a track
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Track is the subset of the track resource crossplay uses
type Track struct {
	Kind         string `json:"kind"`
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Genre        string `json:"genre"`
	Duration     int64  `json:"duration"`
	PermalinkURL string `json:"permalink_url"`
	ArtworkURL   string `json:"artwork_url"`
	StreamURL    string `json:"stream_url"`
	Streamable   bool   `json:"streamable"`
	User         User   `json:"user"`
}

// StreamURLWithClientID returns the stream URL authenticated with the client id
func (c *Client) StreamURLWithClientID(t Track) string {
	return t.StreamURL + "?client_id=" + url.QueryEscape(c.clientID)
}

// Resolve looks up the track behind a soundcloud page URL
func (c *Client) Resolve(ctx context.Context, pageURL string) (Track, error) {
	q := url.Values{}
	q.Set("url", pageURL)
	q.Set("client_id", c.clientID)
	endpoint := c.apiBase + "/resolve?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Track{}, fmt.Errorf("failed to create resolve request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	c.logger.Debug("Resolving soundcloud URL", "url", pageURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Track{}, fmt.Errorf("failed to resolve %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Track{}, fmt.Errorf("resolve %s: unexpected status %d: %s", pageURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var track Track
	if err := json.NewDecoder(resp.Body).Decode(&track); err != nil {
		return Track{}, fmt.Errorf("failed to decode resolve response: %w", err)
	}
	if track.Kind != "" && track.Kind != "track" {
		return Track{}, fmt.Errorf("%w: %s is a %s", ErrNotStreamable, pageURL, track.Kind)
	}
	if track.StreamURL == "" {
		return Track{}, fmt.Errorf("%w: %s has no stream url", ErrNotStreamable, pageURL)
	}

	c.logger.Debug("Resolved soundcloud URL", "url", pageURL, "track_id", track.ID, "title", track.Title, "duration", time.Since(start))
	return track, nil
}
