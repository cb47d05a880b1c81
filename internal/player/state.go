package player

import "fmt"

// State is the normalized playback state shared by every backend
type State int

const (
	StateStopped State = iota
	StateLoading
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON payloads
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name as written by MarshalText
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateStopped, StateLoading, StatePlaying, StatePaused} {
		if string(text) == candidate.String() {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown playback state %q", text)
}

// BackendID identifies one of the playback backends.  The values double as the container names on the surface.
type BackendID string

const (
	// StreamingWidget plays soundcloud URLs, either through the embeddable widget or the HTTP API
	StreamingWidget BackendID = "soundcloud"
	// VideoEmbed plays youtube URLs through the iframe player API
	VideoEmbed BackendID = "youtube"
	// DirectLink plays any other URL with the native audio element
	DirectLink BackendID = "weblink"
	// CloudFile plays dropbox share links with the native audio element
	CloudFile BackendID = "dropbox"
)

// BackendIDs lists every backend in construction order
var BackendIDs = []BackendID{StreamingWidget, VideoEmbed, DirectLink, CloudFile}

// Snapshot is a point-in-time copy of the orchestrator's observable state
type Snapshot struct {
	State      State     `json:"state"`
	Backend    BackendID `json:"backend,omitempty"`
	URL        string    `json:"url,omitempty"`
	ElapsedMS  int64     `json:"elapsed_ms"`
	DurationMS int64     `json:"duration_ms"`
}

// Progress is reported on every progress poll while playing
type Progress struct {
	ElapsedMS  int64 `json:"elapsed_ms"`
	DurationMS int64 `json:"duration_ms"`
}

// TrackData is the metadata a backend may learn about the track it is playing
type TrackData struct {
	ID           int64  `json:"id,omitempty"`
	Title        string `json:"title,omitempty"`
	Artist       string `json:"artist,omitempty"`
	Genre        string `json:"genre,omitempty"`
	DurationMS   int64  `json:"duration_ms,omitempty"`
	PermalinkURL string `json:"permalink_url,omitempty"`
	ArtworkURL   string `json:"artwork_url,omitempty"`
	StreamURL    string `json:"stream_url,omitempty"`
}
