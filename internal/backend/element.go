package backend

// AudioEventType is one of the native element events the audio backends react to
type AudioEventType int

const (
	// AudioWaiting fires while the element buffers
	AudioWaiting AudioEventType = iota
	// AudioPlaying fires once audio is actually coming out
	AudioPlaying
	AudioPaused
	// AudioEnded fires on natural end of the media only
	AudioEnded
	// AudioFailed fires when the element gave up on the media
	AudioFailed
)

func (t AudioEventType) String() string {
	switch t {
	case AudioWaiting:
		return "waiting"
	case AudioPlaying:
		return "playing"
	case AudioPaused:
		return "pause"
	case AudioEnded:
		return "ended"
	case AudioFailed:
		return "error"
	default:
		return "unknown"
	}
}

// AudioEvent is emitted by an AudioElement, from any goroutine
type AudioEvent struct {
	Type AudioEventType
	Err  error
}

// AudioElement is a native media element able to play a URL
type AudioElement interface {
	// Unlock primes the element so later asynchronous loads are allowed to start playback
	Unlock() error
	// Load points the element at src and starts playing it
	Load(src string) error
	Play() error
	Pause() error
	// Unload drops the current source
	Unload() error
	Seek(positionMS int64) error
	Position() (int64, error)
	Duration() (int64, error)
	OnEvent(fn func(AudioEvent))
	Close() error
}

// ElementFactory creates the audio element for the named backend
type ElementFactory func(name string) (AudioElement, error)
