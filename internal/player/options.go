package player

import (
	"time"

	"github.com/PizzaHomicide/crossplay/internal/log"
)

const (
	DefaultProgressInterval = time.Second
	DefaultRetryBackoff     = 500 * time.Millisecond
	DefaultReadyTimeout     = 10 * time.Second
	DefaultSeekMaskWindow   = 2 * time.Second
)

// Options are supplied once at construction
type Options struct {
	// MountPoint identifies the container the backends render into.  Required.
	MountPoint       string
	ProgressInterval time.Duration

	EnableStreamingWidget bool
	EnableVideoEmbed      bool
	EnableDirectLink      bool
	EnableCloudFile       bool

	// StreamingClientID switches the streaming widget backend to direct HTTP streaming
	StreamingClientID string

	TouchMobile  bool
	RetryBackoff time.Duration
	ReadyTimeout time.Duration
	// SeekMaskWindow is how long the widget reports a pending seek position instead of querying it.  Zero disables.
	SeekMaskWindow time.Duration

	Surface Surface
	Logger  *log.Logger
}

// DefaultOptions returns options with every backend enabled
func DefaultOptions(mountPoint string) Options {
	return Options{
		MountPoint:            mountPoint,
		ProgressInterval:      DefaultProgressInterval,
		EnableStreamingWidget: true,
		EnableVideoEmbed:      true,
		EnableDirectLink:      true,
		EnableCloudFile:       true,
		RetryBackoff:          DefaultRetryBackoff,
		ReadyTimeout:          DefaultReadyTimeout,
		SeekMaskWindow:        DefaultSeekMaskWindow,
	}
}

// Enabled reports whether the given backend should be constructed
func (o Options) Enabled(id BackendID) bool {
	switch id {
	case StreamingWidget:
		return o.EnableStreamingWidget
	case VideoEmbed:
		return o.EnableVideoEmbed
	case DirectLink:
		return o.EnableDirectLink
	case CloudFile:
		return o.EnableCloudFile
	default:
		return false
	}
}

func (o Options) withDefaults() Options {
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = DefaultReadyTimeout
	}
	if o.SeekMaskWindow < 0 {
		o.SeekMaskWindow = 0
	}
	if o.Surface == nil {
		o.Surface = NopSurface{}
	}
	return o
}
