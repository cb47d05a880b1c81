package backend

import (
	"fmt"
	"time"

	"github.com/PizzaHomicide/crossplay/internal/player"
)

// readiness tracks the asynchronous setup of a backend's external dependency.  It is confined to the loop.
//
// Callers that need the dependency go through await: while setup is in flight the call is retried after the backoff,
// once setup failed the call is dropped.  The readiness timeout starts when setup begins and turns a dependency that
// never reports back into a permanent failure.
type readiness struct {
	host    player.Host
	backoff time.Duration
	timeout time.Duration
	setup   func()

	initializing bool
	ready        bool
	failed       bool
	err          error
	timer        *player.Timer
}

func newReadiness(host player.Host, opts player.Options, setup func()) *readiness {
	return &readiness{
		host:    host,
		backoff: opts.RetryBackoff,
		timeout: opts.ReadyTimeout,
		setup:   setup,
	}
}

// await reports whether the dependency is ready.  When it is not, retry is scheduled after the backoff unless setup
// has failed, in which case the player falls back to STOPPED.  A retry scheduled before the next PlayURL or Stop is
// dropped.
func (r *readiness) await(retry func()) bool {
	if r.ready {
		return true
	}
	if r.failed {
		r.host.Logger().Debug("Dropping call, backend failed to initialise", "error", r.err)
		r.host.SetState(player.StateStopped)
		return false
	}
	r.begin()
	if r.ready {
		return true
	}
	if r.failed {
		return false
	}

	gen := r.host.Generation()
	r.host.Logger().Trace("Backend not ready, retrying", "backoff", r.backoff)
	r.host.AfterFunc(r.backoff, func() {
		if r.host.Generation() != gen {
			return
		}
		retry()
	})
	return false
}

// begin starts setup once
func (r *readiness) begin() {
	if r.initializing || r.ready || r.failed {
		return
	}
	r.initializing = true
	r.timer = r.host.AfterFunc(r.timeout, func() {
		if r.ready || r.failed {
			return
		}
		r.fail(fmt.Errorf("%w after %s", player.ErrReadinessTimeout, r.timeout))
	})
	r.setup()
}

func (r *readiness) markReady() {
	if r.failed {
		return
	}
	r.timer.Stop()
	r.ready = true
	r.initializing = false
	r.host.Logger().Debug("Backend ready")
}

// fail records a permanent failure, falls back to STOPPED and publishes the error
func (r *readiness) fail(err error) {
	if r.failed {
		return
	}
	r.timer.Stop()
	r.failed = true
	r.ready = false
	r.initializing = false
	r.err = err
	r.host.SetState(player.StateStopped)
	r.host.Fail(err)
}
