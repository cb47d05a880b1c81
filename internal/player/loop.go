package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/PizzaHomicide/crossplay/internal/log"
)

// Loop runs queued tasks one at a time on a single goroutine.  Everything that touches orchestrator or backend state
// runs on the loop, so none of that state needs locking.  Tasks must not block on Call from inside the loop.
type Loop struct {
	name   string
	logger *log.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

// NewLoop starts a loop goroutine
func NewLoop(name string, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.L()
	}
	l := &Loop{
		name:   name,
		logger: logger,
		done:   make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.exec(fn)
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Recovered panic in loop task", "loop", l.name, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

// Post queues fn to run on the loop.  Returns false if the loop has been closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.queue = append(l.queue, fn)
	l.cond.Signal()
	return true
}

// Call runs fn on the loop and waits for it to complete
func (l *Loop) Call(fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}
	<-done
	return nil
}

// Close stops accepting tasks and waits for the queued ones to drain
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		l.cond.Broadcast()
	}
	l.mu.Unlock()
	<-l.done
}

// Timer is a one-shot loop timer.  Stop must be called from the loop; once it returns the function is guaranteed not
// to run.
type Timer struct {
	t       *time.Timer
	stopped bool
}

// AfterFunc runs fn on the loop once d has elapsed
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if tm.stopped {
				return
			}
			tm.stopped = true
			fn()
		})
	})
	return tm
}

// Stop cancels the timer.  Safe on a nil or already fired timer.
func (t *Timer) Stop() {
	if t == nil {
		return
	}
	t.stopped = true
	t.t.Stop()
}

// Ticker runs a function on the loop at a fixed interval.  Like Timer it is confined to the loop.
type Ticker struct {
	t       *time.Timer
	stopped bool
}

// Every runs fn on the loop every d until the returned ticker is stopped.  Must be called from the loop.
func (l *Loop) Every(d time.Duration, fn func()) *Ticker {
	tk := &Ticker{}
	var arm func()
	arm = func() {
		tk.t = time.AfterFunc(d, func() {
			l.Post(func() {
				if tk.stopped {
					return
				}
				fn()
				if !tk.stopped {
					arm()
				}
			})
		})
	}
	arm()
	return tk
}

// Stop cancels the ticker.  Safe on a nil ticker.
func (t *Ticker) Stop() {
	if t == nil {
		return
	}
	t.stopped = true
	t.t.Stop()
}
