package mpv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PizzaHomicide/crossplay/internal/backend"
	"github.com/PizzaHomicide/crossplay/internal/log"
)

const (
	observePause = iota + 1
	observeCache
)

// Config controls how mpv processes are launched
type Config struct {
	// Path to the mpv binary.  Default: mpv
	Path string
	// Additional arguments, parsed with ParseArgs
	Args           string
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	Logger         *log.Logger
}

// launcher starts mpv and returns a connected client plus a function that tears the process down
type launcher func(ctx context.Context) (*IPCClient, func() error, error)

// Element is an audio element backed by an idle mpv process.  The process is started lazily on first use and reused
// for every subsequent source.
type Element struct {
	cfg    Config
	name   string
	logger *log.Logger
	launch launcher

	// starting serialises launches.  mu is never held across one, so position queries answer while mpv comes up.
	starting sync.Mutex
	mu       sync.Mutex
	client   *IPCClient
	teardown func() error
	handler  func(backend.AudioEvent)
	loaded   bool
	paused   bool
	closed   bool
}

// NewElement creates an element for the named backend
func NewElement(cfg Config, name string) *Element {
	if cfg.Path == "" {
		cfg.Path = "mpv"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.L()
	}
	e := &Element{
		cfg:    cfg,
		name:   name,
		logger: logger.With("element", name),
	}
	e.launch = e.spawn
	return e
}

// Factory adapts NewElement to the backend element factory
func Factory(cfg Config) backend.ElementFactory {
	return func(name string) (backend.AudioElement, error) {
		return NewElement(cfg, name), nil
	}
}

// spawn starts `mpv --idle` with a private IPC socket
func (e *Element) spawn(ctx context.Context) (*IPCClient, func() error, error) {
	sock := socketPath(e.name + "-" + uuid.NewString()[:8])
	args := []string{
		"--idle=yes",
		"--no-terminal",
		"--no-video",
		"--force-window=no",
		"--input-ipc-server=" + sock,
	}
	if e.cfg.Args != "" {
		args = append(args, ParseArgs(e.cfg.Args)...)
	}

	cmd := exec.Command(e.cfg.Path, args...)
	setupPlayerProcess(cmd)

	e.logger.Info("Starting mpv", "path", e.cfg.Path, "socket", sock)
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start mpv: %w", err)
	}
	exited := make(chan struct{})
	go func() {
		err := cmd.Wait()
		e.logger.Debug("mpv exited", "error", err)
		close(exited)
	}()

	teardown := func() error {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to kill mpv: %w", err)
		}
		<-exited
		return removeSocket(sock)
	}

	client := NewIPCClient(sock, e.logger)
	if err := client.WaitForConnection(ctx, 40, 250*time.Millisecond); err != nil {
		_ = teardown()
		return nil, nil, err
	}
	return client, func() error {
		_ = client.Close()
		return teardown()
	}, nil
}

// running returns the connected client, or nil
func (e *Element) running() (*IPCClient, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrDisconnected
	}
	return e.client, nil
}

// ensure returns a connected client, launching mpv when needed
func (e *Element) ensure() (*IPCClient, error) {
	e.starting.Lock()
	defer e.starting.Unlock()
	if client, err := e.running(); client != nil || err != nil {
		return client, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ConnectTimeout)
	defer cancel()
	client, teardown, err := e.launch(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		_ = teardown()
		return nil, ErrDisconnected
	}
	e.client = client
	e.teardown = teardown
	e.loaded = false
	e.paused = false
	e.mu.Unlock()
	go e.watch(client)

	if err := client.ObserveProperty(ctx, observePause, "pause"); err != nil {
		e.logger.Warn("Failed to observe pause", "error", err)
	}
	if err := client.ObserveProperty(ctx, observeCache, "paused-for-cache"); err != nil {
		e.logger.Warn("Failed to observe paused-for-cache", "error", err)
	}
	return client, nil
}

// command runs an mpv command against a running instance, launching it if necessary
func (e *Element) command(args ...any) (json.RawMessage, error) {
	client, err := e.ensure()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.CommandTimeout)
	defer cancel()
	return client.Command(ctx, args...)
}

// watch translates mpv events into element events until the connection drops
func (e *Element) watch(client *IPCClient) {
	for msg := range client.Events() {
		switch msg.Event {
		case "start-file":
			e.mu.Lock()
			e.loaded = true
			e.mu.Unlock()
			e.emit(backend.AudioEvent{Type: backend.AudioWaiting})

		case "playback-restart":
			e.mu.Lock()
			paused := e.paused
			e.mu.Unlock()
			if !paused {
				e.emit(backend.AudioEvent{Type: backend.AudioPlaying})
			}

		case "property-change":
			var value bool
			if err := json.Unmarshal(msg.Data, &value); err != nil {
				continue
			}
			e.mu.Lock()
			loaded := e.loaded
			if msg.Name == "pause" {
				e.paused = value
			}
			paused := e.paused
			e.mu.Unlock()
			if !loaded {
				continue
			}
			switch {
			case msg.Name == "pause" && value:
				e.emit(backend.AudioEvent{Type: backend.AudioPaused})
			case msg.Name == "pause":
				e.emit(backend.AudioEvent{Type: backend.AudioPlaying})
			case msg.Name == "paused-for-cache" && !paused && value:
				e.emit(backend.AudioEvent{Type: backend.AudioWaiting})
			case msg.Name == "paused-for-cache" && !paused:
				e.emit(backend.AudioEvent{Type: backend.AudioPlaying})
			}

		case "end-file":
			e.mu.Lock()
			e.loaded = false
			e.mu.Unlock()
			switch msg.Reason {
			case "eof":
				e.emit(backend.AudioEvent{Type: backend.AudioEnded})
			case "error":
				e.emit(backend.AudioEvent{Type: backend.AudioFailed, Err: fmt.Errorf("mpv could not play file: %s", msg.FileError)})
			}
		}
	}

	e.mu.Lock()
	lost := e.client == client && !e.closed
	wasLoaded := e.loaded
	if e.client == client {
		e.client = nil
		e.loaded = false
	}
	e.mu.Unlock()

	if lost {
		e.logger.Warn("Lost connection to mpv")
		if wasLoaded {
			e.emit(backend.AudioEvent{Type: backend.AudioFailed, Err: ErrDisconnected})
		}
	}
}

func (e *Element) emit(ev backend.AudioEvent) {
	e.mu.Lock()
	handler := e.handler
	e.mu.Unlock()
	e.logger.Trace("Audio event", "event", ev.Type)
	if handler != nil {
		handler(ev)
	}
}

// OnEvent registers the handler for element events
func (e *Element) OnEvent(fn func(backend.AudioEvent)) {
	e.mu.Lock()
	e.handler = fn
	e.mu.Unlock()
}

// Unlock starts mpv ahead of the first load
func (e *Element) Unlock() error {
	_, err := e.ensure()
	return err
}

func (e *Element) Load(src string) error {
	if _, err := e.command("set_property", "pause", false); err != nil {
		return err
	}
	_, err := e.command("loadfile", src, "replace")
	return err
}

func (e *Element) Play() error {
	_, err := e.command("set_property", "pause", false)
	return err
}

func (e *Element) Pause() error {
	_, err := e.command("set_property", "pause", true)
	return err
}

// Unload stops playback but keeps mpv idling for the next source
func (e *Element) Unload() error {
	e.mu.Lock()
	running := e.client != nil
	e.mu.Unlock()
	if !running {
		return nil
	}
	_, err := e.command("stop")
	return err
}

func (e *Element) Seek(positionMS int64) error {
	_, err := e.command("seek", float64(positionMS)/1000, "absolute")
	return err
}

// Position returns the playback position, or zero when nothing is loaded
func (e *Element) Position() (int64, error) {
	return e.seconds("time-pos")
}

// Duration returns the media duration, or zero when it is unknown
func (e *Element) Duration() (int64, error) {
	return e.seconds("duration")
}

func (e *Element) seconds(property string) (int64, error) {
	e.mu.Lock()
	client, loaded := e.client, e.loaded
	e.mu.Unlock()
	if client == nil || !loaded {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.CommandTimeout)
	defer cancel()
	value, err := client.GetFloat(ctx, property)
	if err != nil {
		return 0, err
	}
	return int64(value * 1000), nil
}

// Close shuts mpv down
func (e *Element) Close() error {
	e.mu.Lock()
	e.closed = true
	teardown := e.teardown
	e.teardown = nil
	e.client = nil
	e.mu.Unlock()
	if teardown == nil {
		return nil
	}
	e.logger.Info("Stopping mpv")
	return teardown()
}
