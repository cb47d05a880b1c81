//go:build windows

package mpv

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"syscall"

	"gopkg.in/natefinch/npipe.v2"
)

// setupPlayerProcess detaches mpv from the console crossplay runs in
func setupPlayerProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | syscall.DETACHED_PROCESS,
	}
}

// socketPath returns a unique named pipe for one mpv instance
func socketPath(name string) string {
	return `\\.\pipe\crossplay-mpv-` + name
}

func dial(ctx context.Context, path string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := npipe.Dial(path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mpv pipe: %w", err)
	}
	return conn, nil
}

// Named pipes disappear with the process
func removeSocket(string) error { return nil }
