package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrAlreadyRunning means another process owns the socket and answered.
var ErrAlreadyRunning = errors.New("edupal already running")

const socketName = "edupal.sock"

// RuntimeSocketPath returns the socket location under XDG_RUNTIME_DIR.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, socketName), nil
}

// Acquire listens on path. A stale socket left by a dead owner is removed
// (calling rescue, if set) and listening is retried up to retries times. A
// live owner yields ErrAlreadyRunning.
func Acquire(
	ctx context.Context,
	path string,
	probeTimeout time.Duration,
	retries int,
	rescue func(context.Context) error,
) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	var listener net.Listener
	backoff := retry.WithMaxRetries(uint64(max(retries, 0)), retry.NewFibonacci(25*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		l, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			listener = l
			return nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("listen unix %s: %w", path, err)
		}

		alive, probeErr := Probe(ctx, path, probeTimeout)
		if alive {
			return ErrAlreadyRunning
		}
		if probeErr != nil {
			return fmt.Errorf("probe existing socket %s: %w", path, probeErr)
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale socket %s: %w", path, err)
		}
		if rescue != nil {
			_ = rescue(ctx)
		}
		return retry.RetryableError(fmt.Errorf("socket %s in use", path))
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			return nil, err
		}
		return nil, fmt.Errorf("acquire socket %s: %w", path, err)
	}
	return listener, nil
}
