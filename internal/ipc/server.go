package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	maxRequestBytes = 64 * 1024
	requestDeadline = 5 * time.Second
)

// Handler processes one command.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve answers clients until ctx is cancelled or the listener closes, then
// waits for in-flight connections.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, conn, handler)
		}()
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(requestDeadline))

	reply := func(resp Response) {
		_ = conn.SetWriteDeadline(time.Now().Add(requestDeadline))
		_ = json.NewEncoder(conn).Encode(resp)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxRequestBytes)
	if !scanner.Scan() {
		err := scanner.Err()
		if err == nil {
			err = errors.New("empty request")
		}
		reply(Response{Error: fmt.Sprintf("read request: %v", err)})
		return
	}

	var req Request
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		reply(Response{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}

	// Handlers may block for a whole stop sequence.
	_ = conn.SetReadDeadline(time.Time{})
	reply(handler.Handle(ctx, req))
}
