package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// ChunkBytes is the size of one capture chunk covering interval of 16 kHz mono s16le audio.
func ChunkBytes(interval time.Duration) int {
	n := int(interval.Milliseconds()) * SampleRate * BytesPerSample / 1000
	n -= n % BytesPerSample
	if n < BytesPerSample {
		return BytesPerSample
	}
	return n
}

// Capture streams fixed-size PCM chunks from one selected Pulse source.
type Capture struct {
	device    Device
	chunkSize int

	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	done   chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool

	writers sync.WaitGroup
	bytes   atomic.Int64
}

// StartCapture opens a record stream on selected, emitting one chunk per interval.
func StartCapture(ctx context.Context, selected Device, interval time.Duration) (*Capture, error) {
	client, err := Connect("audio-input-microphone")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: resolve source %q: %w", ErrNoDevice, selected.ID, err)
	}

	c := newCapture(selected, ChunkBytes(interval))
	c.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(c.write), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(uint32(c.chunkSize)),
		pulse.RecordMediaName("edupal microphone"),
	)
	if err != nil {
		_ = c.Stop()
		return nil, fmt.Errorf("%w: create record stream: %w", ErrNoDevice, err)
	}
	c.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Stop()
		case <-c.done:
		}
	}()

	return c, nil
}

func newCapture(device Device, chunkSize int) *Capture {
	return &Capture{
		device:    device,
		chunkSize: chunkSize,
		chunks:    make(chan []byte, 64),
		done:      make(chan struct{}),
	}
}

// Device returns the source this capture records from.
func (c *Capture) Device() Device {
	return c.device
}

// Chunks is closed after Stop flushes the final partial chunk.
func (c *Capture) Chunks() <-chan []byte {
	return c.chunks
}

// BytesCaptured reports total bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// Stop halts the stream, flushes residual PCM, and closes Chunks exactly once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.done)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.writers.Wait()

	c.mu.Lock()
	rest := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(rest) > 0 {
		select {
		case c.chunks <- rest:
		default:
		}
	}
	close(c.chunks)
	return nil
}

// write receives raw Pulse frames and emits chunkSize slices.
func (c *Capture) write(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same lock as stopped so Stop's Wait cannot race it.
	c.writers.Add(1)
	defer c.writers.Done()

	c.pending = append(c.pending, buffer...)
	var ready [][]byte
	for len(c.pending) >= c.chunkSize {
		chunk := make([]byte, c.chunkSize)
		copy(chunk, c.pending)
		c.pending = c.pending[c.chunkSize:]
		ready = append(ready, chunk)
	}
	c.mu.Unlock()

	c.bytes.Add(int64(len(buffer)))

	for _, chunk := range ready {
		select {
		case <-c.done:
			return 0, io.EOF
		case c.chunks <- chunk:
		}
	}
	return len(buffer), nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
