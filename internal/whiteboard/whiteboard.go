// Package whiteboard extracts the learner's drawing as PNG bytes.
package whiteboard

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"sync"

	// Uploads may be JPEG or GIF; submissions are always re-encoded as PNG.
	_ "image/gif"
	_ "image/jpeg"
)

// Surface exposes the current drawing. A nil slice with a nil error means
// the surface has nothing drawn on it.
type Surface interface {
	ExtractImage() ([]byte, error)
}

// FileSurface reads the PNG snapshot a drawing tool exports to Path.
type FileSurface struct {
	Path       string
	Background color.Color
}

// ExtractImage returns the snapshot bytes, or nil when the file is absent,
// empty, or every pixel is background or transparent.
func (s FileSurface) ExtractImage() ([]byte, error) {
	if s.Path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read whiteboard snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode whiteboard snapshot %q: %w", s.Path, err)
	}
	if Blank(img, s.Background) {
		return nil, nil
	}
	return data, nil
}

// MemorySurface holds an uploaded image.
type MemorySurface struct {
	background color.Color

	mu  sync.RWMutex
	png []byte
}

// NewMemorySurface returns an empty surface.
func NewMemorySurface(background color.Color) *MemorySurface {
	return &MemorySurface{background: background}
}

// ExtractImage returns a copy of the stored image, or nil when empty.
func (s *MemorySurface) ExtractImage() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.png) == 0 {
		return nil, nil
	}
	return bytes.Clone(s.png), nil
}

// Upload replaces the surface content with the image at path.
func (s *MemorySurface) Upload(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	return s.Set(data)
}

// Set replaces the surface content with an encoded PNG, JPEG or GIF image.
func (s *MemorySurface) Set(data []byte) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode upload: %w", err)
	}

	var stored []byte
	if !Blank(img, s.background) {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode upload: %w", err)
		}
		stored = buf.Bytes()
	}

	s.mu.Lock()
	s.png = stored
	s.mu.Unlock()
	return nil
}

// Clear empties the surface.
func (s *MemorySurface) Clear() {
	s.mu.Lock()
	s.png = nil
	s.mu.Unlock()
}

// Chain returns the first non-empty image among its surfaces. An error from
// one surface is remembered and returned only if no later surface has an image.
type Chain []Surface

func (c Chain) ExtractImage() ([]byte, error) {
	var firstErr error
	for _, s := range c {
		data, err := s.ExtractImage()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(data) > 0 {
			return data, nil
		}
	}
	return nil, firstErr
}

// Blank reports whether every pixel is transparent or equal to background.
// A nil background means only transparency counts as blank.
func Blank(img image.Image, background color.Color) bool {
	var br, bg, bb uint32
	hasBackground := background != nil
	if hasBackground {
		br, bg, bb, _ = background.RGBA()
	}

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			if hasBackground && a == 0xffff && r == br && g == bg && b == bb {
				continue
			}
			return false
		}
	}
	return true
}
