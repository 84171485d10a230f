package whiteboard

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

func canvas(t *testing.T, fill color.Color, strokes ...image.Point) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, fill)
		}
	}
	for _, p := range strokes {
		img.Set(p.X, p.Y, color.RGBA{A: 0xff})
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeSnapshot(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.png")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestFileSurfaceMissingOrEmptyIsNone(t *testing.T) {
	got, err := FileSurface{Path: filepath.Join(t.TempDir(), "none.png")}.ExtractImage()
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = FileSurface{Path: writeSnapshot(t, nil)}.ExtractImage()
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = FileSurface{}.ExtractImage()
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFileSurfaceBlankCanvasIsNone(t *testing.T) {
	surface := FileSurface{Path: writeSnapshot(t, canvas(t, white)), Background: white}
	got, err := surface.ExtractImage()
	require.NoError(t, err)
	require.Nil(t, got)

	transparent := FileSurface{Path: writeSnapshot(t, canvas(t, color.RGBA{}))}
	got, err = transparent.ExtractImage()
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFileSurfaceDrawnCanvasReturnsBytesUnchanged(t *testing.T) {
	data := canvas(t, white, image.Pt(3, 4))
	path := writeSnapshot(t, data)

	got, err := FileSurface{Path: path, Background: white}.ExtractImage()
	require.NoError(t, err)
	require.Equal(t, data, got)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, data, onDisk)
}

func TestFileSurfaceCorruptSnapshotErrors(t *testing.T) {
	_, err := FileSurface{Path: writeSnapshot(t, []byte("not a png"))}.ExtractImage()
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode whiteboard snapshot")
}

func TestMemorySurfaceUploadAndClear(t *testing.T) {
	surface := NewMemorySurface(white)

	got, err := surface.ExtractImage()
	require.NoError(t, err)
	require.Nil(t, got)

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 0x20, A: 0xff})
	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, img, nil))
	path := filepath.Join(t.TempDir(), "homework.jpg")
	require.NoError(t, os.WriteFile(path, jpg.Bytes(), 0o600))

	require.NoError(t, surface.Upload(path))
	got, err = surface.ExtractImage()
	require.NoError(t, err)
	_, format, err := image.Decode(bytes.NewReader(got))
	require.NoError(t, err)
	require.Equal(t, "png", format)

	got[0] = 0
	again, err := surface.ExtractImage()
	require.NoError(t, err)
	require.NotEqual(t, byte(0), again[0], "extraction must not expose internal state")

	surface.Clear()
	got, err = surface.ExtractImage()
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMemorySurfaceRejectsGarbage(t *testing.T) {
	surface := NewMemorySurface(nil)
	require.Error(t, surface.Set([]byte("garbage")))
	require.Error(t, surface.Upload(filepath.Join(t.TempDir(), "missing.png")))
}

func TestChainPrefersFirstDrawnSurface(t *testing.T) {
	uploaded := NewMemorySurface(white)
	file := FileSurface{Path: writeSnapshot(t, canvas(t, white, image.Pt(1, 1))), Background: white}

	// nothing uploaded: falls through to the exported snapshot
	data, err := Chain{uploaded, file}.ExtractImage()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	require.NoError(t, uploaded.Set(canvas(t, white, image.Pt(5, 5), image.Pt(6, 6))))
	fromUpload, err := Chain{uploaded, file}.ExtractImage()
	require.NoError(t, err)
	require.NotEqual(t, data, fromUpload)
}

func TestChainReportsErrorOnlyWithoutImage(t *testing.T) {
	corrupt := FileSurface{Path: writeSnapshot(t, []byte("not a png"))}
	empty := NewMemorySurface(white)

	data, err := Chain{corrupt, empty}.ExtractImage()
	require.Error(t, err)
	require.Nil(t, data)

	require.NoError(t, empty.Set(canvas(t, white, image.Pt(2, 2))))
	data, err = Chain{corrupt, empty}.ExtractImage()
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
