package synthesis

import (
	"encoding/binary"
	"io"
)

// WriteWAV writes mono s16le PCM with a canonical 44-byte header.
func WriteWAV(w io.Writer, audio Audio) error {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(audio.PCM)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], channels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(audio.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(audio.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(audio.PCM)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(audio.PCM)
	return err
}
