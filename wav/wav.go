// Package wav exports a decoded Krawall sample as a standalone RIFF/WAVE
// file, for inspecting raw instrument data outside of a tracker.
package wav

import (
	"encoding/binary"
	"io"

	"github.com/jackmacwindows/unkrawerter/internal/krawall"
)

const (
	riffHeaderSize = 44
	fmtPCM         = 1
	channelsMono   = 1
)

// Write emits s as a 44-byte-header RIFF/WAVE file followed by its raw
// PCM: 8-bit for a normal sample, 16-bit for an HQ one. Unlike xm.Write,
// no delta encoding or sign conversion is applied — the reference's WAV
// export dumps the record's PCM bytes unchanged.
func Write(w io.Writer, s krawall.Sample) error {
	bitsPerSample := uint16(8)
	if s.HQ {
		bitsPerSample = 16
	}
	blockAlign := bitsPerSample / 8
	byteRate := s.C2Freq * uint32(blockAlign)
	dataSize := uint32(len(s.Data))

	header := make([]byte, riffHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], fmtPCM)
	binary.LittleEndian.PutUint16(header[22:24], channelsMono)
	binary.LittleEndian.PutUint32(header[24:28], s.C2Freq)
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(s.Data)
	return err
}
