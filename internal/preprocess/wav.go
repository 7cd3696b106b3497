package preprocess

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// bitsPerSample is fixed at 16; uploads are 16-bit signed little-endian PCM
// WAV, the format whisper.cpp expects.
const bitsPerSample = 16

// ErrNotWAV is returned by decodeWAV when the payload is not a RIFF/WAVE
// container.
var ErrNotWAV = errors.New("preprocess: not a RIFF/WAVE file")

// decodeWAV parses a PCM16 RIFF/WAVE payload and returns the samples scaled
// to [-1, 1], interleaved by channel, together with the sample rate and
// channel count. Compressed or non-16-bit formats are rejected.
func decodeWAV(data []byte) (samples []float64, sampleRate, channels int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, ErrNotWAV
	}

	var (
		fmtSeen  bool
		audioFmt uint16
		bits     uint16
		pcm      []byte
	)

	// Walk the chunk list. Chunks are 8 bytes of header (id + size) followed
	// by size bytes of payload, padded to an even boundary.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			return nil, 0, 0, fmt.Errorf("preprocess: truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, errors.New("preprocess: fmt chunk too short")
			}
			audioFmt = binary.LittleEndian.Uint16(data[body : body+2])
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = binary.LittleEndian.Uint16(data[body+14 : body+16])
			fmtSeen = true
		case "data":
			pcm = data[body : body+size]
		}

		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !fmtSeen || pcm == nil {
		return nil, 0, 0, errors.New("preprocess: missing fmt or data chunk")
	}
	if audioFmt != 1 {
		return nil, 0, 0, fmt.Errorf("preprocess: unsupported audio format %d (want PCM)", audioFmt)
	}
	if bits != bitsPerSample {
		return nil, 0, 0, fmt.Errorf("preprocess: unsupported bit depth %d (want %d)", bits, bitsPerSample)
	}
	if channels <= 0 || sampleRate <= 0 {
		return nil, 0, 0, errors.New("preprocess: invalid fmt chunk values")
	}

	n := len(pcm) / 2
	samples = make([]float64, n)
	for i := range n {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		samples[i] = float64(s) / 32768.0
	}
	return samples, sampleRate, channels, nil
}

// encodeWAV wraps mono float64 samples in a standard PCM16 RIFF/WAV
// container. Samples are clamped to [-1, 1] before quantisation.
func encodeWAV(samples []float64, sampleRate int) []byte {
	const channels = 1
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(samples) * 2

	buf := make([]byte, 44+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize)) // file size − 8
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)                    // sub-chunk size (PCM)
	binary.LittleEndian.PutUint16(buf[20:22], 1)                     // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))      // num channels
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))    // sample rate
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))      // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))    // block align
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample)) // bits per sample

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		buf[44+i*2] = byte(v)
		buf[44+i*2+1] = byte(v >> 8)
	}
	return buf
}
