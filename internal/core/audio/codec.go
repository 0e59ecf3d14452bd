// Package audio converts between the capture/playback float sample domain
// and the wire representation the live interview service expects: 16-bit
// little-endian PCM, base64-encoded inside a JSON envelope. Capture runs at
// 16 kHz mono, agent speech comes back at 24 kHz mono; the two rates are
// independent streams and never need to match.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

const (
	// InputSampleRate is the rate the service requires for microphone audio.
	InputSampleRate = 16000
	// OutputSampleRate is the rate of synthesized agent speech.
	OutputSampleRate = 24000

	// InputMIMEType goes on every outbound realtime media chunk.
	InputMIMEType = "audio/pcm;rate=16000"
)

// EncodeFrame converts normalized float samples in [-1,1] to base64 PCM16 LE.
// Values outside the range are clamped rather than wrapped.
func EncodeFrame(samples []float32) string {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int32(s * 32768)
		if v > 32767 {
			v = 32767
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v)))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeFrame is the inverse transform: base64 PCM16 LE to normalized float
// samples for playback.
func DecodeFrame(data string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode audio frame: %w", err)
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("decode audio frame: odd payload length %d", len(raw))
	}
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768.0
	}
	return samples, nil
}

// Duration returns the playback duration in seconds of a decoded buffer at
// the given sample rate.
func Duration(samples []float32, rate int) float64 {
	return float64(len(samples)) / float64(rate)
}
