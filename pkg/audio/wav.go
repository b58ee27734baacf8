package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xFFFE

	outputBitsPerSample = 16
)

type wavFormat struct {
	code          int
	channels      int
	sampleRate    int
	bitsPerSample int
}

// DecodeWAV parses a RIFF/WAVE file. Integer PCM of 8, 16, 24 or 32 bits and
// 32/64-bit IEEE float are supported, including WAVE_FORMAT_EXTENSIBLE
// wrappers around them.
func DecodeWAV(data []byte) (Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Clip{}, ErrNotWAV
	}

	var (
		f       wavFormat
		haveFmt bool
	)
	riffSize := binary.LittleEndian.Uint32(data[4:8])
	streamed := riffSize == 0 || riffSize == math.MaxUint32
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return Clip{}, fmt.Errorf("%w: truncated fmt chunk", ErrNotWAV)
			}
			chunk := data[body:]
			f = wavFormat{
				code:          int(binary.LittleEndian.Uint16(chunk[0:2])),
				channels:      int(binary.LittleEndian.Uint16(chunk[2:4])),
				sampleRate:    int(binary.LittleEndian.Uint32(chunk[4:8])),
				bitsPerSample: int(binary.LittleEndian.Uint16(chunk[14:16])),
			}
			if f.code == formatExtensible && size >= 26 && body+26 <= len(data) {
				// first two bytes of the sub-format GUID carry the real code
				f.code = int(binary.LittleEndian.Uint16(chunk[24:26]))
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return Clip{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrNotWAV)
			}
			end := body + size
			// streaming writers leave the sizes at 0 or too large
			if end > len(data) || size == 0 && streamed {
				end = len(data)
			}
			return decodeSamples(f, data[body:end])
		}

		offset = body + size
		if size%2 != 0 {
			offset++
		}
	}
	return Clip{}, fmt.Errorf("%w: missing data chunk", ErrNotWAV)
}

func decodeSamples(f wavFormat, pcm []byte) (Clip, error) {
	if f.channels <= 0 || f.sampleRate <= 0 {
		return Clip{}, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, f.channels, f.sampleRate)
	}
	read, err := sampleReader(f)
	if err != nil {
		return Clip{}, err
	}
	width := f.bitsPerSample / 8
	frameSize := width * f.channels
	frames := len(pcm) / frameSize
	if frames == 0 {
		return Clip{}, ErrEmptyAudio
	}

	clip := Clip{SampleRate: f.sampleRate, Channels: f.channels, Samples: make([][]float64, f.channels)}
	for ch := range clip.Samples {
		clip.Samples[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		base := i * frameSize
		for ch := 0; ch < f.channels; ch++ {
			off := base + ch*width
			clip.Samples[ch][i] = read(pcm[off : off+width])
		}
	}
	return clip, nil
}

func sampleReader(f wavFormat) (func([]byte) float64, error) {
	switch {
	case f.code == formatPCM && f.bitsPerSample == 8:
		return func(b []byte) float64 { return (float64(b[0]) - 128) / 128 }, nil
	case f.code == formatPCM && f.bitsPerSample == 16:
		return func(b []byte) float64 {
			return float64(int16(binary.LittleEndian.Uint16(b))) / 32768
		}, nil
	case f.code == formatPCM && f.bitsPerSample == 24:
		return func(b []byte) float64 {
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			return float64(v) / 8388608
		}, nil
	case f.code == formatPCM && f.bitsPerSample == 32:
		return func(b []byte) float64 {
			return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648
		}, nil
	case f.code == formatIEEEFloat && f.bitsPerSample == 32:
		return func(b []byte) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}, nil
	case f.code == formatIEEEFloat && f.bitsPerSample == 64:
		return func(b []byte) float64 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		}, nil
	}
	return nil, fmt.Errorf("%w: format %d with %d bits", ErrUnsupportedFormat, f.code, f.bitsPerSample)
}

// EncodeWAV writes mono samples as a 16-bit PCM RIFF/WAVE file. Samples are
// clipped to [-1, 1].
func EncodeWAV(samples []float64, sampleRate int) []byte {
	const channels = 1
	bps := outputBitsPerSample
	byteRate := sampleRate * channels * bps / 8
	blockAlign := channels * bps / 8
	dataSize := len(samples) * blockAlign

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], formatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bps))

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(int16(math.Round(s*32767))))
	}
	return buf
}
