package transcode

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrInvalidWAV = errors.New("invalid WAV file")

// decodeWAV reads a PCM WAV file and scales samples to [-1, 1) by bit depth
func (d *Decoder) decodeWAV(filename string) (*AudioData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", filename, ErrInvalidWAV)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not read PCM buffer: %w", err)
	}
	if buf.Format == nil {
		return nil, fmt.Errorf("%s: %w: missing format chunk", filename, ErrInvalidWAV)
	}

	return newAudioData(intBufferToFloat32(buf), buf.Format.SampleRate, buf.Format.NumChannels, "wav")
}

// intBufferToFloat32 normalizes integer PCM. 8-bit WAV data is unsigned.
func intBufferToFloat32(buf *audio.IntBuffer) []float32 {
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}

	scale := float32(int64(1) << (bitDepth - 1))
	var offset int
	if bitDepth == 8 {
		offset = 128
	}

	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v-offset) / scale
	}
	return out
}
