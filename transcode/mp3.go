package transcode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit little-endian stereo
const mp3Channels = 2

func (d *Decoder) decodeMP3(filename string) (*AudioData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, fmt.Errorf("could not decode mp3 %s: %w", filename, err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("could not read mp3 stream: %w", err)
	}

	return newAudioData(int16LEToFloat32(raw), decoder.SampleRate(), mp3Channels, "mp3")
}

// int16LEToFloat32 converts signed 16-bit little-endian PCM, dropping a
// trailing odd byte
func int16LEToFloat32(data []byte) []float32 {
	count := len(data) / 2
	out := make([]float32, count)
	for i := range count {
		out[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:i*2+2]))) / 32768.0
	}
	return out
}
