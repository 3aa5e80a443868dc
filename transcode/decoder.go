package transcode

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-key/logging"
)

var ErrInvalidChannels = errors.New("invalid channel count")

// nativeDecoders maps lower-case extensions (without the dot) to the
// decoders that handle them without ffmpeg
var nativeDecoders = map[string]func(*Decoder, string) (*AudioData, error){
	"wav":  (*Decoder).decodeWAV,
	"wave": (*Decoder).decodeWAV,
	"mp3":  (*Decoder).decodeMP3,
}

// AudioData is a decoded file mixed down to one channel
type AudioData struct {
	Mono       []float32     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // channel count of the source
	Frames     int           `json:"frames"`
	Duration   time.Duration `json:"duration"`
	Format     string        `json:"format"`
	Path       string        `json:"path"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	FFmpegPath  string        `json:"ffmpeg_path"`
	FFprobePath string        `json:"ffprobe_path"`
	Timeout     time.Duration `json:"timeout"`      // limit for each ffmpeg/ffprobe run
	MaxDuration time.Duration `json:"max_duration"` // 0 decodes the whole file
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		FFmpegPath:  "ffmpeg",  // Assume in PATH
		FFprobePath: "ffprobe", // Assume in PATH
		Timeout:     2 * time.Minute,
	}
}

// Decoder reads audio files into mono float samples. WAV and MP3 are decoded
// natively; every other container goes through ffmpeg.
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeFile decodes an audio file and mixes it to mono
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*AudioData, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read audio file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot read audio file %s: is a directory", filename)
	}

	logger.Debug("Starting audio file decode", logging.Fields{
		"size": info.Size(),
	})

	var data *AudioData
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if slices.Contains(d.GetSupportedFormats(), ext) {
		data, err = nativeDecoders[ext](d, filename)
	} else {
		data, err = d.decodeWithFFmpeg(ctx, filename)
	}
	if err != nil {
		logger.Error(err, "Failed to decode audio file")
		return nil, err
	}

	data.Path = filename
	d.truncate(data)

	logger.Debug("Audio file decoded", logging.Fields{
		"format":      data.Format,
		"sample_rate": data.SampleRate,
		"channels":    data.Channels,
		"frames":      data.Frames,
		"duration":    data.Duration.Seconds(),
	})

	return data, nil
}

// truncate enforces MaxDuration on natively decoded audio
func (d *Decoder) truncate(data *AudioData) {
	if d.config.MaxDuration <= 0 || data.SampleRate <= 0 {
		return
	}
	limit := int(d.config.MaxDuration.Seconds() * float64(data.SampleRate))
	if limit < len(data.Mono) {
		data.Mono = data.Mono[:limit]
		data.Frames = limit
		data.Duration = frameDuration(limit, data.SampleRate)
	}
}

// newAudioData mixes interleaved samples down. A file without frames is
// valid and yields an empty buffer.
func newAudioData(interleaved []float32, sampleRate, channels int, format string) (*AudioData, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}
	mono := MixToMono(interleaved, channels)
	if mono == nil {
		mono = []float32{}
	}
	return &AudioData{
		Mono:       mono,
		SampleRate: sampleRate,
		Channels:   channels,
		Frames:     len(mono),
		Duration:   frameDuration(len(mono), sampleRate),
		Format:     format,
	}, nil
}

func frameDuration(frames, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// MixToMono averages interleaved frames into one channel. A trailing
// partial frame is dropped.
func MixToMono(interleaved []float32, channels int) []float32 {
	if channels <= 0 {
		return nil
	}
	if channels == 1 {
		return append([]float32(nil), interleaved...)
	}

	frames := len(interleaved) / channels
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for _, v := range interleaved[i*channels : (i+1)*channels] {
			sum += v
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// GetSupportedFormats returns the extensions decoded without ffmpeg, sorted
func (d *Decoder) GetSupportedFormats() []string {
	return slices.Sorted(maps.Keys(nativeDecoders))
}
