package transcode

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/RyanBlaney/sonido-key/logging"
)

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// ProbeFile uses ffprobe to read the properties of the first audio stream
func (d *Decoder) ProbeFile(ctx context.Context, filename string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-select_streams", "a:0", // First audio stream only
		filename,
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	output, err := exec.CommandContext(ctx, d.config.FFprobePath, args...).Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput extracts audio metadata from ffprobe JSON
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	if !gjson.ValidBytes(jsonData) {
		return nil, fmt.Errorf("failed to parse ffprobe output: invalid JSON")
	}

	stream := gjson.GetBytes(jsonData, "streams.0")
	if !stream.Exists() {
		return nil, fmt.Errorf("no audio streams found")
	}

	if codecType := stream.Get("codec_type").String(); codecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", codecType)
	}

	channels := int(stream.Get("channels").Int())
	if channels <= 0 || channels > 8 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}

	// ffprobe prints numeric fields as strings; gjson converts both forms
	sampleRate := int(stream.Get("sample_rate").Int())
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %q", stream.Get("sample_rate").String())
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   channels,
		Codec:      stream.Get("codec_name").String(),
		Duration:   stream.Get("duration").Float(),
		Bitrate:    int(stream.Get("bit_rate").Int()),
		Format:     stream.Get("codec_long_name").String(),
	}, nil
}

// decodeWithFFmpeg probes the file and has ffmpeg emit interleaved f32le at
// the native rate and channel count
func (d *Decoder) decodeWithFFmpeg(ctx context.Context, filename string) (*AudioData, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "decodeWithFFmpeg",
		"filename":  filename,
	})

	metadata, err := d.ProbeFile(ctx, filename)
	if err != nil {
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
		"input_bitrate":     metadata.Bitrate,
	})

	args := append([]string{"-i", filename}, d.buildFFmpegArgs(metadata)...)
	args = append(args, "pipe:1")

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	output, err := exec.CommandContext(ctx, d.config.FFmpegPath, args...).Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			logger.Error(err, "Ffmpeg decode failed", logging.Fields{
				"stderr": string(exitError.Stderr),
			})
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	format := metadata.Codec
	if format == "" {
		format = "ffmpeg"
	}
	return newAudioData(bytesToFloat32(output), metadata.SampleRate, metadata.Channels, format)
}

// buildFFmpegArgs builds the ffmpeg output arguments
func (d *Decoder) buildFFmpegArgs(metadata *AudioMetadata) []string {
	args := []string{
		"-f", "f32le", // Output raw float32 little-endian
		"-ac", strconv.Itoa(metadata.Channels),
		"-ar", strconv.Itoa(metadata.SampleRate),
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", d.config.MaxDuration.Seconds()))
	}

	// Suppress ffmpeg output
	return append(args, "-v", "error")
}

func (d *Decoder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.config.Timeout > 0 {
		return context.WithTimeout(ctx, d.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// bytesToFloat32 converts raw float32 little-endian bytes, trimming to a
// multiple of 4
func bytesToFloat32(data []byte) []float32 {
	count := len(data) / 4
	samples := make([]float32, count)
	for i := range count {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}
	return samples
}
