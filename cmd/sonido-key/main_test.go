package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-key/logging"
)

const testSampleRate = 44100

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func writeTriad(t *testing.T, freqs ...float64) string {
	t.Helper()

	data := make([]int, 8192)
	for i := range data {
		var v float64
		for _, f := range freqs {
			v += math.Sin(2 * math.Pi * f * float64(i) / testSampleRate)
		}
		data[i] = int(math.Round(v * 10000))
	}

	path := filepath.Join(t.TempDir(), "triad.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, testSampleRate, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: testSampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

type cliRun struct {
	stdout, stderr bytes.Buffer
	logs           bytes.Buffer
	exitCodes      []int
}

func (c *cliRun) run(args ...string) int {
	previous := logging.GetGlobalLogger()
	defer logging.SetGlobalLogger(previous)

	logger := logging.NewWriterLogger(&c.logs, &c.logs, func(code int) {
		c.exitCodes = append(c.exitCodes, code)
	})
	return run(context.Background(), args, &c.stdout, &c.stderr, logger)
}

func TestRunWithoutInputPrintsSyntax(t *testing.T) {
	var c cliRun
	assert.Equal(t, 1, c.run())
	assert.Contains(t, c.stderr.String(), "sonido-key syntax")
}

func TestRunFlagsOnly(t *testing.T) {
	var c cliRun
	assert.Equal(t, 1, c.run("-dft", "-f=440"))
	assert.Contains(t, c.stderr.String(), "sonido-key syntax")
}

func TestRunEstimatesKey(t *testing.T) {
	path := writeTriad(t, 220.00, 261.63, 329.63)

	tests := []struct {
		name string
		args []string
	}{
		{"input first", []string{path, "-w=4096"}},
		{"flags first", []string{"-w=4096", path}},
		{"direct transform", []string{path, "-dft", "-w=4096", "-f=440"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c cliRun
			require.Equal(t, 0, c.run(tt.args...), c.logs.String())
			assert.Equal(t, "Estimated key: A minor\n", c.stdout.String())
		})
	}
}

func TestRunHistogram(t *testing.T) {
	path := writeTriad(t, 261.63, 329.63, 392.00)

	var c cliRun
	require.Equal(t, 0, c.run(path, "-w=4096", "-hist"))

	out := c.stdout.String()
	assert.Contains(t, out, "Estimated key: C major")
	assert.Contains(t, out, "Pitch class histogram:")
	assert.Contains(t, out, "1. C major")
	assert.Contains(t, out, "Related keys: relative A minor, parallel C minor, dominant G major, subdominant F major")
}

// writeEmptyWAV writes a valid 16-bit mono PCM file with no frames
func writeEmptyWAV(t *testing.T) string {
	t.Helper()

	var buf []byte
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, 36)
	buf = append(buf, "WAVEfmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, testSampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, testSampleRate*2)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, 0)

	path := filepath.Join(t.TempDir(), "empty.wav")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestRunFileWithoutFrames(t *testing.T) {
	var c cliRun
	require.Equal(t, 0, c.run(writeEmptyWAV(t)), c.logs.String())
	assert.Equal(t, "Estimated key: C major\n", c.stdout.String())
}

func TestRunJSON(t *testing.T) {
	path := writeTriad(t, 220.00, 261.63, 329.63)

	var c cliRun
	require.Equal(t, 0, c.run(path, "-w=4096", "-json"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(c.stdout.Bytes(), &decoded))
	assert.Equal(t, "A minor", decoded["key_name"])
	assert.Empty(t, c.logs.String(), "info logs are silenced in JSON mode")
}

func TestRunCachesWithDatabase(t *testing.T) {
	path := writeTriad(t, 261.63, 329.63, 392.00)
	db := filepath.Join(t.TempDir(), "keys.db")

	var first cliRun
	require.Equal(t, 0, first.run(path, "-w=4096", "-db", db))
	assert.NotContains(t, first.stdout.String(), "cached")

	var second cliRun
	require.Equal(t, 0, second.run(path, "-w=4096", "-db", db))
	assert.Contains(t, second.stdout.String(), "Estimated key: C major")
	assert.Contains(t, second.stdout.String(), "(cached analysis")
}

func TestRunMissingFile(t *testing.T) {
	var c cliRun
	code := c.run(filepath.Join(t.TempDir(), "missing.wav"))

	assert.Equal(t, 1, code)
	assert.Empty(t, c.exitCodes, "failures return an exit code instead of exiting")
	assert.Contains(t, c.logs.String(), "The file is either invalid or doesn't exist")
	assert.Empty(t, c.stdout.String())
}

func TestRunRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown mode", []string{"in.wav", "-mode=wavelet"}},
		{"unknown binning", []string{"in.wav", "-binning=nearest"}},
		{"unknown profile", []string{"in.wav", "-profile=nope"}},
		{"unknown flag", []string{"in.wav", "-nope"}},
		{"bad pitch", []string{"in.wav", "-f=abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c cliRun
			assert.Equal(t, 2, c.run(tt.args...))
		})
	}
}
