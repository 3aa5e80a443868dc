package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/RyanBlaney/sonido-key/algorithms/chroma"
	"github.com/RyanBlaney/sonido-key/analyzer"
)

const (
	histogramWidth = 40
	topCandidates  = 5
)

var (
	keyColor  = color.New(color.FgGreen, color.Bold)
	dimColor  = color.New(color.Faint)
	peakColor = color.New(color.FgCyan)
)

func printKey(w io.Writer, result *analyzer.Result) {
	fmt.Fprint(w, "Estimated key: ")
	keyColor.Fprintln(w, result.KeyName)
	if result.Cached {
		dimColor.Fprintf(w, "(cached analysis %s)\n", result.ID)
	}
}

func printHistogram(w io.Writer, result *analyzer.Result) {
	names := chroma.PitchClassNames()
	normalized := result.Histogram.Normalized()
	dominant := result.Histogram.Dominant()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Pitch class histogram:")
	for i, v := range normalized {
		bar := strings.Repeat("#", int(v*histogramWidth+0.5))
		line := fmt.Sprintf("  %-2s %6.2f%% %s", names[i], v*100, bar)
		if i == dominant {
			peakColor.Fprintln(w, line)
		} else {
			fmt.Fprintln(w, line)
		}
	}

	if len(result.Candidates) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Best matching keys:")
	for i, c := range result.Top(topCandidates) {
		marker := ""
		if c.Key != result.Key && result.Key.IsCompatible(c.Key) {
			marker = " (related)"
		}
		fmt.Fprintf(w, "  %d. %-9s %+.4f%s\n", i+1, c.Key, c.Score, marker)
	}

	related := result.Related
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Related keys: relative %s, parallel %s, dominant %s, subdominant %s\n",
		related.Relative, related.Parallel, related.Dominant, related.Subdominant)
}

func printJSON(w io.Writer, result *analyzer.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
