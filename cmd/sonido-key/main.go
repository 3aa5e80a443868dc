package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"

	"github.com/RyanBlaney/sonido-key/algorithms/chroma"
	"github.com/RyanBlaney/sonido-key/algorithms/spectral"
	"github.com/RyanBlaney/sonido-key/algorithms/tonal"
	"github.com/RyanBlaney/sonido-key/algorithms/windowing"
	"github.com/RyanBlaney/sonido-key/analyzer"
	"github.com/RyanBlaney/sonido-key/config"
	"github.com/RyanBlaney/sonido-key/logging"
	"github.com/RyanBlaney/sonido-key/store"
)

const syntax = "sonido-key syntax: sonido-key <input_file> [-dft] [-f=440] [-w=16384]"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, logging.NewDefaultLogger())
	stop()
	os.Exit(code)
}

type options struct {
	dft       bool
	mode      string
	binning   string
	taper     string
	norm      string
	profile   string
	json      bool
	histogram bool
	progress  bool
	verbose   bool
	noColor   bool
}

// parseArgs parses flags that may appear before or after the input file
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, logger logging.Logger) int {
	logging.SetGlobalLogger(logger)

	cfg := config.Default()
	if err := cfg.LoadEnv(); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	var opts options
	fs := flag.NewFlagSet("sonido-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, syntax)
		fs.PrintDefaults()
	}

	fs.BoolVar(&opts.dft, "dft", false, "use the direct DFT instead of the FFT")
	fs.Float64Var(&cfg.ReferencePitch, "f", cfg.ReferencePitch, "reference pitch of A4 in Hz")
	fs.IntVar(&cfg.WindowSize, "w", cfg.WindowSize, "analysis window size, a power of two in [128, 32768]")
	fs.StringVar(&opts.mode, "mode", cfg.Mode.String(), "transform: fft | dft | godsp | gonum")
	fs.StringVar(&opts.binning, "binning", cfg.Binning.String(), "upper neighbour binning: strict | rounded")
	fs.StringVar(&opts.taper, "taper", string(cfg.Taper), "window taper: hann | hamming | blackman | rectangular")
	fs.StringVar(&opts.norm, "norm", cfg.Normalization.String(), "averaging divisor: expected | actual")
	fs.StringVar(&opts.profile, "profile", cfg.Profiles.String(), "key profiles: krumhansl | temperley | shaath | edma | bgate")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "windows transformed in parallel")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite file caching analysis results")
	fs.DurationVar(&cfg.MaxDuration, "max-duration", cfg.MaxDuration, "analyse at most this much audio (0 = all)")
	fs.BoolVar(&opts.json, "json", false, "print the full result as JSON")
	fs.BoolVar(&opts.histogram, "hist", false, "print the pitch class histogram and best matching keys")
	fs.BoolVar(&opts.progress, "progress", false, "show a progress bar")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	if len(args) == 0 {
		fmt.Fprintln(stderr, syntax)
		return 1
	}

	positional, err := parseArgs(fs, args)
	if err != nil {
		return 2
	}
	if len(positional) != 1 {
		fmt.Fprintln(stderr, syntax)
		return 1
	}
	input := positional[0]

	if err := applyOptions(cfg, opts); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	switch {
	case opts.verbose:
		cfg.LogLevel = logging.DebugLevel
	case opts.json && cfg.LogLevel < logging.WarnLevel:
		cfg.LogLevel = logging.WarnLevel
	}
	logger.SetLevel(cfg.LogLevel)
	if opts.noColor {
		color.NoColor = true
		logging.DisableColors()
	}

	a := analyzer.New(cfg)
	if opts.progress {
		a.Progress = newBarProgress(stderr)
	}

	if cfg.DBPath != "" {
		s, err := store.Open(ctx, cfg.DBPath)
		if err != nil {
			logger.Warn("Result cache disabled", logging.Fields{"error": err.Error()})
		} else {
			defer s.Close()
			a.Store = s
		}
	}

	result, err := a.Analyze(ctx, input)
	if err != nil {
		logger.Error(err, "The file is either invalid or doesn't exist", logging.Fields{
			"path": input,
		})
		return 1
	}

	if opts.json {
		if err := printJSON(stdout, result); err != nil {
			logger.Error(err, "Failed to encode result")
			return 1
		}
		return 0
	}

	printKey(stdout, result)
	if opts.histogram {
		printHistogram(stdout, result)
	}

	return 0
}

// applyOptions resolves the named settings into cfg. -dft wins over -mode.
func applyOptions(cfg *config.Config, opts options) error {
	var err error
	if cfg.Mode, err = spectral.ParseMode(opts.mode); err != nil {
		return err
	}
	if opts.dft {
		cfg.Mode = spectral.ModeDirect
	}
	if cfg.Binning, err = chroma.ParseBinning(opts.binning); err != nil {
		return err
	}
	if cfg.Taper, err = windowing.ParseKind(opts.taper); err != nil {
		return err
	}
	if cfg.Normalization, err = spectral.ParseNormalization(opts.norm); err != nil {
		return err
	}
	if cfg.Profiles, err = tonal.ParseProfileSet(opts.profile); err != nil {
		return err
	}
	return nil
}
