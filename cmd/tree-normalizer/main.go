package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/mideind/ParsingTestPipe/evaluation"
	"github.com/mideind/ParsingTestPipe/evaluation/logging"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ToText {
		n, err := evaluation.BracketsToTextDir(cfg.InDir, cfg.OutDir, cfg.InSuffix, cfg.OutSuffix, cfg.Overwrite, logger)
		if err != nil {
			logger.Error("to-text failed", zap.Error(err))
			os.Exit(1)
		}
		fmt.Fprintf(os.Stdout, "wrote %d text files to %s\n", n, cfg.OutDir)
		return
	}

	labels, err := loadLabels(cfg.LabelsPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	notation, _ := evaluation.ParseNotation(cfg.Notation)

	res, err := evaluation.NormalizeDir(ctx, cfg.InDir, cfg.OutDir, evaluation.NormalizeDirOptions{
		Notation:             notation,
		InSuffix:             cfg.InSuffix,
		OutSuffix:            cfg.OutSuffix,
		Include:              cfg.Include,
		Deep:                 cfg.Deep,
		ExcludeMalformedRoot: cfg.ExcludeMalformed,
		Overwrite:            cfg.Overwrite,
		Labels:               labels,
		Concurrency:          cfg.Concurrency,
		Logger:               logger,
	})
	if err != nil {
		logger.Error("normalize failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "wrote %d files (%d skipped), %d trees, %d malformed\n",
		res.FilesWritten, res.FilesSkipped, res.Trees, res.Malformed)
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	var include string
	fs.StringVar(&cfg.InDir, "in", cfg.InDir, "Directory of parser or gold output files")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Directory for canonical bracket files")
	fs.StringVar(&cfg.InSuffix, "in-suffix", cfg.InSuffix, "Suffix of input files (.psd, .gld, ...)")
	fs.StringVar(&cfg.OutSuffix, "out-suffix", cfg.OutSuffix, "Suffix of output files")
	fs.StringVar(&cfg.Notation, "notation", cfg.Notation, "Input notation: annotald|iceparser")
	fs.StringVar(&include, "include", "", "Comma-separated glob patterns over file names (default all)")
	fs.BoolVar(&cfg.Deep, "deep", cfg.Deep, "Keep every mapped phrase label (false drops partial-mode labels)")
	fs.BoolVar(&cfg.ExcludeMalformed, "exclude-malformed", cfg.ExcludeMalformed, "Keep the malformed root label so the scorer runner can drop those sentences")
	fs.StringVar(&cfg.LabelsPath, "labels", "", "YAML label map (default: built-in table)")
	fs.BoolVar(&cfg.ToText, "to-text", cfg.ToText, "Convert canonical bracket files back to plain sentences")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Files normalized in parallel (0 = default)")
	fs.BoolVar(&cfg.Overwrite, "overwrite", cfg.Overwrite, "Overwrite existing outputs")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Debug logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Include = splitList(include)
	cfg.InDir = filepath.Clean(cfg.InDir)
	cfg.OutDir = filepath.Clean(cfg.OutDir)
	if cfg.LabelsPath != "" {
		cfg.LabelsPath = filepath.Clean(cfg.LabelsPath)
	}
	return cfg, nil
}

func loadLabels(path string) (*evaluation.LabelMap, error) {
	if path == "" {
		return evaluation.DefaultLabelMap()
	}
	return evaluation.LoadLabelMap(path)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
