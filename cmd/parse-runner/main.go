package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/mideind/ParsingTestPipe/evaluation"
	"github.com/mideind/ParsingTestPipe/evaluation/logging"
)

// step is one external tool run over a directory.
type step struct {
	cmd       evaluation.ParserCommand
	inDir     string
	outDir    string
	inSuffix  string
	outSuffix string
}

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

	for _, s := range plan(cfg) {
		res, err := evaluation.RunParser(ctx, s.inDir, s.outDir, s.inSuffix, s.outSuffix, s.cmd, evaluation.RunOptions{
			Overwrite: cfg.Overwrite,
			Logger:    logger,
		})
		if err != nil {
			logger.Error("parser failed", zap.String("parser", s.cmd.Name), zap.Error(err))
			os.Exit(1)
		}
		fmt.Fprintf(os.Stdout, "%s: wrote %d files (%d skipped) to %s\n", s.cmd.Name, res.Written, res.Skipped, s.outDir)
	}
}

// plan lists the tool runs for cfg. IceNLP tags first and parses the tagged text.
func plan(cfg Config) []step {
	if cfg.Parser == parserAnnoparse {
		return []step{{
			cmd:       evaluation.AnnoparseCommand(),
			inDir:     cfg.InDir,
			outDir:    cfg.OutDir,
			inSuffix:  cfg.InSuffix,
			outSuffix: cfg.OutSuffix,
		}}
	}
	tagged := cfg.TaggedDir
	if tagged == "" {
		tagged = filepath.Join(cfg.OutDir, "tagged")
	}
	bat := filepath.Join(cfg.IceNLPDir, "core", "bat")
	return []step{
		{
			cmd:       evaluation.IceTaggerCommand(filepath.Join(bat, "icetagger")),
			inDir:     cfg.InDir,
			outDir:    tagged,
			inSuffix:  cfg.InSuffix,
			outSuffix: cfg.TaggedSuffix,
		},
		{
			cmd:       evaluation.IceParserCommand(filepath.Join(bat, "iceparser")),
			inDir:     tagged,
			outDir:    cfg.OutDir,
			inSuffix:  cfg.TaggedSuffix,
			outSuffix: cfg.OutSuffix,
		},
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.Parser, "parser", cfg.Parser, "Parser to run: annoparse|icenlp")
	fs.StringVar(&cfg.IceNLPDir, "icenlp-dir", cfg.IceNLPDir, "IceNLP checkout (the directory holding core/bat)")
	fs.StringVar(&cfg.InDir, "in", cfg.InDir, "Directory of plain text files, one sentence per line")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Directory for parser output")
	fs.StringVar(&cfg.TaggedDir, "tagged-dir", cfg.TaggedDir, "Directory for IceTagger output (default <out>/tagged)")
	fs.StringVar(&cfg.InSuffix, "in-suffix", cfg.InSuffix, "Suffix of input files")
	fs.StringVar(&cfg.TaggedSuffix, "tagged-suffix", cfg.TaggedSuffix, "Suffix of IceTagger output files")
	fs.StringVar(&cfg.OutSuffix, "out-suffix", cfg.OutSuffix, "Suffix of parser output files")
	fs.BoolVar(&cfg.Overwrite, "overwrite", cfg.Overwrite, "Reparse files whose output already exists")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Debug logging (includes parser stdout)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.IceNLPDir != "" {
		abs, err := filepath.Abs(cfg.IceNLPDir)
		if err != nil {
			return Config{}, fmt.Errorf("-icenlp-dir: %w", err)
		}
		cfg.IceNLPDir = abs
	}
	return cfg, nil
}
