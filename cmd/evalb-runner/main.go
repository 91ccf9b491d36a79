package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
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

	scorer := evaluation.Scorer{Path: cfg.EvalbPath, ParamFile: cfg.ParamFile}
	if err := scorer.Check(); err != nil {
		if errors.Is(err, evaluation.ErrScorerMissing) {
			fmt.Fprintln(os.Stderr, "EVALB not found; build it and pass its path with -evalb:", err.Error())
		} else {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(2)
	}

	label := cfg.MalformedLabel
	if cfg.ExcludeMalformed && label == "" {
		label, err = malformedLabel(cfg.LabelsPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := scorer.ScoreDir(ctx, cfg.GoldDir, cfg.SystemDir, cfg.ReportDir, cfg.Tests, evaluation.ScoreOptions{
		Overwrite:        cfg.Overwrite,
		ExcludeMalformed: cfg.ExcludeMalformed,
		MalformedLabel:   label,
		Logger:           logger,
	})
	if err != nil {
		logger.Error("scoring failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "wrote %d reports (%d skipped, %d without system file), excluded %d sentences\n",
		res.Reports, res.Skipped, res.Missing, res.Excluded)
}

func malformedLabel(labelsPath string) (string, error) {
	var (
		labels *evaluation.LabelMap
		err    error
	)
	if labelsPath == "" {
		labels, err = evaluation.DefaultLabelMap()
	} else {
		labels, err = evaluation.LoadLabelMap(labelsPath)
	}
	if err != nil {
		return "", err
	}
	if labels.MalformedRootLabel() == "" {
		return "", errors.New("label map has no malformed_root_label; pass -malformed-label")
	}
	return labels.MalformedRootLabel(), nil
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.EvalbPath, "evalb", cfg.EvalbPath, "Path to the EVALB binary")
	fs.StringVar(&cfg.ParamFile, "param", cfg.ParamFile, "EVALB parameter file (empty = EVALB default)")
	fs.StringVar(&cfg.GoldDir, "gold", cfg.GoldDir, "Directory of gold canonical bracket files")
	fs.StringVar(&cfg.SystemDir, "system", cfg.SystemDir, "Directory of system canonical bracket files")
	fs.StringVar(&cfg.ReportDir, "reports", cfg.ReportDir, "Directory for EVALB reports")
	fs.Func("test", "Suffix triple system,gold,report (repeatable; default .br,.br,.out)", func(s string) error {
		tc, err := parseTest(s)
		if err != nil {
			return err
		}
		cfg.Tests = append(cfg.Tests, tc)
		return nil
	})
	fs.BoolVar(&cfg.ExcludeMalformed, "exclude", cfg.ExcludeMalformed, "Drop sentences whose gold tree has the malformed root label")
	fs.StringVar(&cfg.MalformedLabel, "malformed-label", cfg.MalformedLabel, "Label marking malformed gold trees (default from the label map)")
	fs.StringVar(&cfg.LabelsPath, "labels", cfg.LabelsPath, "YAML label map (default: built-in table)")
	fs.BoolVar(&cfg.Overwrite, "overwrite", cfg.Overwrite, "Rescore files whose report already exists")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Debug logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if len(cfg.Tests) == 0 {
		cfg.Tests = defaultTests()
	}
	return cfg, nil
}
