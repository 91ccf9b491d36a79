package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/mideind/ParsingTestPipe/evaluation"
	"github.com/mideind/ParsingTestPipe/evaluation/logging"
	"github.com/mideind/ParsingTestPipe/evaluation/provider"
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

	if cfg.PrintSchema {
		b, err := evaluation.ReportSchema()
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Fprintln(os.Stdout, string(b))
		return
	}

	logger, err := logging.New(cfg.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	var analyst evaluation.ErrorAnalyst
	if cfg.Analyze {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		a, err := provider.NewOpenAIAnalyst(apiKey, cfg.Model)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
		analyst = a
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := evaluation.CombineReports(ctx, cfg.ReportDir, evaluation.CombineOptions{
		Suffixes:     cfg.Suffixes,
		Genres:       cfg.Genres,
		NoCategories: cfg.NoCategory,
		ScorerPath:   cfg.ScorerPath,
		OutputName:   cfg.OutputName,
		Concurrency:  cfg.Concurrency,
		Strict:       cfg.Strict,
		Logger:       logger,
	})
	if err != nil {
		if errors.Is(err, evaluation.ErrScorerMissing) {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
		logger.Error("combine failed", zap.Error(err))
		os.Exit(1)
	}
	for _, w := range report.Warnings {
		logger.Warn("report", zap.String("warning", w))
	}

	textPath, jsonPath, err := evaluation.WriteConsolidatedReport(cfg.ReportDir, cfg.OutputName, report)
	if err != nil {
		logger.Error("write failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, "wrote:", textPath)
	fmt.Fprintln(os.Stdout, "wrote:", jsonPath)

	if analyst == nil {
		return
	}
	logger.Info("analyze", zap.String("model", cfg.Model))
	analysis, err := analyst.Analyze(ctx, report)
	if err != nil {
		logger.Error("analysis failed", zap.Error(err))
		os.Exit(1)
	}
	path, err := evaluation.WriteErrorAnalysis(cfg.ReportDir, cfg.OutputName, analysis)
	if err != nil {
		logger.Error("write failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, "wrote:", path)
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	suffixes := strings.Join(cfg.Suffixes, ",")
	genres := strings.Join(cfg.Genres, ",")
	fs.StringVar(&cfg.ReportDir, "dir", cfg.ReportDir, "Directory of EVALB reports; the consolidated report is written here too")
	fs.StringVar(&suffixes, "suffixes", suffixes, "Comma-separated report suffixes, one test each")
	fs.StringVar(&genres, "genres", genres, "Comma-separated genre prefixes of report file names (empty = none)")
	fs.BoolVar(&cfg.NoCategory, "nocat", cfg.NoCategory, "Only give overall results, no per-genre sections")
	fs.StringVar(&cfg.ScorerPath, "scorer", cfg.ScorerPath, "EVALB binary that must exist before combining (empty = no check)")
	fs.StringVar(&cfg.OutputName, "out", cfg.OutputName, "File name of the consolidated report")
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "Fail on unexpected report lines instead of warning")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Reports scanned in parallel (0 = default)")
	fs.BoolVar(&cfg.PrintSchema, "schema", cfg.PrintSchema, "Print the JSON schema of the consolidated report and exit")
	fs.BoolVar(&cfg.Analyze, "analyze", cfg.Analyze, "Ask an OpenAI model for an error analysis (uses OPENAI_API_KEY)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model for -analyze")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Debug logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Suffixes = splitList(suffixes)
	cfg.Genres = splitList(genres)
	return cfg, nil
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
