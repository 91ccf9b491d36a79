package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mideind/ParsingTestPipe/evaluation"
	"github.com/mideind/ParsingTestPipe/evaluation/fileutils"
)

// layout is where one evaluation run reads and writes.
type layout struct {
	notation string

	texts      string
	textSuffix string

	gold       string
	goldSuffix string
	gen        string
	genSuffix  string

	goldBrackets string
	genBrackets  string
	reports      string
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

	warning, err := exclusionWarning(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if warning != "" {
		fmt.Fprintln(os.Stderr, "warning: "+warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stages := allStages
	if cfg.OnlyStage != "" {
		stages = []string{cfg.OnlyStage}
	} else if cfg.FromStage != "" {
		stages = stagesFrom(stages, cfg.FromStage)
	}

	start := time.Now()
	l := newLayout(cfg)
	for _, stage := range stages {
		args, skip := stageArgs(cfg, l, stage)
		if skip != "" {
			fmt.Fprintf(os.Stdout, "skip %s: %s\n", stage, skip)
			continue
		}
		for _, a := range args {
			if err := runGo(ctx, a...); err != nil {
				os.Exit(1)
			}
		}
	}
	d := time.Since(start)
	fmt.Fprintf(os.Stdout, "\nRunning the pipeline took %.2f seconds, or %.2f minutes.\n", d.Seconds(), d.Minutes())
}

func newLayout(cfg Config) layout {
	if cfg.Parser == parserIceNLP {
		testData := filepath.Join(cfg.IceNLPDir, "core", "bat", "iceparser", "testData")
		data := filepath.Join(cfg.DataDir, "shallow")
		l := layout{
			notation:     "iceparser",
			texts:        cfg.TextDir,
			textSuffix:   ".txt",
			gold:         filepath.Join(testData, "test.gold.sent.gold"),
			goldSuffix:   ".gld",
			gen:          filepath.Join(testData, "test.gold.sent.parsed"),
			genSuffix:    ".psd",
			goldBrackets: filepath.Join(data, "goldbrackets"),
			genBrackets:  filepath.Join(data, "genbrackets"),
			reports:      filepath.Join(data, "reports"),
		}
		if cfg.TextDir != "" {
			l.gen = filepath.Join(data, "genpsd")
		}
		return l
	}

	set := "devset"
	if cfg.Measure {
		set = "testset"
	}
	data := filepath.Join(cfg.DataDir, set)
	return layout{
		notation:     "annotald",
		texts:        filepath.Join(cfg.CorpusDir, set, "txt"),
		textSuffix:   ".txt",
		gold:         filepath.Join(cfg.CorpusDir, set, "psd"),
		goldSuffix:   ".gld",
		gen:          filepath.Join(data, "genpsd"),
		genSuffix:    ".psd",
		goldBrackets: filepath.Join(data, "goldbrackets"),
		genBrackets:  filepath.Join(data, "genbrackets"),
		reports:      filepath.Join(data, "reports"),
	}
}

// stageArgs returns the go invocations for stage, or a reason to skip it.
func stageArgs(cfg Config, l layout, stage string) ([][]string, string) {
	switch stage {
	case "parse":
		if l.texts == "" {
			return nil, "using the parsed test data shipped with IceNLP"
		}
		if !cfg.Overwrite && fileutils.DirHasAny(l.gen, l.genSuffix) {
			return nil, "parser output already exists"
		}
		args := []string{
			"run", "./cmd/parse-runner",
			"-in", l.texts,
			"-out", l.gen,
			"-in-suffix", l.textSuffix,
			"-out-suffix", l.genSuffix,
		}
		if cfg.Parser == parserIceNLP {
			args = append(args, "-parser", "icenlp", "-icenlp-dir", cfg.IceNLPDir)
		} else {
			args = append(args, "-parser", "annoparse")
		}
		return [][]string{withCommon(cfg, args, true)}, ""
	case "normalize":
		var out [][]string
		for _, pair := range [][2]string{{l.gen, l.genSuffix}, {l.gold, l.goldSuffix}} {
			dst := l.genBrackets
			if pair[0] == l.gold {
				dst = l.goldBrackets
			}
			args := []string{
				"run", "./cmd/tree-normalizer",
				"-in", pair[0],
				"-out", dst,
				"-in-suffix", pair[1],
				"-out-suffix", ".br",
				"-notation", l.notation,
				fmt.Sprintf("-deep=%t", cfg.Deep),
			}
			if cfg.ExcludeMalformed {
				args = append(args, "-exclude-malformed")
			}
			if cfg.LabelsPath != "" {
				args = append(args, "-labels", cfg.LabelsPath)
			}
			out = append(out, withCommon(cfg, args, true))
		}
		return out, ""
	case "score":
		args := []string{
			"run", "./cmd/evalb-runner",
			"-evalb", cfg.EvalbPath,
			"-param", cfg.ParamFile,
			"-gold", l.goldBrackets,
			"-system", l.genBrackets,
			"-reports", l.reports,
			"-test", ".br,.br,.out",
		}
		if cfg.ExcludeMalformed {
			args = append(args, "-exclude")
		}
		if cfg.LabelsPath != "" {
			args = append(args, "-labels", cfg.LabelsPath)
		}
		return [][]string{withCommon(cfg, args, true)}, ""
	case "combine":
		args := []string{
			"run", "./cmd/report-combiner",
			"-dir", l.reports,
			"-suffixes", ".out",
			"-scorer", cfg.EvalbPath,
		}
		if cfg.Parser == parserIceNLP {
			args = append(args, "-genres", "")
		}
		if cfg.NoCategory {
			args = append(args, "-nocat")
		}
		return [][]string{withCommon(cfg, args, false)}, ""
	}
	return nil, "unknown stage"
}

// exclusionWarning reports when -exclude cannot remove anything: partial comparison drops the
// malformed-root label from the normalized trees, so no gold line carries it.
func exclusionWarning(cfg Config) (string, error) {
	if !cfg.ExcludeMalformed || cfg.Deep {
		return "", nil
	}
	var (
		labels *evaluation.LabelMap
		err    error
	)
	if cfg.LabelsPath != "" {
		labels, err = evaluation.LoadLabelMap(cfg.LabelsPath)
	} else {
		labels, err = evaluation.DefaultLabelMap()
	}
	if err != nil {
		return "", err
	}
	root := labels.MalformedRootLabel()
	if root == "" || !labels.IsExcludedInPartial(root) {
		return "", nil
	}
	return fmt.Sprintf("-exclude has no effect with -deep=false: %s is not kept in partial trees", root), nil
}

func withCommon(cfg Config, args []string, overwrite bool) []string {
	if overwrite && cfg.Overwrite {
		args = append(args, "-overwrite")
	}
	if cfg.Verbose {
		args = append(args, "-v")
	}
	return args
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.Parser, "parser", cfg.Parser, "Parser to evaluate: greynir|icenlp")
	fs.BoolVar(&cfg.Measure, "measure", cfg.Measure, "Evaluate on the GreynirCorpus test set (default: development set)")
	fs.BoolVar(&cfg.ExcludeMalformed, "exclude", cfg.ExcludeMalformed, "Exclude malformed sentences")
	fs.BoolVar(&cfg.NoCategory, "nocat", cfg.NoCategory, "Skip per-genre results")
	fs.BoolVar(&cfg.Deep, "deep", cfg.Deep, "Compare full phrase structure (false compares partial structure)")
	fs.BoolVar(&cfg.Overwrite, "overwrite", cfg.Overwrite, "Overwrite existing files")
	fs.StringVar(&cfg.CorpusDir, "corpus", cfg.CorpusDir, "GreynirCorpus checkout")
	fs.StringVar(&cfg.IceNLPDir, "icenlp-dir", cfg.IceNLPDir, "IceNLP checkout")
	fs.StringVar(&cfg.TextDir, "texts", cfg.TextDir, "Plain text to parse with IceNLP (empty = shipped test data)")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Directory for generated files")
	fs.StringVar(&cfg.EvalbPath, "evalb", cfg.EvalbPath, "Path to the EVALB binary")
	fs.StringVar(&cfg.ParamFile, "param", cfg.ParamFile, "EVALB parameter file")
	fs.StringVar(&cfg.LabelsPath, "labels", cfg.LabelsPath, "YAML label map (default: built-in table)")
	fs.StringVar(&cfg.FromStage, "from-stage", "", "Start at stage: "+strings.Join(allStages, "|"))
	fs.StringVar(&cfg.OnlyStage, "only-stage", "", "Run only one stage: "+strings.Join(allStages, "|"))
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Debug logging in every stage")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Parser = strings.ToLower(strings.TrimSpace(cfg.Parser))
	cfg.FromStage = strings.ToLower(strings.TrimSpace(cfg.FromStage))
	cfg.OnlyStage = strings.ToLower(strings.TrimSpace(cfg.OnlyStage))
	return cfg, nil
}

func runGo(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "command failed:", "go "+strings.Join(args, " "))
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		return err
	}
	fmt.Fprintln(os.Stdout, "ok:", "go "+strings.Join(args, " "), "(", time.Since(start).Round(time.Millisecond).String()+")")
	return nil
}

func stagesFrom(stages []string, from string) []string {
	for i, s := range stages {
		if s == from {
			return stages[i:]
		}
	}
	return stages
}
