package main

import (
	"errors"
	"path/filepath"

	"github.com/mideind/ParsingTestPipe/evaluation"
)

type Config struct {
	ReportDir  string
	Suffixes   []string
	Genres     []string
	NoCategory bool

	ScorerPath string
	OutputName string

	Strict      bool
	Concurrency int

	// PrintSchema writes the JSON schema of the consolidated report to stdout and exits.
	PrintSchema bool

	Analyze bool
	Model   string
	APIKey  string

	Verbose bool
}

func (c Config) Validate() error {
	if c.PrintSchema {
		return nil
	}
	if c.ReportDir == "" {
		return errors.New("missing -dir")
	}
	if len(c.Suffixes) == 0 {
		return errors.New("missing -suffixes")
	}
	if c.OutputName == "" || filepath.Base(c.OutputName) != c.OutputName {
		return errors.New("-out must be a plain file name")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must be >= 0")
	}
	if c.Analyze && c.Model == "" {
		return errors.New("-analyze needs -model")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		ReportDir:   filepath.FromSlash("data/devset/reports"),
		Suffixes:    []string{".out"},
		Genres:      []string{"reynir_corpus", "althingi", "visindavefur", "textasafn"},
		ScorerPath:  filepath.FromSlash("EVALB/evalb"),
		OutputName:  evaluation.DefaultReportName,
		Concurrency: 4,
		Model:       "gpt-5-mini",
	}
}
