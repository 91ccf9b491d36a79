package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mideind/ParsingTestPipe/evaluation"
)

type Config struct {
	EvalbPath string
	ParamFile string

	GoldDir   string
	SystemDir string
	ReportDir string

	Tests []evaluation.ScoreTest

	ExcludeMalformed bool
	// MalformedLabel defaults to the label map's malformed root label.
	MalformedLabel string
	LabelsPath     string

	Overwrite bool
	Verbose   bool
}

func (c Config) Validate() error {
	if c.EvalbPath == "" {
		return errors.New("missing -evalb")
	}
	if c.GoldDir == "" || c.SystemDir == "" || c.ReportDir == "" {
		return errors.New("missing -gold, -system or -reports")
	}
	if len(c.Tests) == 0 {
		return errors.New("at least one -test is required")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		EvalbPath: filepath.FromSlash("EVALB/evalb"),
		ParamFile: "stillingar.prm",
		GoldDir:   filepath.FromSlash("data/devset/goldbrackets"),
		SystemDir: filepath.FromSlash("data/devset/genbrackets"),
		ReportDir: filepath.FromSlash("data/devset/reports"),
	}
}

func defaultTests() []evaluation.ScoreTest {
	return []evaluation.ScoreTest{{SystemSuffix: ".br", GoldSuffix: ".br", ReportSuffix: ".out"}}
}

// parseTest reads "system,gold,report" suffixes, e.g. ".grdbr,.dbr,.grdout".
func parseTest(s string) (evaluation.ScoreTest, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return evaluation.ScoreTest{}, fmt.Errorf("test %q: want system,gold,report suffixes", s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return evaluation.ScoreTest{}, fmt.Errorf("test %q: empty suffix", s)
		}
	}
	return evaluation.ScoreTest{SystemSuffix: parts[0], GoldSuffix: parts[1], ReportSuffix: parts[2]}, nil
}
