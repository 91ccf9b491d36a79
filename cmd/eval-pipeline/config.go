package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	parserGreynir = "greynir"
	parserIceNLP  = "icenlp"
)

var allStages = []string{"parse", "normalize", "score", "combine"}

type Config struct {
	Parser string

	// Measure evaluates on the test set instead of the development set.
	Measure          bool
	ExcludeMalformed bool
	NoCategory       bool
	Deep             bool
	Overwrite        bool

	CorpusDir string
	IceNLPDir string
	// TextDir holds plain text for IceNLP; empty uses the parsed test data shipped with IceNLP.
	TextDir string
	DataDir string

	EvalbPath  string
	ParamFile  string
	LabelsPath string

	FromStage string
	OnlyStage string

	Verbose bool
}

func (c Config) Validate() error {
	switch c.Parser {
	case parserGreynir:
		if c.CorpusDir == "" {
			return errors.New("missing -corpus")
		}
	case parserIceNLP:
		if c.IceNLPDir == "" {
			return errors.New("missing -icenlp-dir")
		}
	default:
		return fmt.Errorf("unknown -parser %q (want %s|%s)", c.Parser, parserGreynir, parserIceNLP)
	}
	if c.DataDir == "" {
		return errors.New("missing -data")
	}
	if c.EvalbPath == "" {
		return errors.New("missing -evalb")
	}
	if c.OnlyStage != "" && c.FromStage != "" {
		return errors.New("use only one of -only-stage or -from-stage")
	}
	for _, s := range []string{c.OnlyStage, c.FromStage} {
		if s != "" && !knownStage(s) {
			return fmt.Errorf("unknown stage %q (want %s)", s, strings.Join(allStages, "|"))
		}
	}
	return nil
}

func knownStage(s string) bool {
	for _, st := range allStages {
		if st == s {
			return true
		}
	}
	return false
}

func defaultConfig() Config {
	return Config{
		Parser:    parserGreynir,
		Deep:      true,
		CorpusDir: "GreynirCorpus",
		IceNLPDir: "icenlp",
		DataDir:   "data",
		EvalbPath: filepath.FromSlash("EVALB/evalb"),
		ParamFile: "stillingar.prm",
	}
}
