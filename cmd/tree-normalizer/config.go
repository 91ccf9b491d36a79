package main

import (
	"errors"
	"path/filepath"

	"github.com/mideind/ParsingTestPipe/evaluation"
)

type Config struct {
	InDir     string
	OutDir    string
	InSuffix  string
	OutSuffix string

	Notation string
	Include  []string

	Deep             bool
	ExcludeMalformed bool
	LabelsPath       string

	// ToText writes plain sentences instead of normalizing (InDir holds canonical bracket files).
	ToText bool

	Concurrency int
	Overwrite   bool
	Verbose     bool
}

func (c Config) Validate() error {
	if c.InDir == "" {
		return errors.New("missing -in")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	if c.InSuffix == "" || c.OutSuffix == "" {
		return errors.New("missing -in-suffix or -out-suffix")
	}
	if c.InSuffix == c.OutSuffix && filepath.Clean(c.InDir) == filepath.Clean(c.OutDir) {
		return errors.New("-out would overwrite -in")
	}
	if _, err := evaluation.ParseNotation(c.Notation); err != nil {
		return err
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		InDir:       filepath.FromSlash("data/devset/genpsd"),
		OutDir:      filepath.FromSlash("data/devset/genbrackets"),
		InSuffix:    ".psd",
		OutSuffix:   ".br",
		Notation:    string(evaluation.NotationAnnotald),
		Deep:        true,
		Concurrency: 4,
	}
}
