package main

import (
	"errors"
	"fmt"
	"path/filepath"
)

const (
	parserAnnoparse = "annoparse"
	parserIceNLP    = "icenlp"
)

type Config struct {
	Parser    string
	IceNLPDir string

	InDir     string
	OutDir    string
	TaggedDir string

	InSuffix     string
	TaggedSuffix string
	OutSuffix    string

	Overwrite bool
	Verbose   bool
}

func (c Config) Validate() error {
	switch c.Parser {
	case parserAnnoparse:
	case parserIceNLP:
		if c.IceNLPDir == "" {
			return errors.New("-parser icenlp needs -icenlp-dir")
		}
		if c.TaggedSuffix == "" {
			return errors.New("missing -tagged-suffix")
		}
	default:
		return fmt.Errorf("unknown -parser %q (want %s|%s)", c.Parser, parserAnnoparse, parserIceNLP)
	}
	if c.InDir == "" {
		return errors.New("missing -in")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	if c.InSuffix == "" || c.OutSuffix == "" {
		return errors.New("missing -in-suffix or -out-suffix")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Parser:       parserAnnoparse,
		InDir:        filepath.FromSlash("GreynirCorpus/devset/txt"),
		OutDir:       filepath.FromSlash("data/devset/genpsd"),
		InSuffix:     ".txt",
		TaggedSuffix: ".tagged",
		OutSuffix:    ".psd",
	}
}
