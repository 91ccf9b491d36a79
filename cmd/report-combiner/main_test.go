package main

import (
	"flag"
	"testing"
)

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("report-combiner", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-dir", "data/testset/reports",
		"-suffixes", ".grdout, .inpout",
		"-genres", "",
		"-nocat",
		"-scorer", "",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if len(cfg.Suffixes) != 2 || cfg.Suffixes[1] != ".inpout" {
		t.Fatalf("Suffixes=%q", cfg.Suffixes)
	}
	if len(cfg.Genres) != 0 {
		t.Fatalf("Genres=%q", cfg.Genres)
	}
	if !cfg.NoCategory || cfg.ScorerPath != "" {
		t.Fatalf("nocat/scorer=%v/%q", cfg.NoCategory, cfg.ScorerPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("report-combiner", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if len(cfg.Genres) != 4 || cfg.Genres[0] != "reynir_corpus" {
		t.Fatalf("Genres=%q", cfg.Genres)
	}
	if cfg.OutputName != "allresults.out" {
		t.Fatalf("OutputName=%q", cfg.OutputName)
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Config){
		"no suffixes":   func(c *Config) { c.Suffixes = nil },
		"path as out":   func(c *Config) { c.OutputName = "../allresults.out" },
		"analyze model": func(c *Config) { c.Analyze = true; c.Model = "" },
	}
	for name, mutate := range cases {
		cfg := defaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	cfg := defaultConfig()
	cfg.Suffixes = nil
	cfg.PrintSchema = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("-schema needs no report options: %v", err)
	}
}
