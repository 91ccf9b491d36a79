package main

import (
	"flag"
	"testing"
)

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("tree-normalizer", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-in", "GreynirCorpus/testset/psd/",
		"-out", "data/testset/goldbrackets",
		"-in-suffix", ".gld",
		"-notation", "greynir",
		"-include", "greinar*, visindavefur* ,",
		"-deep=false",
		"-exclude-malformed",
		"-concurrency", "8",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.InDir != "GreynirCorpus/testset/psd" {
		t.Fatalf("InDir=%q", cfg.InDir)
	}
	if cfg.InSuffix != ".gld" || cfg.OutSuffix != ".br" {
		t.Fatalf("suffixes=%q/%q", cfg.InSuffix, cfg.OutSuffix)
	}
	if len(cfg.Include) != 2 || cfg.Include[0] != "greinar*" || cfg.Include[1] != "visindavefur*" {
		t.Fatalf("Include=%q", cfg.Include)
	}
	if cfg.Deep || !cfg.ExcludeMalformed || cfg.Concurrency != 8 {
		t.Fatalf("deep/exclude/concurrency=%v/%v/%d", cfg.Deep, cfg.ExcludeMalformed, cfg.Concurrency)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Config){
		"missing in":      func(c *Config) { c.InDir = "" },
		"same dir suffix": func(c *Config) { c.OutDir = c.InDir; c.OutSuffix = c.InSuffix },
		"bad notation":    func(c *Config) { c.Notation = "penn" },
		"concurrency":     func(c *Config) { c.Concurrency = -1 },
	}
	for name, mutate := range cases {
		cfg := defaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	if got := splitList(""); got != nil {
		t.Fatalf("splitList(\"\")=%q", got)
	}
	if got := splitList(" a ,,b"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("splitList=%q", got)
	}
}
