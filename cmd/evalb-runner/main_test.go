package main

import (
	"flag"
	"testing"
)

func TestParseFlags_Tests(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("evalb-runner", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-test", ".grdbr,.dbr,.grdout",
		"-test", " .br , .br , .out ",
		"-exclude",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if len(cfg.Tests) != 2 {
		t.Fatalf("Tests=%+v", cfg.Tests)
	}
	if cfg.Tests[0].SystemSuffix != ".grdbr" || cfg.Tests[0].GoldSuffix != ".dbr" || cfg.Tests[0].ReportSuffix != ".grdout" {
		t.Fatalf("Tests[0]=%+v", cfg.Tests[0])
	}
	if cfg.Tests[1].ReportSuffix != ".out" {
		t.Fatalf("Tests[1]=%+v", cfg.Tests[1])
	}
	if !cfg.ExcludeMalformed {
		t.Fatalf("ExcludeMalformed=false")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseFlags_DefaultTest(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("evalb-runner", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if len(cfg.Tests) != 1 || cfg.Tests[0].ReportSuffix != ".out" {
		t.Fatalf("Tests=%+v", cfg.Tests)
	}
}

func TestParseFlags_BadTest(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("evalb-runner", flag.ContinueOnError)
	if _, err := parseFlags(fs, []string{"-test", ".br,.out"}); err == nil {
		t.Fatalf("expected error for a two-part test")
	}
}

func TestMalformedLabel_Default(t *testing.T) {
	t.Parallel()

	label, err := malformedLabel("")
	if err != nil {
		t.Fatalf("malformedLabel: %v", err)
	}
	if label != "S0-X" {
		t.Fatalf("label=%q", label)
	}
}
