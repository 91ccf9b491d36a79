package fileutils

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"unicode/utf8"
)

func TestCopyFileIfExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "gold.dbr")
	dst := filepath.Join(dir, "out", "gold.dbr.orig")

	// Missing src: no-op.
	copied, err := CopyFileIfExists(src, dst, false)
	if err != nil {
		t.Fatalf("copy missing src: %v", err)
	}
	if copied {
		t.Fatalf("expected copied=false for missing src")
	}

	if err := os.WriteFile(src, []byte("(S0 (n a))\n"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	copied, err = CopyFileIfExists(src, dst, false)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if !copied {
		t.Fatalf("expected copied=true")
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(b) != "(S0 (n a))\n" {
		t.Fatalf("dst=%q", string(b))
	}

	// Without overwrite, dst is kept.
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatalf("write src2: %v", err)
	}
	copied, err = CopyFileIfExists(src, dst, false)
	if err != nil {
		t.Fatalf("copy no-overwrite: %v", err)
	}
	if copied {
		t.Fatalf("expected copied=false when dst exists and overwrite=false")
	}

	copied, err = CopyFileIfExists(src, dst, true)
	if err != nil {
		t.Fatalf("copy overwrite: %v", err)
	}
	if !copied {
		t.Fatalf("expected copied=true when overwrite=true")
	}
	b, _ = os.ReadFile(dst)
	if string(b) != "new" {
		t.Fatalf("dst=%q", string(b))
	}
}

func TestListFilesFiltersAndSorts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.psd", "a.psd", "c.txt", ".tmp_a.psd_1"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "d.psd"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := ListFiles(dir, ".psd")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if want := []string{"a.psd", "b.psd"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if !DirHasAny(dir, ".txt") {
		t.Fatalf("expected DirHasAny(.txt)")
	}
	if DirHasAny(dir, ".out") {
		t.Fatalf("unexpected DirHasAny(.out)")
	}
}

func TestWriteFileAtomicSameDirReplaces(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "x.dbr")
	if err := WriteFileAtomicSameDir(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomicSameDir(path, []byte("two"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "two" {
		t.Fatalf("content=%q", string(b))
	}
	names, _ := ListFiles(filepath.Dir(path), "")
	if len(names) != 1 {
		t.Fatalf("leftover temp files: %v", names)
	}
}

func TestDecodeModelJSONExtractsObject(t *testing.T) {
	t.Parallel()

	var out struct {
		Summary string `json:"summary"`
	}
	if err := DecodeModelJSON("Here you go:\n{\"summary\":\"NP vs PP\"}\nthanks", &out); err != nil {
		t.Fatalf("DecodeModelJSON: %v", err)
	}
	if out.Summary != "NP vs PP" {
		t.Fatalf("summary=%q", out.Summary)
	}
	if err := DecodeModelJSON("   ", &out); err == nil {
		t.Fatalf("expected error for empty output")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in   string
		max  int
		want string
	}{
		{"  villa  ", 10, "villa"},
		{"þjóð", 0, "þjóð"},
		// "þ" is two bytes; cutting at 1 would split it.
		{"þjóð", 1, "…"},
		{"þjóð", 3, "þj…"},
		{"þjóð", 4, "þj…"},
		{"þjóð", 5, "þjó…"},
	} {
		if got := Truncate(tc.in, tc.max); got != tc.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
		if !utf8.ValidString(Truncate(tc.in, tc.max)) {
			t.Fatalf("Truncate(%q, %d) is not valid UTF-8", tc.in, tc.max)
		}
	}
}
