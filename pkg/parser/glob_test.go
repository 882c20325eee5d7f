package parser

import (
	"os"
	"path/filepath"
	"testing"
)

func writeExports(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("12/24/23, 9:05 AM - Alice: Hello\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExpandGlobs_SingleFile(t *testing.T) {
	dir := t.TempDir()
	writeExports(t, dir, "chat.txt")
	file := filepath.Join(dir, "chat.txt")

	result, err := ExpandGlobs([]string{file})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 || result[0] != file {
		t.Errorf("ExpandGlobs() = %v, want [%s]", result, file)
	}
}

func TestExpandGlobs_Patterns(t *testing.T) {
	dir := t.TempDir()
	writeExports(t, dir, "a.txt", "b.txt", "c.zip", "family/d.txt")

	tests := []struct {
		name     string
		patterns []string
		want     int
	}{
		{"txt only", []string{filepath.Join(dir, "*.txt")}, 2},
		{"all top level", []string{filepath.Join(dir, "*.*")}, 3},
		{"two patterns", []string{filepath.Join(dir, "*.txt"), filepath.Join(dir, "family", "*.txt")}, 3},
		{"duplicates", []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "a.txt")}, 1},
		{"empty", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ExpandGlobs(tt.patterns)
			if err != nil {
				t.Fatalf("ExpandGlobs() error = %v", err)
			}
			if len(result) != tt.want {
				t.Errorf("ExpandGlobs() returned %d files (%v), want %d", len(result), result, tt.want)
			}
		})
	}
}

func TestExpandGlobs_NoMatchKeepsPattern(t *testing.T) {
	pattern := filepath.Join(t.TempDir(), "*.nonexistent")

	result, err := ExpandGlobs([]string{pattern})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 || result[0] != pattern {
		t.Errorf("ExpandGlobs() = %v, want [%s]", result, pattern)
	}
}

func TestExpandGlobs_InvalidPattern(t *testing.T) {
	if _, err := ExpandGlobs([]string{"[invalid"}); err == nil {
		t.Error("ExpandGlobs() expected error for invalid pattern")
	}
}

func TestExpandGlobs_Sorted(t *testing.T) {
	dir := t.TempDir()
	writeExports(t, dir, "c.txt", "a.txt", "b.txt")

	result, err := ExpandGlobs([]string{filepath.Join(dir, "*.txt")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	for i := 1; i < len(result); i++ {
		if result[i-1] > result[i] {
			t.Errorf("ExpandGlobs() result not sorted: %v", result)
			break
		}
	}
}
