package safeio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAllowsAbsoluteUnderRoot(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.json")
	if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs, err := NewSafeFS(dir)
	if err != nil {
		t.Fatalf("NewSafeFS: %v", err)
	}
	if _, err := fs.ReadFile(p); err != nil {
		t.Fatalf("ReadFile absolute: %v", err)
	}
}

func TestRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "corpus")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	outside := filepath.Join(dir, "secret.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs, err := NewSafeFS(sub)
	if err != nil {
		t.Fatalf("NewSafeFS: %v", err)
	}
	if _, err := fs.ReadFile("../secret.txt"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
	if _, err := fs.ReadFile(outside); err == nil {
		t.Fatal("expected absolute path outside root to be rejected")
	}
}

func TestGlobSortsNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.json", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	fs, err := NewSafeFS(dir)
	if err != nil {
		t.Fatalf("NewSafeFS: %v", err)
	}
	names, err := fs.Glob(".", "*.json")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(names) != 2 || names[0] != "a.json" || names[1] != "b.json" {
		t.Fatalf("unexpected glob result: %v", names)
	}
}
