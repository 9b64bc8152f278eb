package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigPath(t *testing.T) {
	got := ConfigPath("/work")
	want := filepath.Join("/work", ".cblaster", "config.yaml")
	if got != want {
		t.Fatalf("ConfigPath() = %q, want %q", got, want)
	}
	if dir := ConfigDir("/work"); dir != filepath.Join("/work", ".cblaster") {
		t.Fatalf("ConfigDir() = %q", dir)
	}
}

func TestFindConfigFrom_Parent(t *testing.T) {
	root := t.TempDir()
	cfgPath := ConfigPath(root)
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfgPath, []byte("version: \"1\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0750); err != nil {
		t.Fatal(err)
	}

	if got := findConfigFrom(nested); got != cfgPath {
		t.Fatalf("findConfigFrom() = %q, want %q", got, cfgPath)
	}
}

func TestOpenOutput_Stdout(t *testing.T) {
	f, closeFn, err := openOutput("", os.Stdout)
	if err != nil {
		t.Fatalf("openOutput() error = %v", err)
	}
	if f != os.Stdout {
		t.Fatalf("openOutput(\"\") did not return stdout")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close error = %v", err)
	}
}

func TestOpenOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.txt")
	f, closeFn, err := openOutput(path, os.Stdout)
	if err != nil {
		t.Fatalf("openOutput() error = %v", err)
	}
	if _, err := f.WriteString("hello\n"); err != nil {
		t.Fatal(err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello\n" {
		t.Fatalf("file content = %q", data)
	}
}

func TestOpenOutput_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "summary.txt")
	if _, _, err := openOutput(path, os.Stdout); err == nil {
		t.Fatalf("openOutput(%q) expected error", path)
	}
}

func TestAbsPath(t *testing.T) {
	got, err := absPath("/a/b/../c")
	if err != nil {
		t.Fatalf("absPath() error = %v", err)
	}
	if got != "/a/c" {
		t.Fatalf("absPath() = %q, want %q", got, "/a/c")
	}

	rel, err := absPath("x")
	if err != nil {
		t.Fatalf("absPath() error = %v", err)
	}
	if !filepath.IsAbs(rel) {
		t.Fatalf("absPath(\"x\") = %q, not absolute", rel)
	}
}
