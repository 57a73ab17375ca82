package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Options{Level: "info", File: path})
	if err != nil {
		t.Fatal(err)
	}
	log.Info("hello")
	log.Debug("dropped")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("expected info line in %q", data)
	}
	if strings.Contains(string(data), "dropped") {
		t.Fatal("debug line written at info level")
	}
}

func TestNewRejectsLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
