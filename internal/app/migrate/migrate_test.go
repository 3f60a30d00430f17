package migrate

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestNewValidatesArguments(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	cases := []struct {
		name string
		dsn  string
		dir  string
	}{
		{name: "empty dsn", dsn: "", dir: dir},
		{name: "empty dir", dsn: "postgres://localhost/vault", dir: ""},
		{name: "missing dir", dsn: "postgres://localhost/vault", dir: filepath.Join(dir, "missing")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.dsn, tc.dir, log); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNewAcceptsDirectory(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner, err := New("postgres://localhost:5432/vault?sslmode=disable", t.TempDir(), log)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if err := runner.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
