package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"example.com/balisegate/internal/balise"
	"example.com/balisegate/internal/report"
)

func TestOptionsDefaults(t *testing.T) {
	cfg, err := Options{}.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.version != balise.Version2_0 {
		t.Fatalf("version = %s, want 2.0", cfg.version)
	}
	if cfg.lang != report.LangEnglish {
		t.Fatalf("lang = %s", cfg.lang)
	}
	if cfg.concurrency <= 0 {
		t.Fatalf("concurrency = %d", cfg.concurrency)
	}
	if cfg.maxBody != 8<<20 {
		t.Fatalf("maxBody = %d", cfg.maxBody)
	}
	if !cfg.store.IsEmpty() {
		t.Fatalf("expected empty dictionary")
	}
}

func TestOptionsLoadsDictionary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	payload := "variables:\n  - name: NID_C\n    labels:\n      \"513\": Test country\n"
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write dictionary: %v", err)
	}
	cfg, err := Options{DictionaryPath: path, DefaultVersion: "1.1", Language: "de"}.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if label, ok := cfg.store.Lookup("NID_C", 513); !ok || label != "Test country" {
		t.Fatalf("lookup = %q, %v", label, ok)
	}
	if cfg.version != balise.Version1_1 {
		t.Fatalf("version = %s", cfg.version)
	}
	if cfg.lang != report.LangGerman {
		t.Fatalf("lang = %s", cfg.lang)
	}
}

func TestOptionsRejectInvalid(t *testing.T) {
	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.json")
	if err := os.WriteFile(unknown, []byte(`{"variables":[{"name":"NID_FOO","labels":{"1":"x"}}]}`), 0o644); err != nil {
		t.Fatalf("write dictionary: %v", err)
	}
	tooWide := filepath.Join(dir, "wide.json")
	if err := os.WriteFile(tooWide, []byte(`{"variables":[{"name":"Q_DIR","labels":{"4":"x"}}]}`), 0o644); err != nil {
		t.Fatalf("write dictionary: %v", err)
	}
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{name: "version", opts: Options{DefaultVersion: "nine"}, want: "invalid version"},
		{name: "language", opts: Options{Language: "xx"}, want: "unsupported language"},
		{name: "missing dictionary", opts: Options{DictionaryPath: filepath.Join(dir, "nope.json")}, want: "load dictionary"},
		{name: "unknown variable", opts: Options{DictionaryPath: unknown}, want: "unknown variable NID_FOO"},
		{name: "value too wide", opts: Options{DictionaryPath: tooWide}, want: "exceeds 2-bit width"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.opts.resolve()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("resolve error = %v, want %q", err, tc.want)
			}
		})
	}
}
