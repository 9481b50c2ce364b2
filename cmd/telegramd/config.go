package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/balisegate/internal/balise"
	"example.com/balisegate/internal/report"
)

type logConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type config struct {
	Port           int       `yaml:"port"`
	StorageDir     string    `yaml:"storageDir"`
	Concurrency    int       `yaml:"concurrency"`
	Dictionary     string    `yaml:"dictionary"`
	DefaultVersion string    `yaml:"defaultVersion"`
	Lang           string    `yaml:"lang"`
	MaxBodyBytes   int64     `yaml:"maxBodyBytes"`
	Debug          bool      `yaml:"debug"`
	Logs           logConfig `yaml:"logs"`
}

// defaultConfig is used when no configuration file exists.
func defaultConfig() config {
	cfg, _ := applyDefaults(config{}, ".")
	return cfg
}

func loadConfig(path string) (config, error) {
	var cfg config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return applyDefaults(cfg, filepath.Dir(path))
}

func applyDefaults(cfg config, baseDir string) (config, error) {
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = "data"
	}
	cfg.StorageDir = resolvePath(cfg.StorageDir)
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	cfg.Dictionary = resolvePath(cfg.Dictionary)
	if cfg.DefaultVersion == "" {
		cfg.DefaultVersion = balise.Version2_0.String()
	}
	if _, err := balise.ParseVersion(cfg.DefaultVersion); err != nil {
		return cfg, err
	}
	if cfg.Lang == "" {
		cfg.Lang = string(report.LangEnglish)
	}
	if _, err := report.ParseLanguage(cfg.Lang); err != nil {
		return cfg, err
	}
	if cfg.MaxBodyBytes < 0 {
		return cfg, fmt.Errorf("maxBodyBytes %d is negative", cfg.MaxBodyBytes)
	}
	if cfg.Logs.Directory == "" {
		cfg.Logs.Directory = filepath.Join(cfg.StorageDir, "logs")
	} else {
		cfg.Logs.Directory = resolvePath(cfg.Logs.Directory)
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 7
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	return cfg, nil
}
