package server

import (
	"fmt"
	"runtime"
	"strings"

	"example.com/balisegate/internal/balise"
	"example.com/balisegate/internal/dict"
	"example.com/balisegate/internal/report"
)

// Options configures server creation.
type Options struct {
	StorageDir string
	// DictionaryPath optionally names a JSON or YAML label override file.
	DictionaryPath string
	// Dictionary is used as is when set and DictionaryPath is empty.
	Dictionary     *dict.Store
	Concurrency    int
	DefaultVersion string
	Language       string
	// MaxBodyBytes bounds request bodies; zero means 8 MiB.
	MaxBodyBytes int64
}

type settings struct {
	store       *dict.Store
	concurrency int
	version     balise.Version
	lang        report.Language
	maxBody     int64
}

func (opts Options) resolve() (settings, error) {
	s := settings{
		store:       opts.Dictionary,
		concurrency: opts.Concurrency,
		version:     balise.Version2_0,
		lang:        report.LangEnglish,
		maxBody:     opts.MaxBodyBytes,
	}
	if s.concurrency <= 0 {
		s.concurrency = runtime.NumCPU()
	}
	if s.maxBody <= 0 {
		s.maxBody = 8 << 20
	}
	if strings.TrimSpace(opts.DefaultVersion) != "" {
		v, err := balise.ParseVersion(opts.DefaultVersion)
		if err != nil {
			return settings{}, err
		}
		s.version = v
	}
	if strings.TrimSpace(opts.Language) != "" {
		lang, err := report.ParseLanguage(opts.Language)
		if err != nil {
			return settings{}, err
		}
		s.lang = lang
	}
	if path := strings.TrimSpace(opts.DictionaryPath); path != "" {
		store, err := dict.EnsureLoaded(path)
		if err != nil {
			return settings{}, fmt.Errorf("load dictionary: %w", err)
		}
		s.store = store
	}
	if err := s.store.Validate(balise.VariableWidth); err != nil {
		return settings{}, err
	}
	return s, nil
}
