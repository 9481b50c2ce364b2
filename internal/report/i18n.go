package report

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
)

type Language string

const (
	LangEnglish Language = "en"
	LangGerman  Language = "de"
)

var ErrUnsupportedLanguage = errors.New("report: unsupported language")

//go:embed locales/*.json
var localeFS embed.FS

// catalogs holds one string table per locales/<lang>.json file.
var catalogs = loadCatalogs()

var languageAliases = map[string]Language{
	"english": LangEnglish,
	"german":  LangGerman,
	"deutsch": LangGerman,
}

func loadCatalogs() map[Language]map[string]string {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		panic(err)
	}
	out := make(map[Language]map[string]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		data, err := localeFS.ReadFile(path.Join("locales", name))
		if err != nil {
			panic(err)
		}
		var strs map[string]string
		if err := json.Unmarshal(data, &strs); err != nil {
			panic(fmt.Sprintf("report: locale %s: %v", name, err))
		}
		out[Language(strings.TrimSuffix(name, ".json"))] = strs
	}
	base := out[LangEnglish]
	for lang, strs := range out {
		for key := range base {
			if _, ok := strs[key]; !ok {
				panic(fmt.Sprintf("report: locale %s lacks %q", lang, key))
			}
		}
	}
	return out
}

// Translator looks up report strings for one language. Keys absent from
// every locale are returned as is.
type Translator struct {
	lang Language
	strs map[string]string
}

// NewTranslator falls back to English for languages without a locale.
func NewTranslator(lang Language) Translator {
	if strs, ok := catalogs[lang]; ok {
		return Translator{lang: lang, strs: strs}
	}
	return Translator{lang: LangEnglish, strs: catalogs[LangEnglish]}
}

func (t Translator) Lang() Language { return t.lang }

func (t Translator) T(key string) string {
	if s, ok := t.strs[key]; ok {
		return s
	}
	return key
}

func (t Translator) Format(key string, args ...interface{}) string {
	return fmt.Sprintf(t.T(key), args...)
}

// ParseLanguage accepts a locale name ("de", "de-CH", "de_DE.UTF-8") or an
// English language name.
func ParseLanguage(s string) (Language, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return LangEnglish, nil
	}
	if lang, ok := languageAliases[norm]; ok {
		return lang, nil
	}
	base, _, _ := strings.Cut(strings.NewReplacer("_", "-", ".", "-").Replace(norm), "-")
	if _, ok := catalogs[Language(base)]; ok {
		return Language(base), nil
	}
	return LangEnglish, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, s)
}
