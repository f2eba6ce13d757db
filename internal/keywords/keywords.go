// ABOUTME: Keyword and pattern tables used by fallback extraction, guidance, confirmation, and lookup
// ABOUTME: Tables are configuration data: an embedded default, replaceable with a YAML file
package keywords

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/harper/emergency-intake/internal/models"
)

//go:embed keywords.yaml
var defaultYAML []byte

// GuidanceTable holds the retrieval query terms for one category
type GuidanceTable struct {
	Query    string   `yaml:"query"`
	Keywords []string `yaml:"keywords"`
}

// file is the on-disk shape of the tables
type file struct {
	Categories       map[string][]string      `yaml:"categories"`
	PhonePatterns    []string                 `yaml:"phone_patterns"`
	PeoplePattern    string                   `yaml:"people_pattern"`
	AddressPatterns  []string                 `yaml:"address_patterns"`
	WardPatterns     []string                 `yaml:"ward_patterns"`
	DistrictPatterns []string                 `yaml:"district_patterns"`
	CityPatterns     []string                 `yaml:"city_patterns"`
	KnownCities      []string                 `yaml:"known_cities"`
	Guidance         map[string]GuidanceTable `yaml:"guidance"`
	ConfirmKeywords  []string                 `yaml:"confirm_keywords"`
	NegationKeywords []string                 `yaml:"negation_keywords"`
	CategoryNegation []string                 `yaml:"category_negations"`
	LookupPatterns   []string                 `yaml:"lookup_patterns"`
}

// Tables is the compiled, validated form
type Tables struct {
	Categories       map[models.Category][]string
	Guidance         map[models.Category]GuidanceTable
	KnownCities      []string
	ConfirmKeywords  []string
	NegationKeywords []string
	// phrases that cancel a category keyword right after them
	CategoryNegation []string

	PhonePatterns    []*regexp.Regexp
	PeoplePattern    *regexp.Regexp
	AddressPatterns  []*regexp.Regexp
	WardPatterns     []*regexp.Regexp
	DistrictPatterns []*regexp.Regexp
	CityPatterns     []*regexp.Regexp
	LookupPatterns   []*regexp.Regexp
}

// Default returns the embedded tables
func Default() (*Tables, error) {
	return Parse(defaultYAML)
}

// DefaultDigest identifies the embedded tables: the first 12 hex digits of their sha256
func DefaultDigest() string {
	sum := sha256.Sum256(defaultYAML)
	return hex.EncodeToString(sum[:])[:12]
}

// MustDefault is Default for package-level initialization and tests
func MustDefault() *Tables {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads tables from path, or returns the defaults when path is empty
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword tables: %w", err)
	}
	return Parse(data)
}

// Parse decodes and compiles tables, rejecting unknown categories and bad patterns
func Parse(data []byte) (*Tables, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse keyword tables: %w", err)
	}

	t := &Tables{
		Categories:       make(map[models.Category][]string),
		Guidance:         make(map[models.Category]GuidanceTable),
		KnownCities:      f.KnownCities,
		ConfirmKeywords:  normalizeAll(f.ConfirmKeywords),
		NegationKeywords: normalizeAll(f.NegationKeywords),
		CategoryNegation: normalizeAll(f.CategoryNegation),
	}

	for name, words := range f.Categories {
		c, ok := models.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q in keyword tables", name)
		}
		t.Categories[c] = normalizeAll(words)
	}
	for name, g := range f.Guidance {
		c, ok := models.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("unknown guidance category %q in keyword tables", name)
		}
		g.Keywords = normalizeAll(g.Keywords)
		t.Guidance[c] = g
	}

	var err error
	if t.PhonePatterns, err = compileAll("phone_patterns", f.PhonePatterns, ""); err != nil {
		return nil, err
	}
	if f.PeoplePattern != "" {
		if t.PeoplePattern, err = regexp.Compile(f.PeoplePattern); err != nil {
			return nil, fmt.Errorf("invalid people_pattern: %w", err)
		}
	}
	if t.AddressPatterns, err = compileAll("address_patterns", f.AddressPatterns, ""); err != nil {
		return nil, err
	}
	if t.WardPatterns, err = compileAll("ward_patterns", f.WardPatterns, ""); err != nil {
		return nil, err
	}
	if t.DistrictPatterns, err = compileAll("district_patterns", f.DistrictPatterns, ""); err != nil {
		return nil, err
	}
	if t.CityPatterns, err = compileAll("city_patterns", f.CityPatterns, ""); err != nil {
		return nil, err
	}
	if t.LookupPatterns, err = compileAll("lookup_patterns", f.LookupPatterns, "(?i)"); err != nil {
		return nil, err
	}

	return t, nil
}

func compileAll(field string, patterns []string, flags string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(flags + p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", field, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Normalize returns NFC, lower-cased, trimmed text so composed and decomposed
// Vietnamese input match the same keywords
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

func normalizeAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if n := Normalize(w); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// MatchCategories returns categories whose keywords occur in text, in canonical order.
// An occurrence right after a category negation ("không có cháy") does not count.
func (t *Tables) MatchCategories(text string) []models.Category {
	lower := Normalize(text)
	var out []models.Category
	for _, c := range models.AllCategories {
		for _, kw := range t.Categories[c] {
			if t.mentions(lower, kw) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func (t *Tables) mentions(lower, kw string) bool {
	from := 0
	for {
		i := strings.Index(lower[from:], kw)
		if i < 0 {
			return false
		}
		at := from + i
		if !t.negated(lower[:at]) {
			return true
		}
		from = at + len(kw)
	}
}

// negated reports whether before ends with a category negation phrase as whole words
func (t *Tables) negated(before string) bool {
	tail := strings.TrimRight(before, " \t")
	for _, neg := range t.CategoryNegation {
		if !strings.HasSuffix(tail, neg) {
			continue
		}
		rest := tail[:len(tail)-len(neg)]
		if r, _ := utf8.DecodeLastRuneInString(rest); rest == "" || !isLetterOrDigit(r) {
			return true
		}
	}
	return false
}

// ContainsWord reports whether phrase occurs in text as whole words.
// Both sides are normalized; punctuation counts as a word boundary.
func ContainsWord(text, phrase string) bool {
	padded := " " + wordsOnly(Normalize(text)) + " "
	return strings.Contains(padded, " "+wordsOnly(Normalize(phrase))+" ")
}

func wordsOnly(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(r == '-' || isLetterOrDigit(r))
	})
	return strings.Join(fields, " ")
}

func isLetterOrDigit(r rune) bool {
	return r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 127
}

// IsLookup reports whether text asks about a previous ticket
func (t *Tables) IsLookup(text string) bool {
	for _, re := range t.LookupPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
