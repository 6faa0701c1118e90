// Package canon maps free-text institution names onto one canonical identity.
//
// Names are compared after NFKC normalization, whitespace collapsing and
// lowercasing. Known spelling variants are listed in an AliasTable; anything not
// listed is its own identity. There is no fuzzy matching.
package canon

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/unicode/norm"
)

// AliasTable maps a canonical display label to the other spellings that name
// the same institution.
type AliasTable map[string][]string

// LoadAliasTable reads an AliasTable from a JSON object file.
func LoadAliasTable(path string) (AliasTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias table %s: %w", path, err)
	}
	var t AliasTable
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse alias table %s: %w", path, err)
	}
	return t, nil
}

// Normalize is the comparison form of a name.
func Normalize(raw string) string {
	return strings.ToLower(collapse(norm.NFKC.String(raw)))
}

// collapse trims and folds every whitespace run into one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Identity is the resolved view of one institution name.
type Identity struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Aliased  bool     `json:"aliased"`
	Patterns []string `json:"patterns"`
}

type group struct {
	label    string
	variants []string
}

// Canonicalizer resolves names against an alias table. It is immutable after
// construction and safe for concurrent use.
type Canonicalizer struct {
	byKey               map[string]*group
	coordinatorPrefixes []string
}

// Option configures a Canonicalizer.
type Option func(*Canonicalizer)

// WithCoordinatorPrefixes marks names starting with any prefix (compared in
// normalized form) as coordinator pseudo-institutions.
func WithCoordinatorPrefixes(prefixes ...string) Option {
	return func(c *Canonicalizer) {
		for _, p := range prefixes {
			if n := Normalize(p); n != "" {
				c.coordinatorPrefixes = append(c.coordinatorPrefixes, n)
			}
		}
	}
}

// New builds a Canonicalizer. A spelling claimed by two different canonical
// labels is a configuration error.
func New(table AliasTable, opts ...Option) (*Canonicalizer, error) {
	c := &Canonicalizer{byKey: make(map[string]*group)}
	labels := make([]string, 0, len(table))
	for label := range table {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		g := &group{label: collapse(label)}
		seen := map[string]bool{}
		for _, v := range append([]string{label}, table[label]...) {
			k := Normalize(v)
			if k == "" || seen[k] {
				continue
			}
			if other, ok := c.byKey[k]; ok && other != g {
				return nil, fmt.Errorf("alias %q is listed under both %q and %q", v, other.label, g.label)
			}
			seen[k] = true
			g.variants = append(g.variants, collapse(v))
			c.byKey[k] = g
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MustNew is New for static tables known to be valid.
func MustNew(table AliasTable, opts ...Option) *Canonicalizer {
	c, err := New(table, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Key returns the canonical key: the normalized canonical label when raw is a
// known alias, otherwise the normalized input.
func (c *Canonicalizer) Key(raw string) string {
	k := Normalize(raw)
	if g, ok := c.byKey[k]; ok {
		return Normalize(g.label)
	}
	return k
}

// Label returns the display name for raw: the canonical label for aliases and
// the whitespace-collapsed input otherwise.
func (c *Canonicalizer) Label(raw string) string {
	if g, ok := c.byKey[Normalize(raw)]; ok {
		return g.label
	}
	return collapse(norm.NFKC.String(raw))
}

// Same reports whether two names resolve to the same institution.
func (c *Canonicalizer) Same(a, b string) bool {
	return c.Key(a) == c.Key(b)
}

// MatchPatterns returns anchored, whitespace-tolerant patterns covering every
// spelling of the institution raw names. Patterns are meant to be applied
// case-insensitively. Unknown names yield a single pattern for the input.
func (c *Canonicalizer) MatchPatterns(raw string) []string {
	k := Normalize(raw)
	if k == "" {
		return nil
	}
	g, ok := c.byKey[k]
	if !ok {
		return []string{ExactPattern(raw)}
	}
	out := make([]string, 0, len(g.variants))
	for _, v := range g.variants {
		out = append(out, ExactPattern(v))
	}
	return out
}

// Regexes is MatchPatterns as case-insensitive BSON regular expressions.
func (c *Canonicalizer) Regexes(raw string) []primitive.Regex {
	return ToRegexes(c.MatchPatterns(raw))
}

// Resolve bundles key, label and patterns for raw.
func (c *Canonicalizer) Resolve(raw string) Identity {
	_, aliased := c.byKey[Normalize(raw)]
	return Identity{
		Key:      c.Key(raw),
		Label:    c.Label(raw),
		Aliased:  aliased,
		Patterns: c.MatchPatterns(raw),
	}
}

// IsCoordinator reports whether raw names a coordinator pseudo-institution
// rather than a reporting facility.
func (c *Canonicalizer) IsCoordinator(raw string) bool {
	k := Normalize(raw)
	for _, p := range c.coordinatorPrefixes {
		if strings.HasPrefix(k, p) {
			return true
		}
	}
	return false
}

// space matches ASCII whitespace and Unicode separators such as NBSP and the
// ideographic space, which strings.Fields also splits on.
const space = `[\s\p{Z}]`

// ExactPattern builds a case-insensitive-ready exact-match pattern for raw,
// with regex metacharacters escaped and any whitespace run matching any other.
func ExactPattern(raw string) string {
	words := strings.Fields(norm.NFKC.String(raw))
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return `^` + space + `*` + strings.Join(words, space+`+`) + space + `*$`
}

// ToRegexes wraps patterns as BSON regexes with the "i" option.
func ToRegexes(patterns []string) []primitive.Regex {
	out := make([]primitive.Regex, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, primitive.Regex{Pattern: p, Options: "i"})
	}
	return out
}

// Compile turns patterns into Go regexps with the same case-insensitive
// semantics the store applies.
func Compile(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
