// Package catalog loads the curated reference list of primitive (libc and
// syscall class) names the matcher ranks wrapper candidates against.
//
// The catalog is loaded once per run and treated as immutable afterwards.
// Entry order follows the YAML source exactly: tie-breaking during matching
// is defined in terms of that order, so it must survive loading.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for catalog loading and use.
var (
	// ErrEmptyCatalog indicates the catalog contains no canonical names.
	ErrEmptyCatalog = errors.New("catalog contains no entries")
	// ErrMalformedCatalog indicates the YAML document does not have the expected shape.
	ErrMalformedCatalog = errors.New("malformed catalog document")
)

// Category labels for the legacy flat buckets.
const (
	categoryLibc     = "libc"
	categorySyscalls = "system_calls"
	categoryUnknown  = "unknown"
)

// Entry is one canonical primitive name with its category label.
type Entry struct {
	Name     string
	Category string
}

// Catalog is the loaded, read-only reference data.
type Catalog struct {
	// Entries in YAML source order. Duplicated names keep their first occurrence.
	Entries []Entry

	// Helpers are callee names ignored when counting forwarding calls
	// (logging, tracing, assertion helpers).
	Helpers HelperSet

	// ThinAliases are wrapper names known to be pure renames of their
	// target. The matcher drops them from ranked output.
	ThinAliases map[string]struct{}

	byName map[string]int
}

// HelperSet matches callee names against exact names and compiled patterns.
type HelperSet struct {
	names    map[string]struct{}
	patterns []*regexp.Regexp
}

// Match reports whether name belongs to the helper set.
func (h HelperSet) Match(name string) bool {
	if _, ok := h.names[name]; ok {
		return true
	}

	for _, p := range h.patterns {
		if p.MatchString(name) {
			return true
		}
	}

	return false
}

// Empty reports whether the helper set has no names and no patterns.
func (h HelperSet) Empty() bool {
	return len(h.names) == 0 && len(h.patterns) == 0
}

func newHelperSet(names, patterns []string) (HelperSet, error) {
	set := HelperSet{names: make(map[string]struct{}, len(names))}

	for _, n := range names {
		set.names[n] = struct{}{}
	}

	for _, p := range patterns {
		compiled, err := regexp.Compile(p)
		if err != nil {
			return HelperSet{}, fmt.Errorf("compile helper pattern %q: %w", p, err)
		}

		set.patterns = append(set.patterns, compiled)
	}

	return set, nil
}

// Load reads and parses the catalog YAML file at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	cat, parseErr := Parse(f)
	if parseErr != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, parseErr)
	}

	return cat, nil
}

// Parse decodes a catalog YAML document.
//
// Decoding goes through yaml.Node rather than a map so that the category and
// name order of the source document is preserved.
func Parse(r io.Reader) (*Catalog, error) {
	var doc yaml.Node

	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCatalog
		}

		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrMalformedCatalog)
	}

	cat := &Catalog{
		ThinAliases: make(map[string]struct{}),
		byName:      make(map[string]int),
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		value := root.Content[i+1]

		var err error

		switch key {
		case "categories":
			err = cat.addCategories(value)
		case "libc":
			err = cat.addBucket(value, categoryLibc)
		case "syscalls":
			err = cat.addBucket(value, categorySyscalls)
		case "helpers":
			err = cat.addHelpers(value)
		case "thin_aliases", "thin-aliases":
			err = cat.addThinAliases(value)
		}

		if err != nil {
			return nil, err
		}
	}

	if len(cat.Entries) == 0 {
		return nil, ErrEmptyCatalog
	}

	return cat, nil
}

// Len returns the number of canonical names.
func (c *Catalog) Len() int { return len(c.Entries) }

// Contains reports whether name is a canonical catalog name.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.byName[name]

	return ok
}

// CategoryOf returns the category of a canonical name, or "unknown".
func (c *Catalog) CategoryOf(name string) string {
	if i, ok := c.byName[name]; ok {
		return c.Entries[i].Category
	}

	return categoryUnknown
}

func (c *Catalog) add(name, category string) {
	if name == "" {
		return
	}

	if _, seen := c.byName[name]; seen {
		return
	}

	c.byName[name] = len(c.Entries)
	c.Entries = append(c.Entries, Entry{Name: name, Category: category})
}

func (c *Catalog) addCategories(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: categories must be a mapping", ErrMalformedCatalog)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		category := node.Content[i].Value
		body := node.Content[i+1]

		names, err := categoryNames(body)
		if err != nil {
			return fmt.Errorf("category %s: %w", category, err)
		}

		for _, n := range names {
			c.add(n, category)
		}
	}

	return nil
}

// categoryNames accepts either a plain sequence of names or a mapping with
// `apis` and optional `aliases` sequences.
func categoryNames(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.SequenceNode:
		return sequenceStrings(node)
	case yaml.MappingNode:
		var names []string

		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if key != "apis" && key != "aliases" {
				continue
			}

			part, err := sequenceStrings(node.Content[i+1])
			if err != nil {
				return nil, err
			}

			names = append(names, part...)
		}

		return names, nil
	default:
		return nil, fmt.Errorf("%w: category body must be a sequence or mapping", ErrMalformedCatalog)
	}
}

func (c *Catalog) addBucket(node *yaml.Node, category string) error {
	names, err := sequenceStrings(node)
	if err != nil {
		return fmt.Errorf("%s bucket: %w", category, err)
	}

	for _, n := range names {
		c.add(n, category)
	}

	return nil
}

func (c *Catalog) addHelpers(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: helpers must be a mapping", ErrMalformedCatalog)
	}

	var names, patterns []string

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		values, err := sequenceStrings(node.Content[i+1])
		if err != nil {
			return fmt.Errorf("helpers.%s: %w", key, err)
		}

		switch key {
		case "benign", "helpers":
			names = append(names, values...)
		case "benign_regex", "helpers_regex":
			patterns = append(patterns, values...)
		}
	}

	set, err := newHelperSet(names, patterns)
	if err != nil {
		return err
	}

	c.Helpers = set

	return nil
}

func (c *Catalog) addThinAliases(node *yaml.Node) error {
	names, err := sequenceStrings(node)
	if err != nil {
		return fmt.Errorf("thin_aliases: %w", err)
	}

	for _, n := range names {
		c.ThinAliases[n] = struct{}{}
	}

	return nil
}

func sequenceStrings(node *yaml.Node) ([]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: expected a sequence", ErrMalformedCatalog)
	}

	out := make([]string, 0, len(node.Content))

	for _, item := range node.Content {
		if item.Kind == yaml.ScalarNode && item.Value != "" {
			out = append(out, item.Value)
		}
	}

	return out, nil
}
