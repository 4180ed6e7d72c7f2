package matcher

import (
	"strings"
	"unicode"
)

// Default affixes stripped before scoring. C libraries hide the real entry
// point behind reserved-namespace prefixes and locking/implementation
// suffixes, so "__libc_open" and "open_impl" should both score against
// "open".
var (
	DefaultPrefixes = []string{"__", "_"}
	DefaultSuffixes = []string{"_impl", "_internal", "_locked", "_unlocked"}
)

// Affixes configures which name decorations Normalize removes.
type Affixes struct {
	Prefixes []string
	Suffixes []string
}

// DefaultAffixes returns the stock prefix/suffix lists.
func DefaultAffixes() Affixes {
	return Affixes{Prefixes: DefaultPrefixes, Suffixes: DefaultSuffixes}
}

// Normalize lowers the name, splits camelCase humps on underscores, and
// strips the configured affixes. The result is the canonical form both
// sides of a comparison are reduced to before any distance is computed.
func Normalize(name string, affixes Affixes) string {
	lowered := splitCamel(name)
	lowered = strings.ToLower(lowered)

	for _, p := range affixes.Prefixes {
		if trimmed := strings.TrimPrefix(lowered, p); trimmed != lowered && trimmed != "" {
			lowered = trimmed

			break
		}
	}

	for _, s := range affixes.Suffixes {
		if trimmed := strings.TrimSuffix(lowered, s); trimmed != lowered && trimmed != "" {
			lowered = trimmed

			break
		}
	}

	return lowered
}

// Tokenize splits a normalized name into its underscore-separated tokens.
func Tokenize(normalized string) []string {
	parts := strings.Split(normalized, "_")
	tokens := make([]string, 0, len(parts))

	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}

	return tokens
}

// splitCamel inserts an underscore before each lower-to-upper transition so
// camelCase and snake_case names normalize to the same token stream.
func splitCamel(name string) string {
	var b strings.Builder

	b.Grow(len(name) + 4)

	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteByte('_')
		}

		b.WriteRune(r)
	}

	return b.String()
}
