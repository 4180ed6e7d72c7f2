package cast

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/alexaandru/go-sitter-forest/c"
	"github.com/alexaandru/go-sitter-forest/cpp"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Sentinel errors for the tree-sitter provider.
var (
	errUnsupportedLanguage = errors.New("unsupported language")
	errNoRootNode          = errors.New("parse produced no root node")
	errPoolType            = errors.New("parser pool returned unexpected type")
)

// Grammar names accepted by SitterProvider.
const (
	LanguageC   = "c"
	LanguageCPP = "cpp"
)

// SitterProvider parses C and C++ sources with tree-sitter grammars.
// Safe for concurrent use; parsers are pooled per language.
type SitterProvider struct {
	pools map[string]*sync.Pool
}

// NewSitterProvider creates a provider with the C and C++ grammars registered.
func NewSitterProvider() *SitterProvider {
	langC := sitter.NewLanguage(c.GetLanguage())
	langCPP := sitter.NewLanguage(cpp.GetLanguage())

	pool := func(lang *sitter.Language) *sync.Pool {
		return &sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		}
	}

	return &SitterProvider{
		pools: map[string]*sync.Pool{
			LanguageC:   pool(langC),
			LanguageCPP: pool(langCPP),
		},
	}
}

// Supports reports whether the provider has a grammar for the language.
func (p *SitterProvider) Supports(language string) bool {
	_, ok := p.pools[language]

	return ok
}

// Parse reads and parses one translation unit into flat function records.
func (p *SitterProvider) Parse(ctx context.Context, unit Unit) (*ParsedUnit, error) {
	pool, ok := p.pools[unit.Language]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnsupportedLanguage, unit.Language)
	}

	content, readErr := os.ReadFile(unit.Source)
	if readErr != nil {
		return nil, fmt.Errorf("read source: %w", readErr)
	}

	tsParser, castOK := pool.Get().(*sitter.Parser)
	if !castOK {
		return nil, errPoolType
	}
	defer pool.Put(tsParser)

	tree, parseErr := tsParser.ParseString(ctx, nil, content)
	if parseErr != nil {
		return nil, fmt.Errorf("parse %s: %w", unit.Source, parseErr)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	ex := &extractor{source: content, file: unit.Source}

	parsed := &ParsedUnit{Source: unit.Source, Language: unit.Language}

	ex.definitions(root, &parsed.Functions)

	return parsed, nil
}
