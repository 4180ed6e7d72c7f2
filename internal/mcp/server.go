// Package mcp implements a Model Context Protocol server exposing wraphound
// detection and matching as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/wraphound/internal/cast"
	"github.com/Sumatoshi-tech/wraphound/internal/catalog"
	"github.com/Sumatoshi-tech/wraphound/internal/compiledb"
	"github.com/Sumatoshi-tech/wraphound/internal/detector"
	"github.com/Sumatoshi-tech/wraphound/internal/matcher"
	"github.com/Sumatoshi-tech/wraphound/internal/runner"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "wraphound"
	// serverVersion is the MCP server implementation version.
	serverVersion = "1.0.0"

	// toolCount is the expected number of registered tools.
	toolCount = 2
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger
}

// Server wraps the MCP SDK server with wraphound tool registrations.
type Server struct {
	inner *mcpsdk.Server
	mu    sync.RWMutex
	tools []string
}

// NewServer creates a new MCP server with all wraphound tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
		opts,
	)

	srv := &Server{
		inner: inner,
		tools: make([]string, 0, toolCount),
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	err := s.inner.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds all wraphound MCP tools to the server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameDetect,
		Description: "Detect wrapper functions in an inline C/C++ snippet and return the candidates with argument mappings and structural confidence.",
	}, handleDetect)
	s.trackTool(ToolNameDetect)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameScan,
		Description: "Scan a compilation database for wrapper functions and rank them against a primitive catalog.",
	}, handleScan)
	s.trackTool(ToolNameScan)
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// handleDetect processes wraphound_detect tool calls.
func handleDetect(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input DetectInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code)
	if err != nil {
		return errorResult(err)
	}

	language := input.Language
	if language == "" {
		language = cast.LanguageC
	}

	provider := cast.NewSitterProvider()
	if !provider.Supports(language) {
		return errorResult(fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language))
	}

	source, err := writeSnippet(input.Code, language)
	if err != nil {
		return errorResult(err)
	}
	defer os.Remove(source)

	parsed, err := provider.Parse(ctx, cast.Unit{Source: source, Language: language})
	if err != nil {
		return errorResult(fmt.Errorf("parse code: %w", err))
	}

	opts := detector.Options{Mode: detector.Mode(input.Mode)}
	if input.Tolerance > 0 {
		opts.StatementTolerance = input.Tolerance
	}

	return jsonResult(detector.Detect(parsed, opts))
}

// handleScan processes wraphound_scan tool calls.
func handleScan(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input ScanInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.CompDBPath == "" {
		return errorResult(ErrEmptyCompDB)
	}

	if input.CatalogPath == "" {
		return errorResult(ErrEmptyCatalog)
	}

	cat, err := catalog.Load(input.CatalogPath)
	if err != nil {
		return errorResult(fmt.Errorf("load catalog: %w", err))
	}

	entries, err := compiledb.Load(input.CompDBPath)
	if err != nil {
		return errorResult(fmt.Errorf("load compilation database: %w", err))
	}

	r := &runner.Runner{
		Provider: cast.NewSitterProvider(),
		Options: detector.Options{
			Mode:     detector.Mode(input.Mode),
			IsHelper: cat.Helpers.Match,
		},
	}

	result := r.Detect(ctx, compiledb.Units(entries, nil))

	threshold := input.Threshold
	if threshold == 0 {
		threshold = defaultThreshold
	}

	rows, err := matcher.Rank(result.Candidates, cat, matcher.Options{
		Threshold:     threshold,
		ShowUnmatched: input.ShowUnmatched,
	})
	if err != nil {
		return errorResult(fmt.Errorf("rank candidates: %w", err))
	}

	return jsonResult(scanOutput{
		Matches:  rows,
		Units:    result.Units,
		Failures: result.Failures,
	})
}

const defaultThreshold = 0.6

type scanOutput struct {
	Matches  []matcher.Match      `json:"matches"`
	Units    int                  `json:"units"`
	Failures []runner.UnitFailure `json:"failures,omitempty"`
}

// writeSnippet materializes inline code as a temp file for the provider,
// which parses from disk.
func writeSnippet(code, language string) (string, error) {
	ext := ".c"
	if language == cast.LanguageCPP {
		ext = ".cpp"
	}

	f, err := os.CreateTemp("", "wraphound-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := f.WriteString(code); err != nil {
		f.Close()
		os.Remove(f.Name())

		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())

		return "", fmt.Errorf("close temp file: %w", err)
	}

	return filepath.Clean(f.Name()), nil
}
