package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameDetect = "wraphound_detect"
	ToolNameScan   = "wraphound_scan"
)

// Input size limits.
const (
	// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
	MaxCodeInputBytes = 1 << 20
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyCode indicates the code parameter is empty.
	ErrEmptyCode = errors.New("code parameter is required and must not be empty")
	// ErrCodeTooLarge indicates the code input exceeds the size limit.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
	// ErrUnsupportedLanguage indicates the language is not c or cpp.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrEmptyCompDB indicates the compdb_path parameter is empty.
	ErrEmptyCompDB = errors.New("compdb_path parameter is required and must not be empty")
	// ErrEmptyCatalog indicates the catalog_path parameter is empty.
	ErrEmptyCatalog = errors.New("catalog_path parameter is required and must not be empty")
)

// Input types (auto-generate JSON schemas via struct tags).

// DetectInput is the input schema for the wraphound_detect tool.
type DetectInput struct {
	Code      string `json:"code"                jsonschema:"C or C++ source code to scan for wrapper functions"`
	Language  string `json:"language,omitempty"  jsonschema:"source language, c or cpp (default: c)"`
	Mode      string `json:"mode,omitempty"      jsonschema:"detection mode, strict or relaxed (default: strict)"`
	Tolerance int    `json:"tolerance,omitempty" jsonschema:"extra non-forwarding statements tolerated per body (default: 1)"`
}

// ScanInput is the input schema for the wraphound_scan tool.
type ScanInput struct {
	CompDBPath    string  `json:"compdb_path"              jsonschema:"absolute path to a compile_commands.json"`
	CatalogPath   string  `json:"catalog_path"             jsonschema:"absolute path to the primitive catalog YAML"`
	Threshold     float64 `json:"threshold,omitempty"      jsonschema:"minimum name similarity for a match in [0,1] (default: 0.6)"`
	Mode          string  `json:"mode,omitempty"           jsonschema:"detection mode, strict or relaxed (default: strict)"`
	ShowUnmatched bool    `json:"show_unmatched,omitempty" jsonschema:"include below-threshold candidates in the output"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateCodeInput checks common code input constraints.
func validateCodeInput(code string) error {
	if code == "" {
		return ErrEmptyCode
	}

	if len(code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	return nil
}
