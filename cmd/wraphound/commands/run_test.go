package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/wraphound/internal/matcher"
)

const sampleSource = `
#include <stddef.h>

int my_open(const char *path, int flags) {
    return open(path, flags);
}

void quit(int code) {
    _exit(code);
}

int helper_free(void *p) {
    free(p);
    return 0;
}

int not_a_wrapper(int x) {
    int a = x + 1;
    int b = a * 2;
    process(a);
    finish(b);
    return b;
}
`

const sampleCatalog = `
categories:
  file-io:
    - open
    - close
  process:
    - _exit
  memory:
    - free
    - malloc
`

// scaffold writes a source file, a compilation database, and a catalog into
// a temp dir and returns their paths.
func scaffold(t *testing.T) (compdbPath, catalogPath string) {
	t.Helper()

	dir := t.TempDir()

	sourcePath := filepath.Join(dir, "sample.c")
	require.NoError(t, os.WriteFile(sourcePath, []byte(sampleSource), 0o600))

	compdb := fmt.Sprintf(`[{"directory": %q, "file": "sample.c", "command": "cc -c sample.c"}]`, dir)
	compdbPath = filepath.Join(dir, "compile_commands.json")
	require.NoError(t, os.WriteFile(compdbPath, []byte(compdb), 0o600))

	catalogPath = filepath.Join(dir, "primitives.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(sampleCatalog), 0o600))

	return compdbPath, catalogPath
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer

	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()

	return outBuf.String(), errBuf.String(), err
}

func TestRunCommandEndToEnd(t *testing.T) {
	t.Parallel()

	compdbPath, catalogPath := scaffold(t)

	emptyCfg := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(emptyCfg, []byte(""), 0o600))

	stdout, _, err := execute(t, NewRunCommand(),
		compdbPath,
		"--config", emptyCfg,
		"--catalog", catalogPath,
		"--format", "json",
		"--threshold", "0.5",
	)
	require.NoError(t, err)

	var rows []matcher.Match

	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.NotEmpty(t, rows)

	byWrapper := make(map[string]matcher.Match, len(rows))
	for _, row := range rows {
		byWrapper[row.Wrapper] = row
	}

	open, ok := byWrapper["my_open"]
	require.True(t, ok)
	assert.Equal(t, "open", open.Target)
	assert.Equal(t, "file-io", open.Category)
	assert.True(t, open.Mapping.FullProxy)
	assert.InDelta(t, 1.0, open.Score, 1e-9)

	quit, ok := byWrapper["quit"]
	require.True(t, ok)
	assert.Equal(t, "_exit", quit.Target)
	assert.Equal(t, "process", quit.Category)

	_, rejected := byWrapper["not_a_wrapper"]
	assert.False(t, rejected)
}

func TestRunCommandRequiresCatalog(t *testing.T) {
	t.Parallel()

	compdbPath, _ := scaffold(t)

	emptyCfg := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(emptyCfg, []byte(""), 0o600))

	_, _, err := execute(t, NewRunCommand(), compdbPath, "--config", emptyCfg)
	require.ErrorIs(t, err, ErrNoCatalog)
}

func TestRunCommandRejectsBadThreshold(t *testing.T) {
	t.Parallel()

	compdbPath, catalogPath := scaffold(t)

	emptyCfg := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(emptyCfg, []byte(""), 0o600))

	_, _, err := execute(t, NewRunCommand(),
		compdbPath,
		"--config", emptyCfg,
		"--catalog", catalogPath,
		"--threshold", "1.5",
	)
	require.Error(t, err)
}

func TestDetectThenMatchPipeline(t *testing.T) {
	t.Parallel()

	compdbPath, catalogPath := scaffold(t)

	emptyCfg := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(emptyCfg, []byte(""), 0o600))

	candidatesPath := filepath.Join(t.TempDir(), "candidates.jsonl.lz4")

	_, _, err := execute(t, NewDetectCommand(),
		compdbPath,
		"--config", emptyCfg,
		"--output", candidatesPath,
	)
	require.NoError(t, err)
	require.FileExists(t, candidatesPath)

	stdout, _, err := execute(t, NewMatchCommand(),
		candidatesPath,
		"--config", emptyCfg,
		"--catalog", catalogPath,
		"--format", "jsonl",
		"--threshold", "0.5",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"wrapper":"my_open"`)
	assert.Contains(t, stdout, `"target":"open"`)
}

func TestRunCommandTableSummary(t *testing.T) {
	t.Parallel()

	compdbPath, catalogPath := scaffold(t)

	emptyCfg := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(emptyCfg, []byte(""), 0o600))

	stdout, _, err := execute(t, NewRunCommand(),
		compdbPath,
		"--config", emptyCfg,
		"--catalog", catalogPath,
		"--no-color",
		"--threshold", "0.5",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "my_open")
	assert.Contains(t, stdout, "translation units")
}

func TestRunThenPlotPipeline(t *testing.T) {
	t.Parallel()

	compdbPath, catalogPath := scaffold(t)
	dir := t.TempDir()

	emptyCfg := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(emptyCfg, []byte(""), 0o600))

	stdout, _, err := execute(t, NewRunCommand(),
		compdbPath,
		"--config", emptyCfg,
		"--catalog", catalogPath,
		"--format", "jsonl",
		"--threshold", "0.5",
	)
	require.NoError(t, err)

	matchesPath := filepath.Join(dir, "matches.jsonl")
	require.NoError(t, os.WriteFile(matchesPath, []byte(stdout), 0o600))

	plotPath := filepath.Join(dir, "plot.html")

	_, _, err = execute(t, NewPlotCommand(), matchesPath, "-o", plotPath)
	require.NoError(t, err)

	html, err := os.ReadFile(plotPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Composite Score Distribution")
}
