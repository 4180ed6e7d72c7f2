package compiledb_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/wraphound/internal/compiledb"
)

func writeDB(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "compile_commands.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadValidDatabase(t *testing.T) {
	t.Parallel()

	path := writeDB(t, `[
  {"directory": "/src", "file": "a.c", "command": "cc -c a.c -o a.o"},
  {"directory": "/src", "file": "b.cpp", "arguments": ["c++", "-c", "b.cpp"]}
]`)

	entries, err := compiledb.Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/src", entries[0].Directory)
	assert.Equal(t, "a.c", entries[0].File)
	assert.Equal(t, []string{"c++", "-c", "b.cpp"}, entries[1].Arguments)
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "not an array", content: `{"directory": "/src"}`},
		{name: "missing file", content: `[{"directory": "/src", "command": "cc a.c"}]`},
		{name: "no command or arguments", content: `[{"directory": "/src", "file": "a.c"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := compiledb.Load(writeDB(t, tt.content))
			require.ErrorIs(t, err, compiledb.ErrInvalidDatabase)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := compiledb.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestSplitCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		command string
		want    []string
	}{
		{command: "cc -c a.c", want: []string{"cc", "-c", "a.c"}},
		{command: `cc -DNAME="quoted value" a.c`, want: []string{"cc", "-DNAME=quoted value", "a.c"}},
		{command: "cc -DX='single quoted' a.c", want: []string{"cc", "-DX=single quoted", "a.c"}},
		{command: `cc -DPATH=a\ b a.c`, want: []string{"cc", "-DPATH=a b", "a.c"}},
		{command: "  cc   a.c  ", want: []string{"cc", "a.c"}},
		{command: `cc ""`, want: []string{"cc", ""}},
		{command: "", want: nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, compiledb.SplitCommand(tt.command), "command %q", tt.command)
	}
}

func TestSanitizeArgs(t *testing.T) {
	t.Parallel()

	args := []string{
		"cc", "-c", "-o", "a.o", "-Wall", "-Wextra", "-O2", "-g",
		"-Iinclude", "-I", "/usr/local/include", "-isystem", "deps",
		"-DNDEBUG", "-UDEBUG", "-std=c11", "-fPIC",
		"-MD", "-MF", "a.d", "a.c",
	}

	got := compiledb.SanitizeArgs(args, "/src")

	assert.Equal(t, []string{
		"-I/src/include",
		"-I/usr/local/include",
		"-isystem/src/deps",
		"-DNDEBUG",
		"-UDEBUG",
		"-std=c11",
		"-fPIC",
	}, got)
}

func TestUnits(t *testing.T) {
	t.Parallel()

	entries := []compiledb.Entry{
		{Directory: "/src", File: "a.c", Command: "cc -c a.c"},
		{Directory: "/src", File: "sub/b.cpp", Arguments: []string{"c++", "-c", "sub/b.cpp"}},
		{Directory: "/src", File: "a.c", Command: "cc -c a.c -DDUP"},
		{Directory: "/src", File: "script.py", Command: "python script.py"},
		{Directory: "/src", File: "vendor/dep.c", Command: "cc -c vendor/dep.c"},
	}

	units := compiledb.Units(entries, nil)
	require.Len(t, units, 2)

	assert.Equal(t, "/src/a.c", units[0].Source)
	assert.Equal(t, "c", units[0].Language)
	assert.Equal(t, "/src/sub/b.cpp", units[1].Source)
	assert.Equal(t, "cpp", units[1].Language)
}

func TestUnitsExpandsResponseFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rsp := filepath.Join(dir, "args.rsp")
	require.NoError(t, os.WriteFile(rsp, []byte("-I include -DNDEBUG\n-std=c11"), 0o600))

	entries := []compiledb.Entry{
		{Directory: dir, File: "a.c", Arguments: []string{"cc", "@args.rsp", "-c", "a.c"}},
		{Directory: dir, File: "b.c", Arguments: []string{"cc", "@missing.rsp", "-c", "b.c"}},
	}

	units := compiledb.Units(entries, nil)
	require.Len(t, units, 2)

	assert.Equal(t, []string{"-I" + filepath.Join(dir, "include"), "-DNDEBUG", "-std=c11"}, units[0].Args)

	// An unreadable response file is dropped, not fatal.
	assert.Empty(t, units[1].Args)
}

func TestUnitsPathMap(t *testing.T) {
	t.Parallel()

	maps, err := compiledb.ParsePathMaps([]string{"/build=/src"})
	require.NoError(t, err)

	entries := []compiledb.Entry{
		{Directory: "/build", File: "/build/a.c", Command: "cc -c /build/a.c"},
	}

	units := compiledb.Units(entries, maps)
	require.Len(t, units, 1)
	assert.Equal(t, "/src/a.c", units[0].Source)
	assert.Equal(t, "/src", units[0].Dir)
}

func TestParsePathMapsRejectsBadSpec(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{"nomapping", "=new"} {
		_, err := compiledb.ParsePathMaps([]string{spec})
		require.ErrorIs(t, err, compiledb.ErrBadPathMap, "spec %q", spec)
	}
}
