package cast

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, name, src string) *ParsedUnit {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	lang := LanguageC
	if filepath.Ext(name) == ".cc" || filepath.Ext(name) == ".cpp" {
		lang = LanguageCPP
	}

	provider := NewSitterProvider()

	parsed, err := provider.Parse(context.Background(), Unit{Source: path, Language: lang})
	require.NoError(t, err)

	return parsed
}

func TestParseFullProxyWrapper(t *testing.T) {
	t.Parallel()

	parsed := parseSource(t, "w.c", `
int my_open(const char *p, int f) { return open(p, f); }
`)

	require.Len(t, parsed.Functions, 1)

	fn := parsed.Functions[0]
	assert.Equal(t, "my_open", fn.Name)
	assert.Equal(t, ShapeSingleCallReturn, fn.Shape)
	assert.True(t, fn.ReturnsCall)
	assert.Equal(t, 1, fn.Statements)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "p", fn.Params[0].Name)
	assert.Equal(t, "f", fn.Params[1].Name)

	require.Len(t, fn.Calls, 1)
	call := fn.Calls[0]
	assert.Equal(t, "open", call.Callee)
	require.Len(t, call.Args, 2)
	assert.Equal(t, ArgParam, call.Args[0].Kind)
	assert.Equal(t, 0, call.Args[0].ParamIndex)
	assert.Equal(t, ArgParam, call.Args[1].Kind)
	assert.Equal(t, 1, call.Args[1].ParamIndex)
}

func TestParseVoidWrapper(t *testing.T) {
	t.Parallel()

	parsed := parseSource(t, "v.c", `
void quit(int code) { _exit(code); }
`)

	require.Len(t, parsed.Functions, 1)

	fn := parsed.Functions[0]
	assert.Equal(t, ShapeSingleCallVoid, fn.Shape)
	assert.False(t, fn.ReturnsCall)
	require.Len(t, fn.Calls, 1)
	assert.Equal(t, "_exit", fn.Calls[0].Callee)
}

func TestParseEmptyBody(t *testing.T) {
	t.Parallel()

	parsed := parseSource(t, "e.c", `
void noop(void) {}
`)

	require.Len(t, parsed.Functions, 1)
	fn := parsed.Functions[0]
	assert.Equal(t, ShapeEmpty, fn.Shape)
	assert.Empty(t, fn.Calls)
	assert.Empty(t, fn.Params)
}

func TestParseMultiStatement(t *testing.T) {
	t.Parallel()

	parsed := parseSource(t, "m.c", `
int safe_close(int fd) {
	log_close(fd);
	return close(fd);
}
`)

	require.Len(t, parsed.Functions, 1)

	fn := parsed.Functions[0]
	assert.Equal(t, ShapeMultiStatement, fn.Shape)
	assert.Equal(t, 2, fn.Statements)
	require.Len(t, fn.Calls, 2)
	assert.Equal(t, "log_close", fn.Calls[0].Callee)
	assert.Equal(t, "close", fn.Calls[1].Callee)
}

func TestParseGuardReturn(t *testing.T) {
	t.Parallel()

	parsed := parseSource(t, "g.c", `
int checked_read(int fd, void *buf, unsigned long n) {
	if (buf == 0) return -1;
	return read(fd, buf, n);
}
`)

	require.Len(t, parsed.Functions, 1)

	fn := parsed.Functions[0]
	assert.True(t, fn.GuardReturn)
	assert.Equal(t, ShapeMultiStatement, fn.Shape)
	assert.Equal(t, 2, fn.Statements)
}

func TestParseVariadic(t *testing.T) {
	t.Parallel()

	parsed := parseSource(t, "va.c", `
int log_printf(const char *fmt, ...) { return vprintf(fmt, 0); }
`)

	require.Len(t, parsed.Functions, 1)
	assert.True(t, parsed.Functions[0].Variadic)
}

func TestParseDeclarationsNotCounted(t *testing.T) {
	t.Parallel()

	parsed := parseSource(t, "d.c", `
int wrap_dup(int fd) {
	int r = dup(fd);
	return r;
}
`)

	require.Len(t, parsed.Functions, 1)

	fn := parsed.Functions[0]
	// The declaration carries the call; one true statement remains.
	assert.Equal(t, 1, fn.Statements)
	require.Len(t, fn.Calls, 1)
	assert.Equal(t, "dup", fn.Calls[0].Callee)
}

func TestParseLiteralArguments(t *testing.T) {
	t.Parallel()

	parsed := parseSource(t, "l.c", `
int open_readonly(const char *p) { return open(p, 0); }
`)

	require.Len(t, parsed.Functions, 1)

	call := parsed.Functions[0].Calls[0]
	require.Len(t, call.Args, 2)
	assert.Equal(t, ArgParam, call.Args[0].Kind)
	assert.Equal(t, ArgLiteral, call.Args[1].Kind)
}

func TestParsePointerReturnType(t *testing.T) {
	t.Parallel()

	parsed := parseSource(t, "p.c", `
char *dup_str(const char *s) { return strdup(s); }
`)

	require.Len(t, parsed.Functions, 1)
	assert.Equal(t, "dup_str", parsed.Functions[0].Name)
}

func TestParseUnsupportedLanguage(t *testing.T) {
	t.Parallel()

	provider := NewSitterProvider()

	_, err := provider.Parse(context.Background(), Unit{Source: "x.rs", Language: "rust"})
	require.Error(t, err)
}

func TestParseMissingFile(t *testing.T) {
	t.Parallel()

	provider := NewSitterProvider()

	_, err := provider.Parse(context.Background(), Unit{
		Source:   filepath.Join(t.TempDir(), "missing.c"),
		Language: LanguageC,
	})
	require.Error(t, err)
}

func TestParseCPlusPlus(t *testing.T) {
	t.Parallel()

	parsed := parseSource(t, "w.cc", `
int my_close(int fd) { return close(fd); }
`)

	require.Len(t, parsed.Functions, 1)
	assert.Equal(t, "my_close", parsed.Functions[0].Name)
	assert.Equal(t, LanguageCPP, parsed.Language)
}

func TestParsePreprocGuardedDefinitions(t *testing.T) {
	t.Parallel()

	parsed := parseSource(t, "pp.c", `
#ifdef __linux__
int my_open(const char *p, int f) { return open(p, f); }
#else
int my_open(const char *p, int f) { return _open(p, f); }
#endif

#if DEBUG
void quit(int code) { _exit(code); }
#endif
`)

	require.Len(t, parsed.Functions, 3)

	assert.Equal(t, "my_open", parsed.Functions[0].Name)
	assert.Equal(t, "open", parsed.Functions[0].Calls[0].Callee)
	assert.Equal(t, "my_open", parsed.Functions[1].Name)
	assert.Equal(t, "_open", parsed.Functions[1].Calls[0].Callee)
	assert.Equal(t, "quit", parsed.Functions[2].Name)
	assert.Equal(t, ShapeSingleCallReturn, parsed.Functions[0].Shape)
}

func TestParseExternCDefinitions(t *testing.T) {
	t.Parallel()

	parsed := parseSource(t, "ec.cc", `
extern "C" {
int my_read(int fd, void *buf, unsigned long n) { return read(fd, buf, n); }
}

extern "C" int my_write(int fd, const void *buf, unsigned long n) { return write(fd, buf, n); }
`)

	require.Len(t, parsed.Functions, 2)
	assert.Equal(t, "my_read", parsed.Functions[0].Name)
	assert.Equal(t, "read", parsed.Functions[0].Calls[0].Callee)
	assert.Equal(t, "my_write", parsed.Functions[1].Name)
	assert.Equal(t, ShapeSingleCallReturn, parsed.Functions[1].Shape)
}

func TestParseNamespacedDefinitions(t *testing.T) {
	t.Parallel()

	parsed := parseSource(t, "ns.cc", `
namespace io {
namespace posix {
int my_close(int fd) { return close(fd); }
}
}
`)

	require.Len(t, parsed.Functions, 1)
	assert.Equal(t, "my_close", parsed.Functions[0].Name)
	assert.Equal(t, "close", parsed.Functions[0].Calls[0].Callee)
}
