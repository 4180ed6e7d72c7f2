// Package compiledb loads Clang-style compilation databases
// (compile_commands.json) and turns their entries into parse units.
//
// Entries are validated against an embedded JSON schema before decoding, so
// a malformed database fails fast with a pointed diagnostic instead of a
// half-loaded unit list.
package compiledb

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/wraphound/internal/cast"
)

//go:embed schema/compile_commands_schema.json
var schemaBytes []byte

var (
	// ErrInvalidDatabase reports a compile_commands.json that fails schema
	// validation.
	ErrInvalidDatabase = errors.New("compiledb: invalid compilation database")

	// ErrBadPathMap reports a path mapping not of the form old=new.
	ErrBadPathMap = errors.New("compiledb: path map must be old=new")
)

// Entry is one record of a compilation database.
type Entry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Command   string   `json:"command,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
	Output    string   `json:"output,omitempty"`
}

// Load reads and validates a compilation database.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compiledb: read %s: %w", path, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDatabase, path, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			details = append(details, verr.String())
		}

		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidDatabase, path, strings.Join(details, "; "))
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDatabase, path, err)
	}

	return entries, nil
}

// PathMap rewrites a path prefix, for databases produced on another machine.
type PathMap struct {
	Old string
	New string
}

// ParsePathMaps parses old=new pairs.
func ParsePathMaps(specs []string) ([]PathMap, error) {
	maps := make([]PathMap, 0, len(specs))

	for _, s := range specs {
		old, replacement, ok := strings.Cut(s, "=")
		if !ok || old == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadPathMap, s)
		}

		maps = append(maps, PathMap{Old: old, New: replacement})
	}

	return maps, nil
}

func remap(path string, maps []PathMap) string {
	for _, m := range maps {
		if strings.HasPrefix(path, m.Old) {
			return m.New + strings.TrimPrefix(path, m.Old)
		}
	}

	return path
}

// Units converts database entries into parse units. Entries whose source is
// not C or C++, or that sit under a vendored directory, are skipped. The
// returned units carry absolute source paths and sanitized compiler
// arguments.
func Units(entries []Entry, maps []PathMap) []cast.Unit {
	units := make([]cast.Unit, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		dir := remap(entry.Directory, maps)

		source := remap(entry.File, maps)
		if !filepath.IsAbs(source) {
			source = filepath.Join(dir, source)
		}

		source = filepath.Clean(source)
		if _, dup := seen[source]; dup {
			continue
		}

		if enry.IsVendor(source) {
			continue
		}

		language, ok := languageOf(source)
		if !ok {
			continue
		}

		seen[source] = struct{}{}

		units = append(units, cast.Unit{
			Source:   source,
			Dir:      dir,
			Args:     SanitizeArgs(expandResponseFiles(entry.args(), dir), dir),
			Language: language,
		})
	}

	return units
}

// languageOf classifies the source by extension and maps it onto the parser
// language names. Headers count as C so header-defined wrappers are seen.
func languageOf(path string) (string, bool) {
	switch enry.GetLanguage(filepath.Base(path), nil) {
	case "C":
		return cast.LanguageC, true
	case "C++":
		return cast.LanguageCPP, true
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".c", ".h":
		return cast.LanguageC, true
	case ".cc", ".cpp", ".cxx", ".hpp", ".hh", ".hxx":
		return cast.LanguageCPP, true
	}

	return "", false
}

func (e Entry) args() []string {
	if len(e.Arguments) > 0 {
		return e.Arguments
	}

	return SplitCommand(e.Command)
}

// SplitCommand breaks a shell command string into argv, honoring single and
// double quotes and backslash escapes. It does not expand variables or
// globs; compilation databases record literal argv values.
func SplitCommand(command string) []string {
	var (
		args    []string
		current strings.Builder
		quote   rune
		escaped bool
		pending bool
	)

	flush := func() {
		if pending {
			args = append(args, current.String())
			current.Reset()

			pending = false
		}
	}

	for _, r := range command {
		switch {
		case escaped:
			current.WriteRune(r)

			escaped = false
			pending = true
		case r == '\\' && quote != '\'':
			escaped = true
			pending = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			pending = true
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			current.WriteRune(r)

			pending = true
		}
	}

	flush()

	return args
}

// expandResponseFiles inlines @file arguments, which CMake and ninja emit
// when a command line would exceed the OS limit. The file holds further
// arguments in shell-quoted form. An unreadable response file is kept
// verbatim; sanitizing drops it as an unknown flagless argument.
func expandResponseFiles(args []string, dir string) []string {
	expanded := false

	for _, arg := range args {
		if strings.HasPrefix(arg, "@") && len(arg) > 1 {
			expanded = true

			break
		}
	}

	if !expanded {
		return args
	}

	out := make([]string, 0, len(args))

	for _, arg := range args {
		if !strings.HasPrefix(arg, "@") || len(arg) == 1 {
			out = append(out, arg)

			continue
		}

		path := arg[1:]
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			out = append(out, arg)

			continue
		}

		out = append(out, SplitCommand(string(data))...)
	}

	return out
}

// Flags that take their value as the following argument and should be
// dropped together with it.
var dropWithValue = map[string]struct{}{
	"-o":  {},
	"-MF": {},
	"-MT": {},
	"-MQ": {},
}

// Include-path flags whose value must be absolutized against the entry's
// working directory, since the parser runs from somewhere else.
var includeFlags = map[string]struct{}{
	"-I":         {},
	"-isystem":   {},
	"-iquote":    {},
	"-idirafter": {},
	"-include":   {},
}

// SanitizeArgs strips the compiler argv down to what parsing needs: include
// paths (absolutized), macro definitions, and language-standard flags.
// Output, dependency-generation, warning, and optimization flags are
// dropped, as is the compiler executable itself and the source file.
func SanitizeArgs(args []string, dir string) []string {
	if len(args) == 0 {
		return nil
	}

	// args[0] is the compiler.
	args = args[1:]

	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if _, drop := dropWithValue[arg]; drop {
			i++

			continue
		}

		if flag, value, ok := splitIncludeFlag(arg); ok {
			if value == "" {
				if i+1 < len(args) {
					i++
					value = args[i]
				} else {
					continue
				}
			}

			if !filepath.IsAbs(value) {
				value = filepath.Join(dir, value)
			}

			out = append(out, flag+value)

			continue
		}

		switch {
		case arg == "-c" || arg == "-S" || arg == "-E" || arg == "-g" || arg == "-MD" || arg == "-MMD" || arg == "-MP":
		case strings.HasPrefix(arg, "-W"):
		case strings.HasPrefix(arg, "-O"):
		case strings.HasPrefix(arg, "-D") || strings.HasPrefix(arg, "-U"):
			out = append(out, arg)
		case strings.HasPrefix(arg, "-std="):
			out = append(out, arg)
		case strings.HasPrefix(arg, "-f"):
			out = append(out, arg)
		case strings.HasPrefix(arg, "-"):
		default:
			// Positional argument: the source file itself. Skip.
		}
	}

	return out
}

func splitIncludeFlag(arg string) (flag, value string, ok bool) {
	for f := range includeFlags {
		if arg == f {
			return f, "", true
		}

		if strings.HasPrefix(arg, f) && f != "-include" {
			return f, strings.TrimPrefix(arg, f), true
		}
	}

	return "", "", false
}
