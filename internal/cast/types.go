// Package cast gives the wrapper detector a flat, toolchain-neutral view of a
// compiled translation unit: function definitions, their parameters, and the
// call expressions inside their bodies.
//
// The detector never touches a syntax tree directly. A Provider walks the
// concrete tree once and emits FunctionRecord values; classification runs as
// pure functions over those records so the parsing toolchain stays swappable.
package cast

import "context"

// Unit identifies one translation unit to parse.
type Unit struct {
	// Source is the absolute source file path.
	Source string
	// Dir is the build working directory from the compilation database.
	Dir string
	// Args are the sanitized compiler arguments. Kept for providers that
	// need include paths or dialect flags; the tree-sitter provider parses
	// the raw source and ignores them.
	Args []string
	// Language selects the grammar: "c" or "cpp".
	Language string
}

// BodyShape classifies the statement structure of a function body.
type BodyShape string

// Body shape descriptors.
const (
	ShapeSingleCallReturn BodyShape = "single-call-return"
	ShapeSingleCallVoid   BodyShape = "single-call-void"
	ShapeMultiStatement   BodyShape = "multi-statement"
	ShapeEmpty            BodyShape = "empty"
	ShapeOther            BodyShape = "other"
)

// Param is one formal parameter of a function definition.
type Param struct {
	Name string
	Type string
}

// ArgKind classifies a call argument expression.
type ArgKind int

// Argument descriptor kinds.
const (
	// ArgParam is a bare reference to one of the enclosing function's parameters.
	ArgParam ArgKind = iota
	// ArgLiteral is a numeric, string, or character literal.
	ArgLiteral
	// ArgOther is any other expression (derived values, globals, calls).
	ArgOther
)

// Arg describes one argument at a call site.
type Arg struct {
	Kind ArgKind
	// ParamIndex is the referenced parameter's position when Kind is ArgParam,
	// -1 otherwise.
	ParamIndex int
	// Text is the argument source text, used for syscall number resolution.
	Text string
}

// CallSite is one call expression found inside a function body.
type CallSite struct {
	Callee string
	Args   []Arg
	Line   int
	Column int
}

// FunctionRecord is the flat extraction of one function definition.
// Immutable once extracted.
type FunctionRecord struct {
	Name   string
	File   string
	Params []Param
	// Variadic is true when the parameter list ends with "...".
	Variadic bool
	Shape    BodyShape
	// Statements counts top-level body statements, declarations excluded.
	Statements int
	// GuardReturn is true when the body opens with an if statement whose
	// branch immediately returns.
	GuardReturn bool
	// ReturnsCall is true when the single call's result is returned directly.
	ReturnsCall bool
	Calls       []CallSite
	Line        int
}

// ParsedUnit is the extraction result for one translation unit.
type ParsedUnit struct {
	Source    string
	Language  string
	Functions []FunctionRecord
}

// Provider parses translation units into flat records.
type Provider interface {
	Parse(ctx context.Context, unit Unit) (*ParsedUnit, error)
}
