// Package detector classifies flattened function records as wrapper
// candidates.
//
// Classification is purely structural: body shape and argument mapping decide
// the outcome, never any lexical similarity between the wrapper's name and the
// callee's. Name similarity belongs to the matcher.
package detector

import (
	"regexp"
	"sort"

	"github.com/Sumatoshi-tech/wraphound/internal/cast"
)

// Mode selects the detection policy.
type Mode string

// Detection modes.
const (
	// ModeStrict accepts only single-forwarding-call body shapes.
	ModeStrict Mode = "strict"
	// ModeRelaxed accepts any body forwarding to exactly one distinct callee,
	// trading precision for recall.
	ModeRelaxed Mode = "relaxed"
)

// DefaultStatementTolerance is the number of body statements a strict-mode
// candidate may have beyond the single-call shapes.
const DefaultStatementTolerance = 1

// Options configure a detection pass.
type Options struct {
	Mode Mode

	// StatementTolerance caps body statements for strict-mode candidates
	// whose shape is not one of the single-call forms. Guards and helper
	// calls are discounted before comparing against it.
	StatementTolerance int

	// IsHelper reports whether a callee name is a benign helper (logging,
	// tracing) whose calls are ignored when counting forwarding calls.
	// Nil means no helpers.
	IsHelper func(name string) bool
}

func (o Options) normalized() Options {
	if o.Mode == "" {
		o.Mode = ModeStrict
	}

	if o.StatementTolerance <= 0 {
		o.StatementTolerance = DefaultStatementTolerance
	}

	if o.IsHelper == nil {
		o.IsHelper = func(string) bool { return false }
	}

	return o
}

// Candidate is one detected wrapper observation.
type Candidate struct {
	// Wrapper is the wrapping function's name.
	Wrapper string `json:"wrapper"`
	// File is the defining source file.
	File string `json:"file"`
	// Line is the wrapper definition line.
	Line int `json:"line,omitempty"`
	// Target is the forwarded-to callee name, after syscall resolution.
	Target string `json:"target"`
	// Mapping describes how wrapper parameters reach the callee.
	Mapping Mapping `json:"mapping"`
	// Confidence is the structural confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// sysIndirection matches SYS_/__NR_ selectors in syscall(2) invocations.
var sysIndirection = regexp.MustCompile(`(?:SYS|__NR)_(\w+)`)

// syscallCallee is the libc indirection entry point.
const syscallCallee = "syscall"

// Detect classifies every function of a parsed unit and returns the wrapper
// candidates found. Each record is judged solely on its own body; results do
// not depend on other functions in the unit.
func Detect(unit *cast.ParsedUnit, opts Options) []Candidate {
	opts = opts.normalized()

	var out []Candidate

	for i := range unit.Functions {
		if cand, ok := classify(&unit.Functions[i], opts); ok {
			out = append(out, cand)
		}
	}

	sortCandidates(out)

	return out
}

// classify applies the body-shape policy to one function record.
func classify(fn *cast.FunctionRecord, opts Options) (Candidate, bool) {
	if fn.Shape == cast.ShapeEmpty || len(fn.Calls) == 0 {
		return Candidate{}, false
	}

	forwarding := forwardingCalls(fn, opts)
	if len(forwarding) == 0 {
		return Candidate{}, false
	}

	var (
		site *cast.CallSite
		base float64
	)

	switch opts.Mode {
	case ModeRelaxed:
		site, base = acceptRelaxed(fn, forwarding)
	default:
		site, base = acceptStrict(fn, forwarding, opts)
	}

	if site == nil {
		return Candidate{}, false
	}

	target := resolveTarget(site)
	if target == "" || target == fn.Name {
		// Unresolvable callee, or recursion: not a wrapper.
		return Candidate{}, false
	}

	mapping := mapArguments(fn, site)

	return Candidate{
		Wrapper:    fn.Name,
		File:       fn.File,
		Line:       fn.Line,
		Target:     target,
		Mapping:    mapping,
		Confidence: confidence(base, mapping, fn.GuardReturn),
	}, true
}

// forwardingCalls filters out helper calls and nested calls that target the
// function itself through obviously non-forwarding positions.
func forwardingCalls(fn *cast.FunctionRecord, opts Options) []*cast.CallSite {
	out := make([]*cast.CallSite, 0, len(fn.Calls))

	for i := range fn.Calls {
		if opts.IsHelper(fn.Calls[i].Callee) {
			continue
		}

		out = append(out, &fn.Calls[i])
	}

	return out
}

// acceptStrict implements the single-call body-shape policy. The returned
// base score reflects how cleanly the body matches a forwarding shape.
func acceptStrict(fn *cast.FunctionRecord, forwarding []*cast.CallSite, opts Options) (*cast.CallSite, float64) {
	if len(forwarding) != 1 {
		return nil, 0
	}

	switch fn.Shape {
	case cast.ShapeSingleCallReturn:
		return forwarding[0], baseSingleCallReturn
	case cast.ShapeSingleCallVoid:
		return forwarding[0], baseSingleCallVoid
	case cast.ShapeMultiStatement, cast.ShapeOther:
		if effectiveStatements(fn, opts) <= opts.StatementTolerance {
			return forwarding[0], baseTolerated
		}

		return nil, 0
	default:
		return nil, 0
	}
}

// acceptRelaxed admits any body whose forwarding calls all reach one distinct
// callee, covering retry loops and switch dispatch over one primitive.
func acceptRelaxed(fn *cast.FunctionRecord, forwarding []*cast.CallSite) (*cast.CallSite, float64) {
	first := forwarding[0]

	for _, site := range forwarding[1:] {
		if site.Callee != first.Callee {
			return nil, 0
		}
	}

	switch fn.Shape {
	case cast.ShapeSingleCallReturn:
		return first, baseSingleCallReturn
	case cast.ShapeSingleCallVoid:
		return first, baseSingleCallVoid
	default:
		return first, baseRelaxed
	}
}

// effectiveStatements discounts the guard statement and helper-call
// statements from the body statement count.
func effectiveStatements(fn *cast.FunctionRecord, opts Options) int {
	n := fn.Statements

	if fn.GuardReturn {
		n--
	}

	for i := range fn.Calls {
		if opts.IsHelper(fn.Calls[i].Callee) {
			n--
		}
	}

	if n < 0 {
		return 0
	}

	return n
}

// resolveTarget returns the callee name, resolving syscall(SYS_x, ...)
// indirection to the underlying primitive name.
func resolveTarget(site *cast.CallSite) string {
	if site.Callee != syscallCallee || len(site.Args) == 0 {
		return site.Callee
	}

	m := sysIndirection.FindStringSubmatch(site.Args[0].Text)
	if m == nil {
		return site.Callee
	}

	return m[1]
}

// sortCandidates orders candidates deterministically for per-unit output:
// by wrapper name, then target.
func sortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Wrapper != cands[j].Wrapper {
			return cands[i].Wrapper < cands[j].Wrapper
		}

		return cands[i].Target < cands[j].Target
	})
}
