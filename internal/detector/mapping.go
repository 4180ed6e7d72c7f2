package detector

import (
	"fmt"

	"github.com/Sumatoshi-tech/wraphound/internal/cast"
)

// Base structural scores per accepted body shape.
const (
	baseSingleCallReturn = 0.9
	baseSingleCallVoid   = 0.85
	baseTolerated        = 0.7
	baseRelaxed          = 0.6
)

// Confidence adjustments for argument-mapping deviations.
const (
	fullProxyBonus   = 0.1
	permutedPenalty  = 0.05
	droppedPenalty   = 0.05
	injectedPenalty  = 0.03
	guardPenalty     = 0.05
	minimumConfident = 0.05
)

// Mapping describes how the wrapper's formal parameters reach the callee.
type Mapping struct {
	// FullProxy is true when every parameter passes through unmodified, in
	// order, with nothing dropped or injected.
	FullProxy bool `json:"full_proxy"`
	// Passed counts parameters forwarded unmodified in their original order.
	Passed int `json:"passed"`
	// Permuted counts parameters forwarded unmodified but out of order.
	Permuted int `json:"permuted"`
	// Dropped counts parameters that never reach the callee.
	Dropped int `json:"dropped"`
	// Injected counts callee arguments not taken from wrapper parameters
	// (literals and derived expressions).
	Injected int `json:"injected"`
}

// String renders the descriptor for report rows.
func (m Mapping) String() string {
	if m.FullProxy {
		return "full-proxy"
	}

	return fmt.Sprintf("passed=%d permuted=%d dropped=%d injected=%d",
		m.Passed, m.Permuted, m.Dropped, m.Injected)
}

// mapArguments computes the argument-mapping descriptor for one call site.
//
// A variadic wrapper whose named parameters all pass through in order counts
// as a full proxy: the trailing variadic arguments are assumed forwarded.
func mapArguments(fn *cast.FunctionRecord, site *cast.CallSite) Mapping {
	var m Mapping

	used := make(map[int]bool, len(fn.Params))

	// Position among param-referencing arguments, used to tell in-order
	// pass-through from permutation.
	next := 0

	for _, arg := range site.Args {
		switch arg.Kind {
		case cast.ArgParam:
			used[arg.ParamIndex] = true

			if arg.ParamIndex == next {
				m.Passed++
				next = arg.ParamIndex + 1
			} else {
				m.Permuted++
			}
		case cast.ArgLiteral, cast.ArgOther:
			m.Injected++
		}
	}

	for i := range fn.Params {
		if !used[i] {
			m.Dropped++
		}
	}

	m.FullProxy = m.Permuted == 0 && m.Dropped == 0 && m.Injected == 0 &&
		m.Passed == len(fn.Params)

	// Variadic forwarding: when every named parameter passes through in
	// order, the trailing argument expressions stand in for the wrapper's
	// own variadic arguments and do not break the proxy.
	if fn.Variadic && !m.FullProxy &&
		m.Permuted == 0 && m.Dropped == 0 && m.Passed == len(fn.Params) {
		m.FullProxy = true
		m.Injected = 0
	}

	return m
}

// confidence combines the base shape score with mapping deviations. Deviations
// lower the score but never disqualify: wrapping a primitive with validation
// or argument translation still makes a wrapper.
func confidence(base float64, m Mapping, guarded bool) float64 {
	score := base

	if m.FullProxy {
		score += fullProxyBonus
	}

	score -= permutedPenalty * float64(m.Permuted)
	score -= droppedPenalty * float64(m.Dropped)
	score -= injectedPenalty * float64(m.Injected)

	if guarded {
		score -= guardPenalty
	}

	if score > 1 {
		score = 1
	}

	if score < minimumConfident {
		score = minimumConfident
	}

	return score
}
