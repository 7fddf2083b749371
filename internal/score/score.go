// Package score judges a submitted output structure against a task's
// expected output under its tolerance specification. Scoring is a pure
// function over its three inputs: it never executes or interprets submitted
// content beyond structural comparison, and it never panics on garbage —
// the benchmark must not crash because an agent produced nonsense.
package score

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"reprobench/internal/dataset"
)

// unknownSentinel is the explicit "no answer" marker a submission may carry
// at a leaf. It fails the leaf the same way an absent path does.
const unknownSentinel = "unknown"

// LeafVerdict records pass/fail and the observed deviation for one leaf
// path of the expected output.
type LeafVerdict struct {
	Path      string `json:"path"`
	Passed    bool   `json:"passed"`
	Expected  any    `json:"expected"`
	Submitted any    `json:"submitted,omitempty"`
	// Deviation is |submitted - expected|, recorded only when both sides
	// were numeric and finite (DeviationKnown).
	Deviation      float64 `json:"deviation,omitempty"`
	DeviationKnown bool    `json:"deviation_known,omitempty"`
	Reason         string  `json:"reason,omitempty"`
}

// Verdict is the per-task scoring result. The task passes only if every
// leaf passes; there is no partial credit at the container level, though
// the per-leaf detail is retained for diagnostics.
type Verdict struct {
	Passed bool          `json:"passed"`
	Leaves []LeafVerdict `json:"leaves"`
}

// Score compares submitted against expected under tolerance, leaf by leaf in
// lock-step recursion.
func Score(expected, tolerance, submitted any) Verdict {
	var leaves []LeafVerdict
	walk("", expected, tolerance, submitted, true, &leaves)

	passed := true
	for _, lv := range leaves {
		if !lv.Passed {
			passed = false
			break
		}
	}
	return Verdict{Passed: passed, Leaves: leaves}
}

// ScoreTask scores a submission against one task.
func ScoreTask(t *dataset.Task, submitted any) Verdict {
	return Score(t.ExpectedOutput, t.Tolerance, submitted)
}

func walk(path string, expected, tolerance, submitted any, present bool, leaves *[]LeafVerdict) {
	switch exp := expected.(type) {
	case []any:
		tol, ok := tolerance.([]any)
		if !ok || len(tol) != len(exp) {
			*leaves = append(*leaves, LeafVerdict{
				Path: path, Expected: exp,
				Reason: "tolerance shape does not match expected output",
			})
			return
		}
		sub, subOK := submitted.([]any)
		for i := range exp {
			childSub := any(nil)
			childPresent := false
			if present && subOK && i < len(sub) {
				childSub = sub[i]
				childPresent = true
			}
			walk(fmt.Sprintf("%s[%d]", path, i), exp[i], tol[i], childSub, childPresent, leaves)
		}

	case map[string]any:
		tol, ok := tolerance.(map[string]any)
		if !ok {
			*leaves = append(*leaves, LeafVerdict{
				Path: path, Expected: exp,
				Reason: "tolerance shape does not match expected output",
			})
			return
		}
		sub, subOK := submitted.(map[string]any)

		keys := make([]string, 0, len(exp))
		for k := range exp {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}
			childTol, tolOK := tol[k]
			if !tolOK {
				*leaves = append(*leaves, LeafVerdict{
					Path: childPath, Expected: exp[k],
					Reason: "no tolerance for this leaf",
				})
				continue
			}
			childSub := any(nil)
			childPresent := false
			if present && subOK {
				childSub, childPresent = sub[k]
			}
			walk(childPath, exp[k], childTol, childSub, childPresent, leaves)
		}

	default:
		*leaves = append(*leaves, scoreLeaf(path, expected, tolerance, submitted, present))
	}
}

func scoreLeaf(path string, expected, tolerance, submitted any, present bool) LeafVerdict {
	lv := LeafVerdict{Path: path, Expected: expected, Submitted: submitted}

	spec, ok := dataset.AsLeafSpec(tolerance)
	if !ok {
		lv.Reason = "malformed tolerance leaf"
		return lv
	}

	// An absent path or an explicit "unknown" never turns into a lucky pass.
	if !present || submitted == nil || submitted == unknownSentinel {
		lv.Submitted = nil
		lv.Reason = "no submitted value"
		return lv
	}

	if spec.Match != nil {
		for _, candidate := range spec.Match {
			if leafEqual(submitted, candidate) {
				lv.Passed = true
				return lv
			}
		}
		lv.Reason = "submitted value not in enumerated set"
		return lv
	}

	expF, ok := dataset.ToFloat(expected)
	if !ok {
		lv.Reason = "numeric tolerance on non-numeric expected value"
		return lv
	}
	subF, ok := dataset.ToFloat(submitted)
	if !ok {
		lv.Reason = "submitted value is not numeric"
		return lv
	}
	if math.IsNaN(subF) || math.IsInf(subF, 0) {
		lv.Reason = "submitted value is not finite"
		return lv
	}

	dev := math.Abs(subF - expF)
	lv.Deviation = dev
	lv.DeviationKnown = true

	if spec.Absolute != nil && dev <= *spec.Absolute {
		lv.Passed = true
		return lv
	}
	if spec.Relative != nil {
		// A relative bound around zero is vacuous; it must never pass on
		// its own, and the misconfiguration is reported rather than
		// silently ignored.
		if expF == 0 {
			if spec.Absolute == nil {
				lv.Reason = "relative tolerance with expected value 0 can never pass"
				return lv
			}
		} else if dev <= *spec.Relative*math.Abs(expF) {
			lv.Passed = true
			return lv
		}
	}
	lv.Reason = "outside tolerance"
	return lv
}

// leafEqual is exact equality for match-typed leaves: case-sensitive for
// strings, value equality for numbers regardless of concrete numeric type.
func leafEqual(a, b any) bool {
	af, aok := dataset.ToFloat(a)
	bf, bok := dataset.ToFloat(b)
	if aok || bok {
		return aok && bok && af == bf
	}
	return reflect.DeepEqual(a, b)
}
