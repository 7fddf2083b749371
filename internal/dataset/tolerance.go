package dataset

// A tolerance specification mirrors the shape of the expected output it
// judges: containers mirror containers, and every scalar leaf is matched by
// exactly one leaf spec. A leaf spec is a JSON object carrying at least one
// of "absolute", "relative" (numeric bounds) or "match" (an enumerated set
// for categorical values), and nothing else.

// LeafSpec is one decoded tolerance leaf.
type LeafSpec struct {
	Absolute *float64
	Relative *float64
	Match    []any
}

// Numeric reports whether the spec carries a numeric bound.
func (s LeafSpec) Numeric() bool {
	return s.Absolute != nil || s.Relative != nil
}

// AsLeafSpec decodes v as a tolerance leaf spec. It returns false when v is
// not a JSON object, carries unknown keys, mixes match with numeric bounds,
// or carries no recognized key at all.
func AsLeafSpec(v any) (LeafSpec, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return LeafSpec{}, false
	}
	var spec LeafSpec
	for key, val := range m {
		switch key {
		case "absolute":
			f, ok := toFloat(val)
			if !ok {
				return LeafSpec{}, false
			}
			spec.Absolute = &f
		case "relative":
			f, ok := toFloat(val)
			if !ok {
				return LeafSpec{}, false
			}
			spec.Relative = &f
		case "match":
			set, ok := val.([]any)
			if !ok {
				return LeafSpec{}, false
			}
			spec.Match = set
		default:
			return LeafSpec{}, false
		}
	}
	if spec.Match != nil && spec.Numeric() {
		return LeafSpec{}, false
	}
	return spec, true
}

// ValidateTolerance checks that tolerance is structurally congruent with
// expected at every leaf: scalars require a leaf spec, sequences require a
// sequence of equal length with pointwise-valid sub-tolerances, and mappings
// require an identical key set. It never returns an error — any mismatch is
// simply false — so the loader can log and continue instead of aborting a
// corpus over one malformed file.
func ValidateTolerance(expected, tolerance any) bool {
	switch exp := expected.(type) {
	case []any:
		tol, ok := tolerance.([]any)
		if !ok || len(tol) != len(exp) {
			return false
		}
		for i := range exp {
			if !ValidateTolerance(exp[i], tol[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		tol, ok := tolerance.(map[string]any)
		if !ok || len(tol) != len(exp) {
			return false
		}
		for key, expVal := range exp {
			tolVal, ok := tol[key]
			if !ok {
				return false
			}
			if !ValidateTolerance(expVal, tolVal) {
				return false
			}
		}
		return true
	default:
		_, ok := AsLeafSpec(tolerance)
		return ok
	}
}

// toFloat coerces the numeric representations JSON decoding and direct
// construction can produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// ToFloat is toFloat for sibling packages that score numeric leaves.
func ToFloat(v any) (float64, bool) {
	return toFloat(v)
}
