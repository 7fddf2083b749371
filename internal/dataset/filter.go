package dataset

// Papers are filterable by attribute-equality only, over an enumerated set
// of attributes. A static accessor table keeps the lookup reflection-free;
// an unknown attribute name never matches rather than erroring, which keeps
// exploratory querying lenient.

var paperAttrs = map[string]func(*Paper) any{
	"paper_id":       func(p *Paper) any { return p.PaperID },
	"title":          func(p *Paper) any { return p.Title },
	"source":         func(p *Paper) any { return p.Source },
	"paper_link":     func(p *Paper) any { return p.PaperLink },
	"code_available": func(p *Paper) any { return p.CodeAvailable },
	"code_link":      func(p *Paper) any { return p.CodeLink },
}

// Attr returns the named filterable attribute, or false for unknown names.
func (p *Paper) Attr(name string) (any, bool) {
	get, ok := paperAttrs[name]
	if !ok {
		return nil, false
	}
	return get(p), true
}

// MatchesFilters reports whether every filter attribute equals the required
// value. An empty filter set matches everything.
func (p *Paper) MatchesFilters(filters map[string]any) bool {
	for name, want := range filters {
		got, ok := p.Attr(name)
		if !ok {
			return false
		}
		if !attrEqual(got, want) {
			return false
		}
	}
	return true
}

// attrEqual compares attribute values. All filterable attributes are strings
// or bools, but filter values arriving from decoded JSON or YAML may carry a
// different concrete numeric type, so numbers are compared as floats.
func attrEqual(got, want any) bool {
	if gf, ok := toFloat(got); ok {
		wf, ok := toFloat(want)
		return ok && gf == wf
	}
	return got == want
}
