package libsweep

import (
	"regexp"
	"strings"
)

// Filter selects experiments by name. The pattern is split at unbracketed
// slashes; an experiment matches if its name matches every part.
type Filter struct {
	parts   []*regexp.Regexp
	pattern string
}

// ParseFilter compiles a filter. The empty pattern matches everything.
// Matching is case-insensitive.
func ParseFilter(p string) (Filter, error) {
	f := Filter{pattern: p}
	if strings.TrimSpace(p) == "" {
		return f, nil
	}
	for _, part := range splitRegexp(p) {
		if part == "" {
			continue
		}
		re, err := regexp.Compile("(?i:" + part + ")")
		if err != nil {
			return Filter{}, err
		}
		f.parts = append(f.parts, re)
	}
	return f, nil
}

func (f Filter) String() string { return f.pattern }

// Match reports whether the experiment name is selected.
func (f Filter) Match(name string) bool {
	for _, re := range f.parts {
		if !re.MatchString(name) {
			return false
		}
	}
	return true
}

// Filter returns the experiments selected by f, keeping their order.
func (c Collection) Filter(f Filter) Collection {
	out := make(Collection, 0, len(c))
	for _, e := range c {
		if f.Match(e.Name) {
			out = append(out, e)
		}
	}
	return out
}

// splitRegexp splits the expression s into /-separated parts.
//
// This is borrowed from package testing.
func splitRegexp(s string) []string {
	a := make([]string, 0, strings.Count(s, "/"))
	cs := 0
	cp := 0
	for i := 0; i < len(s); {
		switch s[i] {
		case '[':
			cs++
		case ']':
			if cs--; cs < 0 { // An unmatched ']' is legal.
				cs = 0
			}
		case '(':
			if cs == 0 {
				cp++
			}
		case ')':
			if cs == 0 {
				cp--
			}
		case '\\':
			i++
		case '/':
			if cs == 0 && cp == 0 {
				a = append(a, s[:i])
				s = s[i+1:]
				i = 0
				continue
			}
		}
		i++
	}
	return append(a, s)
}
