package routing

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dimfeld/httppath"
)

type part struct {
	literal  string
	param    string
	catchAll bool
}

func (p part) isParam() bool { return p.param != "" }

type segment []part

func (s segment) singleParam() (part, bool) {
	if len(s) == 1 && s[0].isParam() {
		return s[0], true
	}

	return part{}, false
}

// Template is a parsed URL template, e.g. jobs/job-{title}_{id}.
//
// Segments are separated by '/'. A segment is a sequence of literals and
// parameters in curly braces, where two parameters cannot be adjacent. A
// catch-all parameter, {*name}, has to be alone in the last segment and
// captures the rest of the path. Literal braces are written as {{ and }}.
//
// Literals match case-insensitively. Within a segment, parameters are
// resolved from right to left, every parameter capturing at least one
// character.
type Template struct {
	raw      string
	segments []segment
	params   []string
	isParam  map[string]bool
}

// ParseTemplate parses a URL template. A single leading slash is accepted
// and ignored.
func ParseTemplate(s string) (*Template, error) {
	t := &Template{raw: s, isParam: make(map[string]bool)}
	if strings.HasPrefix(s, "~") {
		return nil, invalidConfiguration("url template %q cannot start with '~'", s)
	}

	if strings.Contains(s, "?") {
		return nil, invalidConfiguration("url template %q cannot contain '?'", s)
	}

	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return t, nil
	}

	lower := make(map[string]bool)
	rawSegments := strings.Split(s, "/")
	for i, rs := range rawSegments {
		if rs == "" {
			return nil, invalidConfiguration("url template %q contains an empty segment", t.raw)
		}

		seg, err := parseSegment(rs)
		if err != nil {
			return nil, invalidConfiguration("url template %q: %v", t.raw, err)
		}

		for _, p := range seg {
			if !p.isParam() {
				continue
			}

			if p.catchAll && (len(seg) > 1 || i != len(rawSegments)-1) {
				return nil, invalidConfiguration("url template %q: catch-all parameter %q must be alone in the last segment", t.raw, p.param)
			}

			l := strings.ToLower(p.param)
			if lower[l] {
				return nil, invalidConfiguration("url template %q: duplicate parameter %q", t.raw, p.param)
			}

			lower[l] = true
			t.params = append(t.params, p.param)
			t.isParam[p.param] = true
		}

		t.segments = append(t.segments, seg)
	}

	return t, nil
}

type templateError string

func (e templateError) Error() string { return string(e) }

func parseSegment(s string) (segment, error) {
	var (
		seg     segment
		literal strings.Builder
	)

	flush := func() {
		if literal.Len() > 0 {
			seg = append(seg, part{literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				literal.WriteByte('{')
				i++
				continue
			}

			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return nil, templateError("unbalanced '{' in segment " + s)
			}

			name := s[i+1 : i+1+end]
			i += end + 1

			p := part{param: name}
			if strings.HasPrefix(name, "*") {
				p.catchAll = true
				p.param = name[1:]
			}

			if p.param == "" || strings.ContainsAny(p.param, "{*") {
				return nil, templateError("invalid parameter name in segment " + s)
			}

			flush()
			if len(seg) > 0 && seg[len(seg)-1].isParam() {
				return nil, templateError("adjacent parameters in segment " + s)
			}

			seg = append(seg, p)
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				literal.WriteByte('}')
				i++
				continue
			}

			return nil, templateError("unbalanced '}' in segment " + s)
		default:
			literal.WriteByte(c)
		}
	}

	flush()
	return seg, nil
}

// String returns the template as it was parsed.
func (t *Template) String() string { return t.raw }

// Params returns the parameter names in the order of their appearance.
func (t *Template) Params() []string {
	return append([]string(nil), t.params...)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func lastIndexFold(s, substr string) int {
	for i := len(s) - len(substr); i >= 0; i-- {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}

	return -1
}

// matches a request path segment against a template segment, processing
// the parts from right to left
func matchSegment(seg segment, s string, values Values) bool {
	if p, ok := seg.singleParam(); ok {
		values[p.param] = s
		return true
	}

	end := len(s)
	pending := ""
	for i := len(seg) - 1; i >= 0; i-- {
		p := seg[i]
		if p.isParam() {
			pending = p.param
			continue
		}

		lit := p.literal
		switch {
		case pending == "":
			if !hasSuffixFold(s[:end], lit) {
				return false
			}

			end -= len(lit)
		case i == 0:
			if !hasPrefixFold(s[:end], lit) || len(lit) >= end {
				return false
			}

			values[pending] = s[len(lit):end]
			pending = ""
			end = 0
		default:
			if end < 1 {
				return false
			}

			idx := lastIndexFold(s[:end-1], lit)
			if idx < 0 {
				return false
			}

			values[pending] = s[idx+len(lit) : end]
			pending = ""
			end = idx
		}
	}

	if pending != "" {
		if end == 0 {
			return false
		}

		values[pending] = s[:end]
		end = 0
	}

	return end == 0
}

func splitPath(p string) []string {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil
	}

	return strings.Split(p, "/")
}

// MatchPath matches an escaped URL path against the template. Captured
// values are unescaped. Template segments missing from the path are filled
// from the defaults, and every default not captured from the path is added
// to the result.
func (t *Template) MatchPath(escapedPath string, defaults Values) (Values, bool) {
	raw := splitPath(httppath.Clean(escapedPath))
	req := make([]string, len(raw))
	for i, r := range raw {
		u, err := url.PathUnescape(r)
		if err != nil {
			return nil, false
		}

		req[i] = u
	}

	values := make(Values)
	for i, seg := range t.segments {
		if p, ok := seg.singleParam(); ok && p.catchAll {
			rest := ""
			if i < len(req) {
				rest = strings.Join(req[i:], "/")
			}

			if rest != "" {
				values[p.param] = rest
			} else if d, ok := defaults[p.param]; ok {
				values[p.param] = d
			}

			return withDefaults(values, defaults), true
		}

		if i >= len(req) || req[i] == "" {
			for _, p := range seg {
				if !p.isParam() {
					return nil, false
				}

				d, ok := defaults[p.param]
				if !ok {
					return nil, false
				}

				values[p.param] = d
			}

			continue
		}

		if !matchSegment(seg, req[i], values) {
			return nil, false
		}
	}

	if len(req) > len(t.segments) {
		return nil, false
	}

	return withDefaults(values, defaults), true
}

func withDefaults(values, defaults Values) Values {
	for k, d := range defaults {
		if !values.Has(k) {
			values[k] = d
		}
	}

	return values
}

// Match matches the request path and validates the resolved values with the
// constraints.
func (t *Template) Match(r *http.Request, defaults Values, c Constraints) (Values, bool) {
	values, ok := t.MatchPath(r.URL.EscapedPath(), defaults)
	if !ok {
		return nil, false
	}

	if !c.Match(r, values, IncomingRequest) {
		return nil, false
	}

	return values, true
}

func sameValue(a, b any) bool {
	return strings.EqualFold(valueString(a), valueString(b))
}

// Generate renders the template from the values, falling back to the
// defaults for parameters without a value. It fails when a parameter has
// neither, when a value conflicts with a default that is not a parameter
// of the template, when a constraint rejects the resulting values, or when
// an empty parameter would not be the end of the path.
// Trailing segments holding their default value are omitted, and values
// not used by the template are appended as a query string.
func (t *Template) Generate(r *http.Request, values, defaults Values, c Constraints) (string, bool) {
	accepted := make(Values)
	for _, seg := range t.segments {
		for _, p := range seg {
			if !p.isParam() {
				continue
			}

			if s, ok := values.String(p.param); ok && s != "" {
				accepted[p.param] = values[p.param]
			} else if d, ok := defaults[p.param]; ok {
				accepted[p.param] = d
			} else if !p.catchAll {
				return "", false
			}
		}
	}

	for k, d := range defaults {
		if t.isParam[k] {
			continue
		}

		if v, ok := values[k]; ok && v != nil && !sameValue(v, d) {
			return "", false
		}

		accepted[k] = d
	}

	check := accepted.Clone()
	query := make(url.Values)
	for _, k := range values.Keys() {
		if accepted.Has(k) || values[k] == nil {
			continue
		}

		check[k] = values[k]
		query.Set(k, valueString(values[k]))
	}

	if !c.Match(r, check, URLGeneration) {
		return "", false
	}

	rendered := make([]string, len(t.segments))
	hasEmpty := make([]bool, len(t.segments))
	for i, seg := range t.segments {
		var sb strings.Builder
		for _, p := range seg {
			switch {
			case !p.isParam():
				sb.WriteString(url.PathEscape(p.literal))
			case p.catchAll:
				if v, ok := accepted.String(p.param); ok {
					pieces := strings.Split(v, "/")
					for j := range pieces {
						pieces[j] = url.PathEscape(pieces[j])
					}

					sb.WriteString(strings.Join(pieces, "/"))
				}
			default:
				v, _ := accepted.String(p.param)
				hasEmpty[i] = hasEmpty[i] || v == ""
				sb.WriteString(url.PathEscape(v))
			}
		}

		rendered[i] = sb.String()
	}

	n := len(rendered)
	for ; n > 0; n-- {
		p, ok := t.segments[n-1].singleParam()
		if !ok {
			break
		}

		if rendered[n-1] == "" {
			continue
		}

		d, hasDefault := defaults[p.param]
		if !hasDefault || !sameValue(accepted[p.param], d) {
			break
		}
	}

	// an empty parameter can be left out only at the end of the path, in
	// a segment of its own
	for i := range n {
		if hasEmpty[i] {
			return "", false
		}
	}

	path := "/" + strings.Join(rendered[:n], "/")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	return path, true
}
