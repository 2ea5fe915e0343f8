package symbols

import "strings"

// Signature builds the durable member signature: the member name followed by
// the comma-joined canonical parameter type names in parentheses. It must
// produce the same string at save time and at restore time, so it depends
// only on the member declaration, never on positions or offsets.
func Signature(m Member) string {
	params := m.ParameterTypes()
	canon := make([]string, len(params))
	for i, p := range params {
		canon[i] = CanonicalType(p)
	}
	return m.Name() + "(" + strings.Join(canon, ",") + ")"
}

// CanonicalType reduces a raw parameter type to a stable comparable form:
// parameter annotations and generic arguments are stripped, package
// qualifiers are dropped, varargs become array syntax, and whitespace is
// removed. "java.util.List<String>" and "List<Integer>" both canonicalize to
// "List"; "String..." canonicalizes to "String[]".
func CanonicalType(raw string) string {
	s := strings.TrimSpace(raw)

	// Drop leading parameter annotations such as "@PathVariable Long".
	for strings.HasPrefix(s, "@") {
		if i := strings.IndexAny(s, " \t"); i >= 0 {
			s = strings.TrimSpace(s[i+1:])
		} else {
			return ""
		}
	}

	s = stripGenerics(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\t", "")

	// Varargs are array parameters at the call boundary.
	if strings.HasSuffix(s, "...") {
		s = strings.TrimSuffix(s, "...") + "[]"
	}

	// Keep array brackets, drop the package qualifier of the element type.
	brackets := ""
	for strings.HasSuffix(s, "[]") {
		s = strings.TrimSuffix(s, "[]")
		brackets += "[]"
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}

	return s + brackets
}

// stripGenerics removes balanced <...> sections from a type name.
func stripGenerics(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}

	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
				continue
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
			continue
		}
	}
	return b.String()
}
