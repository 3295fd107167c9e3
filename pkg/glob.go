package kdown

import "strings"

// CompileGlob translates a shell-style glob into a regular expression
// string. `*` becomes a capturing "any run" group and `?` a capturing
// single-character group; `.` and `\` are escaped, everything else
// passes through unescaped. A literal `*` or `?` cannot be expressed;
// this is a documented limitation.
//
// The end-of-string anchor is appended when anchorEnd is true. No start
// anchor is ever added, so callers control where the match may begin.
func CompileGlob(pattern string, anchorEnd bool) string {
	var sb strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString("(.*)")
		case '?':
			sb.WriteString("(.)")
		case '.':
			sb.WriteString(`\.`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			sb.WriteRune(r)
		}
	}
	if anchorEnd {
		sb.WriteByte('$')
	}
	return sb.String()
}

// CompileURLRegex assembles a URL-matching expression from already
// escaped protocol, host and path segments.
func CompileURLRegex(protocol, host, path string) string {
	return protocol + "://" + host + path
}

// CompileURLGlobRegex builds a URL-matching expression with the host and
// path given as globs. The host stays unanchored at its end since the
// path continues right after it; only the path gets the end anchor. An
// empty protocol matches both the secure and insecure scheme.
func CompileURLGlobRegex(protocol, host, path string) string {
	if protocol == "" {
		protocol = "https?"
	}
	return CompileURLRegex(protocol, CompileGlob(host, false), CompileGlob(path, true))
}
