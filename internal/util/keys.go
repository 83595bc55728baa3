package util

import (
	"regexp"
	"strings"
)

// Dedupe returns s without duplicates, keeping first-seen order.
// The input slice is not modified.
func Dedupe(s []string) []string {
	if len(s) < 2 {
		return append([]string(nil), s...)
	}
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Join prefixes key with ns and ":" unless ns is empty.
func Join(ns, key string) string {
	if ns == "" {
		return key
	}
	return ns + ":" + key
}

// GlobRegexp compiles a Redis-style glob (*, ?, [set], \x escapes) into an
// anchored regexp so in-process providers match keys the way Redis SCAN MATCH does.
// Unlike path.Match, '/' and ':' are ordinary characters.
func GlobRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch ch {
		case '*':
			b.WriteString("(?s:.*)")
		case '?':
			b.WriteString("(?s:.)")
		case '\\':
			if i+1 < len(pattern) {
				i++
				b.WriteString(regexp.QuoteMeta(string(pattern[i])))
			} else {
				b.WriteString(`\\`)
			}
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			set := pattern[i+1 : i+1+end]
			i += end + 1
			if strings.HasPrefix(set, "^") {
				set = "^" + strings.ReplaceAll(set[1:], `\`, `\\`)
			} else {
				set = strings.ReplaceAll(set, `\`, `\\`)
			}
			b.WriteString("[" + set + "]")
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
