// Package template substitutes {{variable}} placeholders in message bodies.
package template

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Interpolate replaces every {{key}} occurrence in content with vars[key].
// Placeholders whose key is missing from vars are preserved verbatim so a
// half-filled template is still readable instead of silently losing text.
// Pure function, no failure mode.
func Interpolate(content string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(content, "{{") {
		return content
	}
	return placeholderRe.ReplaceAllStringFunc(content, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return match
	})
}

// Placeholders lists the distinct placeholder keys in content, in order of
// first appearance. Used to validate declared template variables.
func Placeholders(content string) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, m := range placeholderRe.FindAllStringSubmatch(content, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		keys = append(keys, m[1])
	}
	return keys
}
