package catalog

import (
	"regexp"
	"strings"
)

var (
	camelBoundary1 = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	camelBoundary2 = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	separatorRuns  = regexp.MustCompile(`[\s\-_/]+`)
)

// camelToSnake converts CamelCase method names to snake_case. Acronym runs
// are kept together ("FollowXYPath" → "follow_xy_path").
func camelToSnake(name string) string {
	s := camelBoundary1.ReplaceAllString(name, "${1}_${2}")
	s = camelBoundary2.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}

// normalizeToken lowercases and collapses every run of whitespace, hyphens,
// underscores and slashes into a single dot, making all separator spellings
// of an action name equivalent.
func normalizeToken(v string) string {
	return separatorRuns.ReplaceAllString(strings.ToLower(strings.TrimSpace(v)), ".")
}
