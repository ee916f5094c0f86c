// Package subst expands {batch:column} placeholders in action text
// parameters against a variable row.
package subst

import (
	"regexp"

	rperrors "github.com/replaykit/replaykit/internal/errors"
)

var placeholderRe = regexp.MustCompile(`\{batch:(\w+)\}`)

// HasPlaceholder reports whether s contains any batch placeholder.
func HasPlaceholder(s string) bool {
	return placeholderRe.MatchString(s)
}

// Placeholders returns the column names referenced in s, in order of
// appearance. Duplicates are preserved.
func Placeholders(s string) []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
		names = append(names, m[1])
	}
	return names
}

// Resolve replaces every {batch:column} in s with the row's value for
// that column. The string is resolved as a whole: if any referenced
// column is missing, nothing is substituted and an
// UNRESOLVED_PLACEHOLDER error identifies the first missing column.
func Resolve(s string, row map[string]string) (string, error) {
	for _, name := range Placeholders(s) {
		if _, ok := row[name]; !ok {
			return "", rperrors.NewUnresolvedPlaceholder(name)
		}
	}
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		return row[name]
	}), nil
}

// ResolveSingle replaces every placeholder in s with the one supplied
// value, regardless of the column name. Legacy single-variable
// workflows use the placeholder purely as an insertion marker.
func ResolveSingle(s, value string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(string) string {
		return value
	})
}
