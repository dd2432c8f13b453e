// Package urlmatch normalizes endpoint patterns into a single canonical regex
// representation. Upstream authorization configuration expresses allowed endpoints
// either as loose regular expressions or as path templates with {param} placeholders;
// the event type registry expresses paths as templates. Both notations must compare
// equal under one representation so that path generation and subscriber filter
// computation agree on what an endpoint covers.
package urlmatch

import (
	"regexp"
	"strings"

	apperrors "github.com/allisson/integration-events/internal/errors"
)

// ParamClass is the allow-list character class every parameter position is
// rewritten to, regardless of how loosely the source pattern expressed it.
const ParamClass = "[a-zA-Z0-9_-]+"

var (
	// templateParamPattern matches canonical {param} placeholders such as {hmppsId}.
	templateParamPattern = regexp.MustCompile(`\{[a-zA-Z][a-zA-Z0-9_]*\}`)

	// regexTokenPattern detects regex-flavored notation.
	regexTokenPattern = regexp.MustCompile(`[\^$.*+\[\]()]`)

	// wildcardPattern matches the parameter spellings found in regex-flavored
	// patterns: [^/]*, [^/]+, .* and .+.
	wildcardPattern = regexp.MustCompile(`\[\^/\]\*|\[\^/\]\+|\.\*|\.\+`)
)

// Normalize converts a pattern in either notation into the canonical regex form.
// Regex anchors are stripped, a missing leading slash is inserted, query and
// fragment suffixes are dropped, and every parameter position is rewritten to
// ParamClass. Returns ErrInvalidPattern when a pattern mixes both notations.
//
// Note: a wildcard directly after a non-slash character ("search[^/]*") keeps the
// rewritten wildcard as a literal suffix ("search[a-zA-Z0-9_-]+") instead of being
// collapsed into the preceding segment.
func Normalize(pattern string) (string, error) {
	normalized := strings.TrimSpace(pattern)

	// Query strings and fragments never take part in endpoint matching.
	if i := strings.IndexAny(normalized, "?#"); i >= 0 {
		normalized = normalized[:i]
	}

	hasTemplate := templateParamPattern.MatchString(normalized)
	hasRegex := regexTokenPattern.MatchString(normalized)

	if hasTemplate && hasRegex {
		return "", apperrors.Wrapf(
			apperrors.ErrInvalidPattern,
			"pattern %q mixes regex and path-template notation",
			pattern,
		)
	}

	normalized = strings.TrimPrefix(normalized, "^")
	normalized = strings.TrimSuffix(normalized, "$")

	if hasTemplate {
		normalized = templateParamPattern.ReplaceAllString(normalized, ParamClass)
	} else {
		normalized = wildcardPattern.ReplaceAllString(normalized, ParamClass)
	}

	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}

	return normalized, nil
}

// Matches reports whether url is covered by pattern. The pattern is normalized
// first and then applied as a full-string match, so partial prefix matches never
// count as covered.
func Matches(url, pattern string) (bool, error) {
	normalized, err := Normalize(pattern)
	if err != nil {
		return false, err
	}

	matcher, err := regexp.Compile("^(?:" + normalized + ")$")
	if err != nil {
		return false, apperrors.Wrapf(err, "compiling normalized pattern %q", normalized)
	}

	return matcher.MatchString(url), nil
}
