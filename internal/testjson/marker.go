package testjson

import (
	"regexp"

	"issueflow/internal/annotation"
)

var (
	// issueMarker finds "@issue" or "issue:"/"issues:" and captures the rest of the line.
	issueMarker = regexp.MustCompile(`(?i)(?:@issues?\b|\bissues?:)(.*)`)

	// issueRef matches issue keys (optionally '#'-prefixed) and bare #123 references.
	issueRef = regexp.MustCompile(`#?\b` + annotation.KeyPattern + `\b|#[0-9]+\b`)
)

// HasIssueMarker reports whether a line of test output carries an issue marker,
// whether or not any valid key follows it.
func HasIssueMarker(output string) bool {
	return issueMarker.MatchString(output)
}

// ExtractIssueKeys returns the issue keys referenced by an issue marker in a
// line of test output, e.g. from t.Log("@issue MYPROJECT-123"). Bare #123
// references are qualified with prefix and dropped when prefix is empty.
// Keys follow the same grammar as annotation files; anything else is ignored.
func ExtractIssueKeys(output, prefix string) []string {
	m := issueMarker.FindStringSubmatch(output)
	if m == nil {
		return nil
	}

	var keys []string
	for _, ref := range issueRef.FindAllString(m[1], -1) {
		k := annotation.NormalizeKey(ref, prefix)
		if !annotation.ValidKey(k) {
			continue
		}
		keys = appendKey(keys, k)
	}
	return keys
}

func appendKey(keys []string, k string) []string {
	for _, existing := range keys {
		if existing == k {
			return keys
		}
	}
	return append(keys, k)
}
