// Package annotation reads the mapping from tests to the issues they cover.
//
// The mapping is a CSV file (typically annotations.csv next to the tests):
//
//	suite,test,issues
//	example.com/app/billing,TestInvoiceRounding,#MYPROJECT-123
//	example.com/app/billing,TestInvoiceTax,MYPROJECT-123 MYPROJECT-456
//	,TestSmoke,42
//
// The issues column holds one or more references separated by spaces,
// commas or semicolons. A leading '#' is stripped, and a bare number is
// qualified with the configured issue prefix. Every reference must then be a
// tracker key of the form PROJ-123 (see [KeyPattern]). A blank suite matches
// every suite. Lines starting with '#' are comments. The same mapping can also be
// written as YAML (see [ReadYAML]).
package annotation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// KeyPattern is the grammar of an issue key: an uppercase project key, a dash
// and a number, e.g. MYPROJECT-123 or P-2.
const KeyPattern = `[A-Z][A-Z0-9_]*-[0-9]+`

var keyRe = regexp.MustCompile(`^` + KeyPattern + `$`)

// ValidKey reports whether k is a normalized issue key.
func ValidKey(k string) bool {
	return keyRe.MatchString(k)
}

// Entry is one test's issue references.
type Entry struct {
	// Suite is the suite (Go package import path) the test belongs to.
	// Empty matches any suite.
	Suite string

	// Test is the test identifier, including any subtest path.
	Test string

	// Issues are normalized issue keys.
	Issues []string
}

// Manifest holds all annotation entries.
type Manifest struct {
	Entries []Entry
}

// Options controls issue key normalization.
type Options struct {
	// IssuePrefix qualifies bare numeric references, e.g. "MYPROJECT"
	// turns "123" into "MYPROJECT-123".
	IssuePrefix string
}

// ReadFromFile reads an annotation manifest, choosing CSV or YAML by extension.
func ReadFromFile(path string, opts Options) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotations: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ReadYAML(f, opts)
	default:
		return ReadCSV(f, opts)
	}
}

// ReadFromString parses a CSV annotation manifest from a string.
func ReadFromString(data string, opts Options) (*Manifest, error) {
	return ReadCSV(strings.NewReader(data), opts)
}

// ReadCSV parses a CSV annotation manifest.
func ReadCSV(r io.Reader, opts Options) (*Manifest, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations header: %w", err)
	}

	colIndex := buildColumnIndex(header)
	if err := validateColumns(colIndex); err != nil {
		return nil, err
	}

	m := &Manifest{}
	lineNum := 1
	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read annotations line %d: %w", lineNum, err)
		}

		test := getField(record, colIndex, "test")
		if test == "" {
			return nil, fmt.Errorf("annotations line %d: test name is required", lineNum)
		}
		issues, err := ParseRefs(getField(record, colIndex, "issues"), opts.IssuePrefix)
		if err != nil {
			return nil, fmt.Errorf("annotations line %d: %w", lineNum, err)
		}
		if len(issues) == 0 {
			return nil, fmt.Errorf("annotations line %d: test %s references no issues", lineNum, test)
		}

		m.Entries = append(m.Entries, Entry{
			Suite:  getField(record, colIndex, "suite"),
			Test:   test,
			Issues: issues,
		})
	}

	return m, nil
}

var requiredColumns = []string{"test", "issues"}

func buildColumnIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(strings.ToLower(col))] = i
	}
	return index
}

func validateColumns(colIndex map[string]int) error {
	for _, col := range requiredColumns {
		if _, ok := colIndex[col]; !ok {
			return fmt.Errorf("annotations missing required column: %s", col)
		}
	}
	return nil
}

func getField(record []string, colIndex map[string]int, column string) string {
	idx, ok := colIndex[column]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// ParseRefs splits a reference list and normalizes each entry with
// [NormalizeKey]. Duplicates are dropped, first occurrence wins. A reference
// that does not normalize to a [ValidKey] is an error.
func ParseRefs(s, prefix string) ([]string, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == ';'
	})

	var keys []string
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		k := NormalizeKey(f, prefix)
		if k == "" || seen[k] {
			continue
		}
		if !ValidKey(k) {
			if isDigits(k) {
				return nil, fmt.Errorf("invalid issue reference %q: bare numbers need an issue prefix", f)
			}
			return nil, fmt.Errorf("invalid issue reference %q", f)
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys, nil
}

// NormalizeKey strips a leading '#' and qualifies a bare number with prefix.
// Keys are otherwise returned as written; matching is case-sensitive.
func NormalizeKey(ref, prefix string) string {
	k := strings.TrimPrefix(strings.TrimSpace(ref), "#")
	if k == "" {
		return ""
	}
	if prefix != "" && isDigits(k) {
		return strings.TrimSuffix(prefix, "-") + "-" + k
	}
	return k
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// ForSuite returns the test-to-issues mapping for suite. Entries with a blank
// suite apply to every suite. References for the same test are merged.
func (m *Manifest) ForSuite(suite string) map[string][]string {
	out := make(map[string][]string)
	if m == nil {
		return out
	}
	for _, e := range m.Entries {
		if e.Suite != "" && e.Suite != suite {
			continue
		}
		out[e.Test] = mergeKeys(out[e.Test], e.Issues)
	}
	return out
}

// Issues returns every issue key referenced in the manifest, in first-seen order.
func (m *Manifest) Issues() []string {
	var keys []string
	for _, e := range m.Entries {
		keys = mergeKeys(keys, e.Issues)
	}
	return keys
}

func mergeKeys(dst, src []string) []string {
	for _, k := range src {
		dup := false
		for _, existing := range dst {
			if existing == k {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, k)
		}
	}
	return dst
}
