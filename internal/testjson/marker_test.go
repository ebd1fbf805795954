package testjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractIssueKeys(t *testing.T) {
	tests := []struct {
		name   string
		output string
		prefix string
		want   []string
	}{
		{"t.Log marker", "    billing_test.go:12: @issue MYPROJECT-123\n", "", []string{"MYPROJECT-123"}},
		{"hash prefixed", "@Issue #MYPROJECT-123", "", []string{"MYPROJECT-123"}},
		{"issues label", "Issues: MYPROJECT-123, MYPROJECT-456", "", []string{"MYPROJECT-123", "MYPROJECT-456"}},
		{"duplicates collapsed", "@issue MYPROJECT-1 MYPROJECT-1", "", []string{"MYPROJECT-1"}},
		{"bare number with prefix", "@issue #42", "MYPROJECT", []string{"MYPROJECT-42"}},
		{"bare number without prefix", "@issue #42", "", nil},
		{"no marker", "=== RUN   TestInvoice MYPROJECT-123\n", "", nil},
		{"marker without keys", "@issue pending triage", "", nil},
		{"lowercase key ignored", "@issue myproject-1", "", nil},
		{"single letter project", "@issue P-2", "", []string{"P-2"}},
		{"key inside a word ignored", "@issue xP-2", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractIssueKeys(tt.output, tt.prefix))
		})
	}
}

func TestHasIssueMarker(t *testing.T) {
	assert.True(t, HasIssueMarker("@issue proj-2"))
	assert.True(t, HasIssueMarker("Issues: none yet"))
	assert.False(t, HasIssueMarker("=== RUN   TestInvoice"))
}
