package annotation

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// yamlFile is the raw YAML form of an annotation manifest:
//
//	suites:
//	  - suite: example.com/app/billing
//	    tests:
//	      TestInvoiceRounding: "#MYPROJECT-123"
//	      TestInvoiceTax: [MYPROJECT-123, MYPROJECT-456]
//	  - tests:
//	      TestSmoke: 42
type yamlFile struct {
	Suites []yamlSuite `yaml:"suites"`
}

type yamlSuite struct {
	Suite string              `yaml:"suite"`
	Tests map[string]yamlRefs `yaml:"tests"`
}

// yamlRefs accepts a scalar or a sequence of references.
type yamlRefs []string

func (r *yamlRefs) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*r = yamlRefs{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*r = list
		return nil
	default:
		return fmt.Errorf("line %d: issue references must be a string or a list", value.Line)
	}
}

// ReadYAML parses a YAML annotation manifest. Tests within a suite are
// ordered by name.
func ReadYAML(r io.Reader, opts Options) (*Manifest, error) {
	var raw yamlFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse annotations: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err != io.EOF {
		if err != nil {
			return nil, fmt.Errorf("failed to parse annotations: %w", err)
		}
		return nil, fmt.Errorf("failed to parse annotations: line %d: more than one YAML document", extra.Line)
	}

	m := &Manifest{}
	for i, s := range raw.Suites {
		names := make([]string, 0, len(s.Tests))
		for name := range s.Tests {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			var issues []string
			for _, ref := range s.Tests[name] {
				keys, err := ParseRefs(ref, opts.IssuePrefix)
				if err != nil {
					return nil, fmt.Errorf("annotations suite %d: test %s: %w", i, name, err)
				}
				issues = mergeKeys(issues, keys)
			}
			if len(issues) == 0 {
				return nil, fmt.Errorf("annotations suite %d: test %s references no issues", i, name)
			}
			m.Entries = append(m.Entries, Entry{Suite: s.Suite, Test: name, Issues: issues})
		}
	}
	return m, nil
}
