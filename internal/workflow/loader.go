package workflow

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// BundledSource selects the rule table shipped with the binary.
const BundledSource = ""

// ActiveValue is the only activation flag value, compared case-insensitively,
// that turns the engine on.
const ActiveValue = "true"

//go:embed default_rules.yaml
var bundledRules []byte

// Format identifies the encoding of a rule source.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath picks a rule format from a file extension. Anything that is
// not .toml is read as YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// IsActive interprets a raw activation flag value. Only "true" (any case,
// surrounding space ignored) activates; empty, unset and every other value
// leave the engine off.
func IsActive(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), ActiveValue)
}

// Loader builds engines from rule sources.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a [Loader]. A nil logger falls back to [slog.Default].
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load returns an engine for the given rule source and raw activation value.
//
// When the flag is inactive the source is not read and an inert engine is
// returned. Otherwise the source is parsed completely; any read or parse
// failure is returned and no engine is built.
func (l *Loader) Load(source, activation string) (*Engine, error) {
	if !IsActive(activation) {
		l.logger.Debug("issue workflow inactive", "flag", activation)
		return Inactive(), nil
	}

	table, err := l.LoadTable(source)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("issue workflow active", "source", sourceName(source), "rules", table.Len())
	return NewEngine(table), nil
}

// LoadTable parses the rule source regardless of activation.
func (l *Loader) LoadTable(source string) (*RuleTable, error) {
	if source == BundledSource {
		table, err := ParseRules(bytes.NewReader(bundledRules), FormatYAML)
		if err != nil {
			return nil, fmt.Errorf("failed to load bundled rules: %w", err)
		}
		return table, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules %s: %w", source, err)
	}
	table, err := ParseRules(bytes.NewReader(data), FormatForPath(source))
	if err != nil {
		return nil, fmt.Errorf("failed to load rules %s: %w", source, err)
	}
	return table, nil
}

// Load is a convenience for NewLoader(nil).Load.
func Load(source, activation string) (*Engine, error) {
	return NewLoader(nil).Load(source, activation)
}

func sourceName(source string) string {
	if source == BundledSource {
		return "bundled"
	}
	return source
}

// ruleFile is the on-disk shape of a rule source:
//
//	rules:
//	  - status: In Progress
//	    success: [Stop Progress, Resolve Issue]
//	  - status: Resolved
//	    failure: Reopen Issue
type ruleFile struct {
	Rules []ruleDef `yaml:"rules" toml:"rules"`
}

type ruleDef struct {
	Status  string         `yaml:"status" toml:"status"`
	Success transitionList `yaml:"success" toml:"success"`
	Failure transitionList `yaml:"failure" toml:"failure"`
}

// transitionList accepts either a single transition name or a list.
type transitionList []string

func (t *transitionList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*t = nil
			return nil
		}
		*t = transitionList{node.Value}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		*t = names
		return nil
	default:
		return fmt.Errorf("line %d: transitions must be a name or a list of names", node.Line)
	}
}

func (t *transitionList) UnmarshalTOML(v interface{}) error {
	switch val := v.(type) {
	case string:
		*t = transitionList{val}
		return nil
	case []interface{}:
		names := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("transition name must be a string, got %T", item)
			}
			names = append(names, s)
		}
		*t = names
		return nil
	default:
		return fmt.Errorf("transitions must be a name or a list of names, got %T", v)
	}
}

// ParseRules decodes a rule source into a [RuleTable]. Unknown keys, duplicate
// statuses and empty sources are errors.
func ParseRules(r io.Reader, format Format) (*RuleTable, error) {
	var file ruleFile
	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rules: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("failed to parse rules: unknown key %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse rules: %w", err)
		}
		var extra yaml.Node
		if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
			if err != nil {
				return nil, fmt.Errorf("failed to parse rules: %w", err)
			}
			return nil, fmt.Errorf("failed to parse rules: line %d: more than one YAML document", extra.Line)
		}
	default:
		return nil, fmt.Errorf("unsupported rule format: %s", format)
	}

	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("rule source defines no rules")
	}

	rules := make([]Rule, 0, 2*len(file.Rules))
	for _, def := range file.Rules {
		rules = append(rules,
			Rule{Status: def.Status, Outcome: Success, Transitions: def.Success},
			Rule{Status: def.Status, Outcome: Failure, Transitions: def.Failure},
		)
	}
	return NewRuleTable(rules)
}
