package colors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/rewired-gh/hubbub/internal/models"
)

// Rule is the color rule for one event kind: Literal, Conditional or Malformed.
type Rule interface {
	isRule()
}

// Literal colors every event of the kind the same way
type Literal struct {
	Color models.RGB
}

// Conditional picks a color from payload fields, first matching field wins
type Conditional struct {
	Fields []FieldRule
}

// FieldRule maps values of one payload field to colors, in table order
type FieldRule struct {
	Field  string
	Values []ValueColor
}

// ValueColor is one value -> color entry
type ValueColor struct {
	Value string
	Color models.RGB
}

// Malformed records a rule entry that could not be parsed; it resolves to black
type Malformed struct {
	Reason string
}

func (Literal) isRule()     {}
func (Conditional) isRule() {}
func (Malformed) isRule()   {}

// Lookup returns the color configured for field == value
func (c Conditional) Lookup(field, value string) (models.RGB, bool) {
	for _, f := range c.Fields {
		if f.Field != field {
			continue
		}
		for _, vc := range f.Values {
			if vc.Value == value {
				return vc.Color, true
			}
		}
	}
	return models.Black, false
}

// Table is the read-only rule table keyed by event kind ("Push", "PullRequest", ...).
// Kind lookups are case-insensitive because some config sources lowercase keys.
type Table struct {
	order    []string
	rules    map[string]Rule
	problems []string
}

// NewTable returns an empty table
func NewTable() *Table {
	return &Table{rules: make(map[string]Rule)}
}

// Set adds or replaces the rule for kind
func (t *Table) Set(kind string, r Rule) {
	key := strings.ToLower(kind)
	if _, exists := t.rules[key]; !exists {
		t.order = append(t.order, kind)
	}
	t.rules[key] = r
	if m, ok := r.(Malformed); ok {
		t.problems = append(t.problems, fmt.Sprintf("%s: %s", kind, m.Reason))
	}
}

// Lookup returns the rule for kind
func (t *Table) Lookup(kind string) (Rule, bool) {
	r, ok := t.rules[strings.ToLower(kind)]
	return r, ok
}

// Kinds returns the configured kinds in table order
func (t *Table) Kinds() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of rules
func (t *Table) Len() int { return len(t.order) }

// Problems lists entries that were malformed at parse time
func (t *Table) Problems() []string { return t.problems }

// ParseNode builds a table from a YAML mapping node, keeping key order.
// Entries of the wrong shape become Malformed rules instead of failing the load.
func ParseNode(node *yaml.Node) (*Table, error) {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("color rules must be a mapping, got %s", kindName(node))
	}

	t := NewTable()
	for i := 0; i+1 < len(node.Content); i += 2 {
		kind := node.Content[i].Value
		t.Set(kind, ruleFromNode(node.Content[i+1]))
	}
	return t, nil
}

func ruleFromNode(n *yaml.Node) Rule {
	switch n.Kind {
	case yaml.ScalarNode:
		c, err := ParseColor(n.Value)
		if err != nil {
			return Malformed{Reason: err.Error()}
		}
		return Literal{Color: c}
	case yaml.MappingNode:
		var cond Conditional
		for i := 0; i+1 < len(n.Content); i += 2 {
			field, values := n.Content[i].Value, n.Content[i+1]
			if values.Kind != yaml.MappingNode {
				return Malformed{Reason: fmt.Sprintf("field %q must map values to colors", field)}
			}
			fr := FieldRule{Field: field}
			for j := 0; j+1 < len(values.Content); j += 2 {
				val, col := values.Content[j], values.Content[j+1]
				if col.Kind != yaml.ScalarNode {
					return Malformed{Reason: fmt.Sprintf("%s.%s must be a color string", field, val.Value)}
				}
				c, err := ParseColor(col.Value)
				if err != nil {
					return Malformed{Reason: fmt.Sprintf("%s.%s: %v", field, val.Value, err)}
				}
				fr.Values = append(fr.Values, ValueColor{Value: val.Value, Color: c})
			}
			cond.Fields = append(cond.Fields, fr)
		}
		return cond
	default:
		return Malformed{Reason: fmt.Sprintf("unexpected %s", kindName(n))}
	}
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}

// ParseMap builds a table from an already-decoded map (JSON/TOML configs).
// Map order is lost, so kinds, fields and values are taken in sorted order.
func ParseMap(m map[string]any) *Table {
	t := NewTable()
	for _, kind := range sortedKeys(m) {
		t.Set(kind, ruleFromValue(m[kind]))
	}
	return t
}

func ruleFromValue(v any) Rule {
	switch val := v.(type) {
	case string:
		c, err := ParseColor(val)
		if err != nil {
			return Malformed{Reason: err.Error()}
		}
		return Literal{Color: c}
	case map[string]any:
		var cond Conditional
		for _, field := range sortedKeys(val) {
			values, err := cast.ToStringMapStringE(val[field])
			if err != nil {
				return Malformed{Reason: fmt.Sprintf("field %q must map values to colors", field)}
			}
			fr := FieldRule{Field: field}
			for _, value := range sortedKeys(values) {
				c, err := ParseColor(values[value])
				if err != nil {
					return Malformed{Reason: fmt.Sprintf("%s.%s: %v", field, value, err)}
				}
				fr.Values = append(fr.Values, ValueColor{Value: value, Color: c})
			}
			cond.Fields = append(cond.Fields, fr)
		}
		return cond
	default:
		return Malformed{Reason: fmt.Sprintf("unexpected %T", v)}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultRules is the rule table used when the config has no colors section
const DefaultRules = `
Push: green
Create: lime
Delete: darkred
Fork: cyan
Watch: yellow
Release: gold
Member: magenta
Public: white
Gollum: teal
CommitComment: steelblue
IssueComment: dodgerblue
PullRequestReview: mediumpurple
PullRequestReviewComment: slateblue
Issues:
  action:
    opened: orange
    closed: red
    reopened: darkorange
PullRequest:
  action:
    opened: deepskyblue
    closed: red
    reopened: royalblue
    merged: purple
`

// DefaultTable parses DefaultRules
func DefaultTable() *Table {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(DefaultRules), &doc); err != nil {
		panic(fmt.Sprintf("default color rules: %v", err))
	}
	t, err := ParseNode(&doc)
	if err != nil {
		panic(fmt.Sprintf("default color rules: %v", err))
	}
	return t
}
