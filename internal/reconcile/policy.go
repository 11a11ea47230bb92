package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/gradlerec/internal/pathglob"
)

// Rule assigns a strategy to paths matching Pattern.
type Rule struct {
	Pattern  string   `json:"pattern" yaml:"pattern"`
	Strategy Strategy `json:"strategy" yaml:"strategy"`
}

// Policy maps dotted paths to resolution strategies. The first matching
// rule wins; paths no rule matches use Default.
type Policy struct {
	Default  Strategy `json:"default,omitempty" yaml:"default,omitempty"`
	Rules    []Rule   `json:"rules,omitempty" yaml:"rules,omitempty"`
	Required []string `json:"required,omitempty" yaml:"required,omitempty"`
}

// DefaultPolicy resolves every path with last-wins.
func DefaultPolicy() *Policy {
	return &Policy{Default: Strategy{Kind: LastWins}}
}

// RecommendedPolicy keeps the highest SDK levels and lets later fragments
// win everywhere else.
func RecommendedPolicy() *Policy {
	return &Policy{
		Default: Strategy{Kind: LastWins},
		Rules: []Rule{
			{Pattern: "**.compileSdk*", Strategy: Strategy{Kind: MaxNumeric}},
			{Pattern: "**.targetSdk*", Strategy: Strategy{Kind: MaxNumeric}},
			{Pattern: "**.minSdk*", Strategy: Strategy{Kind: MaxNumeric}},
		},
	}
}

// StrategyFor returns the strategy for path and the pattern of the rule that
// selected it ("" for the default).
func (p *Policy) StrategyFor(path string) (Strategy, string) {
	if p == nil {
		return Strategy{Kind: LastWins}, ""
	}
	for _, r := range p.Rules {
		if pathglob.Match(r.Pattern, path, '.') {
			return r.Strategy, r.Pattern
		}
	}
	return p.defaultStrategy(), ""
}

// Validate checks rule patterns and strategies.
func (p *Policy) Validate() error {
	for i, r := range p.Rules {
		if err := pathglob.Validate(r.Pattern, '.'); err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
		if r.Strategy.IsZero() {
			return fmt.Errorf("rule %d (%s): missing strategy", i+1, r.Pattern)
		}
	}
	for _, req := range p.Required {
		if strings.TrimSpace(req) == "" {
			return fmt.Errorf("required: empty field name")
		}
	}
	return nil
}

// String summarizes the policy for reports.
func (p *Policy) String() string {
	if p == nil {
		return string(LastWins)
	}
	if len(p.Rules) == 0 {
		return p.defaultStrategy().String()
	}
	parts := make([]string, 0, len(p.Rules)+1)
	for _, r := range p.Rules {
		parts = append(parts, r.Pattern+"="+r.Strategy.String())
	}
	parts = append(parts, "*="+p.defaultStrategy().String())
	return strings.Join(parts, ", ")
}

func (p *Policy) defaultStrategy() Strategy {
	if p.Default.IsZero() {
		return Strategy{Kind: LastWins}
	}
	return p.Default
}

// WithDefault returns a copy of p whose default strategy is s.
func (p *Policy) WithDefault(s Strategy) *Policy {
	out := DefaultPolicy()
	if p != nil {
		out.Rules = append([]Rule(nil), p.Rules...)
		out.Required = append([]string(nil), p.Required...)
	}
	out.Default = s
	return out
}

// LoadPolicy reads a policy file. Files ending in .yaml or .yml are YAML;
// anything else is JSON. Returns nil Policy and nil error if path is empty.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	p, err := ParsePolicy(data, format)
	if err != nil {
		return nil, fmt.Errorf("parsing policy file %s: %w", path, err)
	}
	return p, nil
}

// ParsePolicy decodes a policy in the given format ("yaml" or "json").
// Unknown fields are rejected.
func ParsePolicy(data []byte, format string) (*Policy, error) {
	var p Policy
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown policy format %q", format)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
