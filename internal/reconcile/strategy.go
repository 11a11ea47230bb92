package reconcile

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/gradlerec/internal/fragment"
)

// StrategyKind names a resolution strategy.
type StrategyKind string

const (
	LastWins   StrategyKind = "last-wins"
	FirstWins  StrategyKind = "first-wins"
	MaxNumeric StrategyKind = "max-numeric"
	MinNumeric StrategyKind = "min-numeric"
	Union      StrategyKind = "union"
	Explicit   StrategyKind = "explicit"
)

// StrategyNames lists the accepted strategy names for help text.
var StrategyNames = []string{
	string(LastWins), string(FirstWins), string(MaxNumeric),
	string(MinNumeric), string(Union), string(Explicit) + ":<value>",
}

// Strategy decides the winning value of a path. Value is set only for
// Explicit.
type Strategy struct {
	Kind  StrategyKind
	Value fragment.Value
}

// ParseStrategy parses a strategy name. Explicit strategies carry their
// literal after a colon: explicit:36, explicit:"com.example.app". Text that
// is not a literal is taken as a string.
func ParseStrategy(s string) (Strategy, error) {
	s = strings.TrimSpace(s)
	if lit, ok := strings.CutPrefix(s, string(Explicit)+":"); ok {
		lit = strings.TrimSpace(lit)
		if lit == "" {
			return Strategy{}, fmt.Errorf("explicit strategy needs a value")
		}
		v := fragment.ParseLiteral(lit)
		if v.Kind() == fragment.KindExpr {
			v = fragment.String(lit)
		}
		return Strategy{Kind: Explicit, Value: v}, nil
	}
	switch k := StrategyKind(s); k {
	case LastWins, FirstWins, MaxNumeric, MinNumeric, Union:
		return Strategy{Kind: k}, nil
	case Explicit:
		return Strategy{}, fmt.Errorf("explicit strategy needs a value (explicit:<value>)")
	case "":
		return Strategy{}, fmt.Errorf("empty strategy")
	default:
		return Strategy{}, fmt.Errorf("unknown strategy %q (valid: %s)", s, strings.Join(StrategyNames, ", "))
	}
}

// MustStrategy is like ParseStrategy but panics on error.
func MustStrategy(s string) Strategy {
	st, err := ParseStrategy(s)
	if err != nil {
		panic(err)
	}
	return st
}

// IsZero reports whether no strategy was set.
func (s Strategy) IsZero() bool { return s.Kind == "" }

func (s Strategy) String() string {
	if s.Kind == Explicit {
		return string(Explicit) + ":" + s.Value.String()
	}
	return string(s.Kind)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text yields the
// zero Strategy.
func (s *Strategy) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*s = Strategy{}
		return nil
	}
	st, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// UnmarshalYAML accepts a scalar strategy name.
func (s *Strategy) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: strategy must be a string", node.Line)
	}
	if err := s.UnmarshalText([]byte(node.Value)); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}
