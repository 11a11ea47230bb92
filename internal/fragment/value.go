package fragment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a configuration value.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindBool   Kind = "bool"
	KindExpr   Kind = "expr"
	KindList   Kind = "list"
)

// Value is a scalar or a list of scalars declared at a dotted path.
//
// Expr values hold raw source text that cannot be evaluated statically,
// such as flutter.minSdkVersion or signingConfigs.getByName("debug").
type Value struct {
	kind  Kind
	text  string
	num   int64
	items []Value
}

// String constructs a string value. s is the unescaped content.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Int constructs an integer value.
func Int(n int64) Value { return Value{kind: KindInt, num: n, text: strconv.FormatInt(n, 10)} }

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, text: strconv.FormatBool(b)} }

// Expr constructs an opaque expression value.
func Expr(src string) Value { return Value{kind: KindExpr, text: strings.TrimSpace(src)} }

// List constructs a list value. Nested lists are stored as expressions.
func List(items ...Value) Value {
	out := make([]Value, len(items))
	for i, it := range items {
		if it.kind == KindList {
			it = Expr(it.String())
		}
		out[i] = it
	}
	return Value{kind: KindList, items: out}
}

// Kind returns the value's kind. The zero Value has an empty kind.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v is the zero Value.
func (v Value) IsZero() bool { return v.kind == "" }

// Text returns the string content, the expression source, or the literal
// text of an int or bool. It is empty for lists.
func (v Value) Text() string { return v.text }

// Int returns the integer and true if v is an int.
func (v Value) Int() (int64, bool) { return v.num, v.kind == KindInt }

// Items returns a copy of the list items, or nil for scalars.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return append([]Value(nil), v.items...)
}

// Equal reports whether two values have the same kind and canonical text.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.String() == o.String()
}

// String returns the canonical text of v: double-quoted strings, literal
// ints and bools, raw expressions, and bracketed lists.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return quote(v.text)
	case KindList:
		parts := make([]string, len(v.items))
		for i, it := range v.items {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return v.text
	}
}

// Version returns the numeric components of an int or a dotted numeric
// version string such as "27.0.12077973". ok is false for anything else.
func (v Value) Version() (parts []int64, ok bool) {
	switch v.kind {
	case KindInt:
		return []int64{v.num}, true
	case KindString:
		if v.text == "" {
			return nil, false
		}
		for _, p := range strings.Split(v.text, ".") {
			n, err := strconv.ParseInt(p, 10, 64)
			if err != nil || n < 0 {
				return nil, false
			}
			parts = append(parts, n)
		}
		return parts, true
	default:
		return nil, false
	}
}

// CompareVersions orders two version component slices; missing trailing
// components count as zero.
func CompareVersions(a, b []int64) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var x, y int64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// ParseLiteral interprets the right-hand side of an assignment or a call
// argument. Anything that is not a recognizable literal becomes an Expr.
func ParseLiteral(src string) Value {
	s := strings.TrimSpace(src)
	if s == "" {
		return Expr(s)
	}
	if str, ok := unquote(s); ok {
		return String(str)
	}
	if s == "true" || s == "false" {
		return Bool(s == "true")
	}
	if n, err := strconv.ParseInt(strings.TrimSuffix(s, "L"), 10, 64); err == nil && isDigits(strings.TrimPrefix(strings.TrimSuffix(s, "L"), "-")) {
		return Int(n)
	}
	if inner, ok := listBody(s); ok {
		var items []Value
		for _, part := range splitTopLevel(inner, ',') {
			if strings.TrimSpace(part) == "" {
				continue
			}
			items = append(items, ParseLiteral(part))
		}
		return List(items...)
	}
	return Expr(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

var listConstructors = []string{"listOf(", "mutableListOf(", "setOf(", "mutableSetOf(", "arrayOf("}

func listBody(s string) (string, bool) {
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") && matchingClose(s, 0) == len(s)-1 {
		return s[1 : len(s)-1], true
	}
	for _, c := range listConstructors {
		if strings.HasPrefix(s, c) && strings.HasSuffix(s, ")") && matchingClose(s, len(c)-1) == len(s)-1 {
			return s[len(c) : len(s)-1], true
		}
	}
	return "", false
}

// unquote decodes a single string literal spanning all of s. Template
// expressions are kept verbatim.
func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	q := s[0]
	if q != '"' && q != '\'' {
		return "", false
	}
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			switch e := s[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"', '\'', '\\':
				b.WriteByte(e)
			default:
				b.WriteByte('\\')
				b.WriteByte(e)
			}
		case c == q:
			if i != len(s)-1 {
				return "", false
			}
			return b.String(), true
		default:
			b.WriteByte(c)
		}
	}
	return "", false
}

// MarshalJSON encodes strings, ints, bools and lists as their natural JSON
// forms and expressions as {"expr": "..."}.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.text)
	case KindInt:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.text == "true")
	case KindExpr:
		return json.Marshal(map[string]string{"expr": v.text})
	case KindList:
		items := v.items
		if items == nil {
			items = []Value{}
		}
		return json.Marshal(items)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out, err := fromJSON(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func fromJSON(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return Value{}, fmt.Errorf("non-integer number %s", x)
		}
		return Int(n), nil
	case map[string]any:
		src, ok := x["expr"].(string)
		if !ok {
			return Value{}, fmt.Errorf("object value must be {\"expr\": string}")
		}
		return Expr(src), nil
	case []any:
		items := make([]Value, 0, len(x))
		for _, it := range x {
			iv, err := fromJSON(it)
			if err != nil {
				return Value{}, err
			}
			items = append(items, iv)
		}
		return List(items...), nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON value %T", raw)
	}
}
