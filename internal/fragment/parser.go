package fragment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dshills/gradlerec/internal/diag"
)

// ParserVersion is bumped whenever parsing output changes so cached
// fragments from older versions are ignored.
const ParserVersion = "1"

// ParseError reports a structurally malformed fragment: unbalanced blocks,
// brackets, or an unterminated string or comment.
type ParseError struct {
	Label string
	Line  int
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Label, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Label, e.Msg)
}

// Diagnostic converts the error to an error-severity diagnostic.
func (e *ParseError) Diagnostic() diag.Diagnostic {
	return diag.Errorf(diag.CodeParse, "%s", e.Msg).At(e.Label, e.Line)
}

// declBlocks hold declarations rather than property assignments: every
// call inside them appends to a list.
var declBlocks = map[string]bool{
	"plugins":      true,
	"dependencies": true,
	"repositories": true,
}

// setterCalls are single-argument calls that assign a property, such as
// compileSdkVersion(34) in older Kotlin scripts.
var setterCalls = map[string]bool{
	"compileSdk":        true,
	"compileSdkVersion": true,
	"minSdk":            true,
	"minSdkVersion":     true,
	"targetSdk":         true,
	"targetSdkVersion":  true,
	"maxSdkVersion":     true,
	"namespace":         true,
	"applicationId":     true,
	"versionCode":       true,
	"versionName":       true,
	"ndkVersion":        true,
	"buildToolsVersion": true,
	"jvmTarget":         true,
	"jvmToolchain":      true,
	"setMinifyEnabled":  true,
	"signingConfig":     true,
	"source":            true,
}

// listCommands always append, even with a single Groovy argument.
var listCommands = map[string]bool{
	"proguardFiles":         true,
	"consumerProguardFiles": true,
	"testProguardFiles":     true,
	"resConfigs":            true,
	"abiFilters":            true,
	"exclude":               true,
	"excludes":              true,
	"pickFirst":             true,
	"classpath":             true,
}

var (
	dottedIdentRe = regexp.MustCompile(`^[A-Za-z_][\w-]*(\.[A-Za-z_][\w-]*)*$`)
	namedBlockRe  = regexp.MustCompile(`^(?:([A-Za-z_][\w.]*)\.)?(?:getByName|create|named|maybeCreate|register|getting|creating)(?:<[^>]*>)?\(\s*["']([^"']+)["']\s*(?:,[^)]*)?\)$`)
	groovyTaskRe  = regexp.MustCompile(`^task\s+([A-Za-z_][\w-]*)\s*(?:\(.*\))?$`)
	callHeadRe    = regexp.MustCompile(`^([A-Za-z_][\w.]*)(?:<[^>]*>)?\(`)
	commandRe     = regexp.MustCompile(`^([A-Za-z_][\w.]*)\s+(\S.*)$`)
	namedArgRe    = regexp.MustCompile(`^([A-Za-z_]\w*)\s*:\s*(.+)$`)
)

type blockKind int

const (
	blockNormal blockKind = iota
	blockDecl
	blockUnknown
)

type block struct {
	path   string
	kind   blockKind
	header string
	line   int
}

type parser struct {
	label string
	b     *builder
	stack []block
	diags []diag.Diagnostic
}

// Parse turns one fragment's Gradle source into dotted-path entries.
//
// Unrecognized syntax is skipped with a warning diagnostic. A *ParseError is
// returned only for structural malformation, in which case the fragment is
// nil and the diagnostics collected so far are still returned.
func Parse(label string, src []byte) (*Fragment, []diag.Diagnostic, error) {
	tokens, err := lex(string(src))
	if err != nil {
		var le *lexError
		if errors.As(err, &le) {
			return nil, nil, &ParseError{Label: label, Line: le.line, Msg: le.msg}
		}
		return nil, nil, &ParseError{Label: label, Msg: err.Error()}
	}

	p := &parser{label: label, b: newBuilder(label), stack: []block{{}}}
	for _, tok := range tokens {
		switch tok.kind {
		case tokOpen:
			p.open(tok)
		case tokClose:
			if len(p.stack) == 1 {
				return nil, p.diags, &ParseError{Label: label, Line: tok.line, Msg: "unexpected '}'"}
			}
			p.stack = p.stack[:len(p.stack)-1]
		case tokStatement:
			if p.top().kind == blockUnknown {
				continue
			}
			p.statement(tok)
		}
	}
	if len(p.stack) > 1 {
		open := p.stack[len(p.stack)-1]
		return nil, p.diags, &ParseError{
			Label: label,
			Line:  open.line,
			Msg:   fmt.Sprintf("unclosed block %q", open.header),
		}
	}
	return p.b.build(Digest(src)), p.diags, nil
}

func (p *parser) top() block { return p.stack[len(p.stack)-1] }

func (p *parser) warn(line int, format string, args ...any) {
	p.diags = append(p.diags, diag.Warningf(diag.CodeSyntax, format, args...).At(p.label, line))
}

func (p *parser) open(tok token) {
	parent := p.top()
	if parent.kind == blockUnknown {
		p.stack = append(p.stack, block{kind: blockUnknown, header: tok.text, line: tok.line})
		return
	}
	segs, ok := blockSegments(tok.text)
	if !ok {
		p.warn(tok.line, "unrecognized block %q; contents skipped", tok.text)
		p.stack = append(p.stack, block{kind: blockUnknown, header: tok.text, line: tok.line})
		return
	}
	path := joinPath(parent.path, segs...)
	kind := blockNormal
	if declBlocks[segs[len(segs)-1]] {
		kind = blockDecl
	}
	p.stack = append(p.stack, block{path: path, kind: kind, header: tok.text, line: tok.line})
}

// controlKeywords open blocks whose contents are conditional or scoped
// code rather than configuration.
var controlKeywords = map[string]bool{
	"else": true, "try": true, "finally": true, "do": true, "init": true,
}

// blockSegments derives path segments from a block header.
func blockSegments(header string) ([]string, bool) {
	switch {
	case controlKeywords[header]:
		return nil, false
	case dottedIdentRe.MatchString(header):
		return strings.Split(header, "."), true
	case namedBlockRe.MatchString(header):
		m := namedBlockRe.FindStringSubmatch(header)
		var segs []string
		if m[1] != "" {
			segs = strings.Split(m[1], ".")
		}
		return append(segs, m[2]), true
	case groovyTaskRe.MatchString(header):
		m := groovyTaskRe.FindStringSubmatch(header)
		return []string{"tasks", m[1]}, true
	}
	return nil, false
}

func joinPath(base string, segs ...string) string {
	parts := make([]string, 0, len(segs)+1)
	if base != "" {
		parts = append(parts, base)
	}
	parts = append(parts, segs...)
	return strings.Join(parts, ".")
}

func (p *parser) statement(tok token) {
	text := tok.text
	blk := p.top()

	for _, kw := range []string{"import ", "package ", "val ", "var ", "def ", "@file:"} {
		if strings.HasPrefix(text, kw) {
			p.warn(tok.line, "declaration %q ignored", abbrev(text))
			return
		}
	}

	if lhs, rhs, op, ok := splitAssignment(text); ok {
		if !dottedIdentRe.MatchString(lhs) {
			p.warn(tok.line, "unrecognized assignment target %q", lhs)
			return
		}
		path := joinPath(blk.path, strings.Split(lhs, ".")...)
		v := ParseLiteral(rhs)
		if op == "+=" {
			items := []Value{v}
			if v.Kind() == KindList {
				items = v.Items()
			}
			p.appendAt(path, items, tok.line)
			return
		}
		p.assign(path, v, tok.line)
		return
	}

	if name, args, tail, ok := splitCall(text); ok {
		p.call(blk, name, args, tail, tok.line)
		return
	}

	if m := commandRe.FindStringSubmatch(text); m != nil {
		name, rest := m[1], m[2]
		if na := namedArgRe.FindStringSubmatch(rest); na != nil {
			p.appendAt(joinPath(blk.path, append(strings.Split(name, "."), na[1])...),
				[]Value{ParseLiteral(na[2])}, tok.line)
			return
		}
		args := splitArgs(rest)
		if blk.kind == blockDecl {
			p.declare(blk, name, args, tok.line)
			return
		}
		path := joinPath(blk.path, strings.Split(name, ".")...)
		if len(args) == 1 && !listCommands[lastSegment(name)] {
			p.assign(path, ParseLiteral(args[0]), tok.line)
			return
		}
		p.appendAt(path, literals(args), tok.line)
		return
	}

	p.warn(tok.line, "unrecognized statement %q ignored", abbrev(text))
}

func (p *parser) call(blk block, name string, args []string, tail string, line int) {
	if strings.TrimSpace(tail) != "" && blk.kind != blockDecl {
		p.warn(line, "unrecognized statement %q ignored", name+"(...)"+tail)
		return
	}
	if blk.kind == blockDecl {
		p.declare(blk, name, args, line)
		return
	}
	if len(args) == 0 {
		if blk.path == "" {
			p.warn(line, "top-level call %s() ignored", name)
			return
		}
		p.appendAt(blk.path, []Value{Expr(name + "()")}, line)
		return
	}
	path := joinPath(blk.path, strings.Split(name, ".")...)
	if len(args) == 1 && setterCalls[lastSegment(name)] {
		p.assign(path, ParseLiteral(args[0]), line)
		return
	}
	p.appendAt(path, literals(args), line)
}

// declare records a call or command inside plugins, dependencies, or
// repositories. Plugin tails such as `version "1.0" apply false` are dropped.
func (p *parser) declare(blk block, name string, args []string, line int) {
	if len(args) == 0 {
		p.appendAt(blk.path, []Value{Expr(name + "()")}, line)
		return
	}
	if lastSegment(blk.path) == "plugins" {
		args = args[:1]
		args[0] = leadingLiteral(args[0])
	}
	p.appendAt(joinPath(blk.path, strings.Split(name, ".")...), literals(args), line)
}

func (p *parser) assign(path string, v Value, line int) {
	prev, existed := p.b.set(path, v, line)
	if existed && !prev.Value.Equal(v) {
		p.diags = append(p.diags, diag.Warningf(diag.CodeReassigned,
			"%s reassigned from %s (line %d) to %s", path, prev.Value, prev.Line, v).
			At(p.label, line).On(path))
	}
}

func (p *parser) appendAt(path string, items []Value, line int) {
	if !p.b.appendItems(path, items, line) {
		p.diags = append(p.diags, diag.Warningf(diag.CodeReassigned,
			"%s was a scalar and is now a list", path).At(p.label, line).On(path))
	}
}

// splitAssignment finds a top-level `=` or `+=` outside strings and
// brackets. Comparison operators are not assignments.
func splitAssignment(s string) (lhs, rhs, op string, ok bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"' || c == '\'':
			i = scanQuoted(s, i) - 1
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == '=' && depth == 0:
			if i+1 < len(s) && s[i+1] == '=' {
				return "", "", "", false
			}
			if i > 0 && strings.IndexByte("=!<>-*/%", s[i-1]) >= 0 {
				return "", "", "", false
			}
			if i > 0 && s[i-1] == '+' {
				return strings.TrimSpace(s[:i-1]), strings.TrimSpace(s[i+1:]), "+=", true
			}
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), "=", true
		}
	}
	return "", "", "", false
}

// splitCall parses `name(args) tail` where name may be dotted and carry a
// generic type argument.
func splitCall(s string) (name string, args []string, tail string, ok bool) {
	m := callHeadRe.FindStringSubmatchIndex(s)
	if m == nil {
		return "", nil, "", false
	}
	open := m[1] - 1
	closeIdx := matchingClose(s, open)
	if closeIdx < 0 {
		return "", nil, "", false
	}
	name = s[m[2]:m[3]]
	return name, splitArgs(s[open+1 : closeIdx]), s[closeIdx+1:], true
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range splitTopLevel(s, ',') {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func literals(args []string) []Value {
	out := make([]Value, len(args))
	for i, a := range args {
		out[i] = ParseLiteral(a)
	}
	return out
}

// leadingLiteral returns the first string literal of s, or s unchanged.
func leadingLiteral(s string) string {
	s = strings.TrimSpace(s)
	if s != "" && (s[0] == '"' || s[0] == '\'') {
		return s[:scanQuoted(s, 0)]
	}
	return s
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func abbrev(s string) string {
	const max = 60
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
