package fragment

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokStatement tokenKind = iota
	tokOpen
	tokClose
)

// token is one statement, block header, or block close found by the lexer.
type token struct {
	kind tokenKind
	text string
	line int
}

// lexer splits Gradle build script source into statements and block
// delimiters. Comments are dropped; string contents are copied verbatim so
// braces inside strings and ${} templates never affect nesting. Newlines
// inside parentheses or brackets, or after a trailing comma, continue the
// current statement. A "{" on the line after a statement opens a block
// with that statement as its header.
type lexer struct {
	src    string
	pos    int
	line   int
	buf    strings.Builder
	start  int // line of the first character in buf
	nest   []nestMark
	tokens []token
	// ended is set when the last token is a statement ended by a newline.
	ended bool
}

type nestMark struct {
	ch   byte
	line int
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src, line: 1}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *lexer) run() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '/' && l.peek(1) == '/':
			l.skipLineComment()
			continue
		case c == '/' && l.peek(1) == '*':
			if err := l.skipBlockComment(); err != nil {
				return err
			}
			continue
		case c == '"' || c == '\'':
			if err := l.copyString(); err != nil {
				return err
			}
			continue
		}

		switch c {
		case '(', '[':
			l.nest = append(l.nest, nestMark{ch: c, line: l.line})
			l.write(c)
		case ')', ']':
			open := byte('(')
			if c == ']' {
				open = '['
			}
			if len(l.nest) == 0 || l.nest[len(l.nest)-1].ch != open {
				return errAt(l.line, "unexpected %q", c)
			}
			l.nest = l.nest[:len(l.nest)-1]
			l.write(c)
		case '{':
			if len(l.nest) > 0 {
				l.nest = append(l.nest, nestMark{ch: c, line: l.line})
				l.write(c)
				break
			}
			header, line := strings.TrimSpace(l.buf.String()), l.start
			if header == "" {
				line = l.line
				if n := len(l.tokens); l.ended && n > 0 && l.tokens[n-1].kind == tokStatement {
					header, line = l.tokens[n-1].text, l.tokens[n-1].line
					l.tokens = l.tokens[:n-1]
				}
			}
			l.tokens = append(l.tokens, token{kind: tokOpen, text: header, line: line})
			l.reset()
			l.ended = false
		case '}':
			if len(l.nest) > 0 {
				if l.nest[len(l.nest)-1].ch != '{' {
					return errAt(l.line, "unexpected '}' inside %q opened at line %d",
						l.nest[len(l.nest)-1].ch, l.nest[len(l.nest)-1].line)
				}
				l.nest = l.nest[:len(l.nest)-1]
				l.write(c)
				break
			}
			l.flush()
			l.tokens = append(l.tokens, token{kind: tokClose, line: l.line})
			l.ended = false
		case '\n':
			if len(l.nest) > 0 || strings.HasSuffix(strings.TrimRight(l.buf.String(), " \t\r"), ",") {
				l.write(' ')
			} else if l.flush() {
				l.ended = true
			}
			l.line++
		case ';':
			if len(l.nest) > 0 {
				l.write(c)
			} else {
				l.flush()
				l.ended = false
			}
		default:
			l.write(c)
		}
		l.pos++
	}
	if len(l.nest) > 0 {
		m := l.nest[len(l.nest)-1]
		return errAt(m.line, "unclosed %q", m.ch)
	}
	l.flush()
	return nil
}

func (l *lexer) peek(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) write(c byte) {
	if l.buf.Len() == 0 {
		if c == ' ' || c == '\t' || c == '\r' {
			return
		}
		l.start = l.line
	}
	l.buf.WriteByte(c)
}

func (l *lexer) reset() {
	l.buf.Reset()
}

// flush emits the buffered statement and reports whether there was one.
func (l *lexer) flush() bool {
	text := strings.TrimSpace(l.buf.String())
	l.reset()
	if text == "" {
		return false
	}
	l.tokens = append(l.tokens, token{kind: tokStatement, text: text, line: l.start})
	return true
}

func (l *lexer) skipLineComment() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
}

func (l *lexer) skipBlockComment() error {
	startLine := l.line
	l.pos += 2
	for l.pos < len(l.src) {
		if l.src[l.pos] == '*' && l.peek(1) == '/' {
			l.pos += 2
			return nil
		}
		if l.src[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
	return errAt(startLine, "unterminated block comment")
}

// copyString copies a quoted string literal, including its quotes, into the
// statement buffer. Triple-quoted strings may span lines; others may not.
func (l *lexer) copyString() error {
	q := l.src[l.pos]
	startLine := l.line
	if q == '"' && strings.HasPrefix(l.src[l.pos:], `"""`) {
		end := strings.Index(l.src[l.pos+3:], `"""`)
		if end < 0 {
			return errAt(startLine, "unterminated string")
		}
		lit := l.src[l.pos : l.pos+3+end+3]
		for i := 0; i < len(lit); i++ {
			l.write(lit[i])
		}
		l.line += strings.Count(lit, "\n")
		l.pos += len(lit)
		return nil
	}
	l.write(q)
	l.pos++
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '\\':
			l.write(c)
			if l.pos+1 < len(l.src) && l.src[l.pos+1] != '\n' {
				l.write(l.src[l.pos+1])
				l.pos++
			}
		case '\n':
			return errAt(startLine, "unterminated string")
		case q:
			l.write(c)
			l.pos++
			return nil
		default:
			l.write(c)
		}
		l.pos++
	}
	return errAt(startLine, "unterminated string")
}

type lexError struct {
	line int
	msg  string
}

func (e *lexError) Error() string { return fmt.Sprintf("line %d: %s", e.line, e.msg) }

func errAt(line int, format string, args ...any) error {
	return &lexError{line: line, msg: fmt.Sprintf(format, args...)}
}

// scanQuoted returns the index just past the string literal starting at i,
// or len(s) if it is unterminated.
func scanQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j + 1
		}
	}
	return len(s)
}

// matchingClose returns the index of the bracket closing the one at open,
// skipping string literals, or -1.
func matchingClose(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '"', '\'':
			i = scanQuoted(s, i) - 1
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on sep where sep is outside strings and brackets.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"' || c == '\'':
			i = scanQuoted(s, i) - 1
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	return append(parts, s[last:])
}
