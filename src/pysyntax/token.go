package pysyntax

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind classifies a token.
type Kind int

const (
	EOF Kind = iota
	Name
	Number
	String
	Op
	Newline
	Indent
	Dedent
)

func (k Kind) String() string {
	switch k {
	case Name:
		return "NAME"
	case Number:
		return "NUMBER"
	case String:
		return "STRING"
	case Op:
		return "OP"
	case Newline:
		return "NEWLINE"
	case Indent:
		return "INDENT"
	case Dedent:
		return "DEDENT"
	default:
		return "EOF"
	}
}

// Token is one lexical element of a Python source file. Comments and
// non-logical line breaks are dropped by the tokenizer.
type Token struct {
	Kind   Kind
	Text   string
	Prefix string // lowercased string prefix ("", "r", "f", "rb", ...)
	Line   int
	Col    int
}

// SyntaxError reports the first structural error found in a source file.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Col > 0 {
		return fmt.Sprintf("line %d:%d: %s", e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Longest operators first; the lexer takes the first match.
var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"->", ":=", "**", "//", "<<", ">>", "<=", ">=", "==", "!=",
	"+=", "-=", "*=", "/=", "%=", "@=", "&=", "|=", "^=",
	"+", "-", "*", "/", "%", "@", "&", "|", "^", "~", "<", ">",
	"(", ")", "[", "]", "{", "}", ",", ":", ";", ".", "=",
}

var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

type paren struct {
	ch   byte
	line int
	col  int
}

type lexer struct {
	src       []byte
	pos       int
	line      int
	lineStart int

	indents   []int
	parens    []paren
	lineBegin bool // at the start of a logical line, indentation not yet measured
	pending   bool // tokens emitted since the last NEWLINE

	toks []Token
}

// Tokenize splits src into tokens, synthesizing NEWLINE, INDENT and DEDENT
// the way the Python tokenizer does. src must be UTF-8.
func Tokenize(src []byte) ([]Token, error) {
	if !utf8.Valid(src) {
		return nil, &SyntaxError{Line: invalidUTF8Line(src), Msg: "source is not valid UTF-8"}
	}
	src = bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	src = bytes.ReplaceAll(src, []byte("\r"), []byte("\n"))

	l := &lexer{src: src, line: 1, indents: []int{0}, lineBegin: true}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.toks, nil
}

func invalidUTF8Line(src []byte) int {
	line := 1
	for len(src) > 0 {
		r, size := utf8.DecodeRune(src)
		if r == utf8.RuneError && size <= 1 {
			return line
		}
		if r == '\n' {
			line++
		}
		src = src[size:]
	}
	return line
}

func (l *lexer) col() int { return l.pos - l.lineStart + 1 }

func (l *lexer) errorf(line, col int, format string, args ...any) error {
	return &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) emit(kind Kind, text, prefix string, line, col int) {
	l.toks = append(l.toks, Token{Kind: kind, Text: text, Prefix: prefix, Line: line, Col: col})
	switch kind {
	case Newline, Indent, Dedent, EOF:
	default:
		l.pending = true
	}
}

func (l *lexer) run() error {
	for {
		if l.lineBegin && len(l.parens) == 0 {
			if err := l.indentation(); err != nil {
				return err
			}
		}
		if l.pos >= len(l.src) {
			break
		}

		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.newline()
		case c == ' ' || c == '\t' || c == '\f':
			l.pos++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '\\':
			if l.pos+1 >= len(l.src) {
				return l.errorf(l.line, l.col(), "unexpected EOF while parsing")
			}
			if l.src[l.pos+1] != '\n' {
				return l.errorf(l.line, l.col(), "unexpected character after line continuation character")
			}
			l.pos += 2
			l.line++
			l.lineStart = l.pos
		case c == '"' || c == '\'':
			if err := l.lexString(l.pos, ""); err != nil {
				return err
			}
		case c >= '0' && c <= '9', c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]):
			l.lexNumber()
		case c == '_' || c >= utf8.RuneSelf || isLetter(c):
			if err := l.lexName(); err != nil {
				return err
			}
		default:
			if err := l.lexOp(); err != nil {
				return err
			}
		}
	}

	if n := len(l.parens); n > 0 {
		p := l.parens[n-1]
		return l.errorf(p.line, p.col, "'%c' was never closed", p.ch)
	}
	if l.pending {
		l.emit(Newline, "", "", l.line, l.col())
		l.pending = false
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(Dedent, "", "", l.line, 0)
	}
	l.emit(EOF, "", "", l.line, 0)
	return nil
}

func (l *lexer) newline() {
	if len(l.parens) == 0 {
		if l.pending {
			l.emit(Newline, "", "", l.line, l.col())
			l.pending = false
		}
		l.lineBegin = true
	}
	l.pos++
	l.line++
	l.lineStart = l.pos
}

// indentation measures the leading whitespace of a logical line and emits
// INDENT/DEDENT tokens. Blank and comment-only lines are left untouched.
func (l *lexer) indentation() error {
	col, p := 0, l.pos
loop:
	for p < len(l.src) {
		switch l.src[p] {
		case ' ':
			col++
		case '\t':
			col = (col/8 + 1) * 8
		case '\f':
			col = 0
		default:
			break loop
		}
		p++
	}
	l.pos = p
	if p >= len(l.src) || l.src[p] == '\n' || l.src[p] == '#' {
		return nil
	}
	l.lineBegin = false

	top := l.indents[len(l.indents)-1]
	switch {
	case col > top:
		l.indents = append(l.indents, col)
		l.emit(Indent, "", "", l.line, col+1)
	case col < top:
		for col < l.indents[len(l.indents)-1] {
			l.indents = l.indents[:len(l.indents)-1]
			l.emit(Dedent, "", "", l.line, col+1)
		}
		if col != l.indents[len(l.indents)-1] {
			return l.errorf(l.line, col+1, "unindent does not match any outer indentation level")
		}
	}
	return nil
}

func (l *lexer) lexName() error {
	start, line, col := l.pos, l.line, l.col()
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c < utf8.RuneSelf {
			if c == '_' || isLetter(c) || isDigit(c) {
				l.pos++
				continue
			}
			break
		}
		r, size := utf8.DecodeRune(l.src[l.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r) {
			if l.pos == start {
				return l.errorf(line, col, "invalid character '%c' (U+%04X)", r, r)
			}
			break
		}
		l.pos += size
	}
	if l.pos == start {
		r, _ := utf8.DecodeRune(l.src[l.pos:])
		return l.errorf(line, col, "invalid character '%c' (U+%04X)", r, r)
	}

	name := string(l.src[start:l.pos])
	if l.pos < len(l.src) && (l.src[l.pos] == '"' || l.src[l.pos] == '\'') && isStringPrefix(name) {
		return l.lexString(start, strings.ToLower(name))
	}
	l.emit(Name, name, "", line, col)
	return nil
}

func isStringPrefix(s string) bool {
	switch strings.ToLower(s) {
	case "r", "u", "b", "f", "t", "br", "rb", "fr", "rf", "tr", "rt":
		return true
	}
	return false
}

// lexString scans a string literal whose prefix starts at start and whose
// opening quote is at l.pos.
func (l *lexer) lexString(start int, prefix string) error {
	line, col := l.line, start-l.lineStart+1
	if err := l.scanString(prefix); err != nil {
		return err
	}
	l.emit(String, string(l.src[start:l.pos]), prefix, line, col)
	return nil
}

func (l *lexer) scanString(prefix string) error {
	startLine := l.line
	q := l.src[l.pos]
	triple := l.pos+2 < len(l.src) && l.src[l.pos+1] == q && l.src[l.pos+2] == q
	if triple {
		l.pos += 3
	} else {
		l.pos++
	}
	format := strings.ContainsAny(prefix, "ft")

	for {
		if l.pos >= len(l.src) {
			if triple {
				return l.errorf(startLine, 0, "unterminated triple-quoted string literal (detected at line %d)", l.line)
			}
			return l.errorf(startLine, 0, "unterminated string literal (detected at line %d)", l.line)
		}
		c := l.src[l.pos]
		switch {
		case c == '\\':
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '\n' {
				l.pos += 2
				l.line++
				l.lineStart = l.pos
				continue
			}
			l.pos += 2
		case c == '\n':
			if !triple {
				return l.errorf(startLine, 0, "unterminated string literal (detected at line %d)", l.line)
			}
			l.pos++
			l.line++
			l.lineStart = l.pos
		case c == q:
			if !triple {
				l.pos++
				return nil
			}
			if l.pos+2 < len(l.src) && l.src[l.pos+1] == q && l.src[l.pos+2] == q {
				l.pos += 3
				return nil
			}
			l.pos++
		case format && c == '{':
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '{' {
				l.pos += 2
				continue
			}
			l.pos++
			if err := l.skipReplacement(startLine); err != nil {
				return err
			}
		default:
			l.pos++
		}
	}
}

// skipReplacement consumes an f-string replacement field up to and including
// its closing brace. Nested string literals may reuse the outer quote.
func (l *lexer) skipReplacement(startLine int) error {
	depth := 0
	spec := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.lineStart = l.pos + 1
		case c == '{':
			if spec {
				l.pos++
				if err := l.skipReplacement(startLine); err != nil {
					return err
				}
				continue
			}
			depth++
		case c == '(' || c == '[':
			if !spec {
				depth++
			}
		case c == ')' || c == ']':
			if !spec {
				depth--
			}
		case c == '}':
			if depth == 0 {
				l.pos++
				return nil
			}
			depth--
		case !spec && (c == '"' || c == '\''):
			if err := l.scanString(""); err != nil {
				return err
			}
			continue
		case !spec && depth == 0 && c == ':':
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '=' {
				l.pos++
			} else {
				spec = true
			}
		}
		l.pos++
	}
	return l.errorf(startLine, 0, "f-string: expecting '}'")
}

func (l *lexer) lexNumber() {
	start, line, col := l.pos, l.line, l.col()
	hex := l.pos+1 < len(l.src) && l.src[l.pos] == '0' && (l.src[l.pos+1]|0x20) == 'x'
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if !(isLetter(c) || isDigit(c) || c == '_' || c == '.') {
			break
		}
		if !hex && (c == 'e' || c == 'E') && l.pos+1 < len(l.src) && (l.src[l.pos+1] == '+' || l.src[l.pos+1] == '-') {
			l.pos += 2
			continue
		}
		l.pos++
	}
	l.emit(Number, string(l.src[start:l.pos]), "", line, col)
}

func (l *lexer) lexOp() error {
	line, col := l.line, l.col()
	rest := l.src[l.pos:]
	for _, op := range operators {
		if !bytes.HasPrefix(rest, []byte(op)) {
			continue
		}
		if len(op) == 1 {
			c := op[0]
			switch c {
			case '(', '[', '{':
				l.parens = append(l.parens, paren{ch: c, line: line, col: col})
			case ')', ']', '}':
				n := len(l.parens)
				if n == 0 {
					return l.errorf(line, col, "unmatched '%c'", c)
				}
				if open := l.parens[n-1]; open.ch != closers[c] {
					return l.errorf(line, col, "closing parenthesis '%c' does not match opening parenthesis '%c'", c, open.ch)
				}
				l.parens = l.parens[:n-1]
			}
		}
		l.pos += len(op)
		l.emit(Op, op, "", line, col)
		return nil
	}
	return l.errorf(line, col, "invalid syntax")
}

func isLetter(c byte) bool { return (c|0x20) >= 'a' && (c|0x20) <= 'z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
