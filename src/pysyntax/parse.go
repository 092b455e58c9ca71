// Package pysyntax is a structural parser for Python 3 source. It does not
// build a full syntax tree; it tokenizes the file the way CPython does,
// checks block structure, and records the statements the build engine
// cares about: imports, function definitions, docstrings and the
// `if __name__ == "__main__"` guard.
package pysyntax

import (
	"slices"
	"strconv"
	"strings"
)

// Import is one imported module reference.
type Import struct {
	Module string // dotted module path, "" for `from . import x`
	Level  int    // leading dots of a relative import
	From   bool   // from-import statement
	Line   int
}

// TopLevel returns the first component of the dotted module path.
func (i Import) TopLevel() string {
	name, _, _ := strings.Cut(i.Module, ".")
	return name
}

// Func is a function definition at any nesting depth.
type Func struct {
	Name      string
	Line      int
	Depth     int
	Async     bool
	Docstring bool
}

// Module is the structural summary of a parsed source file.
type Module struct {
	Docstring bool
	Imports   []Import
	Funcs     []Func
	MainGuard bool
	HasExcept bool

	names map[string]struct{}
}

// HasFunc reports whether a function with the given name is defined anywhere
// in the module.
func (m *Module) HasFunc(name string) bool {
	for _, f := range m.Funcs {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Func returns the first definition of name.
func (m *Module) Func(name string) (Func, bool) {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f, true
		}
	}
	return Func{}, false
}

// Uses reports whether the identifier appears as a name token in code.
// Occurrences inside strings and comments do not count.
func (m *Module) Uses(name string) bool {
	_, ok := m.names[name]
	return ok
}

var keywords = map[string]bool{
	"and": true, "as": true, "assert": true, "async": true, "await": true,
	"break": true, "class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true, "for": true,
	"from": true, "global": true, "if": true, "import": true, "in": true,
	"is": true, "lambda": true, "nonlocal": true, "not": true, "or": true,
	"pass": true, "raise": true, "return": true, "try": true, "while": true,
	"with": true, "yield": true,
}

var compound = map[string]bool{
	"if": true, "elif": true, "else": true, "for": true, "while": true,
	"try": true, "except": true, "finally": true, "with": true,
	"def": true, "class": true,
}

var softKeywords = map[string]bool{"match": true, "case": true, "type": true}

type parser struct {
	mod *Module

	expectIndent bool
	openLine     int
	first        bool
	docFor       int // index into mod.Funcs awaiting its first body statement, -1 when none

	// opener is the compound keyword that last ended a statement at each
	// depth, "" after a simple statement.
	opener map[int]string
}

// Parse tokenizes and structurally checks src. A *SyntaxError is returned
// for the first problem found.
func Parse(src []byte) (*Module, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{
		mod:    &Module{names: make(map[string]struct{})},
		first:  true,
		docFor: -1,
		opener: make(map[int]string),
	}

	depth := 0
	var line []Token
	for _, t := range toks {
		switch t.Kind {
		case Indent:
			if !p.expectIndent {
				return nil, &SyntaxError{Line: t.Line, Col: t.Col, Msg: "unexpected indent"}
			}
			p.expectIndent = false
			depth++
		case Dedent:
			depth--
		case Newline:
			if err := p.logicalLine(line, depth); err != nil {
				return nil, err
			}
			line = line[:0]
		case EOF:
			if p.expectIndent {
				return nil, &SyntaxError{Line: t.Line, Msg: "expected an indented block after line " + strconv.Itoa(p.openLine)}
			}
		default:
			if len(line) == 0 && p.expectIndent {
				return nil, &SyntaxError{Line: t.Line, Col: t.Col, Msg: "expected an indented block after line " + strconv.Itoa(p.openLine)}
			}
			if t.Kind == Name {
				p.mod.names[t.Text] = struct{}{}
			}
			line = append(line, t)
		}
	}
	return p.mod, nil
}

func (p *parser) logicalLine(toks []Token, depth int) error {
	if len(toks) == 0 {
		return nil
	}
	for d := range p.opener {
		if d > depth {
			delete(p.opener, d)
		}
	}
	inMatch := depth > 0 && p.opener[depth-1] == "match"
	if isCompound(toks) || (inMatch && toks[0].Kind == Name && toks[0].Text == "case") {
		colon := topLevelIndex(toks, ":")
		if colon < 0 {
			return &SyntaxError{Line: toks[0].Line, Col: toks[0].Col, Msg: "expected ':'"}
		}
		header, body := toks[:colon], toks[colon+1:]
		if err := p.continuation(header, depth); err != nil {
			return err
		}
		if err := p.header(header, depth); err != nil {
			return err
		}
		if len(body) == 0 {
			p.expectIndent = true
			p.openLine = toks[0].Line
			return nil
		}
		return p.simpleStatements(body, depth+1)
	}
	p.opener[depth] = ""
	return p.simpleStatements(toks, depth)
}

// continuation rejects a clause keyword whose opening statement is not the
// previous statement at the same depth, and records the clause otherwise.
func (p *parser) continuation(header []Token, depth int) error {
	kw := header[0].Text
	if kw == "async" && len(header) > 1 {
		kw = header[1].Text
	}
	var allowed []string
	switch kw {
	case "elif":
		allowed = []string{"if", "elif"}
	case "else":
		allowed = []string{"if", "elif", "for", "while", "except"}
	case "except":
		allowed = []string{"try", "except"}
	case "finally":
		allowed = []string{"try", "except", "else"}
	}
	if allowed != nil && !slices.Contains(allowed, p.opener[depth]) {
		return &SyntaxError{Line: header[0].Line, Col: header[0].Col, Msg: "invalid syntax"}
	}
	p.opener[depth] = kw
	return nil
}

func (p *parser) simpleStatements(toks []Token, depth int) error {
	for _, stmt := range splitTopLevel(toks, ";") {
		if len(stmt) == 0 {
			continue
		}
		if err := p.statement(stmt, depth); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) noteFirst(toks []Token) {
	doc := allStrings(toks)
	if p.first {
		p.mod.Docstring = doc
		p.first = false
	}
	if p.docFor >= 0 {
		p.mod.Funcs[p.docFor].Docstring = doc
		p.docFor = -1
	}
}

func (p *parser) header(toks []Token, depth int) error {
	p.noteFirst(nil)
	if err := checkAdjacent(toks); err != nil {
		return err
	}

	kw := toks[0].Text
	async := false
	if kw == "async" && len(toks) > 1 {
		async = true
		kw = toks[1].Text
		toks = toks[1:]
	}
	if err := checkOperands(toks); err != nil {
		return err
	}

	switch kw {
	case "def", "class":
		if len(toks) < 2 || toks[1].Kind != Name || keywords[toks[1].Text] {
			return &SyntaxError{Line: toks[0].Line, Col: toks[0].Col, Msg: "invalid syntax"}
		}
		if kw == "def" {
			p.mod.Funcs = append(p.mod.Funcs, Func{
				Name:  toks[1].Text,
				Line:  toks[0].Line,
				Depth: depth,
				Async: async,
			})
			p.docFor = len(p.mod.Funcs) - 1
		}
	case "if":
		if isMainGuard(toks[1:]) {
			p.mod.MainGuard = true
		}
	case "except":
		p.mod.HasExcept = true
	}
	return nil
}

func (p *parser) statement(toks []Token, depth int) error {
	p.noteFirst(toks)
	if err := checkAdjacent(toks); err != nil {
		return err
	}

	if toks[0].Kind == Name {
		switch toks[0].Text {
		case "import":
			return p.importStmt(toks)
		case "from":
			return p.fromStmt(toks)
		}
	}
	if err := checkOperands(toks); err != nil {
		return err
	}
	if last := toks[len(toks)-1]; last.Kind == Op && last.Text == ":" {
		return &SyntaxError{Line: last.Line, Col: last.Col, Msg: "expected expression"}
	}
	return checkTargets(toks)
}

// importStmt handles `import a.b as c, d`.
func (p *parser) importStmt(toks []Token) error {
	line := toks[0].Line
	before := len(p.mod.Imports)
	var cur []string
	skip := false
	flush := func() {
		if len(cur) > 0 {
			p.mod.Imports = append(p.mod.Imports, Import{Module: strings.Join(cur, "."), Line: line})
		}
		cur = nil
	}
	for _, t := range toks[1:] {
		switch {
		case t.Kind == Name && t.Text == "as":
			skip = true
		case t.Kind == Name:
			if skip {
				skip = false
				continue
			}
			cur = append(cur, t.Text)
		case t.Kind == Op && t.Text == ",":
			flush()
		case t.Kind == Op && t.Text == ".":
		default:
			return &SyntaxError{Line: t.Line, Col: t.Col, Msg: "invalid syntax"}
		}
	}
	flush()
	if len(p.mod.Imports) == before {
		return &SyntaxError{Line: line, Col: toks[0].Col, Msg: "invalid syntax"}
	}
	return nil
}

// fromStmt handles `from ..pkg.mod import x`.
func (p *parser) fromStmt(toks []Token) error {
	level := 0
	var parts []string
	i := 1
	for ; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == Op && t.Text == "." {
			level++
			continue
		}
		if t.Kind == Op && t.Text == "..." {
			level += 3
			continue
		}
		break
	}
	for ; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == Name && t.Text == "import" {
			break
		}
		switch {
		case t.Kind == Name:
			parts = append(parts, t.Text)
		case t.Kind == Op && t.Text == ".":
		default:
			return &SyntaxError{Line: t.Line, Col: t.Col, Msg: "invalid syntax"}
		}
	}
	if i >= len(toks)-1 || (level == 0 && len(parts) == 0) {
		return &SyntaxError{Line: toks[0].Line, Col: toks[0].Col, Msg: "invalid syntax"}
	}
	p.mod.Imports = append(p.mod.Imports, Import{
		Module: strings.Join(parts, "."),
		Level:  level,
		From:   true,
		Line:   toks[0].Line,
	})
	return nil
}

func isCompound(toks []Token) bool {
	t := toks[0]
	if t.Kind != Name {
		return false
	}
	if compound[t.Text] {
		return true
	}
	if t.Text == "async" && len(toks) > 1 {
		switch toks[1].Text {
		case "def", "for", "with":
			return true
		}
	}
	if (t.Text == "match" || t.Text == "case") && len(toks) > 2 {
		last := toks[len(toks)-1]
		return last.Kind == Op && last.Text == ":" && topLevelIndex(toks, ":") == len(toks)-1
	}
	return false
}

func isMainGuard(cond []Token) bool {
	for i := 0; i+2 < len(cond); i++ {
		a, op, b := cond[i], cond[i+1], cond[i+2]
		if op.Kind != Op || op.Text != "==" {
			continue
		}
		if a.Kind == Name && a.Text == "__name__" && isMainLiteral(b) {
			return true
		}
		if b.Kind == Name && b.Text == "__name__" && isMainLiteral(a) {
			return true
		}
	}
	return false
}

func isMainLiteral(t Token) bool {
	return t.Kind == String && strings.Trim(strings.TrimLeft(t.Text, "rRuU"), `"'`) == "__main__"
}

func allStrings(toks []Token) bool {
	if len(toks) == 0 {
		return false
	}
	for _, t := range toks {
		if t.Kind != String || strings.ContainsAny(t.Prefix, "fbt") {
			return false
		}
	}
	return true
}

func isAtom(t Token) bool {
	switch t.Kind {
	case Number, String:
		return true
	case Name:
		return !keywords[t.Text]
	}
	return false
}

// checkAdjacent rejects two operands with nothing between them, such as the
// Python 2 form `print "x"`. Adjacent string literals concatenate and soft
// keywords may lead a statement.
func checkAdjacent(toks []Token) error {
	for i := 1; i < len(toks); i++ {
		a, b := toks[i-1], toks[i]
		if !isAtom(a) || !isAtom(b) {
			continue
		}
		if a.Kind == String && b.Kind == String {
			continue
		}
		if i == 1 && a.Kind == Name && softKeywords[a.Text] {
			continue
		}
		if a.Kind == Name && (a.Text == "print" || a.Text == "exec") && i == 1 {
			return &SyntaxError{Line: a.Line, Col: a.Col, Msg: "Missing parentheses in call to '" + a.Text + "'"}
		}
		return &SyntaxError{Line: b.Line, Col: b.Col, Msg: "invalid syntax"}
	}
	return nil
}

var binaryOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "//": true, "%": true, "@": true, "**": true,
	"<<": true, ">>": true, "&": true, "|": true, "^": true,
	"<": true, ">": true, "<=": true, ">=": true, "==": true, "!=": true,
	"=": true, ":=": true, "->": true,
	"+=": true, "-=": true, "*=": true, "/=": true, "//=": true, "%=": true, "@=": true,
	"&=": true, "|=": true, "^=": true, ">>=": true, "<<=": true, "**=": true,
}

var augmented = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "//=": true, "%=": true, "@=": true,
	"&=": true, "|=": true, "^=": true, ">>=": true, "<<=": true, "**=": true,
}

// prefixOps may also start an operand: signs, inversion and unpacking.
var prefixOps = map[string]bool{"+": true, "-": true, "~": true, "*": true, "**": true}

// operandKeywords need an operand on their right.
var operandKeywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "is": true,
	"if": true, "else": true, "lambda": true, "await": true, "as": true, "from": true,
}

// leadingKeywords only ever start a statement.
var leadingKeywords = map[string]bool{
	"return": true, "pass": true, "break": true, "continue": true, "import": true,
	"global": true, "nonlocal": true, "del": true, "raise": true, "assert": true,
	"def": true, "class": true, "while": true, "try": true, "finally": true,
	"elif": true, "except": true, "with": true,
}

func isOp(t *Token, set map[string]bool) bool {
	return t != nil && t.Kind == Op && set[t.Text]
}

func isOpText(t *Token, texts ...string) bool {
	return t != nil && t.Kind == Op && slices.Contains(texts, t.Text)
}

// checkOperands rejects operators with a missing operand (`x = = 1`,
// `x = 1 +`, `f(1,,2)`) and statement keywords in the middle of a statement.
func checkOperands(toks []Token) error {
	at := func(i int) *Token {
		if i < 0 || i >= len(toks) {
			return nil
		}
		return &toks[i]
	}
	bad := func(t Token) error {
		return &SyntaxError{Line: t.Line, Col: t.Col, Msg: "invalid syntax"}
	}
	for i, t := range toks {
		prev, next := at(i-1), at(i+1)
		switch {
		case t.Kind == Name && i > 0 && leadingKeywords[t.Text]:
			return bad(t)
		case t.Kind == Name && i > 0 && operandKeywords[t.Text]:
			if next == nil || isOpText(next, ")", "]", "}", ",", "=") {
				return bad(t)
			}
		case t.Kind == Op && t.Text == ",":
			if prev == nil || isOpText(prev, "(", "[", "{", ",") || (isOp(prev, binaryOps) && !isOpText(prev, "*", "/")) {
				return bad(t)
			}
		case isOp(&t, binaryOps):
			// Bare `*` and `/` separate parameter kinds in signatures.
			if isOpText(&t, "*", "/") && isOpText(prev, "(", ",") && isOpText(next, ",", ")", ":") {
				continue
			}
			if isOpText(&t, "*") && isOpText(next, ",") {
				continue
			}
			if next == nil || isOpText(next, ")", "]", "}", ",", ":", ";") || (isOp(next, binaryOps) && !isOp(next, prefixOps)) {
				return bad(t)
			}
			if prefixOps[t.Text] || (t.Text == "@" && i == 0) {
				continue
			}
			// `a, = b` unpacks a one-element tuple.
			if t.Text == "=" && isOpText(prev, ",") {
				continue
			}
			if prev == nil || isOpText(prev, "(", "[", "{", ",") || isOp(prev, binaryOps) ||
				(prev.Kind == Name && keywords[prev.Text]) {
				return bad(t)
			}
		}
	}
	return nil
}

// checkTargets rejects assignment to a literal such as `1 = x`.
func checkTargets(toks []Token) error {
	parts := splitTopLevel(toks, "=")
	for _, target := range parts[:len(parts)-1] {
		if len(target) != 1 {
			continue
		}
		t := target[0]
		if t.Kind == Number || t.Kind == String || (t.Kind == Name && (t.Text == "None" || t.Text == "True" || t.Text == "False")) {
			return &SyntaxError{Line: t.Line, Col: t.Col, Msg: "cannot assign to literal"}
		}
	}
	if len(toks) > 1 && toks[1].Kind == Op && augmented[toks[1].Text] &&
		(toks[0].Kind == Number || toks[0].Kind == String) {
		return &SyntaxError{Line: toks[0].Line, Col: toks[0].Col, Msg: "cannot assign to literal"}
	}
	return nil
}

// topLevelIndex returns the index of the first op outside brackets.
func topLevelIndex(toks []Token, op string) int {
	depth := 0
	for i, t := range toks {
		if t.Kind != Op {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		default:
			if depth == 0 && t.Text == op {
				return i
			}
		}
	}
	return -1
}

func splitTopLevel(toks []Token, op string) [][]Token {
	var out [][]Token
	for {
		i := topLevelIndex(toks, op)
		if i < 0 {
			return append(out, toks)
		}
		out = append(out, toks[:i])
		toks = toks[i+1:]
	}
}
