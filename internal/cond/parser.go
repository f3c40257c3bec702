package cond

import "fmt"

// NodeKind tags the variants of a condition node.
type NodeKind int

const (
	// NodeComparison is column <op> literal.
	NodeComparison NodeKind = iota + 1
	// NodeVar is a bare boolean-valued column reference.
	NodeVar
	// NodeNot negates its Left child.
	NodeNot
	// NodeAnd and NodeOr combine Left and Right.
	NodeAnd
	NodeOr
)

// Node is one arena slot of a condition tree. Child links are arena
// indices, never pointers. Nodes are immutable after Parse returns.
type Node struct {
	Kind   NodeKind
	Column string // Comparison, Var
	Op     string // Comparison: = != > < >= <=
	Value  Value  // Comparison literal
	Left   int    // Not, And, Or
	Right  int    // And, Or
}

// Tree is a parsed condition: an arena of nodes plus the root index.
// The tree owns its nodes exclusively and is immutable after
// construction.
type Tree struct {
	Nodes []Node
	Root  int
}

// Parse turns condition text into a Tree. When schema is non-nil every
// referenced column must appear in it; nil schema disables the check
// (used when dumping an AST with no table in hand).
//
// BETWEEN is desugared during parsing:
//
//	col BETWEEN lo AND hi  =>  col >= lo AND col <= hi
//
// so downstream stages only ever see comparisons and boolean
// combinators.
func Parse(text string, schema []string) (*Tree, error) {
	tokens, err := Lex(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, &SyntaxError{Pos: 0, Message: "empty condition"}
	}

	p := &parser{tokens: tokens, textLen: len(text)}
	if schema != nil {
		p.columns = make(map[string]bool, len(schema))
		for _, c := range schema {
			p.columns[c] = true
		}
	}

	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		return nil, &SyntaxError{Pos: t.Pos, Message: fmt.Sprintf("unexpected token %q", t.Text)}
	}

	p.tree.Root = root
	return &p.tree, nil
}

type parser struct {
	tokens  []Token
	pos     int
	textLen int
	tree    Tree
	columns map[string]bool // nil = skip schema validation
}

func (p *parser) add(n Node) int {
	p.tree.Nodes = append(p.tree.Nodes, n)
	return len(p.tree.Nodes) - 1
}

func (p *parser) peek() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// checkColumn enforces the schema invariant: absence is a validation
// error, never a silent false.
func (p *parser) checkColumn(name string) error {
	if p.columns != nil && !p.columns[name] {
		return &UnknownColumnError{Column: name}
	}
	return nil
}

func (p *parser) parseOr() (int, error) {
	left, err := p.parseAnd()
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.Kind != TokenKeyword || t.Text != "OR" {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return 0, err
		}
		left = p.add(Node{Kind: NodeOr, Left: left, Right: right})
	}
}

func (p *parser) parseAnd() (int, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.Kind != TokenKeyword || t.Text != "AND" {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		left = p.add(Node{Kind: NodeAnd, Left: left, Right: right})
	}
}

func (p *parser) parseUnary() (int, error) {
	t, ok := p.peek()
	if ok && t.Kind == TokenKeyword && t.Text == "NOT" {
		p.pos++
		child, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return p.add(Node{Kind: NodeNot, Left: child}), nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (int, error) {
	t, ok := p.next()
	if !ok {
		return 0, &SyntaxError{Pos: p.textLen, Message: "unexpected end of condition"}
	}

	switch t.Kind {
	case TokenLParen:
		inner, err := p.parseOr()
		if err != nil {
			return 0, err
		}
		closing, ok := p.next()
		if !ok || closing.Kind != TokenRParen {
			return 0, &SyntaxError{Pos: t.Pos, Message: "unclosed parenthesis"}
		}
		return inner, nil

	case TokenIdent:
		return p.parseAfterIdent(t)

	default:
		return 0, &SyntaxError{Pos: t.Pos, Message: fmt.Sprintf("unexpected token %q", t.Text)}
	}
}

// parseAfterIdent handles the three shapes that start with an
// identifier: a comparison, a BETWEEN range, or a bare Var reference.
func (p *parser) parseAfterIdent(ident Token) (int, error) {
	if err := p.checkColumn(ident.Text); err != nil {
		return 0, err
	}

	t, ok := p.peek()
	if ok && t.Kind == TokenOp {
		p.pos++
		value, err := p.parseLiteralToken()
		if err != nil {
			return 0, err
		}
		return p.add(Node{Kind: NodeComparison, Column: ident.Text, Op: t.Text, Value: value}), nil
	}

	if ok && t.Kind == TokenKeyword && t.Text == "BETWEEN" {
		p.pos++
		return p.parseBetween(ident)
	}

	// Bare identifier: boolean column reference.
	return p.add(Node{Kind: NodeVar, Column: ident.Text}), nil
}

// parseBetween desugars "col BETWEEN lo AND hi" into two comparisons
// joined by AND. The AND here belongs to the BETWEEN form, not to the
// boolean grammar.
func (p *parser) parseBetween(ident Token) (int, error) {
	low, err := p.parseLiteralToken()
	if err != nil {
		return 0, err
	}
	kw, ok := p.next()
	if !ok || kw.Kind != TokenKeyword || kw.Text != "AND" {
		return 0, &SyntaxError{Pos: ident.Pos, Message: "BETWEEN requires AND between bounds"}
	}
	high, err := p.parseLiteralToken()
	if err != nil {
		return 0, err
	}

	lo := p.add(Node{Kind: NodeComparison, Column: ident.Text, Op: ">=", Value: low})
	hi := p.add(Node{Kind: NodeComparison, Column: ident.Text, Op: "<=", Value: high})
	return p.add(Node{Kind: NodeAnd, Left: lo, Right: hi}), nil
}

func (p *parser) parseLiteralToken() (Value, error) {
	t, ok := p.next()
	if !ok {
		return nil, &SyntaxError{Pos: p.textLen, Message: "expected literal"}
	}
	switch t.Kind {
	case TokenNumber:
		return ParseLiteral(t.Text), nil
	case TokenString:
		// Quoted literals are always strings, even when numeric-looking.
		return StringValue(t.Text), nil
	case TokenIdent:
		// Unquoted literal: numeric parsing first, string fallback.
		return ParseLiteral(t.Text), nil
	default:
		return nil, &SyntaxError{Pos: t.Pos, Message: fmt.Sprintf("expected literal, found %q", t.Text)}
	}
}
