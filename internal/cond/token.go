package cond

import (
	"fmt"
	"strings"
)

// TokenKind distinguishes lexical categories.
type TokenKind int

const (
	// TokenIdent is a column name or unquoted literal.
	TokenIdent TokenKind = iota + 1
	// TokenNumber is an integer or float literal.
	TokenNumber
	// TokenString is a quoted string literal (quotes stripped).
	TokenString
	// TokenOp is a comparison operator: = != > < >= <=.
	TokenOp
	// TokenKeyword is AND, OR, NOT or BETWEEN. Quantum spellings are
	// normalized to the plain keyword during lexing.
	TokenKeyword
	// TokenLParen and TokenRParen are grouping parentheses.
	TokenLParen
	TokenRParen
)

// Token is an atomic lexical unit. Immutable once produced.
type Token struct {
	Kind TokenKind
	Text string // canonical text: keywords upper-cased, == folded to =
	Pos  int    // byte offset in the condition text
}

// keyword aliases: the quantum spellings are a purely textual layer over
// the boolean operators.
var keywords = map[string]string{
	"AND":     "AND",
	"OR":      "OR",
	"NOT":     "NOT",
	"BETWEEN": "BETWEEN",
	"QAND":    "AND",
	"QOR":     "OR",
	"QNOT":    "NOT",
}

// Lex tokenizes condition text. Keywords are matched case-insensitively;
// identifiers and string literals keep their original case.
func Lex(text string) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(':
			tokens = append(tokens, Token{Kind: TokenLParen, Text: "(", Pos: i})
			i++

		case c == ')':
			tokens = append(tokens, Token{Kind: TokenRParen, Text: ")", Pos: i})
			i++

		case c == '\'' || c == '"':
			end := strings.IndexByte(text[i+1:], c)
			if end < 0 {
				return nil, &SyntaxError{Pos: i, Message: "unterminated string literal"}
			}
			tokens = append(tokens, Token{Kind: TokenString, Text: text[i+1 : i+1+end], Pos: i})
			i += end + 2

		case c == '>' || c == '<':
			op := string(c)
			if i+1 < len(text) && text[i+1] == '=' {
				op += "="
			}
			tokens = append(tokens, Token{Kind: TokenOp, Text: op, Pos: i})
			i += len(op)

		case c == '=':
			// Accept both = and == spellings.
			pos := i
			i++
			if i < len(text) && text[i] == '=' {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenOp, Text: "=", Pos: pos})

		case c == '!':
			if i+1 >= len(text) || text[i+1] != '=' {
				return nil, &SyntaxError{Pos: i, Message: "expected != operator"}
			}
			tokens = append(tokens, Token{Kind: TokenOp, Text: "!=", Pos: i})
			i += 2

		case isDigit(c) || (c == '-' && i+1 < len(text) && isDigit(text[i+1])):
			start := i
			i++
			for i < len(text) && (isDigit(text[i]) || text[i] == '.') {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenNumber, Text: text[start:i], Pos: start})

		case isIdentStart(c):
			start := i
			for i < len(text) && isIdentPart(text[i]) {
				i++
			}
			word := text[start:i]
			if canonical, ok := keywords[strings.ToUpper(word)]; ok {
				tokens = append(tokens, Token{Kind: TokenKeyword, Text: canonical, Pos: start})
			} else {
				tokens = append(tokens, Token{Kind: TokenIdent, Text: word, Pos: start})
			}

		default:
			return nil, &SyntaxError{Pos: i, Message: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return tokens, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
