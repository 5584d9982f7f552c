// Package parser parses annotations found in doc comments. An annotation
// starts with an '@' at the beginning of a line, followed by the (possibly
// package-qualified) name of the annotation type and an optional value:
//
//    @autovalue.AutoValue
//    @autovalue.AutoValue{CacheHashCode: false}
//    @Weight(-1.5)
//
// Values are literals (numbers, strings, runes, true, false, nil), references
// to named constants, or aggregates in braces, whose elements may have keys.
// Line breaks are significant between annotations but are ignored inside
// parentheses and braces.
package parser

import (
	"errors"
	"fmt"
	"go/constant"
	"go/token"
	"io"
	"text/scanner"
)

const (
	tokEOF rune = -(iota + 1)
	tokEOL
	tokIdent
	tokInt
	tokFloat
	tokImag
	tokChar
	tokString
)

var tokenNames = map[rune]string{
	tokEOF:    "end of input",
	tokEOL:    "end-of-line",
	tokIdent:  "identifier",
	tokInt:    "int literal",
	tokFloat:  "float literal",
	tokImag:   "imaginary literal",
	tokChar:   "rune literal",
	tokString: "string literal",
}

func tokenName(t rune) string {
	if n, ok := tokenNames[t]; ok {
		return n
	}
	return fmt.Sprintf("%q", t)
}

type lexToken struct {
	kind rune
	text string
	val  constant.Value
	pos  scanner.Position
}

type annoLex struct {
	err error

	pushed *lexToken
	s      scanner.Scanner
}

func newLexer(filename string, r io.Reader) *annoLex {
	var l annoLex
	l.s.Init(r)
	l.s.Filename = filename
	l.s.Mode = l.s.Mode &^ (scanner.ScanComments | scanner.SkipComments)
	l.s.Whitespace = 0
	l.s.Error = func(s *scanner.Scanner, msg string) {
		l.err = errors.New(msg)
	}
	return &l
}

func (l *annoLex) unread(t lexToken) {
	l.pushed = &t
}

func (l *annoLex) lex() (lexToken, error) {
	if l.pushed != nil {
		t := *l.pushed
		l.pushed = nil
		return t, nil
	}
	for {
		// we handle whitespace ourselves so that we can easily know the
		// *start* position for a token (otherwise, scanner package only makes
		// easy to determine *end* position for a token)
		pos := l.s.Pos()
		r := l.s.Scan()
		tok := l.s.TokenText()
		if l.err != nil {
			return lexToken{pos: pos}, l.err
		}
		t := lexToken{kind: r, text: tok, pos: pos}

		switch r {
		case ' ', '\t', '\r':
			continue
		case scanner.EOF:
			t.kind = tokEOF
		case '\n':
			t.kind = tokEOL
		case scanner.Ident:
			t.kind = tokIdent
		case scanner.Int, scanner.Float:
			kind, lit := token.INT, tokInt
			if r == scanner.Float {
				kind, lit = token.FLOAT, tokFloat
			}
			if l.s.Peek() == 'i' {
				l.s.Next() // consume it
				kind, lit = token.IMAG, tokImag
				tok += "i"
			}
			t.kind = lit
			t.text = tok
			t.val = constant.MakeFromLiteral(tok, kind, 0)
		case scanner.Char:
			t.kind = tokChar
			t.val = constant.MakeFromLiteral(tok, token.CHAR, 0)
		case scanner.String, scanner.RawString:
			t.kind = tokString
			t.val = constant.MakeFromLiteral(tok, token.STRING, 0)
		}
		if t.val != nil && t.val.Kind() == constant.Unknown {
			return t, fmt.Errorf("malformed literal %s", tok)
		}
		return t, nil
	}
}

// ParseError is returned when annotation text cannot be parsed. It includes
// the position of the offending token.
type ParseError struct {
	err error
	pos scanner.Position
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.pos.Line, e.pos.Column, e.err)
}

func (e *ParseError) Underlying() error {
	return e.err
}

func (e *ParseError) Pos() scanner.Position {
	return e.pos
}

// ParseAnnotations parses all annotations in the given reader. The filename is
// used only for positions in the returned AST and errors.
func ParseAnnotations(filename string, r io.Reader) ([]Annotation, *ParseError) {
	p := annoParser{l: newLexer(filename, r)}
	annos, err := p.parse()
	if err != nil {
		return nil, err
	}
	return annos, nil
}

type annoParser struct {
	l *annoLex
	// depth is the nesting of open parens and braces; line breaks are
	// insignificant when greater than zero
	depth int
}

func (p *annoParser) next() (lexToken, *ParseError) {
	for {
		t, err := p.l.lex()
		if err != nil {
			return t, &ParseError{err: err, pos: t.pos}
		}
		if t.kind == tokEOL && p.depth > 0 {
			continue
		}
		return t, nil
	}
}

func (p *annoParser) expect(kind rune) (lexToken, *ParseError) {
	t, err := p.next()
	if err != nil {
		return t, err
	}
	if t.kind != kind {
		return t, unexpected(t, tokenName(kind))
	}
	return t, nil
}

func unexpected(t lexToken, want string) *ParseError {
	var got string
	switch t.kind {
	case tokEOF, tokEOL:
		got = tokenName(t.kind)
	default:
		got = fmt.Sprintf("%s %q", tokenName(t.kind), t.text)
	}
	return &ParseError{err: fmt.Errorf("syntax error: unexpected %s, expecting %s", got, want), pos: t.pos}
}

func (p *annoParser) parse() ([]Annotation, *ParseError) {
	var annos []Annotation
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		switch t.kind {
		case tokEOF:
			return annos, nil
		case tokEOL:
			continue
		case '@':
			a, err := p.parseAnnotation(t.pos)
			if err != nil {
				return nil, err
			}
			annos = append(annos, a)
		default:
			return nil, unexpected(t, `"@"`)
		}
	}
}

func (p *annoParser) parseAnnotation(pos scanner.Position) (Annotation, *ParseError) {
	a := Annotation{Pos: pos}
	id, err := p.parseIdentifier()
	if err != nil {
		return a, err
	}
	a.Type = id

	t, err := p.next()
	if err != nil {
		return a, err
	}
	switch t.kind {
	case '(':
		p.depth++
		v, err := p.parseExpression()
		if err != nil {
			return a, err
		}
		p.depth--
		if _, err := p.expect(')'); err != nil {
			return a, err
		}
		a.Value = v
	case '{':
		v, err := p.parseAggregate(t.pos)
		if err != nil {
			return a, err
		}
		a.Value = v
	default:
		p.l.unread(t)
	}

	// an annotation must be followed by a line break
	t, err = p.next()
	if err != nil {
		return a, err
	}
	if t.kind != tokEOL && t.kind != tokEOF {
		return a, unexpected(t, tokenName(tokEOL))
	}
	p.l.unread(t)
	return a, nil
}

func (p *annoParser) parseIdentifier() (Identifier, *ParseError) {
	t, err := p.expect(tokIdent)
	if err != nil {
		return Identifier{}, err
	}
	id := Identifier{Name: t.text, Pos: t.pos}
	dot, err := p.next()
	if err != nil {
		return id, err
	}
	if dot.kind != '.' {
		p.l.unread(dot)
		return id, nil
	}
	t, err = p.expect(tokIdent)
	if err != nil {
		return id, err
	}
	id.PackageAlias = id.Name
	id.Name = t.text
	return id, nil
}

func (p *annoParser) parseExpression() (ExpressionNode, *ParseError) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	switch t.kind {
	case tokInt, tokFloat, tokImag, tokChar, tokString:
		return LiteralNode{Val: t.val, pos: t.pos}, nil
	case '-', '+':
		n, err := p.next()
		if err != nil {
			return nil, err
		}
		switch n.kind {
		case tokInt, tokFloat, tokImag:
		default:
			return nil, unexpected(n, "numeric literal")
		}
		op := token.ADD
		if t.kind == '-' {
			op = token.SUB
		}
		return LiteralNode{Val: constant.UnaryOp(op, n.val, 0), pos: t.pos}, nil
	case '{':
		return p.parseAggregate(t.pos)
	case tokIdent:
		switch t.text {
		case "true", "false":
			return LiteralNode{Val: constant.MakeBool(t.text == "true"), pos: t.pos}, nil
		case "nil":
			return LiteralNode{pos: t.pos}, nil
		}
		p.l.unread(t)
		id, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		return RefNode{Ident: id}, nil
	default:
		return nil, unexpected(t, "value")
	}
}

func (p *annoParser) parseAggregate(pos scanner.Position) (ExpressionNode, *ParseError) {
	p.depth++
	defer func() {
		p.depth--
	}()
	agg := AggregateNode{pos: pos}
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		if t.kind == '}' {
			return agg, nil
		}
		p.l.unread(t)

		var el Element
		v, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		t, err = p.next()
		if err != nil {
			return nil, err
		}
		if t.kind == ':' {
			el.Key = v
			el.HasKey = true
			if v, err = p.parseExpression(); err != nil {
				return nil, err
			}
			if t, err = p.next(); err != nil {
				return nil, err
			}
		}
		el.Value = v
		agg.Contents = append(agg.Contents, el)

		switch t.kind {
		case ',':
		case '}':
			return agg, nil
		default:
			return nil, unexpected(t, `"," or "}"`)
		}
	}
}
