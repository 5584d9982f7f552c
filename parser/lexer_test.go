package parser

import (
	"go/constant"
	"go/token"
	"strings"
	"testing"
)

func TestLexer(t *testing.T) {
	input := "@foo.Bar(-12, 'a')\n" +
		"  \"s\" 1.5i `raw`\n" +
		"0x1F true"

	cases := []struct {
		tok           rune
		lineNo, colNo int
		val           constant.Value
	}{
		{'@', 1, 1, nil},
		{tokIdent, 1, 2, nil},
		{'.', 1, 5, nil},
		{tokIdent, 1, 6, nil},
		{'(', 1, 9, nil},
		{'-', 1, 10, nil},
		{tokInt, 1, 11, constant.MakeInt64(12)},
		{',', 1, 13, nil},
		{tokChar, 1, 15, constant.MakeInt64('a')},
		{')', 1, 18, nil},
		{tokEOL, 1, 19, nil},
		{tokString, 2, 3, constant.MakeString("s")},
		{tokImag, 2, 7, constant.MakeImag(constant.MakeFloat64(1.5))},
		{tokString, 2, 12, constant.MakeString("raw")},
		{tokEOL, 2, 17, nil},
		{tokInt, 3, 1, constant.MakeInt64(31)},
		{tokIdent, 3, 6, nil},
		{tokEOF, 0, 0, nil},
	}

	l := newLexer("test", strings.NewReader(input))
	for i, c := range cases {
		tok, err := l.lex()
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if tok.kind != c.tok {
			t.Fatalf("case %d: wrong token: expecting %s, got %s", i, tokenName(c.tok), tokenName(tok.kind))
		}
		if c.lineNo != 0 {
			if tok.pos.Line != c.lineNo || tok.pos.Column != c.colNo {
				t.Errorf("case %d: wrong position: expecting %d:%d, got %d:%d", i, c.lineNo, c.colNo, tok.pos.Line, tok.pos.Column)
			}
		}
		if c.val != nil {
			if tok.val == nil {
				t.Errorf("case %d: expecting value %v, got none", i, c.val)
			} else if !constant.Compare(tok.val, token.EQL, c.val) {
				t.Errorf("case %d: wrong value: expecting %v, got %v", i, c.val, tok.val)
			}
		}
	}
}

func TestLexer_Unread(t *testing.T) {
	l := newLexer("test", strings.NewReader("a b"))
	first, err := l.lex()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.unread(first)
	again, err := l.lex()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.text != "a" {
		t.Errorf("expecting unread token %q, got %q", "a", again.text)
	}
	next, err := l.lex()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.text != "b" {
		t.Errorf("expecting %q, got %q", "b", next.text)
	}
}

func TestLexer_Errors(t *testing.T) {
	testCases := []string{
		`"unterminated`,
		`'ab'`,
	}
	for _, input := range testCases {
		l := newLexer("test", strings.NewReader(input))
		var err error
		for {
			var tok lexToken
			tok, err = l.lex()
			if err != nil || tok.kind == tokEOF {
				break
			}
		}
		if err == nil {
			t.Errorf("expecting error lexing %q", input)
		}
	}
}
