package asm

import (
	"strconv"
	"strings"
)

// lexer turns mrasm source text into a token stream. It is a plain
// scanner over the source bytes rather than the teacher's
// goroutine-and-channel pipeline (pkg/asm.StartAssembler in the
// teacher feeds a parser off a lexer channel): mrasm's addressing
// modes need a token of lookahead the parser can peek at
// ("(addr)" vs a bare register), which a blind channel consumer
// cannot do without buffering the channel right back into a slice
// anyway. The lexer instead produces the whole token slice up front;
// Translate still keeps the teacher's "walk once, accumulate, walk
// again" shape for the assembler's two passes (see translator.go).
type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) advance() byte {
	b := l.src[l.pos]
	l.pos++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return b
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// tokenize lexes the whole buffer. It stops at the first malformed
// construct and returns that single diagnostic; later lines are not
// scanned, matching how the translator stops at its first unresolved
// identifier.
func tokenize(src string) ([]Token, error) {
	l := newLexer(src)
	var toks []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == KindEOF {
			break
		}
	}
	return toks, nil
}

func (l *lexer) next() (Token, error) {
	// skip spaces and tabs, but not newlines (EOL is significant)
	for l.pos < len(l.src) {
		b := l.peekByte()
		if b == ' ' || b == '\t' || b == '\r' {
			l.advance()
			continue
		}
		if b == ';' {
			for l.pos < len(l.src) && l.peekByte() != '\n' {
				l.advance()
			}
			continue
		}
		break
	}
	if l.pos >= len(l.src) {
		return Token{Kind: KindEOF, Line: l.line, Col: l.col, Span: Span{l.pos, 0}}, nil
	}

	startLine, startCol, startPos := l.line, l.col, l.pos
	b := l.peekByte()

	switch {
	case b == '\n':
		l.advance()
		return Token{Kind: KindEOL, Line: startLine, Col: startCol, Span: Span{startPos, 1}}, nil
	case b == '(':
		l.advance()
		return Token{Kind: KindLParen, Text: "(", Line: startLine, Col: startCol, Span: Span{startPos, 1}}, nil
	case b == ')':
		l.advance()
		return Token{Kind: KindRParen, Text: ")", Line: startLine, Col: startCol, Span: Span{startPos, 1}}, nil
	case b == ',':
		l.advance()
		return Token{Kind: KindComma, Text: ",", Line: startLine, Col: startCol, Span: Span{startPos, 1}}, nil
	case b == '#':
		return l.lexHeader(startLine, startCol, startPos)
	case b == '.':
		return l.lexDotDirective(startLine, startCol, startPos)
	case b == '*':
		return l.lexStarDirective(startLine, startCol, startPos)
	case isDigit(b):
		return l.lexNumber(startLine, startCol, startPos)
	case isIdentStart(b):
		return l.lexIdentOrLabel(startLine, startCol, startPos)
	default:
		l.advance()
		return Token{}, newParseError(startLine, startCol, ErrSyntax,
			"unexpected character '"+string(b)+"'")
	}
}

func (l *lexer) lexHeader(line, col, start int) (Token, error) {
	const want = "#! mrasm"
	if strings.HasPrefix(l.src[l.pos:], want) {
		for i := 0; i < len(want); i++ {
			l.advance()
		}
		return Token{Kind: KindHeader, Text: want, Line: line, Col: col, Span: Span{start, len(want)}}, nil
	}
	return Token{}, newParseError(line, col, ErrMissingHeader, "expected '#! mrasm'")
}

func (l *lexer) lexDotDirective(line, col, start int) (Token, error) {
	l.advance() // '.'
	if !isIdentStart(l.peekByte()) {
		return Token{}, newParseError(line, col, ErrSyntax, "expected directive name after '.'")
	}
	for l.pos < len(l.src) && isIdentCont(l.peekByte()) {
		l.advance()
	}
	text := l.src[start:l.pos]
	return Token{Kind: KindDirective, Text: strings.ToUpper(text), Line: line, Col: col, Span: Span{start, l.pos - start}}, nil
}

func (l *lexer) lexStarDirective(line, col, start int) (Token, error) {
	l.advance() // '*'
	if !isIdentStart(l.peekByte()) {
		return Token{}, newParseError(line, col, ErrSyntax, "expected directive name after '*'")
	}
	for l.pos < len(l.src) && isIdentCont(l.peekByte()) {
		l.advance()
	}
	text := l.src[start:l.pos]
	return Token{Kind: KindStarDirect, Text: strings.ToUpper(text), Line: line, Col: col, Span: Span{start, l.pos - start}}, nil
}

func (l *lexer) lexNumber(line, col, start int) (Token, error) {
	for l.pos < len(l.src) && (isIdentCont(l.peekByte())) {
		l.advance()
	}
	text := l.src[start:l.pos]
	val, err := parseNumber(text)
	if err != nil {
		return Token{}, newParseError(line, col, ErrMalformedNumber, text)
	}
	return Token{Kind: KindNumber, Text: text, Value: val, Line: line, Col: col, Span: Span{start, l.pos - start}}, nil
}

func parseNumber(text string) (int64, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.HasPrefix(lower, "0x"):
		return strconv.ParseInt(lower[2:], 16, 64)
	case strings.HasPrefix(lower, "0b"):
		return strconv.ParseInt(lower[2:], 2, 64)
	default:
		return strconv.ParseInt(lower, 10, 64)
	}
}

func (l *lexer) lexIdentOrLabel(line, col, start int) (Token, error) {
	for l.pos < len(l.src) && isIdentCont(l.peekByte()) {
		l.advance()
	}
	text := l.src[start:l.pos]
	if l.peekByte() == ':' {
		l.advance()
		return Token{Kind: KindLabelDef, Text: text, Line: line, Col: col, Span: Span{start, l.pos - start}}, nil
	}
	return Token{Kind: KindIdent, Text: text, Line: line, Col: col, Span: Span{start, l.pos - start}}, nil
}
