package asm

import (
	"strings"

	"github.com/mr2a/mr2a-emu/pkg/isa"
)

// parser is a recursive-descent parser over the full token slice
// produced by tokenize. Unlike the teacher's channel-fed parser
// (which only ever looks at the next token off the lexer channel),
// mrasm's `(addr)` operand needs one token of lookahead past a
// comma, so the parser owns the slice and an index into it rather
// than consuming a channel.
type parser struct {
	toks []Token
	pos  int
}

// Parse lexes and parses mrasm source, returning the AST or the first
// diagnostic encountered.
func Parse(src string) (*Program, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseProgram()
}

func (p *parser) cur() Token  { return p.toks[p.pos] }
func (p *parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) skipEOLs() {
	for p.cur().Kind == KindEOL {
		p.advance()
	}
}

func (p *parser) parseProgram() (*Program, error) {
	p.skipEOLs()
	header := p.cur()
	if header.Kind != KindHeader {
		return nil, newParseError(header.Line, header.Col, ErrMissingHeader, "source must start with '#! mrasm'")
	}
	p.advance()

	prog := &Program{}
	for p.cur().Kind != KindEOF {
		if p.cur().Kind == KindEOL {
			p.advance()
			continue
		}
		line, err := p.parseLine()
		if err != nil {
			return nil, err
		}
		prog.Lines = append(prog.Lines, line)
	}
	return prog, nil
}

func (p *parser) parseLine() (SourceLine, error) {
	lineNo := p.cur().Line
	sl := SourceLine{Line: lineNo}

	for p.cur().Kind == KindLabelDef {
		sl.LabelDefs = append(sl.LabelDefs, p.cur().Text)
		p.advance()
	}

	switch p.cur().Kind {
	case KindEOL, KindEOF:
		return sl, p.expectLineEnd()
	case KindDirective:
		stmt, err := p.parseDirective()
		if err != nil {
			return sl, err
		}
		sl.Stmt = stmt
	case KindStarDirect:
		stmt, err := p.parseStarDirective()
		if err != nil {
			return sl, err
		}
		sl.Stmt = stmt
	case KindIdent:
		stmt, err := p.parseInstruction()
		if err != nil {
			return sl, err
		}
		sl.Stmt = stmt
	default:
		t := p.cur()
		return sl, newParseError(t.Line, t.Col, ErrSyntax, "unexpected token "+t.Kind.String())
	}
	return sl, p.expectLineEnd()
}

func (p *parser) expectLineEnd() error {
	t := p.cur()
	if t.Kind != KindEOL && t.Kind != KindEOF {
		return newParseError(t.Line, t.Col, ErrSyntax, "expected end of line, found "+t.Kind.String())
	}
	if t.Kind == KindEOL {
		p.advance()
	}
	return nil
}

func (p *parser) parseDirective() (Stmt, error) {
	t := p.advance()
	switch t.Text {
	case ".ORG":
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &DirectiveOrg{Line: t.Line, Value: expr}, nil
	case ".DB":
		var values []Expr
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		values = append(values, expr)
		for p.cur().Kind == KindComma {
			p.advance()
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			values = append(values, expr)
		}
		return &DirectiveDB{Line: t.Line, Values: values}, nil
	case ".EQU":
		name := p.cur()
		if name.Kind != KindIdent {
			return nil, newParseError(name.Line, name.Col, ErrSyntax, "expected identifier after .EQU")
		}
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &DirectiveEqu{Line: t.Line, Name: name.Text, Value: expr}, nil
	default:
		return nil, newParseError(t.Line, t.Col, ErrSyntax, "unknown directive "+t.Text)
	}
}

func (p *parser) parseStarDirective() (Stmt, error) {
	t := p.advance()
	switch t.Text {
	case "*STACKSIZE":
		mode := p.cur()
		switch mode.Kind {
		case KindNumber:
			p.advance()
			switch mode.Value {
			case 0, 16, 32, 48, 64:
			default:
				return nil, newParseError(mode.Line, mode.Col, ErrSyntax, "invalid *STACKSIZE value "+mode.Text)
			}
			return &DirectiveStackSize{Line: t.Line, Mode: "N", N: int(mode.Value)}, nil
		case KindIdent:
			p.advance()
			up := strings.ToUpper(mode.Text)
			if up != "NOSET" && up != "AUTO" {
				return nil, newParseError(mode.Line, mode.Col, ErrSyntax, "invalid *STACKSIZE mode "+mode.Text)
			}
			return &DirectiveStackSize{Line: t.Line, Mode: up}, nil
		default:
			return nil, newParseError(mode.Line, mode.Col, ErrSyntax, "expected *STACKSIZE value")
		}
	case "*PROGRAMSIZE":
		mode := p.cur()
		switch mode.Kind {
		case KindNumber:
			p.advance()
			return &DirectiveProgramSize{Line: t.Line, Mode: "N", N: int(mode.Value)}, nil
		case KindIdent:
			p.advance()
			up := strings.ToUpper(mode.Text)
			if up != "NOSET" && up != "AUTO" {
				return nil, newParseError(mode.Line, mode.Col, ErrSyntax, "invalid *PROGRAMSIZE mode "+mode.Text)
			}
			return &DirectiveProgramSize{Line: t.Line, Mode: up}, nil
		default:
			return nil, newParseError(mode.Line, mode.Col, ErrSyntax, "expected *PROGRAMSIZE value")
		}
	default:
		return nil, newParseError(t.Line, t.Col, ErrSyntax, "unknown directive "+t.Text)
	}
}

func (p *parser) parseExpr() (Expr, error) {
	t := p.cur()
	switch t.Kind {
	case KindNumber:
		p.advance()
		return Expr{Line: t.Line, Number: t.Value}, nil
	case KindIdent:
		p.advance()
		return Expr{Line: t.Line, IsIdent: true, Ident: t.Text}, nil
	default:
		return Expr{}, newParseError(t.Line, t.Col, ErrSyntax, "expected a number or identifier")
	}
}

func (p *parser) parseInstruction() (Stmt, error) {
	mnemonic := p.advance()
	name := strings.ToUpper(mnemonic.Text)
	if !isa.KnownMnemonic(name) {
		return nil, newParseError(mnemonic.Line, mnemonic.Col, ErrUnknownMnemonic, "unknown mnemonic "+mnemonic.Text)
	}
	instr := &Instruction{Line: mnemonic.Line, Mnemonic: name}

	if p.cur().Kind == KindEOL || p.cur().Kind == KindEOF {
		return instr, nil
	}
	op, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	instr.Operands = append(instr.Operands, op)
	for p.cur().Kind == KindComma {
		p.advance()
		op, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		instr.Operands = append(instr.Operands, op)
	}
	return instr, nil
}

func (p *parser) parseOperand() (Operand, error) {
	t := p.cur()
	switch t.Kind {
	case KindLParen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return Operand{}, err
		}
		closeTok := p.cur()
		if closeTok.Kind != KindRParen {
			return Operand{}, newParseError(closeTok.Line, closeTok.Col, ErrUnbalancedParens, "expected ')'")
		}
		p.advance()
		return Operand{Kind: OperandIndirect, Expr: expr}, nil
	case KindIdent:
		if reg, ok := registerIndex(t.Text); ok {
			p.advance()
			return Operand{Kind: OperandReg, Reg: reg}, nil
		}
		p.advance()
		return Operand{Kind: OperandImm, Expr: Expr{Line: t.Line, IsIdent: true, Ident: t.Text}}, nil
	case KindNumber:
		p.advance()
		return Operand{Kind: OperandImm, Expr: Expr{Line: t.Line, Number: t.Value}}, nil
	default:
		return Operand{}, newParseError(t.Line, t.Col, ErrSyntax, "expected an operand")
	}
}

// registerIndex recognizes R0..R7, SP and PC (case-insensitively) as
// register operands; anything else is treated as an identifier
// (label or .EQU name).
func registerIndex(text string) (byte, bool) {
	up := strings.ToUpper(text)
	switch up {
	case "SP":
		return 4, true
	case "PC":
		return 5, true
	}
	if len(up) == 2 && up[0] == 'R' && up[1] >= '0' && up[1] <= '7' {
		return up[1] - '0', true
	}
	return 0, false
}
