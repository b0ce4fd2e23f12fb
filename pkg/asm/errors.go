package asm

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ParseErrorKind classifies why the parser rejected the source.
type ParseErrorKind int

const (
	ErrMissingHeader ParseErrorKind = iota
	ErrSyntax
	ErrUnknownMnemonic
	ErrMalformedNumber
	ErrUnbalancedParens
)

func (k ParseErrorKind) String() string {
	switch k {
	case ErrMissingHeader:
		return "missing #! mrasm header"
	case ErrSyntax:
		return "syntax error"
	case ErrUnknownMnemonic:
		return "unknown mnemonic"
	case ErrMalformedNumber:
		return "malformed number"
	case ErrUnbalancedParens:
		return "unbalanced parentheses"
	default:
		return "parse error"
	}
}

// ParseError is a single parser diagnostic, located by line/column per
// spec.md §7.
type ParseError struct {
	Line int
	Col  int
	Kind ParseErrorKind
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%d:%d: %s: %s", e.Line, e.Col, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Kind)
}

func newParseError(line, col int, kind ParseErrorKind, msg string) error {
	pe := &ParseError{Line: line, Col: col, Kind: kind, Msg: msg}
	return pkgerrors.Wrapf(pe, "mrasm parse error at %d:%d", line, col)
}

// TranslatorErrorKind classifies why the translator rejected an
// otherwise well-formed AST.
type TranslatorErrorKind int

const (
	ErrUnresolvedIdentifier TranslatorErrorKind = iota
	ErrDuplicateLabel
	ErrOutOfRange
	ErrOrgRewind
)

func (k TranslatorErrorKind) String() string {
	switch k {
	case ErrUnresolvedIdentifier:
		return "unresolved identifier"
	case ErrDuplicateLabel:
		return "duplicate label"
	case ErrOutOfRange:
		return "address out of range"
	case ErrOrgRewind:
		return ".ORG moved the cursor backwards into emitted bytes"
	default:
		return "translator error"
	}
}

// TranslatorError is a single assembler (pass 1/2) diagnostic.
type TranslatorError struct {
	Line int
	Kind TranslatorErrorKind
	Msg  string
}

func (e *TranslatorError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Kind)
}

func newTranslatorError(line int, kind TranslatorErrorKind, msg string) error {
	te := &TranslatorError{Line: line, Kind: kind, Msg: msg}
	return pkgerrors.Wrapf(te, "mrasm translator error on line %d", line)
}
