package asm

// Program is the parsed mrasm source: the header token consumed, and
// an ordered list of logical lines.
type Program struct {
	Lines []SourceLine
}

// SourceLine is one line of source: an optional label definition, an
// optional statement, always a line number for diagnostics.
type SourceLine struct {
	Line      int
	LabelDefs []string // a line may carry more than one "foo: bar: NOP"
	Stmt      Stmt     // nil for blank/comment-only/label-only lines
}

// Stmt is implemented by every statement kind (directives and
// instructions).
type Stmt interface {
	stmtLine() int
}

// Expr is a constant expression: either a literal number or a
// reference to a label/`.EQU` name resolved against the symbol table
// built in pass 1.
type Expr struct {
	Line    int
	IsIdent bool
	Ident   string
	Number  int64
}

// Operand is one instruction operand: a register, an immediate
// expression, or an indirect `(expr)` memory reference.
type Operand struct {
	Kind OperandKind
	Reg  byte // valid when Kind == OperandReg
	Expr Expr // valid when Kind == OperandImm or OperandIndirect
}

type OperandKind int

const (
	OperandReg OperandKind = iota
	OperandImm
	OperandIndirect
)

// Instruction is a parsed mnemonic with its operand list.
type Instruction struct {
	Line     int
	Mnemonic string
	Operands []Operand
}

func (i *Instruction) stmtLine() int { return i.Line }

// DirectiveOrg is `.ORG expr`.
type DirectiveOrg struct {
	Line  int
	Value Expr
}

func (d *DirectiveOrg) stmtLine() int { return d.Line }

// DirectiveDB is `.DB expr (, expr)*`.
type DirectiveDB struct {
	Line   int
	Values []Expr
}

func (d *DirectiveDB) stmtLine() int { return d.Line }

// DirectiveEqu is `.EQU ident expr`.
type DirectiveEqu struct {
	Line  int
	Name  string
	Value Expr
}

func (d *DirectiveEqu) stmtLine() int { return d.Line }

// DirectiveStackSize is `*STACKSIZE {16|32|48|64|0|NOSET|AUTO}`.
type DirectiveStackSize struct {
	Line int
	Mode string
	N    int // valid when Mode is a plain number
}

func (d *DirectiveStackSize) stmtLine() int { return d.Line }

// DirectiveProgramSize is `*PROGRAMSIZE {N|AUTO|NOSET}`.
type DirectiveProgramSize struct {
	Line int
	Mode string
	N    int // valid when Mode == "N"
}

func (d *DirectiveProgramSize) stmtLine() int { return d.Line }

var (
	_ Stmt = (*Instruction)(nil)
	_ Stmt = (*DirectiveOrg)(nil)
	_ Stmt = (*DirectiveDB)(nil)
	_ Stmt = (*DirectiveEqu)(nil)
	_ Stmt = (*DirectiveStackSize)(nil)
	_ Stmt = (*DirectiveProgramSize)(nil)
)
