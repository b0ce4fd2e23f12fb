package asm

import (
	"fmt"

	"github.com/mr2a/mr2a-emu/pkg/isa"
)

// Assemble parses mrasm source and translates it into an Image. This
// is the package's single entry point, mirroring the teacher's
// AssemblerAsync/StartAssembler shape of "one function that owns the
// whole pipeline" even though the internal stages here are plain
// function calls rather than goroutines feeding a channel.
func Assemble(src string) (*Image, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Translate(prog)
}

// symbolTable holds the two independently-resolved namespaces:
// .EQU-bound constants (resolved once, in source order, last write
// wins) and label addresses (resolved against the emission cursor).
type symbolTable struct {
	equ    map[string]int64
	labels map[string]int64
}

func (s *symbolTable) resolve(e Expr) (int64, error) {
	if !e.IsIdent {
		return e.Number, nil
	}
	if v, ok := s.labels[e.Ident]; ok {
		return v, nil
	}
	if v, ok := s.equ[e.Ident]; ok {
		return v, nil
	}
	return 0, newTranslatorError(e.Line, ErrUnresolvedIdentifier, e.Ident)
}

// Translate runs the two-pass resolve/emit translation spec.md §4.2
// describes against an already-parsed Program.
func Translate(prog *Program) (*Image, error) {
	sym, err := resolveEqus(prog)
	if err != nil {
		return nil, err
	}
	if err := resolveLabels(prog, sym); err != nil {
		return nil, err
	}
	return emit(prog, sym)
}

// resolveEqus builds the .EQU table in source order; a later .EQU of
// the same name overrides an earlier one (spec.md §4.2, exercised by
// the `.EQU` override seed test in spec.md §8 item 4).
func resolveEqus(prog *Program) (*symbolTable, error) {
	sym := &symbolTable{equ: map[string]int64{}, labels: map[string]int64{}}
	for _, line := range prog.Lines {
		d, ok := line.Stmt.(*DirectiveEqu)
		if !ok {
			continue
		}
		v, err := sym.resolve(d.Value)
		if err != nil {
			return nil, err
		}
		sym.equ[d.Name] = v
	}
	return sym, nil
}

// resolveLabels walks the program once, simulating the emission
// cursor, to bind every label to its final address. Labels (not
// .EQU names) must be unique.
func resolveLabels(prog *Program, sym *symbolTable) error {
	var cursor, maxCursor int64
	for _, line := range prog.Lines {
		for _, label := range line.LabelDefs {
			if _, dup := sym.labels[label]; dup {
				return newTranslatorError(line.Line, ErrDuplicateLabel, label)
			}
			sym.labels[label] = cursor
		}
		switch stmt := line.Stmt.(type) {
		case *DirectiveOrg:
			target, err := sym.resolve(stmt.Value)
			if err != nil {
				return err
			}
			if target < maxCursor {
				return newTranslatorError(stmt.Line, ErrOrgRewind,
					fmt.Sprintf(".ORG %d rewinds before already-emitted offset %d", target, maxCursor))
			}
			cursor = target
		case *DirectiveDB:
			cursor += int64(len(stmt.Values))
		case *Instruction:
			def, err := resolveOpcode(stmt)
			if err != nil {
				return err
			}
			cursor += int64(def.Mode.Len())
		}
		if cursor > maxCursor {
			maxCursor = cursor
		}
	}
	return nil
}

// emit walks the program a second time with the symbol table fixed,
// writing every byte into the image.
func emit(prog *Program, sym *symbolTable) (*Image, error) {
	img := &Image{
		StackSize:   StackSize{Mode: StackSizeExplicit, N: DefaultStackSize},
		ProgramSize: ProgramSize{Mode: ProgramSizeNoSet},
	}
	var cursor int64
	var maxCursor int64
	programSizeAuto := false

	for _, line := range prog.Lines {
		switch stmt := line.Stmt.(type) {
		case *DirectiveOrg:
			target, err := sym.resolve(stmt.Value)
			if err != nil {
				return nil, err
			}
			cursor = target
		case *DirectiveDB:
			for _, v := range stmt.Values {
				val, err := sym.resolve(v)
				if err != nil {
					return nil, err
				}
				if err := writeByte(img, stmt.Line, cursor, byte(val)); err != nil {
					return nil, err
				}
				cursor++
			}
		case *DirectiveEqu:
			// already folded into sym by resolveEqus; nothing to emit.
		case *DirectiveStackSize:
			switch stmt.Mode {
			case "N":
				img.StackSize = StackSize{Mode: StackSizeExplicit, N: stmt.N}
			case "NOSET":
				img.StackSize = StackSize{Mode: StackSizeExplicit, N: DefaultStackSize}
			case "AUTO":
				img.StackSize = StackSize{Mode: StackSizeAuto}
			}
		case *DirectiveProgramSize:
			switch stmt.Mode {
			case "N":
				img.ProgramSize = ProgramSize{Mode: ProgramSizeFixed, N: stmt.N}
				programSizeAuto = false
			case "NOSET":
				img.ProgramSize = ProgramSize{Mode: ProgramSizeNoSet}
				programSizeAuto = false
			case "AUTO":
				programSizeAuto = true
			}
		case *Instruction:
			bytes, err := encodeInstruction(stmt, sym)
			if err != nil {
				return nil, err
			}
			for _, b := range bytes {
				if err := writeByte(img, stmt.Line, cursor, b); err != nil {
					return nil, err
				}
				cursor++
			}
		}
		if cursor > maxCursor {
			maxCursor = cursor
		}
	}

	if programSizeAuto {
		img.ProgramSize = ProgramSize{Mode: ProgramSizeAuto, N: int(maxCursor)}
	}
	return img, nil
}

func writeByte(img *Image, line int, addr int64, b byte) error {
	if addr < 0 || addr >= ImageSize {
		return newTranslatorError(line, ErrOutOfRange, fmt.Sprintf("address 0x%02X is outside the 240-byte image", addr))
	}
	img.Bytes[addr] = b
	return nil
}

// resolveOpcode determines which isa.Def an instruction's mnemonic
// and operand shapes select. Operand *kinds* (register vs immediate
// vs indirect) are enough to pick the addressing-mode variant without
// needing the symbol table, which is why this also runs during
// resolveLabels to size the instruction.
func resolveOpcode(instr *Instruction) (*isa.Def, error) {
	name := instr.Mnemonic
	ops := instr.Operands

	lookup := func(key string) (*isa.Def, error) {
		for i := range isa.Defs {
			if isa.Defs[i].Mnemonic == key {
				return &isa.Defs[i], nil
			}
		}
		return nil, newTranslatorError(instr.Line, ErrUnresolvedIdentifier, "unknown mnemonic "+key)
	}

	switch name {
	case "NOP", "STOP", "EI", "DI", "RET", "RETI":
		return lookup(name)
	case "LDSP":
		return lookup(name)
	case "JR", "JZS", "JZC", "JCS", "JCC", "JNS", "JNC", "CALL":
		return lookup(name)
	case "TST", "INC", "DEC", "CLR", "NOT", "SHL", "SHR", "ASR":
		return lookup(name)
	case "MOV":
		if len(ops) != 2 {
			return nil, newTranslatorError(instr.Line, ErrUnresolvedIdentifier, "MOV needs two operands")
		}
		if ops[1].Kind == OperandReg {
			return lookup("MOV.rr")
		}
		return lookup("MOV.ri")
	case "LD":
		if len(ops) != 2 || ops[0].Kind != OperandReg || ops[1].Kind != OperandIndirect {
			return nil, newTranslatorError(instr.Line, ErrUnresolvedIdentifier, "LD needs reg,(addr)")
		}
		return lookup("LD")
	case "ST":
		if len(ops) != 2 || ops[0].Kind != OperandIndirect {
			return nil, newTranslatorError(instr.Line, ErrUnresolvedIdentifier, "ST needs (addr),src")
		}
		switch ops[1].Kind {
		case OperandReg:
			return lookup("ST.ar")
		case OperandIndirect:
			return lookup("ST.aa")
		default:
			return lookup("ST.ai")
		}
	case "ADD", "ADC", "SUB", "SBC", "AND", "OR", "XOR", "CMP":
		if len(ops) != 2 || ops[0].Kind != OperandReg {
			return nil, newTranslatorError(instr.Line, ErrUnresolvedIdentifier, name+" needs dst-reg,src")
		}
		if ops[1].Kind == OperandReg {
			return lookup(name + ".rr")
		}
		return lookup(name + ".ri")
	case "BITS", "BITC", "BITT":
		if len(ops) != 2 {
			return nil, newTranslatorError(instr.Line, ErrUnresolvedIdentifier, name+" needs target,mask")
		}
		if ops[0].Kind == OperandReg {
			return lookup(name + ".reg")
		}
		return lookup(name + ".mem")
	default:
		return nil, newTranslatorError(instr.Line, ErrUnresolvedIdentifier, "unknown mnemonic "+name)
	}
}

// encodeInstruction lowers one instruction to its final bytes, now
// that labels and .EQU names are fixed.
func encodeInstruction(instr *Instruction, sym *symbolTable) ([]byte, error) {
	def, err := resolveOpcode(instr)
	if err != nil {
		return nil, err
	}
	ops := instr.Operands

	imm := func(e Expr) (byte, error) {
		v, err := sym.resolve(e)
		if err != nil {
			return 0, err
		}
		return byte(v), nil
	}

	switch def.Mode {
	case isa.ModeImplied:
		return []byte{byte(def.Opcode)}, nil
	case isa.ModeImm:
		b, err := imm(ops[0].Expr)
		if err != nil {
			return nil, err
		}
		return []byte{byte(def.Opcode), b}, nil
	case isa.ModeAddr:
		b, err := imm(ops[0].Expr)
		if err != nil {
			return nil, err
		}
		return []byte{byte(def.Opcode), b}, nil
	case isa.ModeReg:
		return []byte{byte(def.Opcode), isa.RegByte(ops[0].Reg, 0)}, nil
	case isa.ModeRegReg:
		return []byte{byte(def.Opcode), isa.RegByte(ops[0].Reg, ops[1].Reg)}, nil
	case isa.ModeRegImm:
		b, err := imm(ops[1].Expr)
		if err != nil {
			return nil, err
		}
		return []byte{byte(def.Opcode), isa.RegByte(ops[0].Reg, 0), b}, nil
	case isa.ModeRegAddr:
		b, err := imm(ops[1].Expr)
		if err != nil {
			return nil, err
		}
		return []byte{byte(def.Opcode), isa.RegByte(ops[0].Reg, 0), b}, nil
	case isa.ModeAddrReg:
		a, err := imm(ops[0].Expr)
		if err != nil {
			return nil, err
		}
		return []byte{byte(def.Opcode), a, isa.RegByte(ops[1].Reg, 0)}, nil
	case isa.ModeAddrImm:
		a, err := imm(ops[0].Expr)
		if err != nil {
			return nil, err
		}
		b, err := imm(ops[1].Expr)
		if err != nil {
			return nil, err
		}
		return []byte{byte(def.Opcode), a, b}, nil
	case isa.ModeAddrAddr:
		a, err := imm(ops[0].Expr)
		if err != nil {
			return nil, err
		}
		b, err := imm(ops[1].Expr)
		if err != nil {
			return nil, err
		}
		return []byte{byte(def.Opcode), a, b}, nil
	case isa.ModeTargetImm:
		mask, err := imm(ops[1].Expr)
		if err != nil {
			return nil, err
		}
		var target byte
		if ops[0].Kind == OperandReg {
			target = isa.TargetByte(ops[0].Reg)
		} else {
			target, err = imm(ops[0].Expr)
			if err != nil {
				return nil, err
			}
		}
		return []byte{byte(def.Opcode), target, mask}, nil
	default:
		return nil, newTranslatorError(instr.Line, ErrUnresolvedIdentifier, "unsupported addressing mode")
	}
}
