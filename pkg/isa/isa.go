// Package isa defines the mrasm instruction set: the opcode byte
// assignments, addressing modes, and operand layouts shared by the
// assembler (pkg/asm) and the machine (pkg/vm).
//
// The original Minirechner 2a microcode ROM dump is not available to
// this implementation, so the opcode byte assignments below are this
// package's own, internally consistent allocation rather than a
// transcription of hardware that shipped with the real machine. What
// matters for spec conformance is that the assignment is fixed and that
// pkg/vm's microcode ROM indexes on exactly these bytes.
package isa

import "strings"

// Opcode is a single-byte instruction opcode. The microcode ROM is
// indexed on this byte (by way of a fixed opcode -> entry-microaddress
// table); it must never collide with another Opcode.
type Opcode byte

// Mode is the addressing-mode shape of an instruction: how many
// operand bytes follow the opcode byte and what they mean.
type Mode int

const (
	// ModeImplied takes no operand bytes (NOP, RET, STOP, ...).
	ModeImplied Mode = iota
	// ModeReg takes one operand byte: a register index in the high
	// nibble (INC, DEC, NOT, SHL, SHR, ASR, TST, ...).
	ModeReg
	// ModeRegReg takes one operand byte: dst register in the high
	// nibble, src register in the low nibble (MOV, ADD, ...).
	ModeRegReg
	// ModeRegImm takes two operand bytes: dst register in the high
	// nibble of the first, an immediate in the second.
	ModeRegImm
	// ModeImm takes one operand byte: a plain immediate (LDSP).
	ModeImm
	// ModeAddr takes one operand byte: a target address (JR, CALL, ...).
	ModeAddr
	// ModeRegAddr takes two operand bytes: dst register in the high
	// nibble of the first, an address in the second (LD).
	ModeRegAddr
	// ModeAddrReg takes two operand bytes: an address, then a src
	// register in the high nibble of the second (ST).
	ModeAddrReg
	// ModeAddrImm takes two operand bytes: an address, then an
	// immediate (ST with an immediate operand).
	ModeAddrImm
	// ModeAddrAddr takes two operand bytes: a destination address and
	// a source address (ST of an indirect-indirect move).
	ModeAddrAddr
	// ModeTargetImm takes two operand bytes: a bit-op target (a register
	// index for the .reg opcodes, a memory address for the .mem opcodes)
	// and a mask immediate (BITS, BITC, BITT).
	ModeTargetImm
)

// Len reports how many bytes, including the opcode byte itself, an
// instruction using this addressing mode occupies in the byte image.
func (m Mode) Len() int {
	switch m {
	case ModeImplied:
		return 1
	case ModeReg, ModeRegReg, ModeImm, ModeAddr:
		return 2
	default:
		return 3
	}
}

// Mnemonic opcodes. Grouped by addressing-mode family; the groups have
// room to grow without forcing a renumbering of earlier entries.
const (
	NOP  Opcode = 0x00
	STOP Opcode = 0x01
	EI   Opcode = 0x02
	DI   Opcode = 0x03
	RET  Opcode = 0x04
	RETI Opcode = 0x05
	LDSP Opcode = 0x06

	JR   Opcode = 0x10
	JZS  Opcode = 0x11
	JZC  Opcode = 0x12
	JCS  Opcode = 0x13
	JCC  Opcode = 0x14
	JNS  Opcode = 0x15
	JNC  Opcode = 0x16
	CALL Opcode = 0x17

	MOVrr Opcode = 0x20
	MOVri Opcode = 0x21

	LDra Opcode = 0x28
	STar Opcode = 0x29
	STai Opcode = 0x2A
	STaa Opcode = 0x2B

	ADDrr Opcode = 0x30
	ADDri Opcode = 0x31
	ADCrr Opcode = 0x32
	ADCri Opcode = 0x33
	SUBrr Opcode = 0x34
	SUBri Opcode = 0x35
	SBCrr Opcode = 0x36
	SBCri Opcode = 0x37
	ANDrr Opcode = 0x38
	ANDri Opcode = 0x39
	ORrr  Opcode = 0x3A
	ORri  Opcode = 0x3B
	XORrr Opcode = 0x3C
	XORri Opcode = 0x3D
	CMPrr Opcode = 0x3E
	CMPri Opcode = 0x3F

	TST Opcode = 0x40
	INC Opcode = 0x41
	DEC Opcode = 0x42
	CLR Opcode = 0x43
	NOT Opcode = 0x44
	SHL Opcode = 0x45
	SHR Opcode = 0x46
	ASR Opcode = 0x47

	BITSreg Opcode = 0x48
	BITSmem Opcode = 0x49
	BITCreg Opcode = 0x4A
	BITCmem Opcode = 0x4B
	BITTreg Opcode = 0x4C
	BITTmem Opcode = 0x4D
)

// Def describes one opcode: its mnemonic, its opcode byte, and its
// addressing mode. Which ALU operation an opcode drives is fixed by its
// microprogram in pkg/vm, not recorded here.
type Def struct {
	Mnemonic string
	Opcode   Opcode
	Mode     Mode
}

// Defs is the full fixed instruction table, keyed by mnemonic and
// addressing-mode suffix ("ADD.rr"). Source text spells only the bare
// mnemonic ("ADD"); the translator picks the suffixed entry from the
// operand kinds.
// Both the assembler (to encode) and the machine (to size and label
// instructions) read this table rather than re-deriving it.
var Defs = []Def{
	{"NOP", NOP, ModeImplied},
	{"STOP", STOP, ModeImplied},
	{"EI", EI, ModeImplied},
	{"DI", DI, ModeImplied},
	{"RET", RET, ModeImplied},
	{"RETI", RETI, ModeImplied},
	{"LDSP", LDSP, ModeImm},

	{"JR", JR, ModeAddr},
	{"JZS", JZS, ModeAddr},
	{"JZC", JZC, ModeAddr},
	{"JCS", JCS, ModeAddr},
	{"JCC", JCC, ModeAddr},
	{"JNS", JNS, ModeAddr},
	{"JNC", JNC, ModeAddr},
	{"CALL", CALL, ModeAddr},

	{"MOV.rr", MOVrr, ModeRegReg},
	{"MOV.ri", MOVri, ModeRegImm},

	{"LD", LDra, ModeRegAddr},
	{"ST.ar", STar, ModeAddrReg},
	{"ST.ai", STai, ModeAddrImm},
	{"ST.aa", STaa, ModeAddrAddr},

	{"ADD.rr", ADDrr, ModeRegReg},
	{"ADD.ri", ADDri, ModeRegImm},
	{"ADC.rr", ADCrr, ModeRegReg},
	{"ADC.ri", ADCri, ModeRegImm},
	{"SUB.rr", SUBrr, ModeRegReg},
	{"SUB.ri", SUBri, ModeRegImm},
	{"SBC.rr", SBCrr, ModeRegReg},
	{"SBC.ri", SBCri, ModeRegImm},
	{"AND.rr", ANDrr, ModeRegReg},
	{"AND.ri", ANDri, ModeRegImm},
	{"OR.rr", ORrr, ModeRegReg},
	{"OR.ri", ORri, ModeRegImm},
	{"XOR.rr", XORrr, ModeRegReg},
	{"XOR.ri", XORri, ModeRegImm},
	{"CMP.rr", CMPrr, ModeRegReg},
	{"CMP.ri", CMPri, ModeRegImm},

	{"TST", TST, ModeReg},
	{"INC", INC, ModeReg},
	{"DEC", DEC, ModeReg},
	{"CLR", CLR, ModeReg},
	{"NOT", NOT, ModeReg},
	{"SHL", SHL, ModeReg},
	{"SHR", SHR, ModeReg},
	{"ASR", ASR, ModeReg},

	{"BITS.reg", BITSreg, ModeTargetImm},
	{"BITS.mem", BITSmem, ModeTargetImm},
	{"BITC.reg", BITCreg, ModeTargetImm},
	{"BITC.mem", BITCmem, ModeTargetImm},
	{"BITT.reg", BITTreg, ModeTargetImm},
	{"BITT.mem", BITTmem, ModeTargetImm},
}

// ByOpcode is Defs indexed by opcode byte for O(1) decode; a nil entry
// means the byte is not a defined instruction (an illegal opcode).
var ByOpcode [256]*Def

// baseMnemonics is every mnemonic a source line may start with: Defs
// entries with an addressing-mode suffix ("ADD.rr") contribute the
// part before the dot ("ADD") since the parser sees the bare mnemonic
// and only the translator later picks the suffixed variant once
// operand kinds are known.
var baseMnemonics = map[string]bool{}

func init() {
	for i := range Defs {
		d := &Defs[i]
		if ByOpcode[d.Opcode] != nil {
			panic("isa: duplicate opcode assignment")
		}
		ByOpcode[d.Opcode] = d

		base := d.Mnemonic
		if dot := strings.IndexByte(base, '.'); dot >= 0 {
			base = base[:dot]
		}
		baseMnemonics[base] = true
	}
}

// KnownMnemonic reports whether name (already upper-cased) is a
// recognized instruction mnemonic, independent of which
// addressing-mode variant its operands will eventually select.
func KnownMnemonic(name string) bool {
	return baseMnemonics[name]
}

// Register indices. The register block is two banks of four; SP and
// PC are fixed members of bank 2 (see SPEC_FULL.md §5 for the
// rationale — the source spec pins SP to index 4 and leaves the rest
// of the layout to the implementer).
const (
	R0 = 0
	R1 = 1
	R2 = 2
	R3 = 3
	SP = 4 // bank 2, index 0
	PC = 5 // bank 2, index 1
	R6 = 6
	R7 = 7

	NumRegisters = 8
)

// RegByte packs a destination/source register pair into the operand
// byte layout used by ModeRegReg, ModeRegImm, ModeRegAddr and
// ModeAddrReg: high nibble first operand, low nibble second (or zero
// when the mode only carries one register).
func RegByte(hi, lo byte) byte {
	return (hi&0x0F)<<4 | (lo & 0x0F)
}

// SplitRegByte is the inverse of RegByte.
func SplitRegByte(b byte) (hi, lo byte) {
	return (b >> 4) & 0x0F, b & 0x0F
}

// TargetByte packs the register form of a BITS/BITC/BITT target: the
// register index in bits 0-2, all other bits clear. The target byte
// carries no register/memory flag; the opcode says which it is (the
// .reg flavor always targets a register, the .mem flavor always a bus
// address, whose target byte is the address itself).
func TargetByte(reg byte) byte {
	return reg & 0x07
}
