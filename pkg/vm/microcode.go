package vm

import "github.com/mr2a/mr2a-emu/pkg/isa"

// MicroAddr indexes the microcode ROM.
type MicroAddr uint16

// rom is the fixed microprogram store; entry maps an opcode byte to
// the ROM address its microprogram starts at. Opcodes whose control
// flow the datapath template below cannot express (CALL/RET/RETI, LDSP
// and the implied-mode control opcodes — see machine.go) still get a
// one-word placeholder entry so every defined opcode has a non-nil
// slot, but Machine.tickReadHalf (clock.go) intercepts those opcodes
// before the generic microprogram loop runs.
var (
	rom   []Word
	entry [256]MicroAddr
)

type romBuilder struct{}

func (romBuilder) add(f WordFields) MicroAddr {
	addr := MicroAddr(len(rom))
	rom = append(rom, NewWord(f))
	return addr
}

func init() {
	var b romBuilder

	// aluBinary builds the shared one-step template for a register-
	// register or register-immediate ALU instruction: A operand is
	// always the decoded destination register, B operand is either
	// the decoded source register or the fetched immediate byte, and
	// the result writes back to the destination register unless
	// writeBack is false (CMP computes flags only).
	aluBinary := func(op ALUOp, bsel BSel, writeBack bool) MicroAddr {
		return b.add(WordFields{
			MAC:              MACFetchOpcode,
			ALUOp:            op,
			BSel:             bsel,
			MRGAAFromOperand: true,
			MRGABFromOperand: bsel == BSelRegPortB,
			MRGWE:            writeBack,
			MRGWS:            WriteSrcALU,
			MCHFLG:           true,
		})
	}
	aluUnary := func(op ALUOp, writeBack bool) MicroAddr {
		return b.add(WordFields{
			MAC:              MACFetchOpcode,
			ALUOp:            op,
			BSel:             BSelZero,
			MRGAAFromOperand: true,
			MRGWE:            writeBack,
			MRGWS:            WriteSrcALU,
			MCHFLG:           true,
		})
	}

	entry[isa.ADDrr] = aluBinary(ALUAdd, BSelRegPortB, true)
	entry[isa.ADDri] = aluBinary(ALUAdd, BSelImmediate, true)
	entry[isa.ADCrr] = aluBinary(ALUAddCarry, BSelRegPortB, true)
	entry[isa.ADCri] = aluBinary(ALUAddCarry, BSelImmediate, true)
	entry[isa.SUBrr] = aluBinary(ALUSub, BSelRegPortB, true)
	entry[isa.SUBri] = aluBinary(ALUSub, BSelImmediate, true)
	entry[isa.SBCrr] = aluBinary(ALUSubCarry, BSelRegPortB, true)
	entry[isa.SBCri] = aluBinary(ALUSubCarry, BSelImmediate, true)
	entry[isa.ANDrr] = aluBinary(ALUAnd, BSelRegPortB, true)
	entry[isa.ANDri] = aluBinary(ALUAnd, BSelImmediate, true)
	entry[isa.ORrr] = aluBinary(ALUOr, BSelRegPortB, true)
	entry[isa.ORri] = aluBinary(ALUOr, BSelImmediate, true)
	entry[isa.XORrr] = aluBinary(ALUXor, BSelRegPortB, true)
	entry[isa.XORri] = aluBinary(ALUXor, BSelImmediate, true)
	entry[isa.CMPrr] = aluBinary(ALUSub, BSelRegPortB, false)
	entry[isa.CMPri] = aluBinary(ALUSub, BSelImmediate, false)

	entry[isa.TST] = aluUnary(ALUPassA, false)
	entry[isa.INC] = aluUnary(ALUIncA, true)
	entry[isa.DEC] = aluUnary(ALUDecA, true)
	entry[isa.CLR] = aluUnary(ALUZero, true)
	entry[isa.NOT] = aluUnary(ALUNotA, true)
	entry[isa.SHL] = aluUnary(ALUShiftLeft, true)
	entry[isa.SHR] = aluUnary(ALUShiftRightLogical, true)
	entry[isa.ASR] = aluUnary(ALUShiftRightArith, true)

	entry[isa.MOVrr] = b.add(WordFields{
		MAC: MACFetchOpcode, ALUOp: ALUPassB, BSel: BSelRegPortB,
		MRGAAFromOperand: true, MRGABFromOperand: true,
		MRGWE: true, MRGWS: WriteSrcALU,
	})
	entry[isa.MOVri] = b.add(WordFields{
		MAC: MACFetchOpcode, ALUOp: ALUPassB, BSel: BSelImmediate,
		MRGAAFromOperand: true,
		MRGWE:            true, MRGWS: WriteSrcALU,
	})

	// LD: bus read of the addrLatch into the transfer latch, then a
	// register write sourced from the bus (same cycle — see clock.go).
	entry[isa.LDra] = b.add(WordFields{
		MAC: MACFetchOpcode, BUSEN: true, BUSWR: false,
		MRGAAFromOperand: true,
		MRGWE:            true, MRGWS: WriteSrcBus,
	})
	// ST.ar: register value (read port A, ALU passthrough) onto the bus.
	entry[isa.STar] = b.add(WordFields{
		MAC: MACFetchOpcode, ALUOp: ALUPassA,
		MRGAAFromOperand: true,
		BUSEN:            true, BUSWR: true,
	})
	// ST.ai: the fetched immediate byte onto the bus.
	entry[isa.STai] = b.add(WordFields{
		MAC: MACFetchOpcode, ALUOp: ALUPassB, BSel: BSelImmediate,
		BUSEN: true, BUSWR: true,
	})
	// ST.aa: indirect-indirect move, two steps through the transfer
	// latch — read the source address first, then write it out.
	stAaRead := b.add(WordFields{
		MAC: MACNext, BUSEN: true, BUSWR: false,
	})
	b.add(WordFields{
		MAC: MACFetchOpcode, ALUOp: ALUPassA, BSel: BSelZero,
		MRGABFromOperand: true, // reused meaning: A operand = transfer latch
		BUSEN:            true, BUSWR: true,
	})
	entry[isa.STaa] = stAaRead

	// BITS/BITC/BITT on a register: set/clear/test bits of the mask
	// against the target register, via AND/OR and a flags-only AND.
	entry[isa.BITSreg] = aluBinary(ALUOr, BSelImmediate, true)
	// BITC's mask is inverted by the operand-decode stage (machine.go),
	// so clearing bits is the same AND-and-write-back shape as BITS.
	entry[isa.BITCreg] = aluBinary(ALUAnd, BSelImmediate, true)
	entry[isa.BITTreg] = aluBinary(ALUAnd, BSelImmediate, false)

	// BITS/BITC/BITT on a memory cell follow the same shape but route
	// through the bus instead of the register file.
	bitMem := func(op ALUOp, writeBack bool) MicroAddr {
		read := b.add(WordFields{MAC: MACNext, BUSEN: true, BUSWR: false})
		b.add(WordFields{
			MAC: MACFetchOpcode, ALUOp: op, BSel: BSelImmediate,
			MRGABFromOperand: true, // A operand = transfer latch (the memory byte)
			BUSEN:            writeBack, BUSWR: writeBack, MCHFLG: true,
		})
		return read
	}
	entry[isa.BITSmem] = bitMem(ALUOr, true)
	entry[isa.BITCmem] = bitMem(ALUAnd, true)
	entry[isa.BITTmem] = bitMem(ALUAnd, false)

	// Unconditional jump: PC := addrLatch.
	entry[isa.JR] = b.add(WordFields{
		MAC: MACFetchOpcode, ALUOp: ALUPassB, BSel: BSelImmediate,
		MRGAA: isa.PC, MRGWE: true, MRGWS: WriteSrcALU,
	})

	// Conditional jumps: a skip slot tests the flag, a jump slot (only
	// reached when the condition holds) performs PC := addrLatch, and
	// a no-op fetch slot is the skip target.
	condJump := func(skipMAC MAC, sel Flag) MicroAddr {
		skip := b.add(WordFields{MAC: skipMAC, FlagSel: sel})
		b.add(WordFields{
			MAC: MACFetchOpcode, ALUOp: ALUPassB, BSel: BSelImmediate,
			MRGAA: isa.PC, MRGWE: true, MRGWS: WriteSrcALU,
		})
		b.add(WordFields{MAC: MACFetchOpcode})
		return skip
	}
	entry[isa.JZS] = condJump(MACSkipIfNotFlag, FlagZF)
	entry[isa.JZC] = condJump(MACSkipIfFlag, FlagZF)
	entry[isa.JCS] = condJump(MACSkipIfNotFlag, FlagCF)
	entry[isa.JCC] = condJump(MACSkipIfFlag, FlagCF)
	entry[isa.JNS] = condJump(MACSkipIfNotFlag, FlagNF)
	entry[isa.JNC] = condJump(MACSkipIfFlag, FlagNF)

	// NOP, STOP, EI, DI, LDSP, CALL, RET, RETI carry stack/PC/flag
	// manipulation the shared datapath template above has no operand
	// slots for (an implicit SP-relative address, or "jump to the
	// fixed ISR vector" rather than a decoded operand). clock.go's
	// tickReadHalf hands these opcodes to machine.go's execControl
	// directly; the placeholder
	// entries below exist only so entry[opcode] is never left at the
	// zero value for a defined opcode, keeping the table total.
	placeholder := b.add(WordFields{MAC: MACFetchOpcode})
	for _, op := range []isa.Opcode{isa.NOP, isa.STOP, isa.EI, isa.DI, isa.LDSP, isa.CALL, isa.RET, isa.RETI} {
		entry[op] = placeholder
	}
}
