package vm

import "github.com/mr2a/mr2a-emu/pkg/isa"

// Registers is the 8-byte register block: two banks of four, per
// spec.md §3/§4.4. Reads happen on two independent ports per cycle;
// writes are single-ported and gated by MRGWE.
type Registers struct {
	r [isa.NumRegisters]byte
}

// ReadA reads register port A.
func (r *Registers) ReadA(idx byte) byte { return r.r[idx&0x07] }

// ReadB reads register port B.
func (r *Registers) ReadB(idx byte) byte { return r.r[idx&0x07] }

// Write commits a value to a register.
func (r *Registers) Write(idx byte, v byte) { r.r[idx&0x07] = v }

// Get returns a register's value without going through a microcode
// port — used by the clock stepper's opcode-fetch/PC-increment logic
// and by external snapshot readers.
func (r *Registers) Get(idx byte) byte { return r.r[idx&0x07] }

// Set is the Get counterpart, used the same way.
func (r *Registers) Set(idx byte, v byte) { r.r[idx&0x07] = v }

// Snapshot returns a copy of the register file; spec.md §5 requires
// observers receive copies, never aliases into machine state.
func (r *Registers) Snapshot() [isa.NumRegisters]byte {
	return r.r
}

// Flags is the four-bit flag register (spec.md §3). Flags only
// change when the clock stepper's commit half-cycle has MCHFLG set.
type Flags struct {
	CF  bool
	ZF  bool
	NF  bool
	IEF bool
}

// Get reads one flag by index, matching the Word.FlagSel() encoding.
func (f Flags) Get(idx Flag) bool {
	switch idx {
	case FlagCF:
		return f.CF
	case FlagZF:
		return f.ZF
	case FlagNF:
		return f.NF
	case FlagIEF:
		return f.IEF
	default:
		return false
	}
}
