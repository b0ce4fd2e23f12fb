package vm

import (
	"github.com/mr2a/mr2a-emu/pkg/asm"
	"github.com/mr2a/mr2a-emu/pkg/isa"
)

// RunState is the machine's coarse state, per spec.md §4.7's diagram.
type RunState int

const (
	Running RunState = iota
	Stopped
	ErrorHalted
)

func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case ErrorHalted:
		return "error-halted"
	default:
		return "unknown"
	}
}

const (
	imageSize        = 0xF0
	defaultStackSize = 16
)

// Machine owns every subsystem spec.md §2 names: registers, flags,
// bus, extension board, interrupt unit, the clock stepper's own
// microprogram counter, and the run state they collectively occupy.
type Machine struct {
	Regs      Registers
	Flags     Flags
	Bus       *Bus
	Board     *Board
	Interrupt *InterruptUnit

	State RunState
	Err   error

	stackFloor int // lowest legal stack address; pushes below it overflow

	// Clock stepper state (spec.md §4.8): mac is the microprogram
	// counter, atFetch reports we're sitting at an opcode-fetch
	// boundary, and pending holds the read half's results between
	// TickHalfCycle calls.
	mac     MicroAddr
	atFetch bool
	curOp   byte
	pending *halfCycleState

	// Latched decode state for the instruction currently executing.
	operandRegA   byte
	operandRegB   byte
	operandLatch  byte
	addrLatch     byte
	addrLatch2    byte
	transferLatch byte
}

// halfCycleState is what the read half computes and the commit half
// consumes.
type halfCycleState struct {
	w    Word
	aIdx byte
	res  ALUResult
}

// NewMachine builds a machine with a fresh bus/board/interrupt unit,
// ready for Boot.
func NewMachine() *Machine {
	board := NewBoard()
	interrupt := NewInterruptUnit(board)
	return &Machine{
		Bus:        NewBus(board, interrupt),
		Board:      board,
		Interrupt:  interrupt,
		State:      Running,
		stackFloor: imageSize - defaultStackSize,
		atFetch:    true,
	}
}

// LoadedImage is the subset of an assembled program the machine needs
// to boot: the byte image plus the stack/program size directives that
// shape runtime bounds checking.
type LoadedImage struct {
	Bytes [imageSize]byte

	// StackSizeN is the explicit stack size in bytes (one of 16, 32,
	// 48, 64, 0 per spec.md §6.1) and is only meaningful when
	// StackSizeAuto is false. It must not be conflated with "unset":
	// *STACKSIZE 0 is a legal, distinct directive from *STACKSIZE
	// AUTO/NOSET, and means the stack has no headroom at all.
	StackSizeN int
	// StackSizeAuto is *STACKSIZE AUTO's outcome: spec.md §4.2 defines
	// it as deferring to the machine's own default rather than
	// recording a concrete byte count, unlike every other *STACKSIZE
	// spelling (including NOSET, which the translator already resolves
	// to an explicit DefaultStackSize).
	StackSizeAuto bool

	ProgramSize int // zero or negative means "no bound enforced"
}

// LoadedImageFromAssembled converts an assembled byte image into the
// form Boot wants, resolving the *STACKSIZE/*PROGRAMSIZE directive
// modes asm.Image records into concrete runtime bounds.
func LoadedImageFromAssembled(img *asm.Image) LoadedImage {
	out := LoadedImage{Bytes: img.Bytes, ProgramSize: -1}
	if img.StackSize.Mode == asm.StackSizeAuto {
		out.StackSizeAuto = true
	} else {
		out.StackSizeN = img.StackSize.N
	}
	if img.ProgramSize.Mode != asm.ProgramSizeNoSet {
		out.ProgramSize = img.ProgramSize.N
	}
	return out
}

// Boot installs an image and resets registers, flags, run state, the
// stack bounds and the clock stepper to their initial state. The
// board, the interrupt unit and the I/O input/output latches keep
// their current state.
func (m *Machine) Boot(img LoadedImage) {
	m.Regs = Registers{}
	m.Flags = Flags{}
	m.State = Running
	m.Err = nil
	m.atFetch = true
	m.pending = nil
	stackN := img.StackSizeN
	if img.StackSizeAuto {
		stackN = defaultStackSize
	}
	m.stackFloor = imageSize - stackN
	m.Regs.Set(isa.SP, byte(imageSize-1))
	programLimit := img.ProgramSize
	if programLimit <= 0 {
		programLimit = -1
	}
	m.Bus.LoadImage(img.Bytes[:], programLimit)
}

// Reset re-enters Running without touching memory, the "warm reset"
// half of spec.md's reset transition.
func (m *Machine) Reset() {
	m.Regs.Set(isa.PC, 0)
	m.Flags = Flags{}
	m.State = Running
	m.Err = nil
	m.atFetch = true
	m.pending = nil
}

func (m *Machine) fail(opcode byte, cause error) error {
	m.State = ErrorHalted
	m.Err = newRuntimeError(m.Regs.Get(isa.PC), opcode, cause)
	m.pending = nil
	return m.Err
}

// decodeOperands unpacks an instruction's operand bytes into the
// latches the microprogram loop and control opcodes read from; see
// word.go's MRGAAFromOperand/MRGABFromOperand doc comment for why the register
// index isn't known until here.
func (m *Machine) decodeOperands(opcode isa.Opcode, mode isa.Mode, operands []byte) {
	switch mode {
	case isa.ModeReg:
		hi, _ := isa.SplitRegByte(operands[0])
		m.operandRegA = hi
	case isa.ModeRegReg:
		hi, lo := isa.SplitRegByte(operands[0])
		m.operandRegA, m.operandRegB = hi, lo
	case isa.ModeRegImm:
		hi, _ := isa.SplitRegByte(operands[0])
		m.operandRegA = hi
		m.operandLatch = operands[1]
	case isa.ModeImm:
		m.operandLatch = operands[0]
	case isa.ModeAddr:
		m.addrLatch = operands[0]
		m.addrLatch2 = operands[0]
		m.operandLatch = operands[0]
	case isa.ModeRegAddr:
		hi, _ := isa.SplitRegByte(operands[0])
		m.operandRegA = hi
		m.addrLatch = operands[1]
		m.addrLatch2 = operands[1]
	case isa.ModeAddrReg:
		m.addrLatch = operands[0]
		m.addrLatch2 = operands[0]
		hi, _ := isa.SplitRegByte(operands[1])
		m.operandRegA = hi
	case isa.ModeAddrImm:
		m.addrLatch = operands[0]
		m.addrLatch2 = operands[0]
		m.operandLatch = operands[1]
	case isa.ModeAddrAddr:
		m.addrLatch = operands[0]  // destination
		m.addrLatch2 = operands[1] // source
	case isa.ModeTargetImm:
		mask := operands[1]
		if opcode == isa.BITCreg || opcode == isa.BITCmem {
			mask = ^mask
		}
		m.operandLatch = mask
		switch opcode {
		case isa.BITSreg, isa.BITCreg, isa.BITTreg:
			m.operandRegA = operands[0] & 0x07
		default:
			m.addrLatch = operands[0]
			m.addrLatch2 = operands[0]
		}
	}
}

// isControlOpcode reports whether opcode's semantics are PC/SP/IEF
// manipulation the shared ALU/bus microprogram template has no
// operand slots for, per the rationale in microcode.go.
func isControlOpcode(op isa.Opcode) bool {
	switch op {
	case isa.NOP, isa.STOP, isa.EI, isa.DI, isa.LDSP, isa.CALL, isa.RET, isa.RETI:
		return true
	default:
		return false
	}
}

// execControl runs one of the control opcodes to completion; it has
// no separate read/commit half since it touches no ALU state.
func (m *Machine) execControl(op isa.Opcode) error {
	switch op {
	case isa.NOP:
	case isa.STOP:
		m.State = Stopped
	case isa.EI:
		m.Flags.IEF = true
	case isa.DI:
		m.Flags.IEF = false
	case isa.LDSP:
		m.Regs.Set(isa.SP, m.operandLatch)
	case isa.CALL:
		if err := m.pushStack(m.Regs.Get(isa.PC)); err != nil {
			return m.fail(byte(isa.CALL), err)
		}
		m.Regs.Set(isa.PC, m.addrLatch)
	case isa.RET:
		m.Regs.Set(isa.PC, m.popStack())
	case isa.RETI:
		m.Regs.Set(isa.PC, m.popStack())
		m.Flags.IEF = true
	}
	return nil
}

// pushStack decrements SP and writes v at the new SP, failing with
// ErrStackOverflow if that would cross below the stack's reserved
// floor (spec.md §4.5).
func (m *Machine) pushStack(v byte) error {
	sp := m.Regs.Get(isa.SP)
	if int(sp)-1 < m.stackFloor {
		return ErrStackOverflow
	}
	sp--
	m.Bus.WriteStack(sp, v)
	m.Regs.Set(isa.SP, sp)
	return nil
}

// popStack is pushStack's inverse.
func (m *Machine) popStack() byte {
	sp := m.Regs.Get(isa.SP)
	v := m.Bus.ReadStack(sp)
	m.Regs.Set(isa.SP, sp+1)
	return v
}

// enterISR runs the fixed interrupt-entry sequence spec.md §4.7
// describes: push PC, clear IEF, jump to the vector. The pending bit
// stays set until software acknowledges it via MISR/0xF3.
func (m *Machine) enterISR() {
	if err := m.pushStack(m.Regs.Get(isa.PC)); err != nil {
		m.fail(0, err)
		return
	}
	m.Flags.IEF = false
	m.Regs.Set(isa.PC, m.Interrupt.VectorTarget(m.Bus))
}
