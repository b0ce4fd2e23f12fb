package vm

import "github.com/mr2a/mr2a-emu/pkg/isa"

// TickHalfCycle performs exactly one half-clock edge, per spec.md
// §4.8: a read half evaluates ALU/bus inputs and (at a fetch
// boundary) decodes the next instruction; a commit half writes back
// registers/bus/flags and advances the microprogram counter. Pending
// interrupts are only honored at a fetch boundary, never mid
// microinstruction. A no-op once the machine has left Running.
func (m *Machine) TickHalfCycle() error {
	if m.State != Running {
		return nil
	}
	if m.pending != nil {
		return m.tickCommitHalf()
	}
	return m.tickReadHalf()
}

// TickFullCycle is two half cycles, the unit spec.md's run(n_cycles)
// counts in.
func (m *Machine) TickFullCycle() error {
	if err := m.TickHalfCycle(); err != nil {
		return err
	}
	return m.TickHalfCycle()
}

// Run executes up to n full cycles, stopping early if the machine
// leaves Running. n <= 0 means "run until not Running".
func (m *Machine) Run(n int) error {
	for i := 0; n <= 0 || i < n; i++ {
		if m.State != Running {
			return m.Err
		}
		if err := m.TickFullCycle(); err != nil {
			return err
		}
	}
	return nil
}

// Step runs whole instructions rather than individual cycles: a
// convenience for callers (and tests) that don't need cycle-level
// observation. It ticks full cycles until the stepper returns to a
// fetch boundary having executed at least one.
func (m *Machine) Step() error {
	if m.State != Running {
		return nil
	}
	ticked := false
	for {
		if m.State != Running {
			return m.Err
		}
		if m.atFetch && ticked {
			return nil
		}
		if err := m.TickFullCycle(); err != nil {
			return err
		}
		ticked = true
	}
}

// finishAtomicHalf is called after a control opcode or interrupt entry
// has already taken full effect within the read half (they have no
// ALU/bus step to split across a commit half). It leaves pending set
// to the same inert, fetch-only word microcode.go's control-opcode
// placeholder uses, so the commit half that TickFullCycle always runs
// next is a genuine no-op rather than re-entering tickReadHalf and
// silently executing a second instruction in the same cycle.
func (m *Machine) finishAtomicHalf() error {
	if m.State != Running {
		return m.Err
	}
	m.pending = &halfCycleState{w: NewWord(WordFields{MAC: MACFetchOpcode})}
	return nil
}

func (m *Machine) tickReadHalf() error {
	if m.atFetch {
		if m.Flags.IEF && m.Interrupt.Pending() {
			m.enterISR()
			return m.finishAtomicHalf()
		}

		pc := m.Regs.Get(isa.PC)
		opcode := m.Bus.Read(pc)
		def := isa.ByOpcode[opcode]
		if def == nil {
			return m.fail(opcode, ErrIllegalOpcode)
		}
		m.curOp = opcode

		cursor := pc + 1
		operands := make([]byte, 0, 2)
		for i := 0; i < def.Mode.Len()-1; i++ {
			operands = append(operands, m.Bus.Read(cursor))
			cursor++
		}
		m.Regs.Set(isa.PC, cursor)
		m.decodeOperands(isa.Opcode(opcode), def.Mode, operands)

		if isControlOpcode(isa.Opcode(opcode)) {
			if err := m.execControl(isa.Opcode(opcode)); err != nil {
				return err
			}
			return m.finishAtomicHalf()
		}
		m.mac = entry[opcode]
		m.atFetch = false
	}

	w := rom[m.mac]
	aIdx := w.MRGAA()
	if w.MRGAAFromOperand() {
		aIdx = m.operandRegA
	}

	var a byte
	if w.BSel() != BSelRegPortB && w.MRGABFromOperand() {
		a = m.transferLatch // bit-reused meaning: see word.go's MRGABFromOperand doc
	} else {
		a = m.Regs.ReadA(aIdx)
	}

	var bVal byte
	switch w.BSel() {
	case BSelRegPortB:
		bIdx := w.MRGAB()
		if w.MRGABFromOperand() {
			bIdx = m.operandRegB
		}
		bVal = m.Regs.ReadB(bIdx)
	case BSelImmediate:
		bVal = m.operandLatch
	case BSelZero:
		bVal = 0
	}
	if w.BUSEN() && !w.BUSWR() {
		m.transferLatch = m.Bus.Read(m.addrLatch2)
	}

	res := evalALU(w.ALUOp(), a, bVal, m.Flags.CF)
	m.pending = &halfCycleState{w: w, aIdx: aIdx, res: res}
	return nil
}

func (m *Machine) tickCommitHalf() error {
	p := m.pending
	w := p.w

	if w.BUSEN() && w.BUSWR() {
		if err := m.Bus.Write(m.addrLatch, p.res.Value); err != nil {
			return m.fail(m.curOp, err)
		}
	}
	if w.MRGWE() {
		val := p.res.Value
		if w.MRGWS() == WriteSrcBus {
			val = m.transferLatch
		}
		m.Regs.Write(p.aIdx, val)
	}
	if w.MCHFLG() {
		m.Flags.CF, m.Flags.ZF, m.Flags.NF = p.res.CF, p.res.ZF, p.res.NF
	}

	next, fetch := nextMicroAddress(m.mac, w, m.Flags)
	m.pending = nil
	if fetch {
		m.atFetch = true
	} else {
		m.mac = next
	}
	return nil
}
