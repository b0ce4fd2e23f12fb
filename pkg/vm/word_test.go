package vm

import "testing"

func TestWordRoundTrip(t *testing.T) {
	f := WordFields{
		MAC:              MACSkipIfFlag,
		FlagSel:          FlagNF,
		ALUOp:            ALUSubCarry,
		BSel:             BSelImmediate,
		MRGAA:            3,
		MRGAB:            6,
		MRGWE:            true,
		MRGWS:            WriteSrcBus,
		MCHFLG:           true,
		BUSEN:            true,
		BUSWR:            true,
		MRGAAFromOperand: true,
		MRGABFromOperand: true,
	}
	w := NewWord(f)

	if got := w.MAC(); got != f.MAC {
		t.Errorf("MAC() = %v, want %v", got, f.MAC)
	}
	if got := w.FlagSel(); got != f.FlagSel {
		t.Errorf("FlagSel() = %v, want %v", got, f.FlagSel)
	}
	if got := w.ALUOp(); got != f.ALUOp {
		t.Errorf("ALUOp() = %v, want %v", got, f.ALUOp)
	}
	if got := w.BSel(); got != f.BSel {
		t.Errorf("BSel() = %v, want %v", got, f.BSel)
	}
	if got := w.MRGAA(); got != f.MRGAA {
		t.Errorf("MRGAA() = %v, want %v", got, f.MRGAA)
	}
	if got := w.MRGAB(); got != f.MRGAB {
		t.Errorf("MRGAB() = %v, want %v", got, f.MRGAB)
	}
	if got := w.MRGWE(); got != f.MRGWE {
		t.Errorf("MRGWE() = %v, want %v", got, f.MRGWE)
	}
	if got := w.MRGWS(); got != f.MRGWS {
		t.Errorf("MRGWS() = %v, want %v", got, f.MRGWS)
	}
	if got := w.MCHFLG(); got != f.MCHFLG {
		t.Errorf("MCHFLG() = %v, want %v", got, f.MCHFLG)
	}
	if got := w.BUSEN(); got != f.BUSEN {
		t.Errorf("BUSEN() = %v, want %v", got, f.BUSEN)
	}
	if got := w.BUSWR(); got != f.BUSWR {
		t.Errorf("BUSWR() = %v, want %v", got, f.BUSWR)
	}
	if got := w.MRGAAFromOperand(); got != f.MRGAAFromOperand {
		t.Errorf("MRGAAFromOperand() = %v, want %v", got, f.MRGAAFromOperand)
	}
	if got := w.MRGABFromOperand(); got != f.MRGABFromOperand {
		t.Errorf("MRGABFromOperand() = %v, want %v", got, f.MRGABFromOperand)
	}

	// The whole word must fit in the spec's 25-bit budget.
	if uint32(w) >= 1<<25 {
		t.Errorf("word 0x%08X exceeds 25 bits", uint32(w))
	}
}

func TestWordZeroValueIsBenign(t *testing.T) {
	w := NewWord(WordFields{})
	if w.MAC() != MACNext {
		t.Errorf("zero-value MAC = %v, want MACNext", w.MAC())
	}
	if w.MRGWE() || w.BUSEN() || w.MCHFLG() || w.MRGAAFromOperand() || w.MRGABFromOperand() {
		t.Errorf("zero-value word has a set control bit: %+v", w)
	}
}
