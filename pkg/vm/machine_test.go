package vm

import (
	"errors"
	"testing"

	"github.com/mr2a/mr2a-emu/pkg/asm"
	"github.com/mr2a/mr2a-emu/pkg/isa"
)

func bootFromSource(t *testing.T, src string) *Machine {
	t.Helper()
	img, err := asm.Assemble("#! mrasm\n" + src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	m := NewMachine()
	m.Boot(LoadedImageFromAssembled(img))
	return m
}

func TestMachineSimpleAddition(t *testing.T) {
	// spec.md §8's seed scenario: add two immediates and store the sum.
	m := bootFromSource(t, `
MOV R0, 2
MOV R1, 3
ADD R0, R1
ST (20), R0
STOP
`)
	if err := m.Run(0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.State != Stopped {
		t.Fatalf("State = %v, want Stopped", m.State)
	}
	if got := m.Bus.Read(20); got != 5 {
		t.Errorf("mem[20] = %d, want 5", got)
	}
	if got := m.Regs.Get(isa.R0); got != 5 {
		t.Errorf("R0 = %d, want 5", got)
	}
}

func TestMachineEquOverrideFeedsAssembly(t *testing.T) {
	// Confirms the .EQU-override interplay with assembly spec.md §8
	// calls out: the later .EQU wins and that value is what gets
	// encoded into the MOV.ri immediate the machine executes.
	m := bootFromSource(t, `
.EQU N 1
.EQU N 7
MOV R0, N
STOP
`)
	if err := m.Run(0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.Regs.Get(isa.R0); got != 7 {
		t.Errorf("R0 = %d, want 7 (the overriding .EQU value)", got)
	}
}

func TestMachineStackSize48Directive(t *testing.T) {
	m := bootFromSource(t, "*STACKSIZE 48\nNOP\nSTOP")
	wantFloor := imageSize - 48
	if m.stackFloor != wantFloor {
		t.Errorf("stackFloor = %d, want %d", m.stackFloor, wantFloor)
	}
}

func TestMachineStackSizeZeroLeavesNoHeadroom(t *testing.T) {
	// *STACKSIZE 0 is a distinct, legal directive (spec.md §6.1) from
	// NOSET/AUTO, not a synonym for "unset": it must not be silently
	// upgraded to the default 16-byte stack.
	m := bootFromSource(t, "*STACKSIZE 0\nNOP\nSTOP")
	if m.stackFloor != imageSize {
		t.Errorf("stackFloor = %d, want %d (no stack headroom)", m.stackFloor, imageSize)
	}
	if err := m.pushStack(0x42); !errors.Is(err, ErrStackOverflow) {
		t.Errorf("first push with *STACKSIZE 0 = %v, want ErrStackOverflow", err)
	}
}

func TestMachineStackSizeAutoDefersToMachineDefault(t *testing.T) {
	m := bootFromSource(t, "*STACKSIZE AUTO\nNOP\nSTOP")
	wantFloor := imageSize - defaultStackSize
	if m.stackFloor != wantFloor {
		t.Errorf("stackFloor = %d, want %d (machine default)", m.stackFloor, wantFloor)
	}
}

func TestMachineDefaultStackOverflowAfterSixteenPushes(t *testing.T) {
	m := bootFromSource(t, "NOP\nSTOP") // default stack size: 16
	for i := 0; i < 15; i++ {
		if err := m.pushStack(byte(i)); err != nil {
			t.Fatalf("push %d: unexpected error %v", i, err)
		}
	}
	err := m.pushStack(0xFF)
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("16th push error = %v, want ErrStackOverflow", err)
	}
}

func TestMachineCallAndRet(t *testing.T) {
	m := bootFromSource(t, `
JR main
main:
  CALL fn
  STOP
fn:
  MOV R2, 9
  RET
`)
	if err := m.Run(0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.State != Stopped {
		t.Fatalf("State = %v, want Stopped", m.State)
	}
	if got := m.Regs.Get(isa.R2); got != 9 {
		t.Errorf("R2 = %d, want 9", got)
	}
}

func TestMachineIllegalOpcodeHalts(t *testing.T) {
	m := NewMachine()
	var img LoadedImage
	img.Bytes[0] = 0xEE // not assigned to any isa.Def
	img.StackSizeN = defaultStackSize
	img.ProgramSize = -1
	m.Boot(img)

	if err := m.Step(); err == nil {
		t.Fatal("expected an illegal-opcode error")
	}
	if m.State != ErrorHalted {
		t.Errorf("State = %v, want ErrorHalted", m.State)
	}
	var re *RuntimeError
	if !errors.As(m.Err, &re) {
		t.Fatalf("Err = %v (%T), want *RuntimeError", m.Err, m.Err)
	}
	if !errors.Is(re.Cause, ErrIllegalOpcode) {
		t.Errorf("Cause = %v, want ErrIllegalOpcode", re.Cause)
	}
}

// TestMachineKeyInterruptAndReti builds a raw image by hand (rather
// than through the assembler) so the two fixed vector slots at
// addresses 0-3 are explicit: JR to main, JR to the ISR. It enables
// interrupts, delivers a key edge mid-run, and checks the ISR fires,
// runs to completion, and RETI restores both PC and IEF.
func TestMachineKeyInterruptAndReti(t *testing.T) {
	var img LoadedImage
	b := img.Bytes[:]
	b[0], b[1] = byte(isa.JR), 4 // reset vector -> main
	b[2], b[3] = byte(isa.JR), 0x20

	main := 4
	b[main+0] = byte(isa.EI)
	b[main+1] = byte(isa.NOP)
	b[main+2] = byte(isa.NOP)
	b[main+3] = byte(isa.NOP)
	b[main+4] = byte(isa.STOP)

	isr := 0x20
	b[isr+0] = byte(isa.MOVri)
	b[isr+1] = isa.RegByte(isa.R3, 0)
	b[isr+2] = 0x55
	b[isr+3] = byte(isa.STai)
	b[isr+4] = AddrMISR
	b[isr+5] = 0x11 // keep key interrupt enabled, acknowledge it (write-1-to-clear bit 4)
	b[isr+6] = byte(isa.RETI)

	img.StackSizeN = defaultStackSize
	img.ProgramSize = -1

	m := NewMachine()
	m.Boot(img)

	if err := m.Step(); err != nil { // JR -> main
		t.Fatalf("step JR: %v", err)
	}
	if err := m.Step(); err != nil { // EI
		t.Fatalf("step EI: %v", err)
	}
	if !m.Flags.IEF {
		t.Fatal("expected IEF set after EI")
	}

	m.Interrupt.WriteMISR(0x01) // enable key interrupt
	m.Interrupt.SetKeyInput(true)

	if err := m.Step(); err != nil { // interrupt should preempt the next NOP
		t.Fatalf("step into ISR: %v", err)
	}
	if got := m.Regs.Get(isa.PC); got != byte(isr) {
		t.Fatalf("PC = 0x%02X, want ISR entry 0x%02X", got, isr)
	}
	if m.Flags.IEF {
		t.Error("IEF should be cleared on interrupt entry")
	}

	if err := m.Step(); err != nil { // MOV.ri R3, 0x55
		t.Fatalf("step in ISR: %v", err)
	}
	if got := m.Regs.Get(isa.R3); got != 0x55 {
		t.Errorf("R3 = 0x%02X, want 0x55", got)
	}

	if err := m.Step(); err != nil { // ST.ai (MISR), 0x11 -- acknowledge the key interrupt
		t.Fatalf("step ack in ISR: %v", err)
	}
	if m.Interrupt.Pending() {
		t.Fatal("expected the key interrupt to be acknowledged before RETI")
	}

	if err := m.Step(); err != nil { // RETI
		t.Fatalf("step RETI: %v", err)
	}
	if !m.Flags.IEF {
		t.Error("RETI should restore IEF")
	}
	if got := m.Regs.Get(isa.PC); got != byte(main+1) {
		t.Errorf("PC after RETI = 0x%02X, want 0x%02X (resuming after EI)", got, main+1)
	}

	if err := m.Run(0); err != nil {
		t.Fatalf("Run to STOP: %v", err)
	}
	if m.State != Stopped {
		t.Errorf("State = %v, want Stopped", m.State)
	}
}

func TestMachineBitOpsOnMemory(t *testing.T) {
	m := bootFromSource(t, `
ST (30), 0x0F
BITS (30), 0xF0
STOP
`)
	if err := m.Run(0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.Bus.Read(30); got != 0xFF {
		t.Errorf("mem[30] = 0x%02X, want 0xFF", got)
	}
}

func TestMachineBitClearOnRegisterInvertsMask(t *testing.T) {
	m := bootFromSource(t, `
MOV R0, 0xFF
BITC R0, 0x0F
STOP
`)
	if err := m.Run(0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.Regs.Get(isa.R0); got != 0xF0 {
		t.Errorf("R0 = 0x%02X, want 0xF0", got)
	}
}

func TestMachineIndirectIndirectMove(t *testing.T) {
	m := bootFromSource(t, `
ST (40), 0x77
ST (41), (40)
STOP
`)
	if err := m.Run(0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.Bus.Read(41); got != 0x77 {
		t.Errorf("mem[41] = 0x%02X, want 0x77", got)
	}
}

func TestMachineProgramSizeBoundRejectsWrite(t *testing.T) {
	m := bootFromSource(t, `
*PROGRAMSIZE 10
ST (50), R0
STOP
`)
	err := m.Run(0)
	if err == nil {
		t.Fatal("expected a write-past-program-size error")
	}
	if m.State != ErrorHalted {
		t.Errorf("State = %v, want ErrorHalted", m.State)
	}
	var re *RuntimeError
	if !errors.As(err, &re) || !errors.Is(re.Cause, ErrOutOfBoundsWrite) {
		t.Errorf("err = %v, want a RuntimeError wrapping ErrOutOfBoundsWrite", err)
	}
}

func TestMachineConditionalJump(t *testing.T) {
	m := bootFromSource(t, `
MOV R0, 5
CMP R0, 5
JZS eq
MOV R1, 1
STOP
eq:
  MOV R1, 2
  STOP
`)
	if err := m.Run(0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.Regs.Get(isa.R1); got != 2 {
		t.Errorf("R1 = %d, want 2 (branch taken on equality)", got)
	}
}

func TestMachineResetPreservesMemory(t *testing.T) {
	m := bootFromSource(t, `
ST (60), 0x42
STOP
`)
	if err := m.Run(0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	m.Reset()
	if m.State != Running {
		t.Fatalf("State after Reset = %v, want Running", m.State)
	}
	if got := m.Regs.Get(isa.PC); got != 0 {
		t.Errorf("PC after Reset = %d, want 0", got)
	}
	if got := m.Bus.Read(60); got != 0x42 {
		t.Errorf("mem[60] = 0x%02X, want 0x42 (Reset must not clear memory)", got)
	}
}
