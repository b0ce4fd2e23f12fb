package vm

import pkgerrors "github.com/pkg/errors"

// Sentinel runtime errors that drive the machine into ErrorHalted
// (spec.md §4.7). Callers compare with errors.Is; pkgerrors.Wrap adds
// the run's program-counter context without losing the sentinel.
var (
	ErrIllegalOpcode    = pkgerrors.New("illegal opcode")
	ErrStackOverflow    = pkgerrors.New("stack overflow")
	ErrOutOfBoundsWrite = pkgerrors.New("write past program size")
)

// RuntimeError pairs one of the sentinels above with the program
// counter and opcode byte active when it was raised, so a caller
// inspecting a halted Machine can report where execution stopped.
type RuntimeError struct {
	PC     byte
	Opcode byte
	Cause  error
}

func (e *RuntimeError) Error() string {
	return pkgerrors.Wrapf(e.Cause, "at pc=0x%02X opcode=0x%02X", e.PC, e.Opcode).Error()
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

func newRuntimeError(pc, opcode byte, cause error) *RuntimeError {
	return &RuntimeError{PC: pc, Opcode: opcode, Cause: cause}
}
