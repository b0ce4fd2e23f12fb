package asm

// ImageSize is the fixed byte-image size the translator always
// produces: addresses 0x00..0xEF.
const ImageSize = 0xF0

// StackSizeMode distinguishes the two ways *STACKSIZE can resolve
// (NOSET resolves to StackSizeExplicit with DefaultStackSize).
type StackSizeMode int

const (
	// StackSizeExplicit means N (one of 16, 32, 48, 64, 0) was set,
	// either by an explicit directive or by the unset default.
	StackSizeExplicit StackSizeMode = iota
	// StackSizeAuto defers the choice to the machine's own default
	// at boot time.
	StackSizeAuto
)

// StackSize is the translator's recorded *STACKSIZE outcome.
type StackSize struct {
	Mode StackSizeMode
	N    int // valid when Mode == StackSizeExplicit
}

// DefaultStackSize is the value in force when no *STACKSIZE directive
// appears, and the value *STACKSIZE NOSET leaves in force.
const DefaultStackSize = 16

// ProgramSizeMode distinguishes the three ways *PROGRAMSIZE can
// resolve. SPEC_FULL.md §11 calls out AUTO vs NOSET as a deliberately
// retained distinction even though both can produce the same bound in
// simple programs.
type ProgramSizeMode int

const (
	// ProgramSizeNoSet disables the program-size bound entirely; this
	// is also the default when no *PROGRAMSIZE directive appears.
	ProgramSizeNoSet ProgramSizeMode = iota
	// ProgramSizeAuto sets the bound to the end of the emitted image.
	ProgramSizeAuto
	// ProgramSizeFixed sets an explicit hard upper bound.
	ProgramSizeFixed
)

// ProgramSize is the translator's recorded *PROGRAMSIZE outcome.
type ProgramSize struct {
	Mode ProgramSizeMode
	N    int // valid when Mode != ProgramSizeNoSet
}

// Image is the translator's complete output: the byte image plus the
// layout metadata a booting machine needs.
type Image struct {
	Bytes       [ImageSize]byte
	StackSize   StackSize
	ProgramSize ProgramSize
}
