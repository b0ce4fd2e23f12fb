package vm

// nextMicroAddress computes where the microprogram counter goes after
// executing the word at cur, per the MAC semantics spec.md §3 names.
// fetch reports that the instruction's microprogram is done and the
// clock stepper should return to ordinary opcode fetch.
func nextMicroAddress(cur MicroAddr, w Word, flags Flags) (next MicroAddr, fetch bool) {
	switch w.MAC() {
	case MACNext:
		return cur + 1, false
	case MACFetchOpcode:
		return 0, true
	case MACSkipIfFlag:
		if flags.Get(w.FlagSel()) {
			return cur + 2, false
		}
		return cur + 1, false
	case MACSkipIfNotFlag:
		if !flags.Get(w.FlagSel()) {
			return cur + 2, false
		}
		return cur + 1, false
	case MACHalt, MACReturnFromCall:
		// Both are handled by the caller before nextMicroAddress is
		// consulted (STOP/RET/RETI are machine.go control opcodes);
		// reaching here would be a microcode authoring bug.
		return cur, true
	default:
		return 0, true
	}
}
