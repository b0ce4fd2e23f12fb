package vm

// Board models the MR2DA2 extension board (spec.md §4.6/§6.3): two
// analog output latches, one 8-bit digital input, three
// direction-configurable universal I/O pins, two read-only jumpers,
// and a temperature sensor input.
//
// Writing 0xF0/0xF1 targets analog output latch 0/1. Reading 0xF1
// returns latch 1 back; 0xF0 is dual-purpose the way 0xFC..0xFF are,
// reading a different piece of board state. The digital input register (IRG)
// has no address of its own in spec.md §6.3's table, so it is read
// back through 0xF0 (see DESIGN.md) rather than invented a fifth
// register outside the 0xF0..0xF3 range the spec reserves for the
// board.
type Board struct {
	dac [2]byte // analog output latches, addresses 0xF0 and 0xF1
	irg byte    // 8-bit digital input, externally installed

	uio [3]UIOPin

	// edgeEnable and edgeFalling are 0xF2 bits 6-7: a single routing
	// switch shared by all three pins (not one bit per pin — there
	// isn't room) that arms edge-latching for every input-configured
	// pin at once, rising or falling per edgeFalling.
	edgeEnable  bool
	edgeFalling bool

	j1, j2 bool // jumpers, externally installed, read-only to the core

	tempVoltage float64 // clamped to [0.0, 5.0] on every Set
}

// UIOPin is one of the three universal I/O pins. Value and Direction
// are per-pin (0xF2 bits 0-2 and 3-5); edge-triggered interrupts are
// not, since 0xF2 only has two bits (6-7) left to route them and three
// pins would need three — see Board.edgeEnable.
type UIOPin struct {
	Direction   bool // true = output, false = input
	Value       bool
	PendingEdge bool // status bit, 0xF3
	prevValue   bool // for edge detection when configured as input
}

// NewBoard returns a board with both jumpers open and the sensor at
// 0V.
func NewBoard() *Board {
	return &Board{}
}

// ReadRegister implements the board's half of the bus's 0xF0..0xF3
// range.
func (b *Board) ReadRegister(addr byte) byte {
	switch addr {
	case AddrBoardStart: // 0xF0
		return b.irg
	case AddrBoardStart + 1: // 0xF1
		return b.dac[1]
	case AddrBoardStart + 2: // 0xF2
		return b.packUIO()
	case AddrBoardStart + 3: // 0xF3
		return b.packStatus()
	default:
		return 0
	}
}

// WriteRegister implements the board's half of bus writes.
func (b *Board) WriteRegister(addr byte, v byte) {
	switch addr {
	case AddrBoardStart: // 0xF0
		b.dac[0] = v
	case AddrBoardStart + 1: // 0xF1
		b.dac[1] = v
	case AddrBoardStart + 2: // 0xF2
		b.unpackUIO(v)
	case AddrBoardStart + 3: // 0xF3
		// Status bits are read-only from the core's point of view;
		// a write only clears acknowledged pending-edge bits, mirroring
		// typical write-1-to-clear status registers.
		for i := range b.uio {
			if v&(1<<uint(i)) != 0 {
				b.uio[i].PendingEdge = false
			}
		}
	}
}

func (b *Board) packUIO() byte {
	var v byte
	for i, pin := range b.uio {
		if pin.Value {
			v |= 1 << uint(i)
		}
		if pin.Direction {
			v |= 1 << uint(i+3)
		}
	}
	if b.edgeEnable {
		v |= 1 << 6
	}
	if b.edgeFalling {
		v |= 1 << 7
	}
	return v
}

func (b *Board) unpackUIO(v byte) {
	b.edgeEnable = v&(1<<6) != 0
	b.edgeFalling = v&(1<<7) != 0
	for i := range b.uio {
		newValue := v&(1<<uint(i)) != 0
		newDirection := v&(1<<uint(i+3)) != 0
		b.uio[i].Direction = newDirection
		// Both directions latch the written value bit into the
		// register; an input pin's externally observed level still
		// only ever comes from SetUIOInput (spec.md §4.6).
		b.uio[i].Value = newValue
	}
}

func (b *Board) packStatus() byte {
	var v byte
	for i, pin := range b.uio {
		if pin.PendingEdge {
			v |= 1 << uint(i)
		}
	}
	if b.j1 {
		v |= 1 << 6
	}
	if b.j2 {
		v |= 1 << 7
	}
	return v
}

// SetDigitalInput installs the externally supplied IRG byte.
func (b *Board) SetDigitalInput(v byte) { b.irg = v }

// AnalogOutputVoltage converts a DAC latch (0 or 1) to the 0..5.0V
// range spec.md §4.6 describes, quantized over the 8-bit register.
func (b *Board) AnalogOutputVoltage(channel int) float64 {
	return float64(b.dac[channel&1]) * (5.0 / 255.0)
}

// SetJumpers installs the two board jumpers' externally fixed state.
func (b *Board) SetJumpers(j1, j2 bool) { b.j1, b.j2 = j1, j2 }

// SetTemperatureVoltage installs the sensor reading, clamped to
// [0.0, 5.0] V per spec.md §4.6.
func (b *Board) SetTemperatureVoltage(v float64) {
	if v < 0.0 {
		v = 0.0
	}
	if v > 5.0 {
		v = 5.0
	}
	b.tempVoltage = v
}

// TemperatureVoltage returns the last installed sensor reading.
func (b *Board) TemperatureVoltage() float64 { return b.tempVoltage }

// SetUIOInput drives an externally supplied level onto a pin that is
// currently configured as an input, latching a pending edge if the
// board's shared edge-enable bit is set and the level transitions the
// armed direction (rising, unless edgeFalling is set).
func (b *Board) SetUIOInput(pin int, level bool) {
	p := &b.uio[pin]
	if p.Direction {
		return // pin is an output; external driver cannot override it
	}
	if b.edgeEnable {
		transitioned := p.prevValue != level
		wantRising := !b.edgeFalling
		if transitioned && level == wantRising {
			p.PendingEdge = true
		}
	}
	p.prevValue = level
	p.Value = level
}

// PendingEdges reports which UI/O pins currently have a latched,
// unacknowledged edge interrupt.
func (b *Board) PendingEdges() [3]bool {
	var out [3]bool
	for i, pin := range b.uio {
		out[i] = pin.PendingEdge
	}
	return out
}
