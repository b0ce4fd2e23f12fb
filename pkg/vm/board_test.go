package vm

import "testing"

func TestBoardAnalogOutputVoltage(t *testing.T) {
	b := NewBoard()
	b.WriteRegister(AddrBoardStart, 0xFF)
	if got := b.AnalogOutputVoltage(0); got != 5.0 {
		t.Errorf("channel 0 voltage = %v, want 5.0", got)
	}
	b.WriteRegister(AddrBoardStart, 0x00)
	if got := b.AnalogOutputVoltage(0); got != 0.0 {
		t.Errorf("channel 0 voltage = %v, want 0.0", got)
	}
}

func TestBoardDualPurposeRegisters(t *testing.T) {
	b := NewBoard()
	b.SetDigitalInput(0x3C)
	// 0xF0 write targets DAC1, read returns the digital input latch.
	b.WriteRegister(AddrBoardStart, 0x99)
	if got := b.ReadRegister(AddrBoardStart); got != 0x3C {
		t.Errorf("ReadRegister(0xF0) = 0x%02X, want digital input 0x3C", got)
	}
	if got := b.dac[0]; got != 0x99 {
		t.Errorf("dac[0] = 0x%02X, want 0x99 (write still latched)", got)
	}
}

func TestBoardUIOPinRoundTrip(t *testing.T) {
	b := NewBoard()
	// Pin 0: output, high. Pin 1: input. Shared edge-enable bit set.
	b.WriteRegister(AddrBoardStart+2, 0b0100_1001)
	packed := b.ReadRegister(AddrBoardStart + 2)
	if packed != 0b0100_1001 {
		t.Errorf("packed UIO = %#08b, want %#08b", packed, 0b0100_1001)
	}
	if !b.uio[0].Direction || !b.uio[0].Value {
		t.Errorf("pin 0 = %+v, want output/high", b.uio[0])
	}
	if b.uio[1].Direction {
		t.Errorf("pin 1 = %+v, want input", b.uio[1])
	}
	if !b.edgeEnable || b.edgeFalling {
		t.Errorf("edgeEnable=%v edgeFalling=%v, want enabled/rising", b.edgeEnable, b.edgeFalling)
	}
}

func TestBoardUIOEdgeLatchesAndClears(t *testing.T) {
	b := NewBoard()
	b.WriteRegister(AddrBoardStart+2, 0b0100_0000) // all pins input, edge-enable armed (rising)
	b.SetUIOInput(0, false)
	b.SetUIOInput(0, true) // low-to-high edge
	if !b.PendingEdges()[0] {
		t.Fatal("expected pin 0 to have a pending edge")
	}
	// Write-1-to-clear on 0xF3.
	b.WriteRegister(AddrBoardStart+3, 0b00000001)
	if b.PendingEdges()[0] {
		t.Error("pending edge should have been cleared")
	}
}

func TestBoardUIOEdgeFallingArm(t *testing.T) {
	b := NewBoard()
	b.WriteRegister(AddrBoardStart+2, 0b1100_0000) // edge-enable + falling
	b.SetUIOInput(0, true)
	if b.PendingEdges()[0] {
		t.Fatal("rising edge must not latch when armed for falling")
	}
	b.SetUIOInput(0, false)
	if !b.PendingEdges()[0] {
		t.Error("expected a falling edge to latch once armed for falling")
	}
}

func TestBoardUIOOutputPinIgnoresExternalDrive(t *testing.T) {
	b := NewBoard()
	b.WriteRegister(AddrBoardStart+2, 0b00_001_000) // pin 0: output, low
	b.SetUIOInput(0, true)
	if b.uio[0].Value {
		t.Error("an output pin must not be overridden by SetUIOInput")
	}
}

func TestBoardJumperStatusBits(t *testing.T) {
	b := NewBoard()
	b.SetJumpers(true, false)
	if got := b.ReadRegister(AddrBoardStart + 3); got&(1<<6) == 0 {
		t.Errorf("status byte 0x%02X should have J1 (bit 6) set", got)
	}
}

func TestBoardTemperatureVoltageClamped(t *testing.T) {
	b := NewBoard()
	b.SetTemperatureVoltage(-1.0)
	if got := b.TemperatureVoltage(); got != 0.0 {
		t.Errorf("clamped low = %v, want 0.0", got)
	}
	b.SetTemperatureVoltage(9.0)
	if got := b.TemperatureVoltage(); got != 5.0 {
		t.Errorf("clamped high = %v, want 5.0", got)
	}
}
