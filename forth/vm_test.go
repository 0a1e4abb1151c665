package forth

import (
	"encoding/binary"
	"fmt"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

// testHost is a minimal Host backed by plain byte slices, standing in for
// the memory surface and sensor latch during package-local tests.
type testHost struct {
	mem      []byte
	writeBuf []byte
	temp     uint16
	vdd      uint16
}

func newTestHost() *testHost {
	return &testHost{
		mem:      make([]byte, 256),
		writeBuf: make([]byte, 32*4),
	}
}

func (h *testHost) ReadByte(addr int) (byte, error) {
	if addr < 0 || addr >= len(h.mem) {
		return 0, fmt.Errorf("out of range: %d", addr)
	}
	return h.mem[addr], nil
}

func (h *testHost) WriteByte(addr int, v byte) error {
	if addr < 0 || addr >= len(h.mem) {
		return fmt.Errorf("out of range: %d", addr)
	}
	h.mem[addr] = v
	return nil
}

func (h *testHost) WriteBuf() []byte { return h.writeBuf }
func (h *testHost) Temp() uint16     { return h.temp }
func (h *testHost) Vdd() uint16      { return h.vdd }

func newBootstrapped(t *testing.T) (*VM, *testHost) {
	host := newTestHost()
	vm := New(host)
	vm.Bootstrap()
	assert(t, vm != nil, "New returned a nil VM")
	return vm, host
}

func (h *testHost) resultCell(i int) int32 {
	return int32(binary.LittleEndian.Uint32(h.writeBuf[i*4:]))
}

func TestBootstrapDefinesStandardWords(t *testing.T) {
	vm, _ := newBootstrapped(t)
	for _, name := range []string{"here", "if", "else", "fi", "do", "loop", "times", "s\""} {
		_, _, found := vm.findWord(name)
		assert(t, found, "expected bootstrap to define %q", name)
	}
}

func TestArithmeticAndEmit(t *testing.T) {
	vm, host := newBootstrapped(t)
	reason := vm.Eval(`: answer 40 2 + . ;  answer`)
	assert(t, reason == AbortOK, "unexpected abort: %s", reason)
	assert(t, host.resultCell(0) == 42, "expected 42, got %d", host.resultCell(0))
}

func TestDivisionByZeroAborts(t *testing.T) {
	vm, _ := newBootstrapped(t)
	reason := vm.Eval(`1 0 /`)
	assert(t, reason == AbortDivisionByZero, "expected division by zero, got %s", reason)
	assert(t, vm.dsp == 0, "data stack should be reset after abort, dsp=%d", vm.dsp)
}

func TestRecoversAfterAbort(t *testing.T) {
	vm, host := newBootstrapped(t)
	reason := vm.Eval(`1 0 /`)
	assert(t, reason == AbortDivisionByZero, "expected division by zero, got %s", reason)

	reason = vm.Eval(`7 6 * .`)
	assert(t, reason == AbortOK, "unexpected abort after recovery: %s", reason)
	assert(t, host.resultCell(0) == 42, "expected 42, got %d", host.resultCell(0))
}

func TestIfElseFi(t *testing.T) {
	vm, host := newBootstrapped(t)
	reason := vm.Eval(`: classify dup 0 > if 1 . else 0 . fi ;  5 classify -3 classify`)
	assert(t, reason == AbortOK, "unexpected abort: %s", reason)
	assert(t, host.resultCell(0) == 1, "expected 1, got %d", host.resultCell(0))
	assert(t, host.resultCell(1) == 0, "expected 0, got %d", host.resultCell(1))
}

func TestDoLoop(t *testing.T) {
	vm, host := newBootstrapped(t)
	reason := vm.Eval(`: sum 0 5 0 do i + loop . ; sum`)
	assert(t, reason == AbortOK, "unexpected abort: %s", reason)
	// this dialect's do/loop checks the counter against the limit only
	// after incrementing, so the limit itself is included: 0+1+2+3+4+5.
	assert(t, host.resultCell(0) == 15, "expected 0+1+2+3+4+5=15, got %d", host.resultCell(0))
}

func TestDeviceReadWrite(t *testing.T) {
	vm, host := newBootstrapped(t)
	reason := vm.Eval(`123 10 !D`)
	assert(t, reason == AbortOK, "unexpected abort: %s", reason)
	assert(t, host.mem[10] == 123, "expected SRAM[10]=123, got %d", host.mem[10])

	reason = vm.Eval(`10 @D .`)
	assert(t, reason == AbortOK, "unexpected abort: %s", reason)
	assert(t, host.resultCell(0) == 123, "expected 123, got %d", host.resultCell(0))
}

func TestSensorPrimitives(t *testing.T) {
	vm, host := newBootstrapped(t)
	host.temp = 2731
	host.vdd = 3300

	reason := vm.Eval(`@T . @V .`)
	assert(t, reason == AbortOK, "unexpected abort: %s", reason)
	assert(t, host.resultCell(0) == 2731, "expected 2731, got %d", host.resultCell(0))
	assert(t, host.resultCell(1) == 3300, "expected 3300, got %d", host.resultCell(1))
}

func TestWritePosWrapsAndResets(t *testing.T) {
	vm, host := newBootstrapped(t)
	// writeBuf holds 32 cells; emit 33 values and expect a wraparound.
	src := "1 2 3 ."
	_ = src
	for i := 0; i < 33; i++ {
		reason := vm.Eval(`1 .`)
		assert(t, reason == AbortOK, "unexpected abort on iteration %d: %s", i, reason)
	}
	assert(t, vm.writePos == 1, "expected write_pos to wrap to 1, got %d", vm.writePos)

	vm.ResetWritePos()
	assert(t, vm.writePos == 0, "expected write_pos reset to 0, got %d", vm.writePos)
	_ = host
}

func TestNotAWordAborts(t *testing.T) {
	vm, _ := newBootstrapped(t)
	reason := vm.Eval(`this-is-not-a-word`)
	assert(t, reason == AbortNotAWord, "expected not-a-word abort, got %s", reason)
}

func TestStackUnderrunAborts(t *testing.T) {
	vm, _ := newBootstrapped(t)
	reason := vm.Eval(`drop`)
	assert(t, reason == AbortDStackUnderrun, "expected data stack underrun, got %s", reason)
}
