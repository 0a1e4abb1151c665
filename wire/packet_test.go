package wire

import (
	"fmt"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func samplePacket() Packet {
	var p Packet
	p.Command = READ
	p.Pic = 3
	p.Options = 7
	copy(p.UID[:], "DEADBEEFDEADBEEFDEADBEEF")
	for i := range p.Data {
		p.Data[i] = byte(i)
	}
	return p
}

func TestRoundTrip(t *testing.T) {
	p := samplePacket()
	Refresh(&p)

	var buf [Size]byte
	err := Emit(&p, buf[:])
	assert(t, err == nil, "emit failed: %v", err)

	got, err := Parse(buf[:])
	assert(t, err == nil, "parse failed: %v", err)

	assert(t, got.Command == p.Command, "command mismatch")
	assert(t, got.Pic == p.Pic, "pic mismatch")
	assert(t, got.Options == p.Options, "options mismatch")
	assert(t, got.UID == p.UID, "uid mismatch")
	assert(t, got.Data == p.Data, "data mismatch")
	assert(t, got.Checksum == p.Checksum, "checksum mismatch")
}

func TestChecksumSelfConsistency(t *testing.T) {
	p := samplePacket()
	sum := Refresh(&p)

	var buf [Size]byte
	_ = Emit(&p, buf[:])

	assert(t, Verify(buf[:]), "verify rejected a freshly refreshed packet")
	assert(t, sum == p.Checksum, "refresh did not store the checksum it returned")
}

func TestVerifyDetectsCorruption(t *testing.T) {
	p := samplePacket()
	Refresh(&p)

	var buf [Size]byte
	_ = Emit(&p, buf[:])
	buf[offData] ^= 0xFF

	assert(t, !Verify(buf[:]), "verify accepted a corrupted packet")
}

func TestParseRejectsWrongSize(t *testing.T) {
	_, err := Parse(make([]byte, Size-1))
	assert(t, err != nil, "expected parse to reject a short buffer")
}
