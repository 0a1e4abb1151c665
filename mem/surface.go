// Package mem implements the node's contiguous RAM surface: block-indexed
// read/write over a single byte slice, plus the two reserved block ranges
// the VM uses for staged source code and its result buffer.
package mem

import (
	"errors"
	"fmt"
)

// errOutOfRange is wrapped by every bounds failure below. It is unexported,
// so only code inside this package can match it with errors.Is.
var errOutOfRange = errors.New("mem: address out of range")

// Reserved block offsets, in units of BlockSize bytes, matching the
// firmware's sramconf.h.
const (
	SrcBufOffset   = 56
	WriteBufOffset = 58
)

// Surface is a contiguous RAM region addressed in fixed-size blocks.
type Surface struct {
	ram       []byte
	blockSize int
}

// New allocates a Surface of size bytes addressed in blocks of blockSize
// bytes. size must cover the reserved SRC_BUF and WRITE_BUF regions, that
// is WriteBufOffset+4 blocks; New does not check this, and SrcBuf or
// WriteBuf panic on a smaller surface.
func New(size, blockSize int) *Surface {
	if blockSize <= 0 {
		panic("mem: blockSize must be positive")
	}
	return &Surface{ram: make([]byte, size), blockSize: blockSize}
}

// Size returns the total addressable RAM size in bytes, the value the
// protocol engine reports to PING.
func (s *Surface) Size() int { return len(s.ram) }

// BlockSize returns D, the unit of all block addressing.
func (s *Surface) BlockSize() int { return s.blockSize }

func (s *Surface) blockRange(block int) (int, int, error) {
	start := block * s.blockSize
	end := start + s.blockSize
	if start < 0 || end > len(s.ram) {
		return 0, 0, fmt.Errorf("%w: block %d (ram size %d, block size %d)", errOutOfRange, block, len(s.ram), s.blockSize)
	}
	return start, end, nil
}

// ReadBlock copies the block-th BlockSize-byte block into dst.
func (s *Surface) ReadBlock(block int, dst []byte) error {
	start, end, err := s.blockRange(block)
	if err != nil {
		return err
	}
	copy(dst, s.ram[start:end])
	return nil
}

// WriteBlock copies src into the block-th BlockSize-byte block.
func (s *Surface) WriteBlock(block int, src []byte) error {
	start, end, err := s.blockRange(block)
	if err != nil {
		return err
	}
	copy(s.ram[start:end], src)
	return nil
}

// ReadByte and WriteByte give the VM's @D/!D primitives raw byte access to
// the whole surface, independent of block addressing.
func (s *Surface) ReadByte(addr int) (byte, error) {
	if addr < 0 || addr >= len(s.ram) {
		return 0, fmt.Errorf("%w: %d", errOutOfRange, addr)
	}
	return s.ram[addr], nil
}

func (s *Surface) WriteByte(addr int, v byte) error {
	if addr < 0 || addr >= len(s.ram) {
		return fmt.Errorf("%w: %d", errOutOfRange, addr)
	}
	s.ram[addr] = v
	return nil
}

// srcBufBlocks is the number of BlockSize-byte blocks reserved for staged
// source code: the gap between SRC_BUF_OFFSET and WRITE_BUF_OFFSET.
const srcBufBlocks = WriteBufOffset - SrcBufOffset

// writeBufPages is the number of BlockSize-byte pages RETR can address
// within the result buffer.
const writeBufPages = 4

// SrcBuf returns the full byte range backing staged source code: all
// pages a LOAD command can address, concatenated in page order.
func (s *Surface) SrcBuf() []byte {
	start := SrcBufOffset * s.blockSize
	return s.ram[start : start+srcBufBlocks*s.blockSize]
}

// SrcBufPage returns the page-th BlockSize-byte slice within SrcBuf, the
// unit LOAD addresses via its options field. It returns nil if page is
// out of range.
func (s *Surface) SrcBufPage(page int) []byte {
	if page < 0 || page >= srcBufBlocks {
		return nil
	}
	buf := s.SrcBuf()
	start := page * s.blockSize
	return buf[start : start+s.blockSize]
}

// WriteBuf returns the byte range backing the VM's result buffer, which
// the VM indexes as 32-bit cells rather than bytes (see emit in the forth
// package).
func (s *Surface) WriteBuf() []byte {
	start := WriteBufOffset * s.blockSize
	// WRITE_BUF is sized like any other block region but the firmware
	// treats it as an array of int32 cells; give it room for that.
	return s.ram[start : start+s.blockSize*4]
}

// WriteBufPage returns the page-th BlockSize-byte slice within WriteBuf,
// the unit RETR addresses via its options field. It returns nil if page
// is out of range.
func (s *Surface) WriteBufPage(page int) []byte {
	if page < 0 || page >= writeBufPages {
		return nil
	}
	buf := s.WriteBuf()
	start := page * s.blockSize
	return buf[start : start+s.blockSize]
}
