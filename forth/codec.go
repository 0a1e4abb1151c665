package forth

import "encoding/binary"

func cellBytes(v cell) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func bytesToCell(b []byte) cell {
	return cell(int32(binary.LittleEndian.Uint32(b)))
}

func u16Bytes(v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return b[:]
}

func u32Bytes(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func bytesToU16(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b)
}

func bytesToU32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}
