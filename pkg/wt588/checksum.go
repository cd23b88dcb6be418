package wt588

// Checksum returns the 16-bit sum the chip keeps for one update packet: bytes
// are paired little endian (even offset low, odd offset high) and the words are
// added with wraparound. A trailing odd byte is not counted.
func Checksum(p []byte) uint16 {
	var sum uint16
	for i := 1; i < len(p); i += 2 {
		sum += uint16(p[i-1]) | uint16(p[i])<<8
	}
	return sum
}

// SelectChecksum returns the sum the chip reports after a select frame, which
// adds the opcode and its argument byte by byte.
func SelectChecksum(opcode, arg byte) uint16 {
	return uint16(opcode) + uint16(arg)
}
