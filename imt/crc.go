package imt

// CRCSize is the length of the trailer appended to every IMT payload.
const CRCSize = 2

// crcTable is the CRC-16/XMODEM lookup table, polynomial 0x1021.
var crcTable = func() (t [256]uint16) {
	for i := range t {
		crc := uint16(i) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}()

// CRC16 continues a CRC-16/XMODEM computation from initial over data.
func CRC16(data []byte, initial uint16) uint16 {
	crc := initial
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>8)^b]
	}
	return crc
}

// AppendCRC appends the big-endian CRC of b to b.
func AppendCRC(b []byte) []byte {
	crc := CRC16(b, 0)
	return append(b, byte(crc>>8), byte(crc))
}

// VerifyCRC reports whether b ends in a trailer matching the bytes before it.
func VerifyCRC(b []byte) bool {
	return len(b) >= CRCSize && CRC16(b, 0) == 0
}

// StripCRC returns b without its trailer.
func StripCRC(b []byte) []byte {
	if len(b) < CRCSize {
		return b[:0]
	}
	return b[:len(b)-CRCSize]
}
