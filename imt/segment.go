package imt

import (
	"encoding/base64"
	"fmt"
)

// MaxSegmentLength is the largest slice of a payload carried by one segment.
const MaxSegmentLength = 1446

// EncodeSegment base64 encodes one segment for a messageOriginateSegment
// command.
func EncodeSegment(src []byte) string {
	return base64.StdEncoding.EncodeToString(src)
}

// DecodeSegment decodes base64 src into dst and returns the number of bytes
// written.
func DecodeSegment(dst []byte, src string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSegmentDecode, err)
	}
	if len(raw) > len(dst) {
		return 0, ErrSegmentRange
	}
	return copy(dst, raw), nil
}
