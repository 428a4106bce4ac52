package jspr

import (
	"bufio"
	"bytes"
)

// Response is one frame received from the modem. The zero value is an empty
// response and never matches an expected target.
type Response struct {
	Code   Code
	Target string
	JSON   string
}

// Is reports whether r carries the given target and result code.
func (r Response) Is(target string, code Code) bool {
	return r.Code == code && r.Target == target
}

// Parse splits a single frame, without its terminator, into code, target and
// json.
//
// Leading bytes that do not form a valid result code are skipped. The target
// runs from the byte after the code separator to the next space and is
// truncated to MaxTargetLength. The json starts at the first '{' after the
// target; a frame without one yields an empty JSON field.
func Parse(frame []byte) (Response, error) {
	if len(frame) < MinResponseLength {
		return Response{}, ErrFrameTooShort
	}

	start := -1
	var code Code
	for i := 0; len(frame)-i >= ResultCodeLength; i++ {
		c, ok := parseCode(frame[i : i+ResultCodeLength])
		if ok && c.Valid() {
			start, code = i, c
			break
		}
	}
	if start < 0 {
		return Response{}, ErrNoResultCode
	}
	frame = frame[start:]

	resp := Response{Code: code}
	if len(frame) <= ResultCodeLength+1 {
		return resp, nil
	}
	rest := frame[ResultCodeLength+1:]

	target := rest
	if i := bytes.IndexByte(rest, ' '); i >= 0 {
		target = rest[:i]
	}
	if len(target) > MaxTargetLength {
		target = target[:MaxTargetLength]
	}
	resp.Target = string(target)

	if i := bytes.IndexByte(rest, '{'); i >= 0 {
		json := rest[i:]
		if len(json) > MaxJSONLength {
			json = json[:MaxJSONLength]
		}
		resp.JSON = string(json)
	}
	return resp, nil
}

func parseCode(b []byte) (Code, bool) {
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return Code(n), true
}

// Splitter tokenizes a JSPR byte stream on the frame terminator. It has the
// signature of bufio.SplitFunc so it can be used with bufio.Scanner.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, Terminator); i >= 0 {
		return i + 1, data[0:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter
