package jspr

import "errors"

var (
	// ErrFrameTooShort is returned by Parse when a frame is shorter than
	// MinResponseLength.
	ErrFrameTooShort = errors.New("jspr: frame too short")

	// ErrNoResultCode is returned by Parse when no three digit result code in
	// the valid range can be found near the start of the frame.
	//
	// The modem occasionally emits a control byte ahead of bootInfo, so a
	// small amount of leading noise is tolerated before giving up.
	ErrNoResultCode = errors.New("jspr: no result code")

	// ErrNotObject is returned by the Decode functions when the payload is not
	// a JSON object.
	ErrNotObject = errors.New("jspr: payload is not a JSON object")

	// ErrUnknownValue is returned by the Parse<Enum> functions for a string
	// outside the enumeration.
	ErrUnknownValue = errors.New("jspr: unknown enumeration value")
)
