package imt

import "errors"

var (
	// ErrInvalidLength is returned when a message is pushed with no payload
	// or a non-positive length.
	ErrInvalidLength = errors.New("imt: invalid message length")

	// ErrTooLarge is returned when a message does not fit a queue slot.
	ErrTooLarge = errors.New("imt: message too large for slot")

	// ErrQueueFull is returned by a push on a full queue whose overflow lock
	// is engaged.
	//
	// Callers may remove entries or release the lock and retry.
	ErrQueueFull = errors.New("imt: queue full")

	// ErrQueueEmpty is returned by Remove on an empty queue.
	ErrQueueEmpty = errors.New("imt: queue empty")

	// ErrSegmentRange is returned when a segment falls outside the message
	// buffer.
	ErrSegmentRange = errors.New("imt: segment out of range")

	// ErrSegmentDecode is returned when segment data is not valid base64.
	ErrSegmentDecode = errors.New("imt: segment decode failed")
)
