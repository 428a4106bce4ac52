package modem

import (
	"errors"
	"fmt"

	"i4.energy/across/sbdgw/jspr"
)

var (
	// ErrNoDialer is returned when a Modem is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrInvalidConfig is returned by ConfigBuilder.Build for negative
	// timeouts or sizes.
	ErrInvalidConfig = errors.New("invalid modem configuration")

	// ErrNotInitialized is returned when an operation needs the transport
	// but no transport is held, either because Begin was never called or
	// because the session has ended.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrNotOpen is returned by messaging operations while the session is
	// closed.
	ErrNotOpen = errors.New("session not open")

	// ErrAlreadyOpen is returned when Begin is called on an open session.
	ErrAlreadyOpen = errors.New("session already open")

	// ErrAlreadyClosed is returned when End is called on a Modem that holds
	// no transport.
	ErrAlreadyClosed = errors.New("modem already closed")

	// ErrTimeout is returned when the modem does not answer in time.
	//
	// The underlying context error is not wrapped so that callers can tell a
	// silent modem apart from their own cancellation.
	ErrTimeout = errors.New("timed out waiting for modem")

	// ErrNoAPIVersion is returned during bring-up when the modem advertises
	// no API version that could be selected.
	ErrNoAPIVersion = errors.New("no supported API version")

	// ErrOperationalState is returned when the modem does not reach the
	// operational state the driver asked for.
	ErrOperationalState = errors.New("unexpected operational state")

	// ErrInvalidTopic is returned for topics outside 64..65535.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrNotProvisioned is returned when sending on a topic the account is
	// not provisioned for.
	ErrNotProvisioned = errors.New("topic not provisioned")

	// ErrQueueBusy is returned by SendMessage while more than one message
	// queued by SendMessageAsync is still pending.
	ErrQueueBusy = errors.New("outgoing queue busy")

	// ErrInvalidPayload is returned for empty or oversized payloads.
	ErrInvalidPayload = errors.New("invalid payload length")

	// ErrMessageRejected is returned when the modem refuses to start an
	// outgoing transfer.
	ErrMessageRejected = errors.New("message rejected by modem")

	// ErrMessageFailed is returned when a transfer ends with a failure
	// status in either direction.
	ErrMessageFailed = errors.New("message transfer failed")

	// ErrNoMessage is returned by ReceiveMessage when no incoming message is
	// in progress.
	ErrNoMessage = errors.New("no message available")

	// ErrInvalidFirmware is returned for a missing or empty firmware image.
	ErrInvalidFirmware = errors.New("invalid firmware image")

	// ErrLoopRunning is returned when Loop is started twice.
	ErrLoopRunning = errors.New("loop already running")
)

// ResponseError reports a frame for the expected target that carried a
// result code other than 200.
type ResponseError struct {
	Target string
	Code   jspr.Code
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: modem answered %d (%s)", e.Target, int(e.Code), e.Code)
}
