package modem

import (
	"log/slog"

	"i4.energy/across/sbdgw/jspr"
)

// MessageStatus is the outcome of a message transfer.
type MessageStatus int

const (
	StatusOK MessageStatus = iota
	StatusFail
)

func (s MessageStatus) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "fail"
}

// Callbacks are invoked from Poll as the modem reports progress. Any of them
// may be nil. The MO and MT hooks are bypassed while a blocking SendMessage
// or ReceiveMessage waits for the same direction.
type Callbacks struct {
	MessageProvisioning func(p jspr.MessageProvisioning)
	MOComplete          func(id uint8, status MessageStatus)
	MTComplete          func(id uint8, status MessageStatus)
	ConstellationState  func(s jspr.ConstellationState)
}

// outcome records the end of a transfer for a blocking waiter.
type outcome struct {
	done   bool
	id     uint8
	status MessageStatus
}

// events routes dispatcher results to the blocking waiter armed for that
// direction, or to the application callbacks when nobody waits.
type events struct {
	callbacks Callbacks
	logger    *slog.Logger

	waitMO, waitMT bool
	mo, mt         outcome
}

func (e *events) armMO() {
	e.waitMO = true
	e.mo = outcome{}
}

func (e *events) armMT() {
	e.waitMT = true
	e.mt = outcome{}
}

func (e *events) disarm() {
	e.waitMO, e.waitMT = false, false
}

func (e *events) moComplete(id uint8, status MessageStatus) {
	e.logger.Debug("MO transfer finished", "id", id, "status", status)
	if e.waitMO {
		e.mo = outcome{done: true, id: id, status: status}
		return
	}
	if e.callbacks.MOComplete != nil {
		e.callbacks.MOComplete(id, status)
	}
}

func (e *events) mtComplete(id uint8, status MessageStatus) {
	e.logger.Debug("MT transfer finished", "id", id, "status", status)
	if e.waitMT {
		e.mt = outcome{done: true, id: id, status: status}
		return
	}
	if e.callbacks.MTComplete != nil {
		e.callbacks.MTComplete(id, status)
	}
}

// mtRejected reports an incoming message that found no free slot. Only the
// callback hears about it; no transfer was started for a waiter to follow.
func (e *events) mtRejected(id uint8) {
	e.logger.Warn("MT queue full, message rejected", "id", id)
	if e.callbacks.MTComplete != nil {
		e.callbacks.MTComplete(id, StatusFail)
	}
}

func (e *events) constellation(s jspr.ConstellationState) {
	if e.callbacks.ConstellationState != nil {
		e.callbacks.ConstellationState(s)
	}
}

func (e *events) provisioning(p jspr.MessageProvisioning) {
	if e.callbacks.MessageProvisioning != nil {
		e.callbacks.MessageProvisioning(p)
	}
}
