package modem

import (
	"context"
	"fmt"

	"i4.energy/across/sbdgw/imt"
	"i4.energy/across/sbdgw/jspr"
)

// Poll handles at most one pending frame from the modem: it answers segment
// requests for the outgoing message in flight, collects incoming segments
// and reports finished transfers through the callbacks.
//
// Poll never blocks waiting for data. Call it regularly, or run Loop.
func (m *Modem) Poll(ctx context.Context) error {
	_, err := m.poll(ctx)
	return err
}

// poll reports whether a frame was handled.
func (m *Modem) poll(ctx context.Context) (bool, error) {
	if err := m.checkOpen(); err != nil {
		return false, err
	}
	if m.reader.Buffered() == 0 {
		n, err := m.transport.Peek()
		if err != nil {
			return false, fmt.Errorf("peek: %w", err)
		}
		if n == 0 {
			return false, nil
		}
	}
	resp, ok, err := m.reader.Receive("")
	if err != nil {
		return false, fmt.Errorf("receive: %w", err)
	}
	if !ok {
		return false, nil
	}
	return true, m.dispatch(ctx, resp)
}

func (m *Modem) dispatch(ctx context.Context, resp jspr.Response) error {
	switch resp.Target {
	case jspr.TargetMessageOriginateSegment:
		return m.handleMOSegment(ctx, resp)
	case jspr.TargetMessageOriginateStatus:
		if resp.Code == jspr.CodeUnsolicited {
			m.handleMOStatus(ctx, resp)
		}
	case jspr.TargetMessageTerminate:
		if resp.Code == jspr.CodeUnsolicited {
			m.handleMT(resp)
		}
	case jspr.TargetMessageTerminateSegment:
		if resp.Code == jspr.CodeUnsolicited {
			m.handleMTSegment(resp)
		}
	case jspr.TargetMessageTerminateStatus:
		if resp.Code == jspr.CodeUnsolicited {
			m.handleMTStatus(resp)
		}
	case jspr.TargetConstellationState:
		if resp.Code == jspr.CodeUnsolicited {
			var state jspr.ConstellationState
			if err := jspr.DecodeConstellationState(resp.JSON, &state); err != nil {
				m.logger.Debug("bad constellation state", "error", err)
				return nil
			}
			m.constellation = &state
			m.events.constellation(state)
		}
	default:
		m.logger.Debug("ignored frame", "target", resp.Target, "code", int(resp.Code))
	}
	return nil
}

// handleMOSegment answers a segment request for the message in flight, or
// drops that message when the modem reports an error for it.
func (m *Modem) handleMOSegment(ctx context.Context, resp jspr.Response) error {
	head, ok := m.mo.First()
	if !ok {
		return nil
	}
	var seg jspr.MessageOriginateSegment
	if err := jspr.DecodeMessageOriginateSegment(resp.JSON, &seg); err != nil {
		m.logger.Debug("bad MO segment frame", "error", err)
		return nil
	}

	switch resp.Code {
	case jspr.CodeNoError:
		// Acknowledges a segment we sent.
		return nil
	case jspr.CodeUnsolicited:
		if seg.MessageID != head.ID || seg.Topic != head.Topic {
			return nil
		}
		data, err := head.Segment(int(seg.SegmentStart), int(seg.SegmentLength))
		if err != nil {
			m.logger.Warn("segment request out of range",
				"id", seg.MessageID, "start", seg.SegmentStart, "length", seg.SegmentLength, "error", err)
			return nil
		}
		return m.send(jspr.PutMessageOriginateSegment(head.Topic, head.ID, int(seg.SegmentLength), seg.SegmentStart, data))
	default:
		if seg.MessageID != head.ID {
			return nil
		}
		m.logger.Warn("MO segment rejected", "id", head.ID, "code", resp.Code)
		m.finishMO(ctx, StatusFail)
		return nil
	}
}

func (m *Modem) handleMOStatus(ctx context.Context, resp jspr.Response) {
	head, ok := m.mo.First()
	if !ok {
		return
	}
	var status jspr.MessageOriginateStatus
	if err := jspr.DecodeMessageOriginateStatus(resp.JSON, &status); err != nil {
		m.logger.Debug("bad MO status frame", "error", err)
		return
	}
	if status.MessageID != head.ID {
		return
	}
	if status.Status == jspr.MOAckReceived {
		m.finishMO(ctx, StatusOK)
		return
	}
	m.logger.Warn("MO transfer failed", "id", head.ID, "status", status.Status)
	m.finishMO(ctx, StatusFail)
}

// finishMO reports the outcome of the message in flight, frees its slot and
// starts the next queued message.
func (m *Modem) finishMO(ctx context.Context, status MessageStatus) {
	head, ok := m.mo.First()
	if !ok {
		return
	}
	m.events.moComplete(head.ID, status)
	_ = m.mo.Remove()
	m.startNextMO(ctx)
}

// startNextMO starts the head of the MO queue. Messages the modem refuses
// are dropped until one starts or the queue is empty.
func (m *Modem) startNextMO(ctx context.Context) {
	for m.mo.Len() > 0 {
		head, _ := m.mo.First()
		if head.ReadyToProcess {
			return
		}
		_, err := m.startMO(ctx)
		if err == nil {
			return
		}
		m.logger.Warn("dropping queued MO message", "topic", head.Topic, "error", err)
		_ = m.mo.Remove()
	}
}

// handleMT opens a slot for an incoming message announced by the modem.
func (m *Modem) handleMT(resp jspr.Response) {
	var mt jspr.MessageTerminate
	if err := jspr.DecodeMessageTerminate(resp.JSON, &mt); err != nil {
		m.logger.Debug("bad MT frame", "error", err)
		return
	}
	if _, err := m.mt.PushMT(mt.Topic, mt.MessageID, int(mt.MessageLengthMax)); err != nil {
		m.events.mtRejected(mt.MessageID)
		return
	}
	last, _ := m.mt.Last()
	last.ReadyToProcess = true
	m.logger.Debug("MT transfer started", "id", mt.MessageID, "topic", mt.Topic, "length", mt.MessageLengthMax)
}

func (m *Modem) handleMTSegment(resp jspr.Response) {
	last, ok := m.mt.Last()
	if !ok || !last.ReadyToProcess {
		return
	}
	var seg jspr.MessageTerminateSegment
	if err := jspr.DecodeMessageTerminateSegment(resp.JSON, &seg); err != nil {
		m.logger.Debug("bad MT segment frame", "error", err)
		return
	}
	if seg.MessageID != last.ID {
		return
	}
	if _, err := last.WriteSegment(int(seg.SegmentStart), seg.Data); err != nil {
		m.logger.Warn("MT segment dropped", "id", last.ID, "start", seg.SegmentStart, "error", err)
		m.dropMT(last)
	}
}

func (m *Modem) handleMTStatus(resp jspr.Response) {
	last, ok := m.mt.Last()
	if !ok || !last.ReadyToProcess {
		return
	}
	var status jspr.MessageTerminateStatus
	if err := jspr.DecodeMessageTerminateStatus(resp.JSON, &status); err != nil {
		m.logger.Debug("bad MT status frame", "error", err)
		return
	}
	if status.MessageID != last.ID {
		return
	}
	if status.Status != jspr.MTComplete {
		m.logger.Warn("MT transfer failed", "id", last.ID, "status", status.Status)
		m.dropMT(last)
		return
	}
	last.Length = last.Received
	if m.config.VerifyMTCRC && !imt.VerifyCRC(last.Data()) {
		m.logger.Warn("MT CRC mismatch", "id", last.ID)
		m.dropMT(last)
		return
	}
	last.Ready = true
	m.events.mtComplete(last.ID, StatusOK)
}

// dropMT reports a failed incoming transfer and frees its slot.
func (m *Modem) dropMT(e *imt.Entry) {
	m.events.mtComplete(e.ID, StatusFail)
	_ = m.mt.RemoveLast()
}
