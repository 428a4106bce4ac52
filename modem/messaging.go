package modem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"i4.energy/across/sbdgw/jspr"
)

// Topics available on every RockBLOCK account.
const (
	TopicRaw    uint16 = 244
	TopicPurple uint16 = 313
	TopicPink   uint16 = 314
	TopicRed    uint16 = 315
	TopicOrange uint16 = 316
	TopicYellow uint16 = 317
)

// Message is a received message. Data is owned by the caller.
type Message struct {
	ID    uint8
	Topic uint16
	Data  []byte
}

// SendMessage queues data on topic and blocks until the modem reports the
// final status or ctx ends. Without a deadline on ctx the wait is bounded by
// the configured SendTimeout. It returns the message ID the modem assigned.
// While several asynchronous messages are pending it fails with
// ErrQueueBusy.
func (m *Modem) SendMessage(ctx context.Context, topic uint16, data []byte) (uint8, error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}
	if err := m.checkProvisioning(ctx, topic); err != nil {
		return 0, err
	}
	if err := m.checkPayload(data); err != nil {
		return 0, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.SendTimeout)
		defer cancel()
	}

	// A blocking send owns the queue. A single leftover, such as the
	// message of an earlier call that timed out, is abandoned; a backlog of
	// asynchronous messages is not.
	switch n := m.mo.Len(); {
	case n > 1:
		return 0, fmt.Errorf("%w: %d messages pending", ErrQueueBusy, n)
	case n == 1:
		_ = m.mo.Remove()
	}
	if _, err := m.mo.PushMO(topic, data); err != nil {
		return 0, fmt.Errorf("queue message: %w", err)
	}

	m.events.armMO()
	defer func() { m.events.waitMO = false }()

	id, err := m.startMO(ctx)
	if err != nil {
		_ = m.mo.Remove()
		return 0, err
	}
	m.logger.Info("sending message", "id", id, "topic", topic, "length", len(data))

	err = m.waitFor(ctx, func() bool {
		return m.events.mo.done && m.events.mo.id == id
	})
	if err != nil {
		return id, err
	}
	if m.events.mo.status != StatusOK {
		return id, fmt.Errorf("%w: MO %d", ErrMessageFailed, id)
	}
	return id, nil
}

// SendMessageAsync queues data on topic and returns once the modem has
// accepted the transfer or, when other messages are ahead of it, once it is
// queued. The outcome is reported through Callbacks.MOComplete.
//
// When the queue is full and not locked the oldest message is evicted. An
// evicted message that was already in flight is reported as failed.
func (m *Modem) SendMessageAsync(ctx context.Context, topic uint16, data []byte) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if err := m.checkProvisioning(ctx, topic); err != nil {
		return err
	}
	if err := m.checkPayload(data); err != nil {
		return err
	}

	var (
		evicting   = m.mo.Len() == m.mo.Cap() && !m.mo.Locked()
		evictedID  uint8
		wasStarted bool
	)
	if evicting {
		head, _ := m.mo.First()
		evictedID, wasStarted = head.ID, head.ReadyToProcess
	}
	h, err := m.mo.PushMO(topic, data)
	if err != nil {
		return fmt.Errorf("queue message: %w", err)
	}
	if evicting && wasStarted {
		m.logger.Warn("MO queue full, evicted message in flight", "id", evictedID)
		m.events.moComplete(evictedID, StatusFail)
	}

	head, _ := m.mo.First()
	if head.ReadyToProcess {
		m.logger.Debug("message queued", "topic", topic, "queued", m.mo.Len())
		return nil
	}
	if head.Handle() != h {
		// Older messages that never started are retried first.
		m.startNextMO(ctx)
		if _, ok := m.mo.Lookup(h); !ok {
			return fmt.Errorf("%w: dropped while starting earlier messages", ErrMessageRejected)
		}
		return nil
	}
	if _, err := m.startMO(ctx); err != nil {
		_ = m.mo.Remove()
		return err
	}
	return nil
}

// startMO asks the modem to start transferring the head of the MO queue and
// records the message ID it assigns.
func (m *Modem) startMO(ctx context.Context) (uint8, error) {
	head, ok := m.mo.First()
	if !ok {
		return 0, fmt.Errorf("start transfer: queue empty")
	}
	reference := m.reference.Inc() - 1
	resp, err := m.exchange(ctx, jspr.PutMessageOriginate(head.Topic, head.Length, reference), jspr.TargetMessageOriginate)
	if err != nil {
		return 0, fmt.Errorf("start transfer: %w", err)
	}
	var mo jspr.MessageOriginate
	if err := jspr.DecodeMessageOriginate(resp.JSON, &mo); err != nil {
		return 0, fmt.Errorf("start transfer: %w", err)
	}
	if mo.Response != jspr.MessageAccepted || !mo.MessageIDSet {
		return 0, fmt.Errorf("%w: %s", ErrMessageRejected, mo.Response)
	}
	head.ID = mo.MessageID
	head.ReadyToProcess = true
	m.logger.Debug("MO transfer started", "id", head.ID, "topic", head.Topic, "reference", reference)
	return head.ID, nil
}

func (m *Modem) checkPayload(data []byte) error {
	if len(data) == 0 || len(data) > m.mo.MaxPayload() {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrInvalidPayload, len(data), m.mo.MaxPayload())
	}
	return nil
}

// ReceiveMessage returns the incoming message at the head of the queue. If
// a transfer is still in progress it polls until the modem reports its
// status, bounded by ctx or the configured ReceiveTimeout. It returns
// ErrNoMessage when nothing is pending.
//
// The message leaves the queue once returned.
func (m *Modem) ReceiveMessage(ctx context.Context) (Message, error) {
	if err := m.checkOpen(); err != nil {
		return Message{}, err
	}

	m.events.armMT()
	defer func() { m.events.waitMT = false }()

	if err := m.Poll(ctx); err != nil {
		return Message{}, err
	}
	head, ok := m.mt.First()
	if !ok || !head.ReadyToProcess {
		return Message{}, ErrNoMessage
	}
	id := head.ID

	if !head.Ready {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.config.ReceiveTimeout)
			defer cancel()
		}
		err := m.waitFor(ctx, func() bool {
			return m.events.mt.done && m.events.mt.id == id
		})
		if err != nil {
			return Message{}, err
		}
		if m.events.mt.status != StatusOK {
			return Message{}, fmt.Errorf("%w: MT %d", ErrMessageFailed, id)
		}
		head, _ = m.mt.First()
	}

	msg := Message{ID: head.ID, Topic: head.Topic, Data: head.Payload()}
	_ = m.mt.Remove()
	m.logger.Info("received message", "id", msg.ID, "topic", msg.Topic, "length", len(msg.Data))
	return msg, nil
}

// ReceiveMessageAsync returns the head incoming message if its transfer has
// completed. The message stays queued until AcknowledgeReceiveHead.
func (m *Modem) ReceiveMessageAsync() (Message, bool) {
	head, ok := m.mt.First()
	if !ok || !head.Ready {
		return Message{}, false
	}
	head.ReadyToProcess = false
	return Message{ID: head.ID, Topic: head.Topic, Data: head.Payload()}, true
}

// AcknowledgeReceiveHead frees the head incoming message.
func (m *Modem) AcknowledgeReceiveHead() error {
	return m.mt.Remove()
}

// SendLock makes SendMessageAsync fail on a full queue instead of evicting
// the oldest message.
func (m *Modem) SendLock()   { m.mo.SetLock(true) }
func (m *Modem) SendUnlock() { m.mo.SetLock(false) }

// ReceiveLock makes new incoming messages fail on a full queue instead of
// evicting the oldest one.
func (m *Modem) ReceiveLock()   { m.mt.SetLock(true) }
func (m *Modem) ReceiveUnlock() { m.mt.SetLock(false) }

// QueueStatus summarises both queues.
type QueueStatus struct {
	Outgoing, Incoming             int
	OutgoingLocked, IncomingLocked bool
}

func (m *Modem) QueueStatus() QueueStatus {
	return QueueStatus{
		Outgoing:       m.mo.Len(),
		Incoming:       m.mt.Len(),
		OutgoingLocked: m.mo.Locked(),
		IncomingLocked: m.mt.Locked(),
	}
}

// waitFor polls until done reports true or ctx ends. Pending frames are
// drained back to back; the poll interval applies only when the line is
// idle.
func (m *Modem) waitFor(ctx context.Context, done func() bool) error {
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()
	for {
		for {
			if done() {
				return nil
			}
			handled, err := m.poll(ctx)
			if err != nil {
				return err
			}
			if !handled {
				break
			}
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
