// Package imt holds the message queues, integrity trailer and segment codec
// that sit between the messaging API and the JSPR protocol.
package imt

import "slices"

// DefaultPayloadSize is the largest payload a slot holds by default,
// excluding the CRC trailer.
const DefaultPayloadSize = 100000

// Handle identifies a queue slot. It becomes stale once the entry it was
// issued for is removed, so a later occupant of the same slot is never
// mistaken for the earlier one.
type Handle struct {
	index int
	gen   uint32
}

// Entry is one queued message.
//
// For MO entries Length covers payload and CRC trailer. For MT entries
// Length starts as the announced maximum and becomes the received total once
// the transfer completes; Received accumulates decoded segment bytes.
type Entry struct {
	ID       uint8
	Topic    uint16
	Length   int
	Received int

	// ReadyToProcess marks an entry awaiting modem interaction.
	ReadyToProcess bool
	// Ready marks an entry that is fully resolved.
	Ready bool

	buf   []byte
	index int
	gen   uint32
}

// Handle returns the stable handle of e.
func (e *Entry) Handle() Handle {
	return Handle{index: e.index, gen: e.gen}
}

// Buffer returns the slot storage backing e. It is only valid until the
// entry is removed.
func (e *Entry) Buffer() []byte {
	return e.buf
}

// Data returns a copy of the first Length bytes of the slot.
func (e *Entry) Data() []byte {
	n := min(max(e.Length, 0), len(e.buf))
	return slices.Clone(e.buf[:n])
}

// Payload returns a copy of the message without its CRC trailer.
func (e *Entry) Payload() []byte {
	return StripCRC(e.Data())
}

// Segment returns the base64 encoding of length bytes starting at start.
func (e *Entry) Segment(start, length int) (string, error) {
	if start < 0 || length <= 0 || start+length > e.Length || start+length > len(e.buf) {
		return "", ErrSegmentRange
	}
	return EncodeSegment(e.buf[start : start+length]), nil
}

// WriteSegment decodes base64 data into the slot at offset and adds the
// decoded length to Received.
func (e *Entry) WriteSegment(offset int, data string) (int, error) {
	if offset < 0 || offset > len(e.buf) {
		return 0, ErrSegmentRange
	}
	n, err := DecodeSegment(e.buf[offset:], data)
	if err != nil {
		return 0, err
	}
	e.Received += n
	return n, nil
}

func (e *Entry) clear() {
	clear(e.buf)
	e.ID = 0
	e.Topic = 0
	e.Length = 0
	e.Received = 0
	e.ReadyToProcess = false
	e.Ready = false
	e.gen++
}

// Queue is a bounded circular buffer of message slots. Entries are pushed at
// the tail and removed from the head.
//
// When the queue is full a push evicts the oldest entry, unless the overflow
// lock is engaged, in which case the push fails.
//
// Queue is not safe for concurrent use.
type Queue struct {
	slots    []Entry
	head     int
	tail     int
	count    int
	slotSize int
	locked   bool
}

// NewQueue returns a queue of capacity slots, each able to hold payloadSize
// bytes plus the CRC trailer.
func NewQueue(capacity, payloadSize int) *Queue {
	capacity = max(capacity, 1)
	payloadSize = max(payloadSize, 1)
	q := &Queue{
		slots:    make([]Entry, capacity),
		slotSize: payloadSize + CRCSize,
	}
	for i := range q.slots {
		q.slots[i].buf = make([]byte, q.slotSize)
		q.slots[i].index = i
		q.slots[i].gen = 1
	}
	return q
}

// PushMO queues an outgoing payload and appends its CRC trailer.
func (q *Queue) PushMO(topic uint16, payload []byte) (Handle, error) {
	if len(payload) == 0 {
		return Handle{}, ErrInvalidLength
	}
	if len(payload) > q.slotSize-CRCSize {
		return Handle{}, ErrTooLarge
	}
	e, err := q.push()
	if err != nil {
		return Handle{}, err
	}
	n := copy(e.buf, payload)
	AppendCRC(e.buf[:n])
	e.Topic = topic
	e.Length = n + CRCSize
	return e.Handle(), nil
}

// PushMT queues an incoming message of at most length bytes, trailer
// included.
func (q *Queue) PushMT(topic uint16, id uint8, length int) (Handle, error) {
	if length <= 0 {
		return Handle{}, ErrInvalidLength
	}
	if length > q.slotSize {
		return Handle{}, ErrTooLarge
	}
	e, err := q.push()
	if err != nil {
		return Handle{}, err
	}
	e.ID = id
	e.Topic = topic
	e.Length = length
	return e.Handle(), nil
}

func (q *Queue) push() (*Entry, error) {
	if q.count == len(q.slots) {
		if q.locked {
			return nil, ErrQueueFull
		}
		if err := q.Remove(); err != nil {
			return nil, err
		}
	}
	e := &q.slots[q.tail]
	q.tail = (q.tail + 1) % len(q.slots)
	q.count++
	return e, nil
}

// First returns the oldest entry.
func (q *Queue) First() (*Entry, bool) {
	if q.count == 0 {
		return nil, false
	}
	return &q.slots[q.head], true
}

// Last returns the most recently pushed entry.
func (q *Queue) Last() (*Entry, bool) {
	if q.count == 0 {
		return nil, false
	}
	return &q.slots[(q.tail+len(q.slots)-1)%len(q.slots)], true
}

// Lookup returns the entry for h if it is still queued.
func (q *Queue) Lookup(h Handle) (*Entry, bool) {
	if h.index < 0 || h.index >= len(q.slots) || h.gen == 0 {
		return nil, false
	}
	e := &q.slots[h.index]
	if e.gen != h.gen || !q.live(h.index) {
		return nil, false
	}
	return e, true
}

func (q *Queue) live(index int) bool {
	offset := (index - q.head + len(q.slots)) % len(q.slots)
	return offset < q.count
}

// Remove clears the oldest entry and frees its slot.
func (q *Queue) Remove() error {
	if q.count == 0 {
		return ErrQueueEmpty
	}
	q.slots[q.head].clear()
	q.head = (q.head + 1) % len(q.slots)
	q.count--
	return nil
}

// RemoveLast clears the most recently pushed entry. It is used to drop an
// incoming message whose transfer failed part way.
func (q *Queue) RemoveLast() error {
	if q.count == 0 {
		return ErrQueueEmpty
	}
	q.tail = (q.tail + len(q.slots) - 1) % len(q.slots)
	q.slots[q.tail].clear()
	q.count--
	return nil
}

// Reset clears every slot. The overflow lock is kept.
func (q *Queue) Reset() {
	for i := range q.slots {
		q.slots[i].clear()
	}
	q.head, q.tail, q.count = 0, 0, 0
}

// SetLock engages or releases the overflow lock.
func (q *Queue) SetLock(locked bool) {
	q.locked = locked
}

func (q *Queue) Locked() bool { return q.locked }

// Len returns the number of queued entries.
func (q *Queue) Len() int { return q.count }

// Cap returns the number of slots.
func (q *Queue) Cap() int { return len(q.slots) }

// MaxPayload returns the largest payload PushMO accepts.
func (q *Queue) MaxPayload() int { return q.slotSize - CRCSize }

// Head and Tail expose the ring indices.
func (q *Queue) Head() int { return q.head }
func (q *Queue) Tail() int { return q.tail }
