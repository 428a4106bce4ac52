package imt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i4.energy/across/sbdgw/imt"
)

func TestQueueFIFO(t *testing.T) {
	q := imt.NewQueue(3, 64)

	for _, topic := range []uint16{244, 245, 246} {
		_, err := q.PushMO(topic, []byte("payload"))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, q.Len())

	for _, topic := range []uint16{244, 245, 246} {
		e, ok := q.First()
		require.True(t, ok)
		assert.Equal(t, topic, e.Topic)
		require.NoError(t, q.Remove())
	}
	assert.Equal(t, 0, q.Len())
	assert.ErrorIs(t, q.Remove(), imt.ErrQueueEmpty)
}

func TestQueueWraps(t *testing.T) {
	q := imt.NewQueue(3, 64)
	for range 3 {
		_, err := q.PushMT(244, 1, 10)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, q.Tail())

	require.NoError(t, q.Remove())
	assert.Equal(t, 1, q.Head())

	_, err := q.PushMT(245, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Tail())
	assert.Equal(t, 3, q.Len())

	last, ok := q.Last()
	require.True(t, ok)
	assert.Equal(t, uint16(245), last.Topic)
	assert.Equal(t, uint8(2), last.ID)
}

func TestQueueOverflowEvictsOldest(t *testing.T) {
	q := imt.NewQueue(2, 64)
	_, err := q.PushMO(244, []byte("first"))
	require.NoError(t, err)
	_, err = q.PushMO(245, []byte("second"))
	require.NoError(t, err)

	_, err = q.PushMO(246, []byte("third"))
	require.NoError(t, err)
	assert.Equal(t, 2, q.Len())

	first, ok := q.First()
	require.True(t, ok)
	assert.Equal(t, uint16(245), first.Topic)
	assert.Equal(t, []byte("second"), first.Payload())
}

func TestQueueOverflowLocked(t *testing.T) {
	q := imt.NewQueue(2, 64)
	q.SetLock(true)
	assert.True(t, q.Locked())

	_, err := q.PushMT(244, 1, 10)
	require.NoError(t, err)
	_, err = q.PushMT(245, 2, 10)
	require.NoError(t, err)

	_, err = q.PushMT(246, 3, 10)
	assert.ErrorIs(t, err, imt.ErrQueueFull)
	assert.Equal(t, 2, q.Len())

	first, _ := q.First()
	last, _ := q.Last()
	assert.Equal(t, uint8(1), first.ID)
	assert.Equal(t, uint8(2), last.ID)
}

func TestQueuePushValidation(t *testing.T) {
	q := imt.NewQueue(2, 8)

	_, err := q.PushMO(244, nil)
	assert.ErrorIs(t, err, imt.ErrInvalidLength)
	_, err = q.PushMO(244, make([]byte, 9))
	assert.ErrorIs(t, err, imt.ErrTooLarge)
	_, err = q.PushMO(244, make([]byte, 8))
	assert.NoError(t, err)

	_, err = q.PushMT(244, 1, 0)
	assert.ErrorIs(t, err, imt.ErrInvalidLength)
	_, err = q.PushMT(244, 1, 11)
	assert.ErrorIs(t, err, imt.ErrTooLarge)
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 8, q.MaxPayload())
}

func TestQueuePushMOAppendsCRC(t *testing.T) {
	q := imt.NewQueue(1, 64)
	h, err := q.PushMO(244, []byte("Hello world!"))
	require.NoError(t, err)

	e, ok := q.Lookup(h)
	require.True(t, ok)
	assert.Equal(t, 14, e.Length)
	assert.Equal(t, imt.AppendCRC([]byte("Hello world!")), e.Data())

	seg, err := e.Segment(0, e.Length)
	require.NoError(t, err)
	assert.Equal(t, "SGVsbG8gd29ybGQhOds=", seg)

	_, err = e.Segment(10, 5)
	assert.ErrorIs(t, err, imt.ErrSegmentRange)
}

func TestQueueStaleHandle(t *testing.T) {
	q := imt.NewQueue(1, 64)
	h, err := q.PushMO(244, []byte("one"))
	require.NoError(t, err)

	// Evicts the first entry and reuses its slot.
	h2, err := q.PushMO(245, []byte("two"))
	require.NoError(t, err)

	_, ok := q.Lookup(h)
	assert.False(t, ok)
	e, ok := q.Lookup(h2)
	require.True(t, ok)
	assert.Equal(t, uint16(245), e.Topic)

	_, ok = q.Lookup(imt.Handle{})
	assert.False(t, ok)
}

func TestQueueRemoveClearsSlot(t *testing.T) {
	q := imt.NewQueue(1, 8)
	_, err := q.PushMO(244, []byte("abc"))
	require.NoError(t, err)
	e, _ := q.First()
	buf := e.Buffer()
	e.ReadyToProcess = true

	require.NoError(t, q.Remove())
	assert.Equal(t, make([]byte, 10), buf)
	assert.Equal(t, 0, e.Length)
	assert.False(t, e.ReadyToProcess)
	_, ok := q.First()
	assert.False(t, ok)
}

func TestQueueReset(t *testing.T) {
	q := imt.NewQueue(3, 8)
	q.SetLock(true)
	h, err := q.PushMT(244, 1, 5)
	require.NoError(t, err)
	_, err = q.PushMT(245, 2, 5)
	require.NoError(t, err)

	q.Reset()
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.Head())
	assert.Equal(t, 0, q.Tail())
	assert.True(t, q.Locked())
	_, ok := q.Lookup(h)
	assert.False(t, ok)
}

func TestEntryWriteSegment(t *testing.T) {
	q := imt.NewQueue(1, 32)
	_, err := q.PushMT(244, 1, 7)
	require.NoError(t, err)
	e, _ := q.Last()

	n, err := e.WriteSegment(0, "aGVsbG/DYg==")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 7, e.Received)
	assert.Equal(t, []byte("hello"), e.Payload())

	_, err = e.WriteSegment(40, "aGVsbG/DYg==")
	assert.ErrorIs(t, err, imt.ErrSegmentRange)
	_, err = e.WriteSegment(0, "%%%")
	assert.ErrorIs(t, err, imt.ErrSegmentDecode)
	assert.Equal(t, 7, e.Received)
}

func TestQueueRemoveLast(t *testing.T) {
	q := imt.NewQueue(3, 8)
	first, err := q.PushMT(244, 1, 4)
	require.NoError(t, err)
	last, err := q.PushMT(244, 2, 4)
	require.NoError(t, err)

	require.NoError(t, q.RemoveLast())
	assert.Equal(t, 1, q.Len())
	_, ok := q.Lookup(last)
	assert.False(t, ok)
	e, ok := q.Last()
	require.True(t, ok)
	assert.Equal(t, first, e.Handle())

	// The freed tail slot is reused by the next push.
	h, err := q.PushMT(244, 3, 4)
	require.NoError(t, err)
	assert.NotEqual(t, last, h)
	assert.Equal(t, 2, q.Tail())

	require.NoError(t, q.RemoveLast())
	require.NoError(t, q.RemoveLast())
	assert.ErrorIs(t, q.RemoveLast(), imt.ErrQueueEmpty)
}
