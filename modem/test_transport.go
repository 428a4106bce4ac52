package modem

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
)

// TestTransport is a scripted in-memory modem used by tests.
//
// Commands written to it are answered with the frames registered for them
// through Reply. Frames pushed with Push simulate unsolicited traffic. Reads
// never block: an empty buffer yields 0, nil like a serial port whose read
// timeout expired.
type TestTransport struct {
	mu      sync.Mutex
	replies map[string][][]string
	rx      bytes.Buffer
	written []string
	closed  bool
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		replies: make(map[string][][]string),
	}
}

// Reply registers frames to send back when cmd is written. cmd and frames
// are given without the trailing carriage return. Successive calls for the
// same command queue answers for successive writes; the last answer is
// repeated.
func (t *TestTransport) Reply(cmd string, frames ...string) *TestTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	cmd = strings.TrimSuffix(cmd, "\r")
	t.replies[cmd] = append(t.replies[cmd], frames)
	return t
}

// Push queues frames as if the modem had sent them on its own.
func (t *TestTransport) Push(frames ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enqueue(frames)
}

func (t *TestTransport) enqueue(frames []string) {
	for _, f := range frames {
		t.rx.WriteString(f)
		t.rx.WriteByte('\r')
	}
}

// Written returns the commands received so far without their terminator.
func (t *TestTransport) Written() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.written...)
}

func (t *TestTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	cmd := strings.TrimSuffix(string(p), "\r")
	t.written = append(t.written, cmd)
	if answers := t.replies[cmd]; len(answers) > 0 {
		t.enqueue(answers[0])
		if len(answers) > 1 {
			t.replies[cmd] = answers[1:]
		}
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.EOF
	}
	if t.rx.Len() == 0 {
		return 0, nil
	}
	return t.rx.Read(p)
}

func (t *TestTransport) Peek() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rx.Len(), nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// TestDialer hands out a fixed Transport.
type TestDialer struct {
	Transport Transport
	Err       error
}

func (d TestDialer) Dial(ctx context.Context) (Transport, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Transport, nil
}
