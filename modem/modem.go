package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/atomic"

	"i4.energy/across/sbdgw/imt"
	"i4.energy/across/sbdgw/jspr"
)

// Session states.
const (
	StateClosed = "closed"
	StateOpen   = "open"
)

const (
	eventBegin = "begin"
	eventEnd   = "end"
)

// Modem drives a RockBLOCK 9704 over JSPR. It owns the transport, the
// outgoing and incoming message queues and the session state.
//
// Modem is not safe for concurrent use. Programs that share a Modem between
// goroutines run Loop and submit work through Do.
type Modem struct {
	// config holds the settings the Modem was created with
	config Config
	logger *slog.Logger

	// transport is the link to the modem; nil outside a session
	transport Transport
	// reader assembles frames from transport
	reader *jspr.Reader
	// session tracks closed/open
	session *fsm.FSM

	// reference numbers outgoing transfer requests; it starts at 1 for
	// each session
	reference *atomic.Uint32

	mo *imt.Queue
	mt *imt.Queue

	// provisioning caches the account's topics once fetched
	provisioning jspr.MessageProvisioning
	// constellation is the last signal report; nil until one arrives
	constellation *jspr.ConstellationState

	events *events

	// loopRunning indicates if the Loop is currently running
	loopRunning *atomic.Bool
	// jobs queues work submitted through Do
	jobs chan job
}

// New creates a Modem. No I/O happens until Begin.
func New(config Config) (*Modem, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	m := &Modem{
		config:      config,
		logger:      config.Logger,
		reference:   atomic.NewUint32(1),
		mo:          imt.NewQueue(config.MOQueueSize, config.PayloadSize),
		mt:          imt.NewQueue(config.MTQueueSize, config.PayloadSize),
		loopRunning: atomic.NewBool(false),
		jobs:        make(chan job),
	}
	m.events = &events{callbacks: config.Callbacks, logger: config.Logger}
	m.session = fsm.NewFSM(
		StateClosed,
		fsm.Events{
			{Name: eventBegin, Src: []string{StateClosed}, Dst: StateOpen},
			{Name: eventEnd, Src: []string{StateOpen}, Dst: StateClosed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.logger.Info("session state changed", "from", e.Src, "to", e.Dst)
			},
		},
	)
	return m, nil
}

// State returns StateOpen or StateClosed.
func (m *Modem) State() string {
	return m.session.Current()
}

// Begin opens the transport and brings the modem to a usable state: it
// selects an API version, switches to the internal SIM and activates the
// radio. Both queues are emptied. If bring-up fails the transport is kept;
// call End to release it.
func (m *Modem) Begin(ctx context.Context) error {
	if m.session.Is(StateOpen) {
		return ErrAlreadyOpen
	}
	if m.transport == nil {
		transport, err := m.config.Dialer.Dial(ctx)
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}
		if transport == nil {
			return ErrNotInitialized
		}
		m.transport = transport
		m.reader = jspr.NewReader(transport, m.logger)
	}

	if err := m.negotiateAPI(ctx); err != nil {
		return fmt.Errorf("select API version: %w", err)
	}
	if err := m.selectInternalSIM(ctx); err != nil {
		return fmt.Errorf("select SIM: %w", err)
	}
	if err := m.activate(ctx); err != nil {
		return fmt.Errorf("activate: %w", err)
	}

	m.mo.Reset()
	m.mt.Reset()
	m.provisioning = jspr.MessageProvisioning{}
	m.constellation = nil
	m.reference.Store(1)
	m.events.disarm()

	return m.session.Event(ctx, eventBegin)
}

// End releases the transport and closes the session. A second call returns
// ErrAlreadyClosed and leaves the state untouched.
func (m *Modem) End() error {
	if m.transport == nil {
		return ErrAlreadyClosed
	}
	if err := m.transport.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	m.transport = nil
	m.reader = nil
	if m.session.Is(StateOpen) {
		return m.session.Event(context.Background(), eventEnd)
	}
	return nil
}

func (m *Modem) checkOpen() error {
	if !m.session.Is(StateOpen) || m.transport == nil {
		return ErrNotOpen
	}
	return nil
}

// send writes one encoded command.
func (m *Modem) send(cmd string) error {
	if m.transport == nil {
		return ErrNotInitialized
	}
	name := strings.TrimSuffix(cmd, "\r")
	n, err := m.transport.Write([]byte(cmd))
	if err != nil {
		return fmt.Errorf("write %q: %w", name, err)
	}
	if n != len(cmd) {
		return fmt.Errorf("write %q: %w", name, io.ErrShortWrite)
	}
	m.logger.Debug("sent", "command", name)
	return nil
}

// await reads frames for target until match accepts one or the command
// timeout elapses. Frames for other targets are discarded.
func (m *Modem) await(ctx context.Context, target string, match func(jspr.Response) bool) (jspr.Response, error) {
	if m.reader == nil {
		return jspr.Response{}, ErrNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, m.config.CommandTimeout)
	defer cancel()

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		resp, ok, err := m.reader.Receive(target)
		if err != nil {
			return jspr.Response{}, fmt.Errorf("receive %s: %w", target, err)
		}
		if ok {
			if match(resp) {
				m.logger.Debug("received", "target", resp.Target, "code", int(resp.Code))
				return resp, nil
			}
			continue
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return jspr.Response{}, fmt.Errorf("%w: %s", ErrTimeout, target)
			}
			return jspr.Response{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// awaitCode waits for a frame for target carrying code.
func (m *Modem) awaitCode(ctx context.Context, target string, code jspr.Code) (jspr.Response, error) {
	return m.await(ctx, target, func(r jspr.Response) bool {
		return r.Code == code
	})
}

// exchange sends cmd and waits for the modem's direct answer on target.
// Unsolicited frames for the same target are skipped. An answer other than
// 200 becomes a *ResponseError.
func (m *Modem) exchange(ctx context.Context, cmd, target string) (jspr.Response, error) {
	if err := m.send(cmd); err != nil {
		return jspr.Response{}, err
	}
	resp, err := m.await(ctx, target, func(r jspr.Response) bool {
		return r.Code != jspr.CodeUnsolicited
	})
	if err != nil {
		return jspr.Response{}, err
	}
	if resp.Code != jspr.CodeNoError {
		return resp, &ResponseError{Target: target, Code: resp.Code}
	}
	return resp, nil
}
