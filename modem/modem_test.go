package modem_test

import (
	"context"
	"errors"
	"io"
	"slices"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"i4.energy/across/sbdgw/jspr"
	"i4.energy/across/sbdgw/modem"
)

const (
	frameAPIActive   = `200 apiVersion {"supported_versions":[{"major":1,"minor":2,"patch":0}],"active_version":{"major":1,"minor":2,"patch":0}}`
	frameSIMInternal = `200 simConfig {"interface":"internal"}`
	frameActive      = `200 operationalState {"state":"active","reason":0}`
	frameInactive    = `200 operationalState {"state":"inactive","reason":0}`
)

// scriptBringUp answers the bring-up queries of an already configured
// modem.
func scriptBringUp(tt *modem.TestTransport) *modem.TestTransport {
	return tt.
		Reply("GET apiVersion {}", frameAPIActive).
		Reply("GET simConfig {}", frameSIMInternal).
		Reply("GET operationalState {}", frameActive)
}

func newModem(t *testing.T, tt *modem.TestTransport, configure func(*modem.ConfigBuilder)) *modem.Modem {
	t.Helper()
	b := modem.NewConfigBuilder().
		WithDialer(modem.TestDialer{Transport: tt}).
		WithPollInterval(time.Millisecond).
		WithCommandTimeout(100 * time.Millisecond)
	if configure != nil {
		configure(b)
	}
	config, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}
	m, err := modem.New(config)
	if err != nil {
		t.Fatalf("failed to create modem: %v", err)
	}
	return m
}

// openModem returns a modem whose session is open.
func openModem(t *testing.T, tt *modem.TestTransport, configure func(*modem.ConfigBuilder)) *modem.Modem {
	t.Helper()
	m := newModem(t, tt, configure)
	if err := m.Begin(context.Background()); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	t.Cleanup(func() { _ = m.End() })
	return m
}

// writtenAfter returns the commands written after the first skip ones.
func writtenAfter(tt *modem.TestTransport, skip int) []string {
	written := tt.Written()
	if len(written) < skip {
		return nil
	}
	return written[skip:]
}

func TestNew(t *testing.T) {
	t.Run("ErrNoDialer when no dialer provided", func(t *testing.T) {
		_, err := modem.New(modem.Config{})
		if !errors.Is(err, modem.ErrNoDialer) {
			t.Errorf("expected ErrNoDialer, got: %v", err)
		}
	})

	t.Run("Starts closed without touching the transport", func(t *testing.T) {
		tt := modem.NewTestTransport()
		m := newModem(t, tt, nil)
		if m.State() != modem.StateClosed {
			t.Errorf("expected closed, got %s", m.State())
		}
		if len(tt.Written()) != 0 {
			t.Errorf("expected no writes, got %q", tt.Written())
		}
	})
}

func TestBegin(t *testing.T) {
	// Bring-up against a modem fresh from power-on must select the newest
	// API version, find the internal SIM already selected and the radio
	// already active, in exactly this order:
	//
	//  1. GET apiVersion        -> no active version
	//  2. PUT apiVersion 1.2.0  -> accepted
	//  3. GET simConfig         -> internal
	//  4. GET operationalState  -> active
	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := modem.NewMockTransport(ctrl)
		mockDialer := modem.NewMockDialer(ctrl)

		gomock.InOrder(
			slices.Concat(
				[]any{
					mockDialer.EXPECT().Dial(gomock.Any()).Return(mockTransport, nil),
				},
				bringUpMockCalls(mockTransport),
				NewMockSequence(mockTransport).Close().Build(),
			)...,
		)

		config, err := modem.NewConfigBuilder().
			WithDialer(mockDialer).
			Build()
		if err != nil {
			t.Errorf("unexpected error from Build(): %v", err)
		}

		m, err := modem.New(config)
		if err != nil {
			t.Fatalf("failed to create modem: %v", err)
		}

		if err := m.Begin(context.Background()); err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		if m.State() != modem.StateOpen {
			t.Errorf("expected open, got %s", m.State())
		}

		if err := m.End(); err != nil {
			t.Errorf("End failed: %v", err)
		}
		if m.State() != modem.StateClosed {
			t.Errorf("expected closed, got %s", m.State())
		}
		if err := m.End(); !errors.Is(err, modem.ErrAlreadyClosed) {
			t.Errorf("expected ErrAlreadyClosed, got: %v", err)
		}
	})

	t.Run("DialError", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		dialErr := errors.New("no such port")
		mockDialer := modem.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(nil, dialErr)

		config, _ := modem.NewConfigBuilder().WithDialer(mockDialer).Build()
		m, _ := modem.New(config)

		err := m.Begin(context.Background())
		if !errors.Is(err, dialErr) {
			t.Errorf("expected dial error, got: %v", err)
		}
		if m.State() != modem.StateClosed {
			t.Errorf("expected closed, got %s", m.State())
		}
	})

	t.Run("AlreadyOpen", func(t *testing.T) {
		m := openModem(t, scriptBringUp(modem.NewTestTransport()), nil)
		if err := m.Begin(context.Background()); !errors.Is(err, modem.ErrAlreadyOpen) {
			t.Errorf("expected ErrAlreadyOpen, got: %v", err)
		}
	})

	t.Run("InactiveModemIsActivated", func(t *testing.T) {
		tt := modem.NewTestTransport().
			Reply("GET apiVersion {}", frameAPIActive).
			Reply("GET simConfig {}", frameSIMInternal).
			Reply("GET operationalState {}", frameInactive).
			Reply(`PUT operationalState {"state": "active"}`, `200 operationalState {}`)
		openModem(t, tt, nil)

		want := []string{
			"GET apiVersion {}",
			"GET simConfig {}",
			"GET operationalState {}",
			`PUT operationalState {"state": "active"}`,
		}
		if got := tt.Written(); !slices.Equal(got, want) {
			t.Errorf("unexpected commands:\n got %q\nwant %q", got, want)
		}
	})

	t.Run("FaultedModemIsCycled", func(t *testing.T) {
		tt := modem.NewTestTransport().
			Reply("GET apiVersion {}", frameAPIActive).
			Reply("GET simConfig {}", frameSIMInternal).
			Reply("GET operationalState {}", `200 operationalState {"state":"fault","reason":2}`).
			Reply(`PUT operationalState {"state": "inactive"}`, `200 operationalState {}`).
			Reply(`PUT operationalState {"state": "active"}`, `200 operationalState {}`)
		openModem(t, tt, nil)

		want := []string{
			`PUT operationalState {"state": "inactive"}`,
			`PUT operationalState {"state": "active"}`,
		}
		if got := writtenAfter(tt, 3); !slices.Equal(got, want) {
			t.Errorf("unexpected commands:\n got %q\nwant %q", got, want)
		}
	})

	t.Run("SwitchesToInternalSIM", func(t *testing.T) {
		tt := modem.NewTestTransport().
			Reply("GET apiVersion {}", frameAPIActive).
			Reply("GET simConfig {}", `200 simConfig {"interface":"local"}`).
			Reply(`PUT simConfig {"interface": "internal"}`,
				`200 simConfig {"interface":"internal"}`,
				`299 simStatus {"card_present":true,"sim_connected":true}`).
			Reply("GET operationalState {}", frameActive)
		openModem(t, tt, nil)

		if got := tt.Written()[2]; got != `PUT simConfig {"interface": "internal"}` {
			t.Errorf("expected SIM switch, got %q", got)
		}
	})

	t.Run("SIMSwitchNotConfirmed", func(t *testing.T) {
		tt := modem.NewTestTransport().
			Reply("GET apiVersion {}", frameAPIActive).
			Reply("GET simConfig {}", `200 simConfig {"interface":"local"}`).
			Reply(`PUT simConfig {"interface": "internal"}`, `200 simConfig {"interface":"internal"}`)
		m := newModem(t, tt, func(b *modem.ConfigBuilder) {
			b.WithCommandTimeout(30 * time.Millisecond)
		})
		defer m.End()

		err := m.Begin(context.Background())
		if !errors.Is(err, modem.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got: %v", err)
		}
		if m.State() != modem.StateClosed {
			t.Errorf("expected closed, got %s", m.State())
		}
	})

	t.Run("APIVersionRejected", func(t *testing.T) {
		tt := modem.NewTestTransport().
			Reply("GET apiVersion {}", `400 apiVersion {}`)
		m := newModem(t, tt, nil)
		defer m.End()

		err := m.Begin(context.Background())
		var respErr *modem.ResponseError
		if !errors.As(err, &respErr) {
			t.Fatalf("expected ResponseError, got: %v", err)
		}
		if respErr.Code != jspr.CodeAPIVersionNotSelected || respErr.Target != jspr.TargetAPIVersion {
			t.Errorf("unexpected response error: %+v", respErr)
		}
		want := []string{"GET apiVersion {}", "GET apiVersion {}"}
		if got := tt.Written(); !slices.Equal(got, want) {
			t.Errorf("expected two attempts, got %q", got)
		}
	})

	t.Run("NoSupportedAPIVersion", func(t *testing.T) {
		tt := modem.NewTestTransport().
			Reply("GET apiVersion {}", `200 apiVersion {"supported_versions":[]}`)
		m := newModem(t, tt, nil)
		defer m.End()

		if err := m.Begin(context.Background()); !errors.Is(err, modem.ErrNoAPIVersion) {
			t.Errorf("expected ErrNoAPIVersion, got: %v", err)
		}
	})
}

func TestEnd(t *testing.T) {
	t.Run("WithoutBegin", func(t *testing.T) {
		m := newModem(t, modem.NewTestTransport(), nil)
		if err := m.End(); !errors.Is(err, modem.ErrAlreadyClosed) {
			t.Errorf("expected ErrAlreadyClosed, got: %v", err)
		}
	})

	t.Run("ClosesTransport", func(t *testing.T) {
		tt := scriptBringUp(modem.NewTestTransport())
		m := openModem(t, tt, nil)
		if err := m.End(); err != nil {
			t.Fatalf("End failed: %v", err)
		}
		if !tt.Closed() {
			t.Error("expected transport to be closed")
		}
		if err := m.Poll(context.Background()); !errors.Is(err, modem.ErrNotOpen) {
			t.Errorf("expected ErrNotOpen after End, got: %v", err)
		}
	})
}

// openMockModem brings a modem up over a MockTransport. The expectations in
// after are registered in order behind the bring-up exchange.
func openMockModem(t *testing.T, ctrl *gomock.Controller, after func(*modem.MockTransport) []any) *modem.Modem {
	t.Helper()
	mockTransport := modem.NewMockTransport(ctrl)
	mockDialer := modem.NewMockDialer(ctrl)

	gomock.InOrder(
		slices.Concat(
			[]any{
				mockDialer.EXPECT().Dial(gomock.Any()).Return(mockTransport, nil),
			},
			bringUpMockCalls(mockTransport),
			after(mockTransport),
		)...,
	)

	config, err := modem.NewConfigBuilder().
		WithDialer(mockDialer).
		WithCommandTimeout(100 * time.Millisecond).
		Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}
	m, err := modem.New(config)
	if err != nil {
		t.Fatalf("failed to create modem: %v", err)
	}
	if err := m.Begin(context.Background()); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	return m
}

func TestTransportFailures(t *testing.T) {
	t.Run("PeekErrorSurfacesFromPoll", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		peekErr := errors.New("port vanished")
		m := openMockModem(t, ctrl, func(mt *modem.MockTransport) []any {
			return []any{mt.EXPECT().Peek().Return(0, peekErr)}
		})

		if err := m.Poll(context.Background()); !errors.Is(err, peekErr) {
			t.Errorf("expected peek error, got: %v", err)
		}
	})

	t.Run("ReadErrorSurfacesFromPoll", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		readErr := errors.New("framing error")
		m := openMockModem(t, ctrl, func(mt *modem.MockTransport) []any {
			return []any{
				mt.EXPECT().Peek().Return(4, nil),
				mt.EXPECT().Read(gomock.Any()).Return(0, readErr),
			}
		})

		if err := m.Poll(context.Background()); !errors.Is(err, readErr) {
			t.Errorf("expected read error, got: %v", err)
		}
	})

	t.Run("ShortWrite", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		m := openMockModem(t, ctrl, func(mt *modem.MockTransport) []any {
			return []any{mt.EXPECT().Write(gomock.Any()).Return(3, nil)}
		})

		if _, err := m.Signal(context.Background()); !errors.Is(err, io.ErrShortWrite) {
			t.Errorf("expected io.ErrShortWrite, got: %v", err)
		}
	})

	t.Run("CloseErrorKeepsSession", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		closeErr := errors.New("device busy")
		m := openMockModem(t, ctrl, func(mt *modem.MockTransport) []any {
			return []any{
				mt.EXPECT().Close().Return(closeErr),
				mt.EXPECT().Close().Return(nil),
			}
		})

		if err := m.End(); !errors.Is(err, closeErr) {
			t.Errorf("expected close error, got: %v", err)
		}
		if m.State() != modem.StateOpen {
			t.Errorf("expected the session to stay open, got %s", m.State())
		}
		if err := m.End(); err != nil {
			t.Errorf("second End failed: %v", err)
		}
		if m.State() != modem.StateClosed {
			t.Errorf("expected closed, got %s", m.State())
		}
	})
}
