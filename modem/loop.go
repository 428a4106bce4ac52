package modem

import (
	"context"
	"errors"
	"time"
)

// job is a unit of work submitted through Do.
type job struct {
	// fn runs on the Loop goroutine with exclusive access to the Modem
	fn func(*Modem) error
	// done receives the result of fn
	done chan error
}

// Loop owns the Modem while it runs: it polls the modem every PollInterval
// while the session is open and runs work submitted through Do in between.
// Loop returns when ctx is done.
func (m *Modem) Loop(ctx context.Context) error {
	if !m.loopRunning.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer m.loopRunning.Store(false)

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case j := <-m.jobs:
			j.done <- j.fn(m)

		case <-ticker.C:
			if !m.session.Is(StateOpen) {
				continue
			}
			if err := m.Poll(ctx); err != nil && !errors.Is(err, ErrNotOpen) {
				m.logger.Warn("poll failed", "error", err)
			}
		}
	}
}

// Do runs fn on the Loop goroutine and returns its error. It blocks until
// fn has run or ctx is done; in the latter case fn may still run later.
func (m *Modem) Do(ctx context.Context, fn func(*Modem) error) error {
	j := job{
		fn:   fn,
		done: make(chan error, 1), // Buffered so Loop never blocks on an abandoned job
	}

	select {
	case m.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
