package modem

import (
	"context"
	"fmt"
	"time"

	"i4.energy/across/sbdgw/jspr"
)

// apiRetryDelay separates API version attempts; the modem may still be
// booting when the port opens.
const apiRetryDelay = 5 * time.Millisecond

// negotiateAPI makes sure an API version is active, selecting the newest
// supported one if needed.
func (m *Modem) negotiateAPI(ctx context.Context) error {
	var lastErr error
	for attempt := range m.config.APIRetries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(apiRetryDelay):
		}

		resp, err := m.exchange(ctx, jspr.GetAPIVersion(), jspr.TargetAPIVersion)
		if err != nil {
			m.logger.Debug("API version query failed", "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}
		var version jspr.APIVersion
		if err := jspr.DecodeAPIVersion(resp.JSON, &version); err != nil {
			lastErr = err
			continue
		}
		if version.ActiveSet {
			m.logger.Debug("API version active", "version", version.Active)
			return nil
		}
		if len(version.Supported) == 0 {
			lastErr = ErrNoAPIVersion
			continue
		}
		selected := version.Supported[0]
		if _, err := m.exchange(ctx, jspr.PutAPIVersion(selected), jspr.TargetAPIVersion); err != nil {
			lastErr = err
			continue
		}
		m.logger.Info("selected API version", "version", selected)
		return nil
	}
	if lastErr == nil {
		lastErr = ErrNoAPIVersion
	}
	return lastErr
}

// selectInternalSIM switches the modem to its embedded SIM unless it
// already uses it.
func (m *Modem) selectInternalSIM(ctx context.Context) error {
	resp, err := m.exchange(ctx, jspr.GetSIMInterface(), jspr.TargetSIMConfig)
	if err != nil {
		return err
	}
	var sim jspr.SIMInterface
	if err := jspr.DecodeSIMInterface(resp.JSON, &sim); err != nil {
		return err
	}
	if sim.Set && sim.Interface == jspr.SIMInternal {
		return nil
	}

	if _, err := m.exchange(ctx, jspr.PutSIMInterface(jspr.SIMInternal), jspr.TargetSIMConfig); err != nil {
		return err
	}
	// The modem confirms the switch once the SIM has been brought up.
	if _, err := m.awaitCode(ctx, jspr.TargetSIMStatus, jspr.CodeUnsolicited); err != nil {
		return err
	}
	m.logger.Info("switched to internal SIM")
	return nil
}

// activate brings the radio to the active state. A modem in any state other
// than active or inactive is taken through inactive first.
func (m *Modem) activate(ctx context.Context) error {
	state, err := m.operationalState(ctx)
	if err != nil {
		return err
	}
	switch state.State {
	case jspr.OperationalActive:
		return nil
	case jspr.OperationalInactive:
		return m.putOperationalState(ctx, jspr.OperationalActive)
	default:
		m.logger.Info("resetting operational state", "state", state.State, "reason", state.Reason)
		if err := m.putOperationalState(ctx, jspr.OperationalInactive); err != nil {
			return err
		}
		return m.putOperationalState(ctx, jspr.OperationalActive)
	}
}

func (m *Modem) operationalState(ctx context.Context) (jspr.OperationalState, error) {
	var state jspr.OperationalState
	resp, err := m.exchange(ctx, jspr.GetOperationalState(), jspr.TargetOperationalState)
	if err != nil {
		return state, err
	}
	if err := jspr.DecodeOperationalState(resp.JSON, &state); err != nil {
		return state, err
	}
	if !state.Set {
		return state, fmt.Errorf("%w: state missing", ErrOperationalState)
	}
	return state, nil
}

func (m *Modem) putOperationalState(ctx context.Context, state jspr.OperationalStateType) error {
	_, err := m.exchange(ctx, jspr.PutOperationalState(state), jspr.TargetOperationalState)
	return err
}

// changeOperationalState requests state and waits for the modem's
// unsolicited confirmation.
func (m *Modem) changeOperationalState(ctx context.Context, state jspr.OperationalStateType) error {
	if err := m.putOperationalState(ctx, state); err != nil {
		return err
	}
	resp, err := m.awaitCode(ctx, jspr.TargetOperationalState, jspr.CodeUnsolicited)
	if err != nil {
		return err
	}
	var reached jspr.OperationalState
	if err := jspr.DecodeOperationalState(resp.JSON, &reached); err != nil {
		return err
	}
	if reached.State != state {
		return fmt.Errorf("%w: wanted %s, modem reports %s", ErrOperationalState, state, reached.State)
	}
	return nil
}
