package modem

import (
	"context"
	"fmt"

	"i4.energy/across/sbdgw/jspr"
)

// ResyncServiceConfig asks the modem to fetch its service configuration
// from the network again, which picks up topic provisioning changes. The
// radio must be inactive for this; an active modem is deactivated first and
// reactivated afterwards. The cached provisioning is discarded.
func (m *Modem) ResyncServiceConfig(ctx context.Context) error {
	state, err := m.operationalState(ctx)
	if err != nil {
		return fmt.Errorf("query operational state: %w", err)
	}

	wasActive := false
	switch state.State {
	case jspr.OperationalInactive:
	case jspr.OperationalActive:
		wasActive = true
		if err := m.changeOperationalState(ctx, jspr.OperationalInactive); err != nil {
			return fmt.Errorf("deactivate: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrOperationalState, state.State)
	}

	if _, err := m.exchange(ctx, jspr.PutServiceConfigResync(), jspr.TargetServiceConfig); err != nil {
		return fmt.Errorf("resync service config: %w", err)
	}
	m.provisioning = jspr.MessageProvisioning{}
	m.logger.Info("service configuration resynchronised")

	if wasActive {
		if err := m.changeOperationalState(ctx, jspr.OperationalActive); err != nil {
			return fmt.Errorf("reactivate: %w", err)
		}
	}
	return nil
}
