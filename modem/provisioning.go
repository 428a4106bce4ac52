package modem

import (
	"context"
	"fmt"
	"slices"

	"i4.energy/across/sbdgw/jspr"
)

// Provisioning returns the topics the account may send on. The list is
// fetched once per session and kept until ResyncServiceConfig.
func (m *Modem) Provisioning(ctx context.Context) (jspr.MessageProvisioning, error) {
	if !m.provisioning.Set {
		resp, err := m.exchange(ctx, jspr.GetMessageProvisioning(), jspr.TargetMessageProvisioning)
		if err != nil {
			return jspr.MessageProvisioning{}, fmt.Errorf("query provisioning: %w", err)
		}
		var p jspr.MessageProvisioning
		if err := jspr.DecodeMessageProvisioning(resp.JSON, &p); err != nil {
			return jspr.MessageProvisioning{}, fmt.Errorf("decode provisioning: %w", err)
		}
		m.provisioning = p
		m.logger.Debug("provisioning cached", "topics", len(p.Topics))
		m.events.provisioning(p)
	}
	p := m.provisioning
	p.Topics = slices.Clone(p.Topics)
	return p, nil
}

// checkProvisioning fails unless topic is valid and provisioned.
func (m *Modem) checkProvisioning(ctx context.Context, topic uint16) error {
	if topic < jspr.MinTopic {
		return fmt.Errorf("%w: %d", ErrInvalidTopic, topic)
	}
	p, err := m.Provisioning(ctx)
	if err != nil {
		return err
	}
	if !p.Has(topic) {
		return fmt.Errorf("%w: %d", ErrNotProvisioned, topic)
	}
	return nil
}
