package modem

import (
	"context"
	"fmt"
	"io"
	"os"

	"i4.energy/across/sbdgw/jspr"
)

// ProgressFunc reports how many bytes of total have been transferred.
type ProgressFunc func(sent, total int64)

// FileTransfer moves a firmware image to the modem once it has entered its
// file receive mode. Implementations speak the byte protocol the bootloader
// expects directly over rw.
type FileTransfer interface {
	Transfer(ctx context.Context, rw io.ReadWriter, image io.Reader, size int64, progress ProgressFunc) error
}

// UpdateFirmware writes the image at path to the primary slot. The radio is
// made inactive, the modem is switched into file receive mode and ft carries
// the bytes. After a successful transfer the modem reboots into the new
// image, so the session is ended; call Begin again once it is back.
func (m *Modem) UpdateFirmware(ctx context.Context, path string, ft FileTransfer, progress ProgressFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFirmware, err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFirmware, err)
	}
	if stat.Size() <= 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidFirmware, path)
	}

	state, err := m.operationalState(ctx)
	if err != nil {
		return fmt.Errorf("query operational state: %w", err)
	}
	if state.State != jspr.OperationalInactive {
		if err := m.changeOperationalState(ctx, jspr.OperationalInactive); err != nil {
			return fmt.Errorf("deactivate: %w", err)
		}
	}

	resp, err := m.exchange(ctx, jspr.PutFirmware(jspr.BootSourcePrimary), jspr.TargetFirmware)
	if err != nil {
		return fmt.Errorf("enter file receive mode: %w", err)
	}
	var info jspr.FirmwareInfo
	if err := jspr.DecodeFirmwareInfo(resp.JSON, &info); err != nil {
		return fmt.Errorf("decode firmware: %w", err)
	}
	m.logger.Info("firmware transfer starting",
		"slot", info.Slot, "current", info.Version.Version, "size", stat.Size())

	if err := ft.Transfer(ctx, m.transport, f, stat.Size(), progress); err != nil {
		return fmt.Errorf("transfer firmware: %w", err)
	}
	m.logger.Info("firmware transfer complete, modem rebooting")

	return m.End()
}
