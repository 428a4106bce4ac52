package modem

import (
	"context"
	"fmt"

	"i4.energy/across/sbdgw/jspr"
)

// BoardTempUnavailable is what BoardTemperature returns alongside an error.
const BoardTempUnavailable = -100

// Signal returns the current number of signal bars, 0 to 5. It blocks until
// the modem answers, and frames for other targets that arrive meanwhile are
// discarded. With transfers in flight prefer LastConstellationState.
func (m *Modem) Signal(ctx context.Context) (int, error) {
	resp, err := m.exchange(ctx, jspr.GetSignal(), jspr.TargetConstellationState)
	if err != nil {
		return 0, fmt.Errorf("query signal: %w", err)
	}
	var state jspr.ConstellationState
	if err := jspr.DecodeConstellationState(resp.JSON, &state); err != nil {
		return 0, fmt.Errorf("decode signal: %w", err)
	}
	m.constellation = &state
	return int(state.SignalBars), nil
}

// LastConstellationState returns the most recent signal report, whether it
// came from Signal or unsolicited from the modem during Poll. It does no
// I/O. ok is false until the first report of the session.
func (m *Modem) LastConstellationState() (state jspr.ConstellationState, ok bool) {
	if m.constellation == nil {
		return jspr.ConstellationState{}, false
	}
	return *m.constellation, true
}

// HardwareInfo returns the hardware version, serial number, IMEI and board
// temperature. Like Signal it discards unrelated frames while it waits.
func (m *Modem) HardwareInfo(ctx context.Context) (jspr.HardwareInfo, error) {
	var info jspr.HardwareInfo
	resp, err := m.exchange(ctx, jspr.GetHardwareInfo(), jspr.TargetHardwareInfo)
	if err != nil {
		return info, fmt.Errorf("query hardware info: %w", err)
	}
	if err := jspr.DecodeHardwareInfo(resp.JSON, &info); err != nil {
		return info, fmt.Errorf("decode hardware info: %w", err)
	}
	return info, nil
}

func (m *Modem) IMEI(ctx context.Context) (string, error) {
	info, err := m.HardwareInfo(ctx)
	return info.IMEI, err
}

func (m *Modem) HardwareVersion(ctx context.Context) (string, error) {
	info, err := m.HardwareInfo(ctx)
	return info.HWVersion, err
}

func (m *Modem) SerialNumber(ctx context.Context) (string, error) {
	info, err := m.HardwareInfo(ctx)
	return info.SerialNumber, err
}

// BoardTemperature returns the board temperature in degrees Celsius.
func (m *Modem) BoardTemperature(ctx context.Context) (int, error) {
	info, err := m.HardwareInfo(ctx)
	if err != nil {
		return BoardTempUnavailable, err
	}
	return int(info.BoardTemp), nil
}

// SIMStatus reports whether a SIM is present and connected, and its ICCID.
func (m *Modem) SIMStatus(ctx context.Context) (jspr.SIMStatus, error) {
	var status jspr.SIMStatus
	resp, err := m.exchange(ctx, jspr.GetSIMStatus(), jspr.TargetSIMStatus)
	if err != nil {
		return status, fmt.Errorf("query SIM status: %w", err)
	}
	if err := jspr.DecodeSIMStatus(resp.JSON, &status); err != nil {
		return status, fmt.Errorf("decode SIM status: %w", err)
	}
	return status, nil
}

func (m *Modem) CardPresent(ctx context.Context) (bool, error) {
	status, err := m.SIMStatus(ctx)
	return status.CardPresent, err
}

func (m *Modem) SIMConnected(ctx context.Context) (bool, error) {
	status, err := m.SIMStatus(ctx)
	return status.SIMConnected, err
}

func (m *Modem) ICCID(ctx context.Context) (string, error) {
	status, err := m.SIMStatus(ctx)
	return status.ICCID, err
}

// FirmwareInfo describes the image in the primary slot.
func (m *Modem) FirmwareInfo(ctx context.Context) (jspr.FirmwareInfo, error) {
	var info jspr.FirmwareInfo
	resp, err := m.exchange(ctx, jspr.GetFirmware(jspr.BootSourcePrimary), jspr.TargetFirmware)
	if err != nil {
		return info, fmt.Errorf("query firmware: %w", err)
	}
	if err := jspr.DecodeFirmwareInfo(resp.JSON, &info); err != nil {
		return info, fmt.Errorf("decode firmware: %w", err)
	}
	return info, nil
}

// FirmwareVersion returns the primary image version as "vMAJOR.MINOR.PATCH".
func (m *Modem) FirmwareVersion(ctx context.Context) (string, error) {
	info, err := m.FirmwareInfo(ctx)
	if err != nil {
		return "", err
	}
	return "v" + info.Version.Version.String(), nil
}
