package jspr

import (
	"fmt"
	"strconv"
)

// Each enumeration is backed by a single table indexed by its value. The
// table serves both directions so names and values cannot drift apart.

func enumString[T ~int](names []string, v T) string {
	if int(v) >= 0 && int(v) < len(names) {
		return names[v]
	}
	return "unknown(" + strconv.Itoa(int(v)) + ")"
}

func enumParse[T ~int](names []string, s string) (T, error) {
	for i, name := range names {
		if name == s {
			return T(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownValue, s)
}

// BootSource identifies a firmware slot.
type BootSource int

const (
	BootSourceUnknown BootSource = iota
	BootSourcePrimary
	BootSourceFallback
)

var bootSourceNames = []string{"unknown", "primary", "fallback"}

func (b BootSource) String() string { return enumString(bootSourceNames, b) }

// MarshalText implements encoding.TextMarshaler.
func (b BootSource) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// ParseBootSource maps a slot name to its BootSource. Unrecognised names
// yield BootSourceUnknown together with an error.
func ParseBootSource(s string) (BootSource, error) {
	v, err := enumParse[BootSource](bootSourceNames, s)
	if err != nil {
		return BootSourceUnknown, err
	}
	return v, nil
}

// SIMInterfaceType selects which SIM the modem uses.
type SIMInterfaceType int

const (
	SIMNone SIMInterfaceType = iota
	SIMLocal
	SIMRemote
	SIMInternal
)

var simInterfaceNames = []string{"none", "local", "remote", "internal"}

func (s SIMInterfaceType) String() string { return enumString(simInterfaceNames, s) }

func ParseSIMInterfaceType(s string) (SIMInterfaceType, error) {
	return enumParse[SIMInterfaceType](simInterfaceNames, s)
}

// OperationalStateType is the radio state reported by operationalState.
type OperationalStateType int

const (
	OperationalInactive OperationalStateType = iota
	OperationalActive
	OperationalCalTest
	OperationalHWSelfTest
	OperationalRFScan
	OperationalLoopback
	OperationalFault
)

var operationalStateNames = []string{
	"inactive",
	"active",
	"cal_test",
	"hw_self_test",
	"rf_scan",
	"loopback",
	"fault",
}

func (o OperationalStateType) String() string { return enumString(operationalStateNames, o) }

// MarshalText implements encoding.TextMarshaler.
func (o OperationalStateType) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func ParseOperationalStateType(s string) (OperationalStateType, error) {
	return enumParse[OperationalStateType](operationalStateNames, s)
}

// OperationalReason explains the current operational state. It travels as a
// number on the wire.
type OperationalReason int

const (
	ReasonNormal OperationalReason = iota
	ReasonHardwareSelfTestFailure
	ReasonTemperatureFault
	ReasonRFPowerProtectionFault
	ReasonInterfaceTransitionFlowing
	ReasonInvalidHardware
	ReasonLowSupplyVoltage
	ReasonMfrTestUsedIncorrectly
)

var operationalReasonNames = []string{
	"normal",
	"hardware_self_test_failure",
	"temperature_fault",
	"rf_power_protection_fault",
	"vam_app_failed_ack_interface_transition_flowing",
	"invalid_hardware",
	"low_supply_voltage",
	"mfrtest_used_incorrectly",
}

func (r OperationalReason) String() string { return enumString(operationalReasonNames, r) }

func ParseOperationalReason(s string) (OperationalReason, error) {
	return enumParse[OperationalReason](operationalReasonNames, s)
}

// MessageResponse is the modem's answer to a messageOriginate request. The
// zero value stands for a missing or unrecognised answer.
type MessageResponse int

const (
	MessageResponseUnknown MessageResponse = iota
	MessageAccepted
	MessageSubscriptionInvalid
	MessageDiscardedOnOverflow
)

var messageResponseNames = []string{
	"unknown",
	"message_accepted",
	"subscription_invalid",
	"message_discarded_on_overflow",
}

func (m MessageResponse) String() string { return enumString(messageResponseNames, m) }

func ParseMessageResponse(s string) (MessageResponse, error) {
	return enumParse[MessageResponse](messageResponseNames, s)
}

// FinalMOStatus is the outcome of a mobile originated transfer. Only
// MOAckReceived means delivery; the zero value is a missing or unrecognised
// status.
type FinalMOStatus int

const (
	MOStatusUnknown FinalMOStatus = iota
	MOAckReceived
	MODiscardedOnOverflow
	MOExpired
	MOTransferTimeout
	MOSegmentNotSupplied
	MOSegmentIncorrect
	MONetworkError
	MOCancelledPreTransit
	MOCancelledInTransit
	MOSubscriptionInvalid
	MOProtocolError
	MODroppedLocalCRCError
	MOCRCErrorInTransfer
	MOUserSuppliedCRCError
)

var finalMOStatusNames = []string{
	"unknown",
	"mo_ack_received",
	"message_discarded_on_overflow",
	"message_expired",
	"message_transfer_timeout",
	"segment_not_supplied",
	"segment_incorrect",
	"network_error",
	"message_cancelled_pre_transit",
	"message_cancelled_in_transit",
	"subscription_invalid",
	"protocol_error",
	"message_dropped_local_crc_error",
	"crc_error_in_transfer",
	"user_supplied_crc_error",
}

func (f FinalMOStatus) String() string { return enumString(finalMOStatusNames, f) }

// MarshalText implements encoding.TextMarshaler.
func (f FinalMOStatus) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func ParseFinalMOStatus(s string) (FinalMOStatus, error) {
	return enumParse[FinalMOStatus](finalMOStatusNames, s)
}

// FinalMTStatus is the outcome of a mobile terminated transfer. Only
// MTComplete means the message arrived; the zero value is a missing or
// unrecognised status.
type FinalMTStatus int

const (
	MTStatusUnknown FinalMTStatus = iota
	MTComplete
	MTTimedOut
	MTCancelled
	MTCRCErrorInTransfer
)

var finalMTStatusNames = []string{
	"unknown",
	"complete",
	"message_timed_out",
	"message_cancelled",
	"crc_error_in_transfer",
}

func (f FinalMTStatus) String() string { return enumString(finalMTStatusNames, f) }

// MarshalText implements encoding.TextMarshaler.
func (f FinalMTStatus) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func ParseFinalMTStatus(s string) (FinalMTStatus, error) {
	return enumParse[FinalMTStatus](finalMTStatusNames, s)
}

// TopicPriority is the delivery priority provisioned for a topic.
type TopicPriority int

const (
	PrioritySafety1 TopicPriority = iota
	PrioritySafety2
	PrioritySafety3
	PriorityHigh
	PriorityMedium
	PriorityLow
)

var topicPriorityNames = []string{"Safety-1", "Safety-2", "Safety-3", "High", "Medium", "Low"}

func (p TopicPriority) String() string { return enumString(topicPriorityNames, p) }

// MarshalText implements encoding.TextMarshaler.
func (p TopicPriority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func ParseTopicPriority(s string) (TopicPriority, error) {
	return enumParse[TopicPriority](topicPriorityNames, s)
}
