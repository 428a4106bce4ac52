package jspr

import (
	"fmt"
	"slices"
)

// Version is a dotted API or firmware version.
type Version struct {
	Major uint8 `json:"major"`
	Minor uint8 `json:"minor"`
	Patch uint8 `json:"patch"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

type VersionInfo struct {
	Version
	BuildInfo string `json:"build_info"`
}

// BootInfo is sent unsolicited by the modem after it starts.
type BootInfo struct {
	ImageType  string
	BootSource BootSource
	Version    VersionInfo
}

// APIVersion lists the API versions the modem supports, newest first, and
// the one currently selected.
type APIVersion struct {
	Supported []Version
	Active    Version
	ActiveSet bool
}

type FirmwareInfo struct {
	Slot    BootSource
	Valid   bool
	Version VersionInfo
	Hash    string
}

type SIMInterface struct {
	Interface SIMInterfaceType
	Set       bool
}

type SIMStatus struct {
	CardPresent  bool
	SIMConnected bool
	ICCID        string
}

type OperationalState struct {
	State  OperationalStateType
	Reason OperationalReason
	Set    bool
}

// MessageOriginate is the modem's reply to the start of an MO transfer. The
// modem assigns MessageID only when it accepts the message.
type MessageOriginate struct {
	Topic            uint16
	RequestReference uint8
	MessageID        uint8
	MessageIDSet     bool
	Response         MessageResponse
}

// MessageOriginateSegment is a request from the modem for a slice of an MO
// payload.
type MessageOriginateSegment struct {
	Topic         uint16
	MessageID     uint8
	SegmentLength uint16
	SegmentStart  uint32
}

type MessageOriginateStatus struct {
	Topic     uint16
	MessageID uint8
	Status    FinalMOStatus
}

// MessageTerminate announces an incoming MT message. MessageLengthMax
// includes the two byte CRC trailer.
type MessageTerminate struct {
	Topic            uint16
	MessageID        uint8
	MessageLengthMax uint32
}

// MessageTerminateSegment carries base64 encoded MT payload in Data.
type MessageTerminateSegment struct {
	Topic         uint16
	MessageID     uint8
	SegmentLength uint16
	SegmentStart  uint32
	Data          string
}

type MessageTerminateStatus struct {
	Topic     uint16
	MessageID uint8
	Status    FinalMTStatus
}

// ConstellationState reports satellite visibility. SignalLevel is only
// updated while the constellation is visible.
type ConstellationState struct {
	Visible     bool
	SignalBars  uint8
	SignalLevel int16
}

// Topic is one provisioned topic.
type Topic struct {
	ID                 uint16        `json:"topic_id"`
	Name               string        `json:"topic_name"`
	Priority           TopicPriority `json:"priority"`
	DiscardTimeSeconds uint32        `json:"discard_time_seconds"`
	MaxQueueDepth      uint8         `json:"max_queue_depth"`
}

type MessageProvisioning struct {
	Topics []Topic
	Set    bool
}

// Has reports whether topic is provisioned.
func (p *MessageProvisioning) Has(topic uint16) bool {
	return slices.ContainsFunc(p.Topics, func(t Topic) bool { return t.ID == topic })
}

type HardwareInfo struct {
	HWVersion    string `json:"hw_version"`
	SerialNumber string `json:"serial_number"`
	IMEI         string `json:"imei"`
	BoardTemp    int8   `json:"board_temp"`
}
