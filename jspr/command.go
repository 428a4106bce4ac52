package jspr

import "fmt"

// Command encoders. Each returns a complete, terminated request ready to be
// written to the transport. The exact spacing matches what the modem firmware
// has been tested against.

func GetAPIVersion() string { return "GET apiVersion {}\r" }

func PutAPIVersion(v Version) string {
	return fmt.Sprintf("PUT apiVersion {\"active_version\": {\"major\": %d, \"minor\": %d, \"patch\": %d}}\r",
		v.Major, v.Minor, v.Patch)
}

func GetSIMInterface() string { return "GET simConfig {}\r" }

func PutSIMInterface(iface SIMInterfaceType) string {
	return fmt.Sprintf("PUT simConfig {\"interface\": \"%s\"}\r", iface)
}

func GetOperationalState() string { return "GET operationalState {}\r" }

func PutOperationalState(state OperationalStateType) string {
	return fmt.Sprintf("PUT operationalState {\"state\": \"%s\"}\r", state)
}

// PutMessageOriginate starts an MO transfer. length includes the CRC
// trailer.
func PutMessageOriginate(topic uint16, length int, reference uint32) string {
	return fmt.Sprintf("PUT messageOriginate {\"topic_id\":%d, \"message_length\":%d, \"request_reference\":%d}\r",
		topic, length, reference)
}

// PutMessageOriginateSegment answers a segment request with base64 data.
func PutMessageOriginateSegment(topic uint16, id uint8, segmentLength int, segmentStart uint32, data string) string {
	return fmt.Sprintf("PUT messageOriginateSegment {\"topic_id\":%d, \"message_id\":%d, \"segment_length\":%d, \"segment_start\":%d, \"data\":\"%s\"}\r",
		topic, id, segmentLength, segmentStart, data)
}

func GetSignal() string { return "GET constellationState {}\r" }

func GetMessageProvisioning() string { return "GET messageProvisioning {}\r" }

func GetHardwareInfo() string { return "GET hwInfo {}\r" }

// slotName maps anything but the fallback slot to primary.
func slotName(slot BootSource) string {
	if slot == BootSourceFallback {
		return "fallback"
	}
	return "primary"
}

func GetFirmware(slot BootSource) string {
	return fmt.Sprintf("GET firmware {\"slot\": \"%s\"}\r", slotName(slot))
}

func PutFirmware(slot BootSource) string {
	return fmt.Sprintf("PUT firmware {\"slot\": \"%s\"}\r", slotName(slot))
}

func GetSIMStatus() string { return "GET simStatus {}\r" }

// PutServiceConfigResync asks the modem to resynchronise its service
// configuration with the network.
func PutServiceConfigResync() string { return "PUT serviceConfig {\"resync\": true}\r" }
