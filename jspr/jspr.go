// Package jspr implements the line-oriented request/response protocol spoken
// by the RockBLOCK 9704 over its serial link.
//
// Every frame has the shape
//
//	<code> <target> <json>\r
//
// where code is a three digit result code, target names the message type and
// json is a single JSON object. Frames sent by the modem without a preceding
// request carry the code 299.
package jspr

import "strconv"

const (
	// Terminator ends every frame in both directions.
	Terminator = '\r'

	// ResultCodeLength is the number of ASCII digits in a result code.
	ResultCodeLength = 3
	// MinResponseLength is the shortest frame accepted as a response.
	MinResponseLength = 9
	// MaxTargetLength bounds the target token; longer targets are truncated.
	MaxTargetLength = 30
	// MaxJSONLength bounds the json payload copied out of a frame. A full
	// 1446 byte segment is 1928 bytes of base64 plus the surrounding fields.
	MaxJSONLength = 4096
	// RxBufferSize bounds a single incoming frame.
	RxBufferSize = 8192

	// MaxSegmentLength is the largest raw segment the modem requests or
	// delivers in one frame.
	MaxSegmentLength = 1446
	// MaxAPIVersions is the number of supported API versions retained.
	MaxAPIVersions = 2
	// MaxTopics is the number of provisioned topics retained.
	MaxTopics = 10

	// MinTopic and MaxTopic bound valid topic identifiers.
	MinTopic = 64
	MaxTopic = 65535
)

// Targets understood by the driver.
const (
	TargetAPIVersion              = "apiVersion"
	TargetSIMConfig               = "simConfig"
	TargetSIMStatus               = "simStatus"
	TargetOperationalState        = "operationalState"
	TargetMessageOriginate        = "messageOriginate"
	TargetMessageOriginateSegment = "messageOriginateSegment"
	TargetMessageOriginateStatus  = "messageOriginateStatus"
	TargetMessageTerminate        = "messageTerminate"
	TargetMessageTerminateSegment = "messageTerminateSegment"
	TargetMessageTerminateStatus  = "messageTerminateStatus"
	TargetConstellationState      = "constellationState"
	TargetMessageProvisioning     = "messageProvisioning"
	TargetHardwareInfo            = "hwInfo"
	TargetFirmware                = "firmware"
	TargetBootInfo                = "bootInfo"
	TargetServiceConfig           = "serviceConfig"
)

// Code is a JSPR result code.
type Code int

const (
	CodeNoError                        Code = 200
	CodeUnsolicited                    Code = 299
	CodeAPIVersionNotSelected          Code = 400
	CodeUnsupportedRequestType         Code = 401
	CodeConfigurationAlreadySet        Code = 402
	CodeCommandTooLong                 Code = 403
	CodeUnknownTarget                  Code = 404
	CodeCommandMalformed               Code = 405
	CodeOperationNotAllowed            Code = 406
	CodeBadJSON                        Code = 407
	CodeRequestFailed                  Code = 408
	CodeUnauthorized                   Code = 409
	CodeSIMNotConfigured               Code = 410
	CodeWakeTransceiverInvalid         Code = 411
	CodeInvalidChannel                 Code = 412
	CodeInvalidAction                  Code = 413
	CodeHardwareNotConfigured          Code = 414
	CodeInvalidRadioPath               Code = 415
	CodeCrashDumpNotAvailable          Code = 416
	CodeFeatureNotSupportedByHardware  Code = 417
	CodeNotProvisioned                 Code = 418
	CodeInvalidTransmitPower           Code = 419
	CodeInvalidBurstType               Code = 420
	CodeSerialPortError                Code = 500
)

var codeNames = map[Code]string{
	CodeNoError:                       "no_error",
	CodeUnsolicited:                   "unsolicited_message",
	CodeAPIVersionNotSelected:         "api_version_not_selected",
	CodeUnsupportedRequestType:        "unsupported_request_type",
	CodeConfigurationAlreadySet:       "configuration_already_set",
	CodeCommandTooLong:                "command_too_long",
	CodeUnknownTarget:                 "unknown_target",
	CodeCommandMalformed:              "command_malformed",
	CodeOperationNotAllowed:           "operation_not_allowed",
	CodeBadJSON:                       "bad_json",
	CodeRequestFailed:                 "request_failed",
	CodeUnauthorized:                  "unauthorized",
	CodeSIMNotConfigured:              "sim_not_configured",
	CodeWakeTransceiverInvalid:        "wake_xcvr_in_invalid",
	CodeInvalidChannel:                "invalid_channel",
	CodeInvalidAction:                 "invalid_action",
	CodeHardwareNotConfigured:         "hardware_not_configured",
	CodeInvalidRadioPath:              "invalid_radio_path",
	CodeCrashDumpNotAvailable:         "crash_dump_not_available",
	CodeFeatureNotSupportedByHardware: "feature_not_supported_by_hardware",
	CodeNotProvisioned:                "not_provisioned",
	CodeInvalidTransmitPower:          "invalid_transmit_power",
	CodeInvalidBurstType:              "invalid_burst_type",
	CodeSerialPortError:               "serial_port_error",
}

// Valid reports whether c lies in the range a frame may carry.
func (c Code) Valid() bool {
	return c >= CodeNoError && c <= CodeSerialPortError
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "code_" + strconv.Itoa(int(c))
}
