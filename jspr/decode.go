package jspr

import (
	"encoding/json"
	"fmt"
)

// String field limits, in bytes.
const (
	maxTopicNameLength    = 50
	maxHWVersionLength    = 6
	maxSerialNumberLength = 6
	maxIMEILength         = 15
	maxICCIDLength        = 19
	maxBuildInfoLength    = 49
	maxImageTypeLength    = 10
	maxHashLength         = 64
)

// object is a decoded JSON object. Its accessors report false for absent
// keys, values of the wrong type and numbers outside the requested range, so
// decoders leave the corresponding field untouched.
type object map[string]any

func parseObject(s string) (object, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return object(m), nil
}

func (o object) number(key string) (int, bool) {
	f, ok := o[key].(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func (o object) intRange(key string, lo, hi int) (int, bool) {
	n, ok := o.number(key)
	if !ok || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

func (o object) str(key string) (string, bool) {
	s, ok := o[key].(string)
	return s, ok
}

func (o object) truncated(key string, limit int) (string, bool) {
	s, ok := o.str(key)
	if ok && len(s) > limit {
		s = s[:limit]
	}
	return s, ok
}

func (o object) boolean(key string) (bool, bool) {
	b, ok := o[key].(bool)
	return b, ok
}

func (o object) child(key string) (object, bool) {
	m, ok := o[key].(map[string]any)
	return object(m), ok
}

func (o object) array(key string) ([]any, bool) {
	a, ok := o[key].([]any)
	return a, ok
}

func (o object) topic(out *uint16) {
	if n, ok := o.intRange("topic_id", MinTopic, MaxTopic); ok {
		*out = uint16(n)
	}
}

func (o object) messageID(out *uint8) {
	if n, ok := o.intRange("message_id", 0, 255); ok {
		*out = uint8(n)
	}
}

func (o object) segment(length *uint16, start *uint32) {
	if n, ok := o.intRange("segment_length", 1, MaxSegmentLength); ok {
		*length = uint16(n)
	}
	if n, ok := o.intRange("segment_start", 0, 100001); ok {
		*start = uint32(n)
	}
}

// dottedVersion requires all three components to be numbers.
func (o object) dottedVersion() (Version, bool) {
	major, ok1 := o.number("major")
	minor, ok2 := o.number("minor")
	patch, ok3 := o.number("patch")
	if !ok1 || !ok2 || !ok3 {
		return Version{}, false
	}
	return Version{Major: uint8(major), Minor: uint8(minor), Patch: uint8(patch)}, true
}

func (o object) versionInfo(out *VersionInfo) {
	if n, ok := o.number("major"); ok {
		out.Major = uint8(n)
	}
	if n, ok := o.number("minor"); ok {
		out.Minor = uint8(n)
	}
	if n, ok := o.number("patch"); ok {
		out.Patch = uint8(n)
	}
	if s, ok := o.truncated("build_info", maxBuildInfoLength); ok {
		out.BuildInfo = s
	}
}

// DecodeBootInfo decodes a bootInfo payload into out.
func DecodeBootInfo(s string, out *BootInfo) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	if v, ok := o.truncated("image_type", maxImageTypeLength); ok {
		out.ImageType = v
	}
	if v, ok := o.str("boot_source"); ok {
		out.BootSource, _ = ParseBootSource(v)
	}
	if v, ok := o.child("version"); ok {
		v.versionInfo(&out.Version)
	}
	return nil
}

// DecodeAPIVersion decodes an apiVersion payload. Supported versions are
// stored newest first and at most MaxAPIVersions are kept.
func DecodeAPIVersion(s string, out *APIVersion) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	if list, ok := o.array("supported_versions"); ok {
		out.Supported = out.Supported[:0]
		for i := 0; i < len(list) && i < MaxAPIVersions; i++ {
			item, ok := list[len(list)-1-i].(map[string]any)
			if !ok {
				continue
			}
			if v, ok := object(item).dottedVersion(); ok {
				out.Supported = append(out.Supported, v)
			}
		}
	}
	out.ActiveSet = false
	if active, ok := o.child("active_version"); ok {
		if v, ok := active.dottedVersion(); ok {
			out.Active = v
			out.ActiveSet = true
		}
	}
	return nil
}

// DecodeFirmwareInfo decodes a firmware payload.
func DecodeFirmwareInfo(s string, out *FirmwareInfo) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	if v, ok := o.str("slot"); ok {
		out.Slot, _ = ParseBootSource(v)
	}
	switch v := o["validity"].(type) {
	case bool:
		out.Valid = v
	case float64:
		out.Valid = v > 0
	}
	if v, ok := o.child("version"); ok {
		v.versionInfo(&out.Version)
	}
	if v, ok := o.truncated("hash", maxHashLength); ok {
		out.Hash = v
	}
	return nil
}

// DecodeSIMInterface decodes a simConfig payload.
func DecodeSIMInterface(s string, out *SIMInterface) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	if v, ok := o.str("interface"); ok {
		if iface, err := ParseSIMInterfaceType(v); err == nil {
			out.Interface = iface
			out.Set = true
		} else {
			out.Set = false
		}
	}
	return nil
}

// DecodeSIMStatus decodes a simStatus payload.
func DecodeSIMStatus(s string, out *SIMStatus) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	if v, ok := o.boolean("card_present"); ok {
		out.CardPresent = v
	}
	if v, ok := o.boolean("sim_connected"); ok {
		out.SIMConnected = v
	}
	if v, ok := o.truncated("iccid", maxICCIDLength); ok {
		out.ICCID = v
	}
	return nil
}

// DecodeOperationalState decodes an operationalState payload.
func DecodeOperationalState(s string, out *OperationalState) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	if n, ok := o.intRange("reason", int(ReasonNormal), int(ReasonMfrTestUsedIncorrectly)); ok {
		out.Reason = OperationalReason(n)
	}
	if v, ok := o.str("state"); ok {
		if state, err := ParseOperationalStateType(v); err == nil {
			out.State = state
			out.Set = true
		} else {
			out.Set = false
		}
	}
	return nil
}

// DecodeMessageOriginate decodes the reply to a messageOriginate request.
func DecodeMessageOriginate(s string, out *MessageOriginate) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	o.topic(&out.Topic)
	if n, ok := o.intRange("request_reference", 1, 100); ok {
		out.RequestReference = uint8(n)
	}
	if v, ok := o.str("message_response"); ok {
		if resp, err := ParseMessageResponse(v); err == nil {
			out.Response = resp
		}
	}
	out.MessageIDSet = false
	if out.Response == MessageAccepted {
		if n, ok := o.intRange("message_id", 0, 255); ok {
			out.MessageID = uint8(n)
			out.MessageIDSet = true
		}
	}
	return nil
}

// DecodeMessageOriginateSegment decodes a segment request.
func DecodeMessageOriginateSegment(s string, out *MessageOriginateSegment) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	o.topic(&out.Topic)
	o.segment(&out.SegmentLength, &out.SegmentStart)
	o.messageID(&out.MessageID)
	return nil
}

// DecodeMessageOriginateStatus decodes the final status of an MO transfer.
func DecodeMessageOriginateStatus(s string, out *MessageOriginateStatus) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	o.topic(&out.Topic)
	o.messageID(&out.MessageID)
	if v, ok := o.str("final_mo_status"); ok {
		if status, err := ParseFinalMOStatus(v); err == nil {
			out.Status = status
		}
	}
	return nil
}

// DecodeMessageTerminate decodes the announcement of an MT message.
func DecodeMessageTerminate(s string, out *MessageTerminate) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	o.topic(&out.Topic)
	if n, ok := o.intRange("message_length_max", 3, 100002); ok {
		out.MessageLengthMax = uint32(n)
	}
	o.messageID(&out.MessageID)
	return nil
}

// DecodeMessageTerminateSegment decodes one MT segment. Data is left base64
// encoded.
func DecodeMessageTerminateSegment(s string, out *MessageTerminateSegment) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	o.topic(&out.Topic)
	o.segment(&out.SegmentLength, &out.SegmentStart)
	o.messageID(&out.MessageID)
	if v, ok := o.str("data"); ok {
		out.Data = v
	}
	return nil
}

// DecodeMessageTerminateStatus decodes the final status of an MT transfer.
func DecodeMessageTerminateStatus(s string, out *MessageTerminateStatus) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	o.topic(&out.Topic)
	o.messageID(&out.MessageID)
	if v, ok := o.str("final_mt_status"); ok {
		if status, err := ParseFinalMTStatus(v); err == nil {
			out.Status = status
		}
	}
	return nil
}

// DecodeConstellationState decodes a constellationState payload.
func DecodeConstellationState(s string, out *ConstellationState) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	if visible, ok := o.boolean("constellation_visible"); ok {
		out.Visible = visible
		if visible {
			if n, ok := o.number("signal_level"); ok {
				out.SignalLevel = int16(n)
			}
		}
	}
	if n, ok := o.intRange("signal_bars", 0, 5); ok {
		out.SignalBars = uint8(n)
	}
	return nil
}

// DecodeMessageProvisioning decodes the list of provisioned topics. At most
// MaxTopics entries are kept.
func DecodeMessageProvisioning(s string, out *MessageProvisioning) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	if list, ok := o.array("provisioning"); ok {
		out.Topics = out.Topics[:0]
		for i := 0; i < len(list) && i < MaxTopics; i++ {
			item, ok := list[i].(map[string]any)
			if !ok {
				continue
			}
			out.Topics = append(out.Topics, decodeTopic(object(item)))
		}
	}
	out.Set = true
	return nil
}

func decodeTopic(o object) Topic {
	var t Topic
	o.topic(&t.ID)
	if v, ok := o.str("topic_name"); ok && len(v) <= maxTopicNameLength {
		t.Name = v
	}
	if v, ok := o.str("priority"); ok {
		if p, err := ParseTopicPriority(v); err == nil {
			t.Priority = p
		}
	}
	if n, ok := o.intRange("discard_time_seconds", 15, 604800); ok {
		t.DiscardTimeSeconds = uint32(n)
	}
	if n, ok := o.intRange("max_queue_depth", 1, 99); ok {
		t.MaxQueueDepth = uint8(n)
	}
	return t
}

// DecodeHardwareInfo decodes an hwInfo payload.
func DecodeHardwareInfo(s string, out *HardwareInfo) error {
	o, err := parseObject(s)
	if err != nil {
		return err
	}
	if v, ok := o.truncated("hw_version", maxHWVersionLength); ok {
		out.HWVersion = v
	}
	if v, ok := o.truncated("serial_number", maxSerialNumberLength); ok {
		out.SerialNumber = v
	}
	if v, ok := o.truncated("imei", maxIMEILength); ok {
		out.IMEI = v
	}
	if n, ok := o.number("board_temp"); ok {
		out.BoardTemp = int8(n)
	}
	return nil
}
