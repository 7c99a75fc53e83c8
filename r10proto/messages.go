// Package r10proto defines the protobuf-shaped launch-monitor request,
// response, and alert messages carried inside B413/B313 frames.
//
// No protoc toolchain is available in this environment, so these messages
// are hand-authored against google.golang.org/protobuf/encoding/protowire
// rather than generated from a .proto file. protowire is the same library
// protoc-gen-go itself emits calls into; encoding by hand against it keeps
// the wire format genuinely protobuf-compatible without requiring codegen.
package r10proto

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// State is the device's launch-monitor state machine value.
type State int32

const (
	StateWaiting State = 0
	StateStandby State = 1
	StateError   State = 2
)

// AlertKind selects which alert stream a SubscribeAlerts request targets.
type AlertKind int32

// LaunchMonitor is the only alert kind this driver subscribes to.
const LaunchMonitor AlertKind = 0

// Severity classifies a device-reported error.
type Severity int32

const (
	SeverityInfo Severity = 0
	SeverityWarn Severity = 1
	SeverityFatal Severity = 2
)

// field numbers, grouped per message for readability.
const (
	fieldStatusState = 1

	fieldTiltRoll  = 1
	fieldTiltPitch = 2

	fieldSubscribeKind = 1

	fieldAlertStatusKind       = 1
	fieldAlertStatusSubscribed = 2
	fieldSubscribeRespEntries  = 1

	fieldShotConfigTempF    = 1
	fieldShotConfigHumidity = 2
	fieldShotConfigAltitude = 3
	fieldShotConfigAirDens  = 4
	fieldShotConfigTeeRange = 5
	fieldShotConfigOk       = 1

	fieldCalibrationStatus = 1

	fieldMetricsShotID          = 1
	fieldMetricsBallSpeed       = 2
	fieldMetricsClubHeadSpeed   = 3
	fieldMetricsSpinAxis        = 4
	fieldMetricsTotalSpin       = 5
	fieldMetricsLaunchAngle     = 6
	fieldMetricsLaunchDirection = 7
	fieldMetricsAttackAngle     = 8
	fieldMetricsClubFace        = 9
	fieldMetricsClubPath        = 10

	fieldErrorCode     = 1
	fieldErrorSeverity = 2

	fieldAlertState           = 1
	fieldAlertError           = 2
	fieldAlertMetrics         = 3
	fieldAlertTiltCalibration = 4
)

// StatusResponse carries the device's current state, returned by
// queryStatus and wake.
type StatusResponse struct {
	State State
}

func (m *StatusResponse) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldStatusState, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.State))
	return b
}

func (m *StatusResponse) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num == fieldStatusState {
			n, _ := protowire.ConsumeVarint(v)
			m.State = State(n)
		}
		return nil
	})
}

// TiltResponse carries cached roll/pitch, in degrees.
type TiltResponse struct {
	Roll  float64
	Pitch float64
}

func (m *TiltResponse) Marshal() []byte {
	var b []byte
	b = appendDouble(b, fieldTiltRoll, m.Roll)
	b = appendDouble(b, fieldTiltPitch, m.Pitch)
	return b
}

func (m *TiltResponse) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldTiltRoll:
			m.Roll = consumeDouble(v)
		case fieldTiltPitch:
			m.Pitch = consumeDouble(v)
		}
		return nil
	})
}

// AlertStatusEntry reports whether a given alert kind is subscribed.
type AlertStatusEntry struct {
	Kind       AlertKind
	Subscribed bool
}

// SubscribeAlertsResponse lists the alert kinds now active.
type SubscribeAlertsResponse struct {
	Entries []AlertStatusEntry
}

func (m *SubscribeAlertsResponse) Marshal() []byte {
	var b []byte
	for _, e := range m.Entries {
		var entry []byte
		entry = protowire.AppendTag(entry, fieldAlertStatusKind, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(e.Kind))
		entry = protowire.AppendTag(entry, fieldAlertStatusSubscribed, protowire.VarintType)
		entry = protowire.AppendVarint(entry, boolVarint(e.Subscribed))

		b = protowire.AppendTag(b, fieldSubscribeRespEntries, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func (m *SubscribeAlertsResponse) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num != fieldSubscribeRespEntries {
			return nil
		}
		entryBytes, _ := protowire.ConsumeBytes(v)
		var e AlertStatusEntry
		err := walkFields(entryBytes, func(n protowire.Number, _ protowire.Type, ev []byte) error {
			switch n {
			case fieldAlertStatusKind:
				val, _ := protowire.ConsumeVarint(ev)
				e.Kind = AlertKind(val)
			case fieldAlertStatusSubscribed:
				val, _ := protowire.ConsumeVarint(ev)
				e.Subscribed = val != 0
			}
			return nil
		})
		if err != nil {
			return err
		}
		m.Entries = append(m.Entries, e)
		return nil
	})
}

// SubscribeAlertsRequest asks the device to start pushing the given alert
// kind.
type SubscribeAlertsRequest struct {
	Kind AlertKind
}

func (m *SubscribeAlertsRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldSubscribeKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Kind))
	return b
}

// ShotConfigRequest pushes environmental settings ahead of a session.
type ShotConfigRequest struct {
	TemperatureF float64
	Humidity     float64
	AltitudeM    float64
	AirDensity   float64
	TeeRangeM    float64
}

func (m *ShotConfigRequest) Marshal() []byte {
	var b []byte
	b = appendDouble(b, fieldShotConfigTempF, m.TemperatureF)
	b = appendDouble(b, fieldShotConfigHumidity, m.Humidity)
	b = appendDouble(b, fieldShotConfigAltitude, m.AltitudeM)
	b = appendDouble(b, fieldShotConfigAirDens, m.AirDensity)
	b = appendDouble(b, fieldShotConfigTeeRange, m.TeeRangeM)
	return b
}

// ShotConfigResponse is a bare acknowledgement.
type ShotConfigResponse struct {
	Ok bool
}

func (m *ShotConfigResponse) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num == fieldShotConfigOk {
			n, _ := protowire.ConsumeVarint(v)
			m.Ok = n != 0
		}
		return nil
	})
}

// TiltCalibrationResult carries the outcome of StartTiltCalibration.
type TiltCalibrationResult struct {
	Status int32
}

func (m *TiltCalibrationResult) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldCalibrationStatus, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Status))
	return b
}

func (m *TiltCalibrationResult) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num == fieldCalibrationStatus {
			n, _ := protowire.ConsumeVarint(v)
			m.Status = int32(n)
		}
		return nil
	})
}

// Metrics carries one decoded shot's raw device-reported measurements.
// Speeds are m/s, spin is rpm, angles are degrees, matching the device's
// native units; r10proto performs no unit conversion (see shot package).
type Metrics struct {
	ShotID          uint32
	BallSpeed       float64
	ClubHeadSpeed   float64
	SpinAxis        float64
	TotalSpin       float64
	LaunchAngle     float64
	LaunchDirection float64
	AttackAngle     float64
	ClubFace        float64
	ClubPath        float64
}

func (m *Metrics) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldMetricsShotID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ShotID))
	b = appendDouble(b, fieldMetricsBallSpeed, m.BallSpeed)
	b = appendDouble(b, fieldMetricsClubHeadSpeed, m.ClubHeadSpeed)
	b = appendDouble(b, fieldMetricsSpinAxis, m.SpinAxis)
	b = appendDouble(b, fieldMetricsTotalSpin, m.TotalSpin)
	b = appendDouble(b, fieldMetricsLaunchAngle, m.LaunchAngle)
	b = appendDouble(b, fieldMetricsLaunchDirection, m.LaunchDirection)
	b = appendDouble(b, fieldMetricsAttackAngle, m.AttackAngle)
	b = appendDouble(b, fieldMetricsClubFace, m.ClubFace)
	b = appendDouble(b, fieldMetricsClubPath, m.ClubPath)
	return b
}

func (m *Metrics) unmarshalFrom(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldMetricsShotID:
			n, _ := protowire.ConsumeVarint(v)
			m.ShotID = uint32(n)
		case fieldMetricsBallSpeed:
			m.BallSpeed = consumeDouble(v)
		case fieldMetricsClubHeadSpeed:
			m.ClubHeadSpeed = consumeDouble(v)
		case fieldMetricsSpinAxis:
			m.SpinAxis = consumeDouble(v)
		case fieldMetricsTotalSpin:
			m.TotalSpin = consumeDouble(v)
		case fieldMetricsLaunchAngle:
			m.LaunchAngle = consumeDouble(v)
		case fieldMetricsLaunchDirection:
			m.LaunchDirection = consumeDouble(v)
		case fieldMetricsAttackAngle:
			m.AttackAngle = consumeDouble(v)
		case fieldMetricsClubFace:
			m.ClubFace = consumeDouble(v)
		case fieldMetricsClubPath:
			m.ClubPath = consumeDouble(v)
		}
		return nil
	})
}

// ErrorInfo is a device-reported error condition.
type ErrorInfo struct {
	Code     uint32
	Severity Severity
}

func (m *ErrorInfo) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldErrorCode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Code))
	b = protowire.AppendTag(b, fieldErrorSeverity, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Severity))
	return b
}

func (m *ErrorInfo) unmarshalFrom(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldErrorCode:
			n, _ := protowire.ConsumeVarint(v)
			m.Code = uint32(n)
		case fieldErrorSeverity:
			n, _ := protowire.ConsumeVarint(v)
			m.Severity = Severity(n)
		}
		return nil
	})
}

// AlertNotification is the asynchronous B313 push from the device:
// state changes, errors, shot metrics, and tilt-calibration results are
// all optional and may arrive independently (spec.md §4.6).
type AlertNotification struct {
	HasState bool
	State    State

	Error *ErrorInfo

	Metrics *Metrics

	TiltCalibration *TiltCalibrationResult
}

func (m *AlertNotification) Marshal() []byte {
	var b []byte
	if m.HasState {
		b = protowire.AppendTag(b, fieldAlertState, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.State))
	}
	if m.Error != nil {
		b = protowire.AppendTag(b, fieldAlertError, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Error.Marshal())
	}
	if m.Metrics != nil {
		b = protowire.AppendTag(b, fieldAlertMetrics, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Metrics.Marshal())
	}
	if m.TiltCalibration != nil {
		b = protowire.AppendTag(b, fieldAlertTiltCalibration, protowire.BytesType)
		b = protowire.AppendBytes(b, m.TiltCalibration.Marshal())
	}
	return b
}

func (m *AlertNotification) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldAlertState:
			n, _ := protowire.ConsumeVarint(v)
			m.HasState = true
			m.State = State(n)
		case fieldAlertError:
			eb, _ := protowire.ConsumeBytes(v)
			e := &ErrorInfo{}
			if err := e.unmarshalFrom(eb); err != nil {
				return err
			}
			m.Error = e
		case fieldAlertMetrics:
			mb, _ := protowire.ConsumeBytes(v)
			met := &Metrics{}
			if err := met.unmarshalFrom(mb); err != nil {
				return err
			}
			m.Metrics = met
		case fieldAlertTiltCalibration:
			tb, _ := protowire.ConsumeBytes(v)
			tc := &TiltCalibrationResult{}
			if err := tc.Unmarshal(tb); err != nil {
				return err
			}
			m.TiltCalibration = tc
		}
		return nil
	})
}

// --- shared wire helpers ---

func boolVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func appendDouble(b []byte, field protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, field, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func consumeDouble(v []byte) float64 {
	bits, _ := protowire.ConsumeFixed64(v)
	return math.Float64frombits(bits)
}

// walkFields iterates every top-level (field number, wire type, raw value)
// triple in a protobuf message, handing the raw encoded value (including
// its own length prefix where applicable) to fn. Unknown fields are
// skipped, matching proto3 forward-compatibility semantics.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, raw []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("r10proto: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		var fieldLen int
		switch typ {
		case protowire.VarintType:
			_, fieldLen = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			_, fieldLen = protowire.ConsumeFixed64(b)
		case protowire.Fixed32Type:
			_, fieldLen = protowire.ConsumeFixed32(b)
		case protowire.BytesType:
			_, fieldLen = protowire.ConsumeBytes(b)
		default:
			return fmt.Errorf("r10proto: unsupported wire type %d", typ)
		}
		if fieldLen < 0 {
			return fmt.Errorf("r10proto: malformed field: %w", protowire.ParseError(fieldLen))
		}

		if err := fn(num, typ, b[:fieldLen]); err != nil {
			return err
		}
		b = b[fieldLen:]
	}
	return nil
}
