package session

import (
	"context"
	"fmt"

	"github.com/jrayres/r10-bridge/ble"
	"github.com/jrayres/r10-bridge/r10proto"
)

// EnvironmentConfig carries the environmental fields pushed via ShotConfig
// ahead of a session (spec.md §4.6 step 8).
type EnvironmentConfig struct {
	TemperatureF float64
	Humidity     float64
	AltitudeM    float64
	AirDensity   float64
	TeeRangeM    float64
}

// DeviceInfo is the read-only identification pulled from the standard
// Device Information / Battery services during setup.
type DeviceInfo struct {
	Serial     string
	Model      string
	Firmware   string
	BatteryPct int
}

// Setup drives the fixed startup sequence spec.md §4.6 mandates: the
// protected notifier must be enabled first, followed by the plain
// notifiers, the read-only device info, the handshake, an initial
// wake/status/tilt exchange, alert subscription, optional tilt
// calibration, and finally the environmental shot configuration push.
func (s *Session) Setup(ctx context.Context, env EnvironmentConfig, calibrateTilt bool) (DeviceInfo, error) {
	var info DeviceInfo

	if err := s.transport.EnableProtectedNotifier(ctx, s.onNotify); err != nil {
		return info, fmt.Errorf("session setup: protected notifier: %w", err)
	}

	plain := []struct {
		service, char string
		handler       ble.NotificationHandler
	}{
		{ble.BatteryServiceUUID, ble.BatteryCharUUID, func([]byte) {
			// Battery notifications carry no application payload this driver
			// acts on; the battery level is read once by readDeviceInfo.
		}},
		{ble.MeasurementServiceUUID, ble.MeasurementCharUUID, func([]byte) {
			// Superseded entirely by the protobuf Alert stream.
		}},
		{ble.MeasurementServiceUUID, ble.ControlPointCharUUID, func([]byte) {
			// Kept as a documented no-op per spec.md §9's open question:
			// subscribed, payload discarded.
		}},
		{ble.MeasurementServiceUUID, ble.StatusCharUUID, s.handleStatusNotification},
	}
	for _, p := range plain {
		if err := s.transport.EnablePlainNotifier(ctx, p.service, p.char, p.handler); err != nil {
			return info, fmt.Errorf("session setup: plain notifier %s: %w", p.char, err)
		}
	}

	if err := s.readDeviceInfo(ctx, &info); err != nil {
		return info, fmt.Errorf("session setup: device info: %w", err)
	}

	s.Start()

	if _, err := s.PerformHandshake(); err != nil {
		return info, fmt.Errorf("session setup: handshake: %w", err)
	}

	if _, err := s.Wake(); err != nil {
		return info, fmt.Errorf("session setup: wake: %w", err)
	}
	if _, err := s.QueryStatus(); err != nil {
		return info, fmt.Errorf("session setup: query status: %w", err)
	}
	if _, _, err := s.QueryTilt(); err != nil {
		return info, fmt.Errorf("session setup: query tilt: %w", err)
	}

	if _, err := s.SubscribeToAlerts(r10proto.LaunchMonitor); err != nil {
		return info, fmt.Errorf("session setup: subscribe alerts: %w", err)
	}

	if calibrateTilt {
		if _, err := s.StartTiltCalibration(); err != nil {
			return info, fmt.Errorf("session setup: tilt calibration: %w", err)
		}
	}

	if _, err := s.ShotConfig(env.TemperatureF, env.Humidity, env.AltitudeM, env.AirDensity, env.TeeRangeM); err != nil {
		return info, fmt.Errorf("session setup: shot config: %w", err)
	}

	return info, nil
}

func (s *Session) readDeviceInfo(ctx context.Context, info *DeviceInfo) error {
	serial, err := s.transport.ReadValue(ctx, ble.DeviceInfoServiceUUID, ble.SerialCharUUID)
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	info.Serial = string(serial)

	model, err := s.transport.ReadValue(ctx, ble.DeviceInfoServiceUUID, ble.ModelCharUUID)
	if err != nil {
		return fmt.Errorf("model: %w", err)
	}
	info.Model = string(model)

	fw, err := s.transport.ReadValue(ctx, ble.DeviceInfoServiceUUID, ble.FirmwareCharUUID)
	if err != nil {
		return fmt.Errorf("firmware: %w", err)
	}
	info.Firmware = string(fw)

	batt, err := s.transport.ReadValue(ctx, ble.BatteryServiceUUID, ble.BatteryCharUUID)
	if err != nil {
		return fmt.Errorf("battery: %w", err)
	}
	if len(batt) > 0 {
		info.BatteryPct = int(batt[0])
	}

	return nil
}
