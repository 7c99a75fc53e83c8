package session

import (
	"fmt"

	"github.com/jrayres/r10-bridge/r10proto"
)

// Wake issues the WakeUp command and returns the device's resulting
// status.
func (s *Session) Wake() (r10proto.State, error) {
	resp, err := s.sendRequest(nil)
	if err != nil {
		return 0, fmt.Errorf("wake: %w", err)
	}
	out := &r10proto.StatusResponse{}
	if err := out.Unmarshal(resp); err != nil {
		return 0, fmt.Errorf("wake: decode response: %w", err)
	}
	s.setState(out.State)
	return out.State, nil
}

// QueryStatus asks the device for its current state.
func (s *Session) QueryStatus() (r10proto.State, error) {
	resp, err := s.sendRequest(nil)
	if err != nil {
		return 0, fmt.Errorf("query status: %w", err)
	}
	out := &r10proto.StatusResponse{}
	if err := out.Unmarshal(resp); err != nil {
		return 0, fmt.Errorf("query status: decode response: %w", err)
	}
	s.setState(out.State)
	return out.State, nil
}

// QueryTilt asks the device for its current roll/pitch and caches the
// result.
func (s *Session) QueryTilt() (roll, pitch float64, err error) {
	resp, err := s.sendRequest(nil)
	if err != nil {
		return 0, 0, fmt.Errorf("query tilt: %w", err)
	}
	out := &r10proto.TiltResponse{}
	if err := out.Unmarshal(resp); err != nil {
		return 0, 0, fmt.Errorf("query tilt: decode response: %w", err)
	}
	s.cacheTilt(out.Roll, out.Pitch)
	return out.Roll, out.Pitch, nil
}

func (s *Session) cacheTilt(roll, pitch float64) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.cachedTilt.roll = roll
	s.cachedTilt.pitch = pitch
	s.cachedTilt.valid = true
}

// CachedTilt returns the last tilt reading observed, if any.
func (s *Session) CachedTilt() (roll, pitch float64, ok bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.cachedTilt.roll, s.cachedTilt.pitch, s.cachedTilt.valid
}

// SubscribeToAlerts asks the device to start pushing the given alert kind
// and returns the resulting per-kind subscription status.
func (s *Session) SubscribeToAlerts(kind r10proto.AlertKind) ([]r10proto.AlertStatusEntry, error) {
	req := &r10proto.SubscribeAlertsRequest{Kind: kind}
	resp, err := s.sendRequest(req.Marshal())
	if err != nil {
		return nil, fmt.Errorf("subscribe alerts: %w", err)
	}
	out := &r10proto.SubscribeAlertsResponse{}
	if err := out.Unmarshal(resp); err != nil {
		return nil, fmt.Errorf("subscribe alerts: decode response: %w", err)
	}
	return out.Entries, nil
}

// StartTiltCalibration kicks off the device's tilt calibration routine.
func (s *Session) StartTiltCalibration() (int32, error) {
	resp, err := s.sendRequest(nil)
	if err != nil {
		return 0, fmt.Errorf("start tilt calibration: %w", err)
	}
	out := &r10proto.TiltCalibrationResult{}
	if err := out.Unmarshal(resp); err != nil {
		return 0, fmt.Errorf("start tilt calibration: decode response: %w", err)
	}
	return out.Status, nil
}

// ShotConfig pushes environmental settings ahead of a session.
func (s *Session) ShotConfig(temperatureF, humidity, altitudeM, airDensity, teeRangeM float64) (bool, error) {
	req := &r10proto.ShotConfigRequest{
		TemperatureF: temperatureF,
		Humidity:     humidity,
		AltitudeM:    altitudeM,
		AirDensity:   airDensity,
		TeeRangeM:    teeRangeM,
	}
	resp, err := s.sendRequest(req.Marshal())
	if err != nil {
		return false, fmt.Errorf("shot config: %w", err)
	}
	out := &r10proto.ShotConfigResponse{}
	if err := out.Unmarshal(resp); err != nil {
		return false, fmt.Errorf("shot config: decode response: %w", err)
	}
	return out.Ok, nil
}
