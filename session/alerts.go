package session

import (
	"fmt"

	"github.com/jrayres/r10-bridge/metrics"
	"github.com/jrayres/r10-bridge/r10proto"
	"github.com/jrayres/r10-bridge/shot"
)

// handleAlert processes one asynchronous B313 push (spec.md §4.6). Each of
// its four payloads is optional and independent, so all that are present
// are handled.
func (s *Session) handleAlert(alert *r10proto.AlertNotification) {
	if alert.HasState {
		s.handleStateAlert(alert.State)
	}
	if alert.Error != nil {
		s.sink.OnError(fmt.Errorf("session: device error code=%d severity=%d", alert.Error.Code, alert.Error.Severity))
	}
	if alert.Metrics != nil {
		s.handleMetricsAlert(alert.Metrics)
	}
	if alert.TiltCalibration != nil {
		s.handleTiltCalibrationAlert()
	}
}

// handleStateAlert updates the cached state and, on Standby, either
// auto-wakes the device or reports the condition as an advisory error,
// depending on how the Session was configured.
func (s *Session) handleStateAlert(state r10proto.State) {
	s.setState(state)
	if state != r10proto.StateStandby {
		return
	}
	if !s.autoWake {
		s.sink.OnError(fmt.Errorf("session: device reported standby, auto-wake disabled"))
		return
	}
	s.runAsync(func() {
		if _, err := s.Wake(); err != nil {
			s.sink.OnError(fmt.Errorf("session: auto-wake failed: %w", err))
		}
	})
}

// handleMetricsAlert drops duplicate shot deliveries (spec.md §4.7) and
// forwards the first delivery of each shot id to the sink, in normalized
// units.
func (s *Session) handleMetricsAlert(m *r10proto.Metrics) {
	s.stateMu.Lock()
	_, seen := s.processedShots[m.ShotID]
	if !seen {
		s.processedShots[m.ShotID] = struct{}{}
	}
	s.stateMu.Unlock()

	if seen {
		metrics.ShotsDuplicate.Inc()
		s.log.WithField("shot_id", m.ShotID).Debug("session: dropping duplicate shot")
		return
	}

	metrics.ShotsEmitted.Inc()
	s.sink.OnShot(shot.Normalize(m))
}

// handleTiltCalibrationAlert re-queries tilt once calibration completes so
// the cached reading reflects the new calibration.
func (s *Session) handleTiltCalibrationAlert() {
	s.runAsync(func() {
		if _, _, err := s.QueryTilt(); err != nil {
			s.sink.OnError(fmt.Errorf("session: post-calibration tilt query failed: %w", err))
		}
	})
}

// runAsync launches fn in a tracked goroutine so a device-initiated
// request (e.g. wake) never blocks the processor loop that delivered the
// triggering alert.
func (s *Session) runAsync(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}
