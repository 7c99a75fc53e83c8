// Package shot defines the normalized shot record handed to downstream
// sinks and the unit conversions spec.md §4.7 keeps out of the core
// session/protocol packages.
package shot

import (
	"math"

	"github.com/jrayres/r10-bridge/r10proto"
)

// msToMph converts the device's native m/s speeds to mph.
const msToMph = 2.2369

// Record is one normalized, dedup-ready shot, in simulator-facing units.
type Record struct {
	ShotID           uint32
	BallSpeedMPH     float64
	ClubHeadSpeedMPH float64
	SpinAxisDeg      float64
	TotalSpinRPM     float64
	SideSpinRPM      float64
	BackSpinRPM      float64
	LaunchAngleDeg   float64
	LaunchDirDeg     float64
	AttackAngleDeg   float64
	ClubFaceDeg      float64
	ClubPathDeg      float64
}

// Sink is the seam between the device-facing session and any downstream
// consumer of shot data (spec.md §5): the TCP simulator client and the TCP
// fan-out server implement this interface. The HTTP putting endpoint
// (sink/httpputt) does not; it receives no shots, readiness or errors.
type Sink interface {
	OnShot(Record)
	OnReadinessChanged(ready bool)
	OnError(err error)
}

// Normalize converts a raw device Metrics message into a Record, applying
// the mph conversion and the sign-flipped side/back spin decomposition
// spec.md §4.7 specifies. SpinAxis is reported by the device with the
// opposite sign convention simulators expect, so it is negated before use
// both in the output field and in the side/back spin trig decomposition.
func Normalize(m *r10proto.Metrics) Record {
	axis := -m.SpinAxis
	rad := -m.SpinAxis * math.Pi / 180

	return Record{
		ShotID:           m.ShotID,
		BallSpeedMPH:     m.BallSpeed * msToMph,
		ClubHeadSpeedMPH: m.ClubHeadSpeed * msToMph,
		SpinAxisDeg:      axis,
		TotalSpinRPM:     m.TotalSpin,
		SideSpinRPM:      m.TotalSpin * math.Sin(rad),
		BackSpinRPM:      m.TotalSpin * math.Cos(rad),
		LaunchAngleDeg:   m.LaunchAngle,
		LaunchDirDeg:     m.LaunchDirection,
		AttackAngleDeg:   m.AttackAngle,
		ClubFaceDeg:      m.ClubFace,
		ClubPathDeg:      m.ClubPath,
	}
}
