package shot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jrayres/r10-bridge/r10proto"
)

func TestNormalizeConvertsSpeedsToMPH(t *testing.T) {
	m := &r10proto.Metrics{ShotID: 7, BallSpeed: 10, ClubHeadSpeed: 5}
	r := Normalize(m)
	assert.InDelta(t, 22.369, r.BallSpeedMPH, 1e-9)
	assert.InDelta(t, 11.1845, r.ClubHeadSpeedMPH, 1e-9)
	assert.Equal(t, uint32(7), r.ShotID)
}

func TestNormalizeFlipsSpinAxisSign(t *testing.T) {
	m := &r10proto.Metrics{SpinAxis: 12.5}
	r := Normalize(m)
	assert.Equal(t, -12.5, r.SpinAxisDeg)
}

func TestNormalizeDecomposesSideAndBackSpin(t *testing.T) {
	m := &r10proto.Metrics{SpinAxis: 90, TotalSpin: 1000}
	r := Normalize(m)
	// axis flipped to -90deg: side = total*sin(-90deg) = -total, back = total*cos(-90deg) = 0
	assert.InDelta(t, -1000, r.SideSpinRPM, 1e-6)
	assert.InDelta(t, 0, r.BackSpinRPM, 1e-6)
}

func TestNormalizeZeroAxisIsPureBackspin(t *testing.T) {
	m := &r10proto.Metrics{SpinAxis: 0, TotalSpin: 2500}
	r := Normalize(m)
	assert.InDelta(t, 0, r.SideSpinRPM, 1e-9)
	assert.InDelta(t, 2500, r.BackSpinRPM, 1e-9)
}

func TestNormalizePassesThroughAngles(t *testing.T) {
	m := &r10proto.Metrics{
		LaunchAngle: 14.2, LaunchDirection: -1.3, AttackAngle: 2.1,
		ClubFace: 0.4, ClubPath: -0.6,
	}
	r := Normalize(m)
	assert.Equal(t, 14.2, r.LaunchAngleDeg)
	assert.Equal(t, -1.3, r.LaunchDirDeg)
	assert.Equal(t, 2.1, r.AttackAngleDeg)
	assert.Equal(t, 0.4, r.ClubFaceDeg)
	assert.Equal(t, -0.6, r.ClubPathDeg)
}

func TestNormalizeSpinMagnitudePreserved(t *testing.T) {
	m := &r10proto.Metrics{SpinAxis: 33, TotalSpin: 4000}
	r := Normalize(m)
	mag := math.Hypot(r.SideSpinRPM, r.BackSpinRPM)
	assert.InDelta(t, 4000, mag, 1e-6)
}
