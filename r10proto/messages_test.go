package r10proto

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestStatusResponseRoundTrip(t *testing.T) {
	want := &StatusResponse{State: StateWaiting}
	got := &StatusResponse{}
	require.NoError(t, got.Unmarshal(want.Marshal()))
	require.Equal(t, want, got)
}

func TestTiltResponseRoundTrip(t *testing.T) {
	want := &TiltResponse{Roll: 12.5, Pitch: -3.25}
	got := &TiltResponse{}
	require.NoError(t, got.Unmarshal(want.Marshal()))
	require.Equal(t, want, got)
}

func TestSubscribeAlertsResponseRoundTrip(t *testing.T) {
	want := &SubscribeAlertsResponse{
		Entries: []AlertStatusEntry{
			{Kind: LaunchMonitor, Subscribed: true},
		},
	}
	got := &SubscribeAlertsResponse{}
	require.NoError(t, got.Unmarshal(want.Marshal()))
	require.Equal(t, want, got)
}

func TestShotConfigRequestEncodesAllFields(t *testing.T) {
	req := &ShotConfigRequest{TemperatureF: 72, Humidity: 40, AltitudeM: 120, AirDensity: 1.18, TeeRangeM: 9}
	encoded := req.Marshal()
	require.NotEmpty(t, encoded)

	got := map[protowire.Number]float64{}
	require.NoError(t, walkFields(encoded, func(num protowire.Number, typ protowire.Type, v []byte) error {
		require.Equal(t, protowire.Fixed64Type, typ)
		got[num] = consumeDouble(v)
		return nil
	}))
	require.Equal(t, map[protowire.Number]float64{
		fieldShotConfigTempF:    72,
		fieldShotConfigHumidity: 40,
		fieldShotConfigAltitude: 120,
		fieldShotConfigAirDens:  1.18,
		fieldShotConfigTeeRange: 9,
	}, got)
}

func TestShotConfigResponseUnmarshal(t *testing.T) {
	var wire []byte
	wire = protowire.AppendTag(wire, fieldShotConfigOk, protowire.VarintType)
	wire = protowire.AppendVarint(wire, 1)

	got := &ShotConfigResponse{}
	require.NoError(t, got.Unmarshal(wire))
	require.True(t, got.Ok)
}

func TestMetricsRoundTrip(t *testing.T) {
	want := &Metrics{
		ShotID:          42,
		BallSpeed:       50.0,
		ClubHeadSpeed:   40.0,
		SpinAxis:        3.0,
		TotalSpin:       3000,
		LaunchAngle:     14.2,
		LaunchDirection: -1.1,
		AttackAngle:     2.4,
		ClubFace:        0.5,
		ClubPath:        1.1,
	}
	got := &Metrics{}
	require.NoError(t, got.unmarshalFrom(want.Marshal()))
	require.Equal(t, want, got)
}

func TestAlertNotificationRoundTripAllFields(t *testing.T) {
	want := &AlertNotification{
		HasState: true,
		State:    StateStandby,
		Error:    &ErrorInfo{Code: 7, Severity: SeverityWarn},
		Metrics:  &Metrics{ShotID: 1, BallSpeed: 10},
		TiltCalibration: &TiltCalibrationResult{
			Status: 1,
		},
	}
	got := &AlertNotification{}
	require.NoError(t, got.Unmarshal(want.Marshal()))
	require.Equal(t, want, got)
}

func TestAlertNotificationPartialFields(t *testing.T) {
	want := &AlertNotification{
		Metrics: &Metrics{ShotID: 9, BallSpeed: 20},
	}
	got := &AlertNotification{}
	require.NoError(t, got.Unmarshal(want.Marshal()))
	require.False(t, got.HasState)
	require.Nil(t, got.Error)
	require.Nil(t, got.TiltCalibration)
	require.Equal(t, uint32(9), got.Metrics.ShotID)
}
