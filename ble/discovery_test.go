package ble

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDevicePath(t *testing.T) {
	require.Equal(t, "/org/bluez/hci0/dev_D4_E9_F4_E2_B5_8A", devicePath(0, "d4:e9:f4:e2:b5:8a"))
	require.Equal(t, "/org/bluez/hci1/dev_AA_BB_CC_DD_EE_FF", devicePath(1, "AA:BB:CC:DD:EE:FF"))
}

func TestEndpointMapLookup(t *testing.T) {
	m := EndpointMap{
		DeviceInterfaceServiceUUID: {
			DeviceInterfaceNotifierUUID: "/org/bluez/hci0/dev_X/service0010/char0011",
		},
	}

	path, err := m.Lookup(DeviceInterfaceServiceUUID, DeviceInterfaceNotifierUUID)
	require.NoError(t, err)
	require.Equal(t, "/org/bluez/hci0/dev_X/service0010/char0011", path)

	_, err = m.Lookup(BatteryServiceUUID, BatteryCharUUID)
	require.ErrorIs(t, err, ErrEndpointNotFound)
}

func TestObjectPathRegexClassification(t *testing.T) {
	require.True(t, serviceLeafRe.MatchString("/org/bluez/hci0/dev_X/service0010"))
	require.False(t, serviceLeafRe.MatchString("/org/bluez/hci0/dev_X/service0010/char0011"))
	require.True(t, charLeafRe.MatchString("/org/bluez/hci0/dev_X/service0010/char0011"))
	require.False(t, charLeafRe.MatchString("/org/bluez/hci0/dev_X/service0010"))
}
