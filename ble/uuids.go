// Package ble implements the BlueZ D-Bus GATT transport for the Garmin
// Approach R10: service/characteristic discovery, the pairing agent
// required to unlock the protected notifier, and notify/write/read
// primitives used by the session layer.
package ble

// UUIDs on the Garmin base "-667b-11e3-949a-0800200c9a66" plus the
// standard Bluetooth SIG Device Information and Battery services.
const (
	DeviceInfoServiceUUID = "0000180a-0000-1000-8000-00805f9b34fb"
	SerialCharUUID        = "00002a25-0000-1000-8000-00805f9b34fb"
	ModelCharUUID         = "00002a24-0000-1000-8000-00805f9b34fb"
	FirmwareCharUUID      = "00002a28-0000-1000-8000-00805f9b34fb"

	BatteryServiceUUID = "0000180f-0000-1000-8000-00805f9b34fb"
	BatteryCharUUID    = "00002a19-0000-1000-8000-00805f9b34fb"

	DeviceInterfaceServiceUUID  = "6a4e2800-667b-11e3-949a-0800200c9a66"
	DeviceInterfaceNotifierUUID = "6a4e2812-667b-11e3-949a-0800200c9a66"
	DeviceInterfaceWriterUUID   = "6a4e2822-667b-11e3-949a-0800200c9a66"

	MeasurementServiceUUID = "6a4e3400-667b-11e3-949a-0800200c9a66"
	MeasurementCharUUID    = "6a4e3401-667b-11e3-949a-0800200c9a66"
	ControlPointCharUUID   = "6a4e3402-667b-11e3-949a-0800200c9a66"
	StatusCharUUID         = "6a4e3403-667b-11e3-949a-0800200c9a66"
)
