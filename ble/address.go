package ble

import "tinygo.org/x/bluetooth"

// ParseAddress converts a colon-separated MAC string into the
// bluetooth.Address Connect expects.
func ParseAddress(mac string) (bluetooth.Address, error) {
	parsed, err := bluetooth.ParseMAC(mac)
	if err != nil {
		return bluetooth.Address{}, err
	}
	return bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: parsed}}, nil
}
