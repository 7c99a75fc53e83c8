package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// ScanTimeout bounds how long ScanForDevice waits for an advertisement from
// the configured MAC before giving up (spec.md §7 "DeviceNotFound").
const ScanTimeout = 30 * time.Second

// ScanForDevice scans local BLE advertisements for a peer whose MAC matches
// mac and returns its scan result once seen. It is adapted from the
// teacher's named-device scan loop (originally matching on LocalName
// against a fixed set of glove names) to match on address instead, since a
// single configured R10 is identified by MAC rather than by a pool of
// known names.
func ScanForDevice(ctx context.Context, adapter *bluetooth.Adapter, mac string, log *logrus.Entry) (bluetooth.ScanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, ScanTimeout)
	defer cancel()

	want := strings.ToUpper(mac)

	var (
		once   sync.Once
		foundCh = make(chan bluetooth.ScanResult, 1)
	)

	if err := adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		if strings.ToUpper(result.Address.String()) != want {
			return
		}
		once.Do(func() {
			foundCh <- result
			a.StopScan()
		})
	}); err != nil {
		return bluetooth.ScanResult{}, fmt.Errorf("%w: scan: %v", ErrDeviceNotFound, err)
	}

	log.WithField("mac", mac).Info("ble: scanning for device")

	select {
	case result := <-foundCh:
		return result, nil
	case <-ctx.Done():
		adapter.StopScan()
		return bluetooth.ScanResult{}, fmt.Errorf("%w: %s not seen within %s", ErrDeviceNotFound, mac, ScanTimeout)
	}
}
