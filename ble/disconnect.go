package ble

import (
	"context"

	"github.com/godbus/dbus/v5"
)

// DevicePath exposes devicePath for callers outside the package (the
// reconnect loop needs it to watch for the disconnect signal).
func DevicePath(hciIndex int, mac string) string {
	return devicePath(hciIndex, mac)
}

// WatchDisconnect returns a channel that is closed once BlueZ reports
// Device1.Connected = false for devPath, or when ctx is cancelled. It opens
// its own D-Bus connection so it never contends with a Transport's
// dedicated connection.
func WatchDisconnect(ctx context.Context, devPath string) (<-chan struct{}, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, err
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchObjectPath(dbus.ObjectPath(devPath)),
	); err != nil {
		conn.Close()
		return nil, err
	}

	sigCh := make(chan *dbus.Signal, 16)
	conn.Signal(sigCh)

	done := make(chan struct{})
	go func() {
		defer conn.Close()
		defer close(done)
		for {
			select {
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				if len(sig.Body) < 2 {
					continue
				}
				iface, _ := sig.Body[0].(string)
				if iface != "org.bluez.Device1" {
					continue
				}
				changed, ok := sig.Body[1].(map[string]dbus.Variant)
				if !ok {
					continue
				}
				if v, ok := changed["Connected"]; ok {
					if connected, ok := v.Value().(bool); ok && !connected {
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return done, nil
}
