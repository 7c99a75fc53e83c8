package ble

import "errors"

var (
	// ErrAdapterUnavailable is returned when no local host controller can be
	// enabled.
	ErrAdapterUnavailable = errors.New("ble: adapter unavailable")
	// ErrDeviceNotFound is returned when the scan window elapses without
	// discovering the configured device.
	ErrDeviceNotFound = errors.New("ble: device not found")
	// ErrConnectFailed is returned when the ACL connect fails or
	// ServicesResolved does not become true within the resolve timeout.
	ErrConnectFailed = errors.New("ble: connect failed")
	// ErrNotifyAuthRequired is returned when enabling the protected
	// notifier fails with insufficient authentication and in-band pairing
	// does not resolve it, or when a caller attempts another GATT
	// operation before the protected notifier has been enabled.
	ErrNotifyAuthRequired = errors.New("ble: protected notifier requires authentication")
	// ErrEndpointNotFound is returned when a (service, characteristic)
	// pair is absent from the discovered GATT tree.
	ErrEndpointNotFound = errors.New("ble: gatt endpoint not found")
	// ErrOperationTimeout is returned when a notify-enable, read, or write
	// confirmation exceeds its budget (see spec.md §4.4).
	ErrOperationTimeout = errors.New("ble: operation timed out")
)
