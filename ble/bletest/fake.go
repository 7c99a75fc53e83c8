// Package bletest provides a fake ble.GattTransport for exercising the
// session layer without a live BlueZ adapter.
package bletest

import (
	"context"
	"sync"

	"github.com/jrayres/r10-bridge/ble"
)

// FakeTransport is a scriptable in-memory ble.GattTransport. Writes are
// recorded on Writes; a test drives the simulated peer by calling
// DeliverProtected to push notification bytes back through the handler
// registered on the protected notifier. Plain-notifier handlers are
// recorded but have no delivery method.
type FakeTransport struct {
	mu sync.Mutex

	protectedHandler ble.NotificationHandler
	plainHandlers    map[string]ble.NotificationHandler

	protectedEnabled bool
	opCount          int

	// EnforceOrdering mirrors ble.Transport's critical-ordering guard so
	// tests can verify spec.md §4.4's ordering constraint end to end.
	EnforceOrdering bool

	Writes [][]byte
	Reads  map[string][]byte

	Closed bool
}

// NewFakeTransport returns a FakeTransport with ordering enforcement on,
// matching the real Transport's default behaviour.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		plainHandlers:   make(map[string]ble.NotificationHandler),
		Reads:           make(map[string][]byte),
		EnforceOrdering: true,
	}
}

func (f *FakeTransport) EnableProtectedNotifier(_ context.Context, handler ble.NotificationHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EnforceOrdering && f.opCount > 0 {
		return ble.ErrNotifyAuthRequired
	}
	f.opCount++
	f.protectedHandler = handler
	f.protectedEnabled = true
	return nil
}

func (f *FakeTransport) EnablePlainNotifier(_ context.Context, _, charUUID string, handler ble.NotificationHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EnforceOrdering && !f.protectedEnabled {
		return ble.ErrNotifyAuthRequired
	}
	f.opCount++
	f.plainHandlers[charUUID] = handler
	return nil
}

func (f *FakeTransport) ReadValue(_ context.Context, _, charUUID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EnforceOrdering && !f.protectedEnabled {
		return nil, ble.ErrNotifyAuthRequired
	}
	f.opCount++
	return f.Reads[charUUID], nil
}

func (f *FakeTransport) WriteChunk(_ context.Context, chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EnforceOrdering && !f.protectedEnabled {
		return ble.ErrNotifyAuthRequired
	}
	f.opCount++
	cp := append([]byte(nil), chunk...)
	f.Writes = append(f.Writes, cp)
	return nil
}

func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// DeliverProtected pushes raw bytes to the handler registered via
// EnableProtectedNotifier, simulating a device-interface-notifier
// notification (used to drive the handshake in tests).
func (f *FakeTransport) DeliverProtected(b []byte) {
	f.mu.Lock()
	h := f.protectedHandler
	f.mu.Unlock()
	if h != nil {
		h(b)
	}
}

// TakeWrites returns and clears every chunk written so far.
func (f *FakeTransport) TakeWrites() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := f.Writes
	f.Writes = nil
	return w
}
