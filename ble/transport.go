package ble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/muka/go-bluetooth/bluez"
	"github.com/muka/go-bluetooth/bluez/profile/gatt"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

const (
	notifyEnableTimeout = 30 * time.Second
	readTimeout         = 30 * time.Second
	writeConfirmTimeout = 10 * time.Second
	resolveTimeout      = 30 * time.Second
)

// NotificationHandler is invoked with the raw characteristic value each
// time a subscribed characteristic notifies.
type NotificationHandler func(value []byte)

// GattTransport is the surface the session layer depends on. *Transport
// is the real BlueZ implementation; tests substitute a fake to exercise
// the ordering constraint and protocol logic without a live adapter.
type GattTransport interface {
	EnableProtectedNotifier(ctx context.Context, handler NotificationHandler) error
	EnablePlainNotifier(ctx context.Context, serviceUUID, charUUID string, handler NotificationHandler) error
	ReadValue(ctx context.Context, serviceUUID, charUUID string) ([]byte, error)
	WriteChunk(ctx context.Context, chunk []byte) error
	Close() error
}

var _ GattTransport = (*Transport)(nil)

// Transport is the GATT abstraction over the BlueZ D-Bus surface described
// in spec.md §4.4. One Transport corresponds to one connected
// RemoteDevice; its endpoint cache and dedicated D-Bus connection live for
// the Session's lifetime.
type Transport struct {
	adapter  *bluetooth.Adapter
	hciIndex int

	log *logrus.Entry

	mu        sync.Mutex
	dbusConn  *dbus.Conn
	endpoints EndpointMap

	device  *bluetooth.Device
	devPath string

	protectedDone bool
	opCount       int

	watchers []*charWatch
}

type charWatch struct {
	char   *gatt.GattCharacteristic1
	propCh chan *bluez.PropertyChanged
}

// NewTransport constructs a Transport bound to a specific local adapter
// index (e.g. 0 for hci0).
func NewTransport(hciIndex int, log *logrus.Entry) *Transport {
	return &Transport{
		adapter:  bluetooth.DefaultAdapter,
		hciIndex: hciIndex,
		log:      log,
	}
}

// Enable powers on the local host controller.
func (t *Transport) Enable() error {
	if err := t.adapter.Enable(); err != nil {
		return fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
	}
	return nil
}

// Connect establishes the ACL connection to addr, waits for BlueZ to
// resolve GATT services, registers the process-wide pairing agent, opens a
// fresh dedicated D-Bus connection for subsequent GATT operations, and
// discovers the GATT tree via subprocess introspection.
//
// The dedicated connection is independent of whatever connection the
// tinygo/bluetooth Connect call used internally — see spec.md §4.4.
func (t *Transport) Connect(ctx context.Context, addr bluetooth.Address, mac string) error {
	device, err := t.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	devPath := devicePath(t.hciIndex, mac)
	if err := t.waitServicesResolved(ctx, devPath); err != nil {
		device.Disconnect()
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		device.Disconnect()
		return fmt.Errorf("%w: dbus connect: %v", ErrConnectFailed, err)
	}

	if err := registerPairingAgent(conn, t.log); err != nil {
		t.log.WithError(err).Warn("ble: pairing agent registration failed (may already be registered)")
	}

	endpoints, err := discoverGATTTree(ctx, devPath, t.log)
	if err != nil {
		conn.Close()
		device.Disconnect()
		return fmt.Errorf("%w: gatt discovery: %v", ErrConnectFailed, err)
	}

	t.mu.Lock()
	t.device = &device
	t.devPath = devPath
	t.dbusConn = conn
	t.endpoints = endpoints
	t.protectedDone = false
	t.opCount = 0
	t.mu.Unlock()

	return nil
}

// waitServicesResolved blocks until BlueZ reports Device1.ServicesResolved
// = true, or the timeout expires. BlueZ performs GATT discovery
// asynchronously after the ACL connect; reading characteristics before
// this event yields an empty profile even on a successful connection.
func (t *Transport) waitServicesResolved(ctx context.Context, devPath string) error {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("dbus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object("org.bluez", dbus.ObjectPath(devPath))

	if v, err := obj.GetProperty("org.bluez.Device1.ServicesResolved"); err == nil {
		if resolved, ok := v.Value().(bool); ok && resolved {
			return nil
		}
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchObjectPath(dbus.ObjectPath(devPath)),
	); err != nil {
		return fmt.Errorf("dbus match: %w", err)
	}

	ch := make(chan *dbus.Signal, 16)
	conn.Signal(ch)

	for {
		select {
		case sig, ok := <-ch:
			if !ok {
				return fmt.Errorf("dbus signal channel closed")
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
			if v, ok := changed["ServicesResolved"]; ok {
				if resolved, ok := v.Value().(bool); ok && resolved {
					return nil
				}
			}
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for ServicesResolved")
		}
	}
}

// checkOrdering enforces spec.md §4.4's critical ordering constraint:
// enabling the protected device-interface notifier must be the first GATT
// operation after connect.
func (t *Transport) checkOrdering(isProtectedEnable bool) error {
	if isProtectedEnable {
		if t.opCount > 0 {
			return ErrNotifyAuthRequired
		}
		return nil
	}
	if !t.protectedDone {
		return ErrNotifyAuthRequired
	}
	return nil
}

func (t *Transport) resolveChar(serviceUUID, charUUID string) (*gatt.GattCharacteristic1, error) {
	path, err := t.endpoints.Lookup(serviceUUID, charUUID)
	if err != nil {
		return nil, err
	}
	return gatt.NewGattCharacteristic1(dbus.ObjectPath(path))
}

// EnableProtectedNotifier subscribes to the device-interface notifier
// (6a4e2812), which requires in-band pairing on first use. This must be
// the first GATT operation performed on a freshly connected device; any
// other operation attempted first permanently wedges the controller on
// this call (documented BlueZ behaviour, not a choice this driver makes).
func (t *Transport) EnableProtectedNotifier(ctx context.Context, handler NotificationHandler) error {
	t.mu.Lock()
	if err := t.checkOrdering(true); err != nil {
		t.mu.Unlock()
		return err
	}
	t.opCount++
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, notifyEnableTimeout)
	defer cancel()

	if err := t.enableNotify(ctx, DeviceInterfaceServiceUUID, DeviceInterfaceNotifierUUID, handler); err != nil {
		return fmt.Errorf("%w: %v", ErrNotifyAuthRequired, err)
	}

	t.mu.Lock()
	t.protectedDone = true
	t.mu.Unlock()
	return nil
}

// EnablePlainNotifier subscribes to any other notifying characteristic
// (battery, measurement, control-point, status). It fails with
// ErrNotifyAuthRequired if called before EnableProtectedNotifier.
func (t *Transport) EnablePlainNotifier(ctx context.Context, serviceUUID, charUUID string, handler NotificationHandler) error {
	t.mu.Lock()
	if err := t.checkOrdering(false); err != nil {
		t.mu.Unlock()
		return err
	}
	t.opCount++
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, notifyEnableTimeout)
	defer cancel()
	return t.enableNotify(ctx, serviceUUID, charUUID, handler)
}

func (t *Transport) enableNotify(ctx context.Context, serviceUUID, charUUID string, handler NotificationHandler) error {
	char, err := t.resolveChar(serviceUUID, charUUID)
	if err != nil {
		return err
	}

	propCh, err := char.WatchProperties()
	if err != nil {
		return fmt.Errorf("watch properties: %w", err)
	}

	if err := char.StartNotify(); err != nil {
		char.UnwatchProperties(propCh)
		return fmt.Errorf("start notify: %w", err)
	}

	t.mu.Lock()
	t.watchers = append(t.watchers, &charWatch{char: char, propCh: propCh})
	t.mu.Unlock()

	// The delivery goroutine is not bound to ctx (the enable call's timeout
	// context, cancelled when the enable call returns); it runs until propCh
	// is closed.
	go func() {
		for update := range propCh {
			if update == nil {
				continue
			}
			if update.Interface == "org.bluez.GattCharacteristic1" && update.Name == "Value" {
				if v, ok := update.Value.([]byte); ok {
					handler(v)
				}
			}
		}
	}()

	return nil
}

// ReadValue performs a plain GATT read against (serviceUUID, charUUID),
// bounded by readTimeout.
func (t *Transport) ReadValue(ctx context.Context, serviceUUID, charUUID string) ([]byte, error) {
	t.mu.Lock()
	if err := t.checkOrdering(false); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	t.opCount++
	t.mu.Unlock()

	char, err := t.resolveChar(serviceUUID, charUUID)
	if err != nil {
		return nil, err
	}

	type result struct {
		value []byte
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := char.ReadValue(nil)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-time.After(readTimeout):
		return nil, ErrOperationTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WriteChunk writes one already-framed BLE-write-sized chunk to the
// device-interface writer characteristic (write-without-response),
// bounded by writeConfirmTimeout.
func (t *Transport) WriteChunk(ctx context.Context, chunk []byte) error {
	t.mu.Lock()
	if err := t.checkOrdering(false); err != nil {
		t.mu.Unlock()
		return err
	}
	t.opCount++
	t.mu.Unlock()

	char, err := t.resolveChar(DeviceInterfaceServiceUUID, DeviceInterfaceWriterUUID)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- char.WriteValue(chunk, nil)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(writeConfirmTimeout):
		return ErrOperationTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears down all watched characteristics and the dedicated D-Bus
// connection, and disconnects the device.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, w := range t.watchers {
		w.char.StopNotify()
		w.char.UnwatchProperties(w.propCh)
	}
	t.watchers = nil

	if t.dbusConn != nil {
		t.dbusConn.Close()
		t.dbusConn = nil
	}

	var err error
	if t.device != nil {
		err = t.device.Disconnect()
		t.device = nil
	}
	t.protectedDone = false
	t.opCount = 0
	return err
}
