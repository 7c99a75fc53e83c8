package ble

import (
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/muka/go-bluetooth/bluez/profile/agent"
	"github.com/sirupsen/logrus"
)

// pairingAgent implements agent.Agent1Client with NoInputNoOutput
// semantics: every confirmation and authorization request is accepted
// without prompting, since the R10 rejects pairing attempts that carry the
// MITM flag the default BlueZ agent would set (spec.md §4.4).
type pairingAgent struct {
	log *logrus.Entry
}

func (a *pairingAgent) Release() *dbus.Error { return nil }

func (a *pairingAgent) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	a.log.WithField("device", device).Debug("ble: agent RequestPinCode (unsupported, no I/O)")
	return "", dbus.MakeFailedError(errUnsupportedAgentMethod)
}

func (a *pairingAgent) DisplayPinCode(device dbus.ObjectPath, pincode string) *dbus.Error {
	return nil
}

func (a *pairingAgent) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	a.log.WithField("device", device).Debug("ble: agent RequestPasskey (unsupported, no I/O)")
	return 0, dbus.MakeFailedError(errUnsupportedAgentMethod)
}

func (a *pairingAgent) DisplayPasskey(device dbus.ObjectPath, passkey uint32, entered uint16) *dbus.Error {
	return nil
}

func (a *pairingAgent) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	a.log.WithFields(logrus.Fields{"device": device, "passkey": passkey}).Debug("ble: agent auto-confirming pairing")
	return nil
}

func (a *pairingAgent) RequestAuthorization(device dbus.ObjectPath) *dbus.Error {
	a.log.WithField("device", device).Debug("ble: agent auto-authorizing pairing")
	return nil
}

func (a *pairingAgent) AuthorizeService(device dbus.ObjectPath, uuid string) *dbus.Error {
	a.log.WithFields(logrus.Fields{"device": device, "uuid": uuid}).Debug("ble: agent auto-authorizing service")
	return nil
}

func (a *pairingAgent) Cancel() *dbus.Error { return nil }

var errUnsupportedAgentMethod = &dbusUnsupportedError{}

type dbusUnsupportedError struct{}

func (*dbusUnsupportedError) Error() string { return "agent has no input/output capability" }

var (
	registerOnce sync.Once
	registerErr  error
)

// registerPairingAgent registers a process-wide NoInputNoOutput pairing
// agent and sets it as the default, as required once per process before
// the protected notifier can be enabled (spec.md §4.4). It is idempotent:
// later Sessions reuse the same registration.
func registerPairingAgent(conn *dbus.Conn, log *logrus.Entry) error {
	registerOnce.Do(func() {
		ag := &pairingAgent{log: log}
		registerErr = agent.ExposeAgent(conn, ag, agent.CapNoInputNoOutput, true)
	})
	return registerErr
}
