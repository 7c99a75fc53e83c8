// Package bridge owns the top-level connect/setup/reconnect loop: one
// Transport and Session exist per connected RemoteDevice, torn down and
// rebuilt on every disconnect signal (spec.md §3, §9 "Reconnect policy").
package bridge

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"github.com/jrayres/r10-bridge/ble"
	"github.com/jrayres/r10-bridge/metrics"
	"github.com/jrayres/r10-bridge/session"
	"github.com/jrayres/r10-bridge/shot"
)

// Config carries everything the reconnect loop needs to build a Transport
// and drive a Session's setup sequence.
type Config struct {
	HCIIndex       int
	MAC            string
	ReconnectDelay time.Duration
	AutoWake       bool
	CalibrateTilt  bool
	Environment    session.EnvironmentConfig
}

// Run drives the connect → setup → run-until-disconnect → reconnect loop
// until ctx is cancelled.
func Run(ctx context.Context, cfg Config, sink shot.Sink, log *logrus.Entry) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := runOnce(ctx, cfg, sink, log); err != nil {
			log.WithError(err).Warn("bridge: connect/setup failed, retrying")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.ReconnectDelay):
			metrics.Reconnects.Inc()
		}
	}
}

// runOnce performs one full connect→setup→serve cycle, returning once the
// device disconnects or setup fails.
func runOnce(ctx context.Context, cfg Config, sink shot.Sink, log *logrus.Entry) error {
	addr, err := ble.ParseAddress(cfg.MAC)
	if err != nil {
		return err
	}

	transport := ble.NewTransport(cfg.HCIIndex, log.WithField("component", "gatt"))
	if err := transport.Enable(); err != nil {
		return err
	}

	if _, err := ble.ScanForDevice(ctx, bluetooth.DefaultAdapter, cfg.MAC, log.WithField("component", "scan")); err != nil {
		return err
	}

	if err := transport.Connect(ctx, addr, cfg.MAC); err != nil {
		return err
	}

	sess := session.New(transport, sink, cfg.AutoWake, log.WithField("component", "session"))

	devPath := ble.DevicePath(cfg.HCIIndex, cfg.MAC)
	disconnected, err := ble.WatchDisconnect(ctx, devPath)
	if err != nil {
		sess.Close()
		return err
	}

	info, err := sess.Setup(ctx, cfg.Environment, cfg.CalibrateTilt)
	if err != nil {
		sess.Close()
		return err
	}
	log.WithField("serial", info.Serial).WithField("model", info.Model).
		WithField("firmware", info.Firmware).WithField("battery_pct", info.BatteryPct).
		Info("bridge: session established")

	select {
	case <-disconnected:
		log.Warn("bridge: device disconnected, tearing down session")
	case <-ctx.Done():
	}

	return sess.Close()
}
