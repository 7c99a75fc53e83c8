// Command r10bridge runs the Garmin Approach R10 BLE-to-simulator bridge
// daemon, and exposes a one-shot host-pairing helper.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/jrayres/r10-bridge/bridge"
	"github.com/jrayres/r10-bridge/config"
	"github.com/jrayres/r10-bridge/session"
	"github.com/jrayres/r10-bridge/shot"
	"github.com/jrayres/r10-bridge/sink/httpputt"
	"github.com/jrayres/r10-bridge/sink/tcpclient"
	"github.com/jrayres/r10-bridge/sink/tcpserver"
)

func main() {
	cmd := &cli.Command{
		Name:  "r10bridge",
		Usage: "bridge a Garmin Approach R10 launch monitor to a TCP-speaking golf simulator",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to config.yaml"},
			&cli.StringFlag{Name: "env", Value: ".env", Usage: "path to .env overrides"},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the bridge daemon",
				Action: runAction,
			},
			{
				Name:   "pair",
				Usage:  "perform one-time host-level bonding with the device (bluetoothctl helper, not part of the core driver)",
				Action: pairAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "r10bridge:", err)
		os.Exit(1)
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return err
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	entry := logrus.NewEntry(log)

	multi, closers, err := buildSinks(cfg, entry)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	if cfg.Metrics.BindAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.BindAddr, mux); err != nil {
				entry.WithError(err).Warn("r10bridge: metrics server stopped")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridgeCfg := bridge.Config{
		HCIIndex:       cfg.Adapter.HCIIndex,
		MAC:            cfg.Device.MAC,
		ReconnectDelay: cfg.Device.ReconnectDelay,
		AutoWake:       cfg.Device.AutoWake,
		CalibrateTilt:  cfg.Device.CalibrateTilt,
		Environment: session.EnvironmentConfig{
			TemperatureF: cfg.Environment.TemperatureF,
			Humidity:     cfg.Environment.Humidity,
			AltitudeM:    cfg.Environment.AltitudeM,
			AirDensity:   cfg.Environment.AirDensity,
			TeeRangeM:    cfg.Environment.TeeRangeM,
		},
	}

	return bridge.Run(ctx, bridgeCfg, multi, entry)
}

// buildSinks wires whichever downstream sinks the config names into one
// shot.MultiSink, returning close funcs for any that own a listener/
// connection.
func buildSinks(cfg *config.Config, log *logrus.Entry) (shot.MultiSink, []func(), error) {
	var multi shot.MultiSink
	var closers []func()

	if cfg.Sinks.SimulatorTCPAddr != "" {
		c := tcpclient.New(cfg.Sinks.SimulatorTCPAddr, log)
		multi = append(multi, c)
		closers = append(closers, func() { c.Close() })
	}

	if cfg.Sinks.ServerListenAddr != "" {
		s, err := tcpserver.Listen(cfg.Sinks.ServerListenAddr, log)
		if err != nil {
			return nil, nil, fmt.Errorf("tcpserver: %w", err)
		}
		multi = append(multi, s)
		closers = append(closers, func() { s.Close() })
	}

	if cfg.Sinks.HTTPBindAddr != "" {
		h := httpputt.New(cfg.Sinks.HTTPBindAddr, log)
		go func() {
			if err := h.ListenAndServe(); err != nil {
				log.WithError(err).Warn("r10bridge: httpputt server stopped")
			}
		}()
		closers = append(closers, func() { h.Shutdown(context.Background()) })
	}

	return multi, closers, nil
}

// pairAction shells out to bluetoothctl to perform host-level bonding. This
// is explicitly outside the core driver (spec.md §1's "what this spec does
// not cover" list): the protected notifier's in-band pairing works without
// a prior bond, but a persisted bond avoids repeating it on every connect.
func pairAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return err
	}
	if cfg.Device.MAC == "" {
		return fmt.Errorf("pair: device.mac not set in config")
	}

	script := fmt.Sprintf("agent NoInputNoOutput\ndefault-agent\npair %s\ntrust %s\nquit\n", cfg.Device.MAC, cfg.Device.MAC)
	c := exec.CommandContext(ctx, "bluetoothctl")
	c.Stdin = strings.NewReader(script)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
