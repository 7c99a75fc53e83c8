// Package tcpclient implements a shot.Sink that dials a golf simulator's
// TCP port and re-emits each shot as a newline-delimited JSON line,
// reconnecting with backoff on write failure (SPEC_FULL.md §4).
package tcpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jrayres/r10-bridge/shot"
)

const (
	minBackoff = 1 * time.Second
	maxBackoff = 30 * time.Second
	dialTimeout = 5 * time.Second
)

// Client is a shot.Sink that forwards shots to a simulator over a
// reconnecting TCP connection.
type Client struct {
	addr string
	log  *logrus.Entry

	mu      sync.Mutex
	conn    net.Conn
	backoff time.Duration
}

var _ shot.Sink = (*Client)(nil)

// New returns a Client targeting addr. The connection is established
// lazily on the first OnShot call.
func New(addr string, log *logrus.Entry) *Client {
	return &Client{addr: addr, log: log.WithField("sink", "tcpclient"), backoff: minBackoff}
}

type wireRecord struct {
	ShotID           uint32  `json:"shot_id"`
	BallSpeedMPH     float64 `json:"ball_speed_mph"`
	ClubHeadSpeedMPH float64 `json:"club_head_speed_mph"`
	SpinAxisDeg      float64 `json:"spin_axis_deg"`
	TotalSpinRPM     float64 `json:"total_spin_rpm"`
	SideSpinRPM      float64 `json:"side_spin_rpm"`
	BackSpinRPM      float64 `json:"back_spin_rpm"`
	LaunchAngleDeg   float64 `json:"launch_angle_deg"`
	LaunchDirDeg     float64 `json:"launch_dir_deg"`
	AttackAngleDeg   float64 `json:"attack_angle_deg"`
	ClubFaceDeg      float64 `json:"club_face_deg"`
	ClubPathDeg      float64 `json:"club_path_deg"`
}

func toWire(r shot.Record) wireRecord {
	return wireRecord{
		ShotID: r.ShotID, BallSpeedMPH: r.BallSpeedMPH, ClubHeadSpeedMPH: r.ClubHeadSpeedMPH,
		SpinAxisDeg: r.SpinAxisDeg, TotalSpinRPM: r.TotalSpinRPM, SideSpinRPM: r.SideSpinRPM,
		BackSpinRPM: r.BackSpinRPM, LaunchAngleDeg: r.LaunchAngleDeg, LaunchDirDeg: r.LaunchDirDeg,
		AttackAngleDeg: r.AttackAngleDeg, ClubFaceDeg: r.ClubFaceDeg, ClubPathDeg: r.ClubPathDeg,
	}
}

// OnShot marshals r as a JSON line and writes it to the simulator
// connection, reconnecting first if needed.
func (c *Client) OnShot(r shot.Record) {
	line, err := json.Marshal(toWire(r))
	if err != nil {
		c.log.WithError(err).Error("tcpclient: marshal shot")
		return
	}
	line = append(line, '\n')

	if err := c.write(line); err != nil {
		c.log.WithError(err).WithField("shot_id", r.ShotID).Warn("tcpclient: write failed")
	}
}

// OnReadinessChanged and OnError are logged only; the simulator protocol
// carries no readiness/error channel of its own.
func (c *Client) OnReadinessChanged(ready bool) {
	c.log.WithField("ready", ready).Info("tcpclient: readiness changed")
}

func (c *Client) OnError(err error) {
	c.log.WithError(err).Warn("tcpclient: upstream error")
}

func (c *Client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.dialLocked(); err != nil {
			return err
		}
	}

	if _, err := bytes.NewReader(b).WriteTo(c.conn); err != nil {
		c.conn.Close()
		c.conn = nil
		if dialErr := c.dialLocked(); dialErr != nil {
			return fmt.Errorf("write failed, reconnect failed: %w", dialErr)
		}
		_, err = bytes.NewReader(b).WriteTo(c.conn)
		return err
	}
	c.backoff = minBackoff
	return nil
}

func (c *Client) dialLocked() error {
	conn, err := net.DialTimeout("tcp", c.addr, dialTimeout)
	if err != nil {
		time.Sleep(c.backoff)
		c.backoff *= 2
		if c.backoff > maxBackoff {
			c.backoff = maxBackoff
		}
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}
	c.conn = conn
	return nil
}

// Close closes the underlying connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
