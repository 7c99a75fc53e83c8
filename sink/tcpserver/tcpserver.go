// Package tcpserver implements a shot.Sink that listens for simulator-side
// TCP connections and fans the same JSON-line representation out to every
// connected client (SPEC_FULL.md §4), for simulators that dial us instead
// of us dialing them.
package tcpserver

import (
	"encoding/json"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jrayres/r10-bridge/shot"
)

// Server is a shot.Sink that fans shots out to every connected TCP client.
type Server struct {
	log *logrus.Entry

	mu      sync.Mutex
	clients map[net.Conn]struct{}

	ln net.Listener
}

var _ shot.Sink = (*Server)(nil)

// Listen starts accepting connections on addr and returns a Server ready
// to fan shots out to them.
func Listen(addr string, log *logrus.Entry) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		log:     log.WithField("sink", "tcpserver"),
		clients: make(map[net.Conn]struct{}),
		ln:      ln,
	}
	go s.acceptLoop()
	return s, nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.clients[conn] = struct{}{}
		s.mu.Unlock()
		s.log.WithField("remote", conn.RemoteAddr()).Info("tcpserver: client connected")
		go s.watchClient(conn)
	}
}

// watchClient removes a client once its read side errors (disconnect);
// this sink is write-only, so any inbound bytes are discarded.
func (s *Server) watchClient(conn net.Conn) {
	buf := make([]byte, 512)
	for {
		if _, err := conn.Read(buf); err != nil {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
			return
		}
	}
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

// OnShot marshals r and writes it to every currently connected client,
// dropping any client whose write fails.
func (s *Server) OnShot(r shot.Record) {
	line, err := json.Marshal(wireRecord{
		ShotID: r.ShotID, BallSpeedMPH: r.BallSpeedMPH, ClubHeadSpeedMPH: r.ClubHeadSpeedMPH,
		SpinAxisDeg: r.SpinAxisDeg, TotalSpinRPM: r.TotalSpinRPM, SideSpinRPM: r.SideSpinRPM,
		BackSpinRPM: r.BackSpinRPM, LaunchAngleDeg: r.LaunchAngleDeg, LaunchDirDeg: r.LaunchDirDeg,
		AttackAngleDeg: r.AttackAngleDeg, ClubFaceDeg: r.ClubFaceDeg, ClubPathDeg: r.ClubPathDeg,
	})
	if err != nil {
		s.log.WithError(err).Error("tcpserver: marshal shot")
		return
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if _, err := conn.Write(line); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func (s *Server) OnReadinessChanged(ready bool) {
	s.log.WithField("ready", ready).Info("tcpserver: readiness changed")
}

func (s *Server) OnError(err error) {
	s.log.WithError(err).Warn("tcpserver: upstream error")
}

// Close stops accepting new connections and closes all current clients.
func (s *Server) Close() error {
	err := s.ln.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
	return err
}
