package tcpserver

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/jrayres/r10-bridge/shot"
)

func TestOnShotFansOutToConnectedClients(t *testing.T) {
	log := logrus.NewEntry(logrus.New())
	s, err := Listen("127.0.0.1:0", log)
	require.NoError(t, err)
	defer s.Close()

	addr := s.ln.Addr().String()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	// give acceptLoop a moment to register the client.
	time.Sleep(50 * time.Millisecond)

	s.OnShot(shot.Record{ShotID: 42, BallSpeedMPH: 150})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, line, `"shot_id":42`)
}
