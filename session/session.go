// Package session implements the R10 device session: the handshake,
// request/response correlation, asynchronous alert dispatch, and the
// writer/reader/processor worker pipeline described in spec.md §4.5–4.6.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jrayres/r10-bridge/ble"
	"github.com/jrayres/r10-bridge/crc16"
	"github.com/jrayres/r10-bridge/frame"
	"github.com/jrayres/r10-bridge/metrics"
	"github.com/jrayres/r10-bridge/r10proto"
	"github.com/jrayres/r10-bridge/shot"
)

// queueCapacity bounds every worker's channel. BLE notification bursts are
// naturally throttled by the link, so a small bound is enough; a full
// channel indicates a wedged worker rather than ordinary backpressure
// (spec.md §9).
const queueCapacity = 64

var (
	ErrHandshakeTimeout = errors.New("session: handshake timed out")
	ErrRequestTimeout   = errors.New("session: request timed out")
	ErrNotConnected     = errors.New("session: not connected")
)

// requestTimeout and handshakeTimeout are vars, not consts, so tests can
// shrink them instead of waiting out the production timeout window.
var (
	handshakeTimeout = 10 * time.Second
	requestTimeout   = 5 * time.Second
)

const requestMaxRetries = 3

// Session is one connected, handshaken link to the R10. Exactly one
// Session may exist per RemoteDevice (spec.md §3); the caller is
// responsible for not constructing a second one before tearing the first
// down.
type Session struct {
	id        string
	transport ble.GattTransport
	sink      shot.Sink
	log       *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	writerQueue    chan []byte
	readerQueue    chan []byte
	processorQueue chan []byte

	reassembler *frame.Reassembler

	handshakeMu       sync.Mutex
	handshakeComplete bool
	handshakeReady    chan struct{}
	headerByte        byte

	// requestMu serialises sendRequest calls; at most one request is ever
	// in flight, so responses necessarily arrive in request order.
	requestMu      sync.Mutex
	counter        uint32
	pendingCounter uint32
	pendingActive  bool
	responseCh     chan []byte

	stateMu        sync.Mutex
	lastState      *r10proto.State // latest known State, nil until first observed
	processedShots map[uint32]struct{}
	cachedTilt     struct {
		roll, pitch float64
		valid       bool
	}
	cachedStatus struct {
		isAwake, isReady bool
		valid            bool
	}
	autoWake bool
}

// New constructs a Session around an already-connected transport. Workers
// are not started until Start is called.
func New(transport ble.GattTransport, sink shot.Sink, autoWake bool, log *logrus.Entry) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:             uuid.NewString(),
		transport:      transport,
		sink:           sink,
		log:            log.WithField("session", uuid.NewString()[:8]),
		ctx:            ctx,
		cancel:         cancel,
		writerQueue:    make(chan []byte, queueCapacity),
		readerQueue:    make(chan []byte, queueCapacity),
		processorQueue: make(chan []byte, queueCapacity),
		reassembler:    frame.NewReassembler(),
		handshakeReady: make(chan struct{}),
		processedShots: make(map[uint32]struct{}),
		autoWake:       autoWake,
	}
}

// Start launches the writer, reader, and processor workers. The reader
// worker is fed by onNotify, which the caller must register as the
// NotificationHandler on the protected device-interface notifier.
func (s *Session) Start() {
	s.wg.Add(3)
	go s.writerLoop()
	go s.readerLoop()
	go s.processorLoop()
}

// Close cancels all workers and releases any outstanding sendRequest
// waiter with a timeout outcome, then closes the transport.
func (s *Session) Close() error {
	s.cancel()
	s.wg.Wait()
	return s.transport.Close()
}

// onNotify is the NotificationHandler registered on the protected
// notifier; it only enqueues, preserving BLE notification order into the
// reader worker.
func (s *Session) onNotify(b []byte) {
	cp := append([]byte(nil), b...)
	select {
	case s.readerQueue <- cp:
	case <-s.ctx.Done():
	default:
		s.log.Warn("session: reader queue full, dropping notification")
	}
}

func (s *Session) writerLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case chunk := <-s.writerQueue:
			if err := s.transport.WriteChunk(s.ctx, chunk); err != nil {
				s.log.WithError(err).Warn("session: write failed")
			}
		case <-ticker.C:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) readerLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case b := <-s.readerQueue:
			s.handleNotification(b)
		case <-ticker.C:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) handleNotification(b []byte) {
	if len(b) == 0 {
		return
	}

	s.handshakeMu.Lock()
	complete := s.handshakeComplete
	s.handshakeMu.Unlock()

	headerByte := b[0]
	if headerByte == 0x00 || !complete {
		s.advanceHandshake(b)
		return
	}

	payload, err := s.reassembler.Feed(b[1:])
	if err != nil {
		if errors.Is(err, crc16.ErrChecksumMismatch) {
			metrics.ChecksumErrors.Inc()
		}
		s.log.WithError(err).Debug("session: dropping malformed/corrupt frame")
		return
	}
	if payload == nil {
		return
	}

	select {
	case s.processorQueue <- payload:
	case <-s.ctx.Done():
	default:
		s.log.Warn("session: processor queue full, dropping frame")
	}
}

func (s *Session) processorLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case payload := <-s.processorQueue:
			s.classify(payload)
		case <-ticker.C:
		case <-s.ctx.Done():
			return
		}
	}
}

// enqueueWrite pushes a chunk onto the writer queue, respecting
// cancellation.
func (s *Session) enqueueWrite(chunk []byte) {
	select {
	case s.writerQueue <- chunk:
	case <-s.ctx.Done():
	}
}

// sendFramed wire-frames msg per spec.md §4.3 (length‖CRC16, COBS-encoded,
// sentinel-bounded, chunked under the negotiated header byte) and enqueues
// every resulting chunk for the writer loop. Only the handshake's literal
// byte sequences bypass this; every post-handshake write goes through it.
func (s *Session) sendFramed(msg []byte) {
	for _, chunk := range frame.Build(msg, s.HeaderByte()) {
		s.enqueueWrite(chunk)
	}
}

// HeaderByte returns the negotiated session header byte. It is only valid
// after the handshake completes.
func (s *Session) HeaderByte() byte {
	s.handshakeMu.Lock()
	defer s.handshakeMu.Unlock()
	return s.headerByte
}

// Ready reports whether the cached device state equals Waiting.
func (s *Session) Ready() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastState != nil && *s.lastState == r10proto.StateWaiting
}

// setState updates the cached device state and fires onReadinessChanged
// exactly once per Waiting⇄non-Waiting transition (spec.md §4.6).
func (s *Session) setState(state r10proto.State) {
	s.stateMu.Lock()
	wasReady := s.lastState != nil && *s.lastState == r10proto.StateWaiting
	st := state
	s.lastState = &st
	isReady := state == r10proto.StateWaiting
	s.stateMu.Unlock()

	if isReady != wasReady {
		s.sink.OnReadinessChanged(isReady)
	}
}
