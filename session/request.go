package session

import (
	"fmt"
	"time"

	"github.com/jrayres/r10-bridge/metrics"
)

// sendRequest serialises one protobuf request under the Session-wide
// mutex (spec.md §4.5): only one request is ever in flight, so responses
// necessarily arrive in request order. On every timeout the counter is
// advanced unconditionally — the device considers the request consumed
// and advances its own counter regardless of whether the host saw a
// reply, so failing to advance here would permanently desynchronise
// classification (spec.md §7 RequestTimeout).
func (s *Session) sendRequest(body []byte) ([]byte, error) {
	s.requestMu.Lock()
	defer s.requestMu.Unlock()

	for attempt := 0; attempt < requestMaxRetries; attempt++ {
		counter := s.counter
		respCh := make(chan []byte, 1)

		s.pendingCounter = counter
		s.pendingActive = true
		s.responseCh = respCh

		s.sendFramed(buildRequestFrame(counter, body))

		select {
		case resp := <-respCh:
			s.pendingActive = false
			s.counter++
			return resp, nil
		case <-time.After(requestTimeout):
			s.counter++
			s.pendingActive = false
			metrics.RequestTimeouts.Inc()
			s.log.WithField("counter", counter).Warn("session: request timed out, advancing counter")
		case <-s.ctx.Done():
			s.pendingActive = false
			return nil, fmt.Errorf("%w: %w", ErrRequestTimeout, s.ctx.Err())
		}
	}

	return nil, ErrRequestTimeout
}
