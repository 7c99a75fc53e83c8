package session

// handleStatusNotification decodes the status characteristic's isAwake/
// isReady byte flags (spec.md §9: bytes 1 and 2) and caches them. Per
// spec.md's open question, this is informational only — the protobuf
// Alert stream is authoritative for device state, so the cached flags are
// never acted on here.
func (s *Session) handleStatusNotification(b []byte) {
	if len(b) < 3 {
		s.log.WithField("len", len(b)).Debug("session: short status notification, ignoring")
		return
	}

	s.stateMu.Lock()
	s.cachedStatus.isAwake = b[1] != 0
	s.cachedStatus.isReady = b[2] != 0
	s.cachedStatus.valid = true
	s.stateMu.Unlock()
}

// CachedStatusFlags returns the last isAwake/isReady flags observed on the
// status characteristic, if any.
func (s *Session) CachedStatusFlags() (isAwake, isReady, ok bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.cachedStatus.isAwake, s.cachedStatus.isReady, s.cachedStatus.valid
}
