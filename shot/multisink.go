package shot

// MultiSink fans every Sink method out to all of its members, in order. It
// lets the daemon wire more than one downstream consumer (e.g. the TCP
// client and the TCP fan-out server) to one Session.
type MultiSink []Sink

var _ Sink = MultiSink(nil)

func (m MultiSink) OnShot(r Record) {
	for _, s := range m {
		s.OnShot(r)
	}
}

func (m MultiSink) OnReadinessChanged(ready bool) {
	for _, s := range m {
		s.OnReadinessChanged(ready)
	}
}

func (m MultiSink) OnError(err error) {
	for _, s := range m {
		s.OnError(err)
	}
}
