package mysql

import "net"

// newTestSession builds a Session around an already-connected net.Conn,
// skipping Connect/handshake so packet-level tests can drive the wire
// directly. Used by packets_test.go, resultset_test.go, and
// conversation_test.go.
func newTestSession(conn net.Conn) *Session {
	mc := &Session{
		cfg:         &Config{},
		netConn:     conn,
		conv:        &conversation{},
		closeSignal: make(chan struct{}),
	}
	mc.setState(StateConnected)
	mc.buf = newBuffer(conn)
	mc.stream = mc.buf
	mc.maxAllowedPacket = maxPacketSize
	mc.startWatcher()
	return mc
}
