// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Session owns the byte handler, the packet/compression codec stack, and
// the conversation sequence counter for one MySQL connection, exposing
// exactly the operations this core's consumers need. It does not implement
// database/sql's driver.Conn/driver.Stmt — parameter binding and statement
// preparation are external collaborators.
type Session struct {
	cfg *Config

	netConn net.Conn
	rawConn net.Conn // the pre-TLS socket, kept after an upgrade for diagnostics

	buf    *buffer
	stream byteStream
	conv   *conversation

	state      int32 // ConnState, accessed atomically so TryPing/fail race safely
	closed     atomicBool
	canceled   atomic.Value // holds *CancelledError once the watcher fires
	compressed bool

	flags         clientFlag
	status        statusFlag
	serverVersion string
	connectionID  uint32
	authData      [20]byte // handshake nonce, reused for COM_CHANGE_USER's pre-AuthSwitch hash

	maxAllowedPacket int

	lastAffectedRows int64
	lastInsertID     int64

	chCancel        chan cancelRequest
	closeSignal     chan struct{}
	closeOnce       sync.Once
	watcherGroup    *errgroup.Group
	watcherGroupCtx context.Context

	// Pool and PoolGeneration are carried straight through from Config as a
	// weak, non-owning back-reference.
	pool           any
	poolGeneration uint64
}

// NewSession constructs a Session in state Created. Connect must be called
// exactly once before any other operation.
func NewSession(cfg *Config) *Session {
	return &Session{
		cfg:            cfg,
		state:          int32(StateCreated),
		closeSignal:    make(chan struct{}),
		pool:           cfg.Pool,
		poolGeneration: cfg.PoolGeneration,
	}
}

func (mc *Session) State() ConnState { return ConnState(atomic.LoadInt32(&mc.state)) }

func (mc *Session) setState(s ConnState) { atomic.StoreInt32(&mc.state, int32(s)) }

// startConversation resets the packet sequence counter for a new
// caller-initiated exchange. When the connection is compressed, the
// compressor keeps its own sequence counter on top of the packet layer's,
// and that counter resets on the same cadence: the server restarts its
// compressed sequence at 0 for every new command, not just the first one.
func (mc *Session) startConversation() {
	mc.conv.startNew()
	if mc.compressed {
		if c, ok := mc.stream.(*compressor); ok {
			c.resetSequence()
		}
	}
}

// checkUsable enforces that any operation other than Dispose on a
// non-Connected session fails with ObjectDisposedError (Closed) or
// InvalidStateError (Failed/Created).
func (mc *Session) checkUsable(op string) error {
	switch mc.State() {
	case StateConnected:
		return nil
	case StateClosed:
		return &ObjectDisposedError{Op: op}
	default:
		return &InvalidStateError{State: mc.State(), Op: op}
	}
}

// fail marks the session Failed and closes the socket, returning the
// effective error to surface: a *CancelledError if the watcher closed the
// socket in response to context cancellation, otherwise err unchanged.
// Any send/receive fault classifies the session Failed before surfacing
// the error to the caller.
func (mc *Session) fail(err error) error {
	if cerr := mc.cancelErr(); cerr != nil {
		err = cerr
	}
	if mc.closed.Swap(true) {
		return err
	}
	mc.setState(StateFailed)
	mc.cfg.logger().Print(err)
	if mc.netConn != nil {
		mc.netConn.Close()
	}
	return err
}

// cancelErr returns the *CancelledError recorded by the watcher goroutine,
// if a caller's context was the reason the socket got closed.
func (mc *Session) cancelErr() error {
	v := mc.canceled.Load()
	if v == nil {
		return nil
	}
	return v.(error)
}

// cleanup is the watcher's hammer: force the socket closed so a blocked
// read/write unblocks with an error. Called both on context cancellation
// (with the cause recorded via setCanceled first) and is safe to call
// more than once.
func (mc *Session) cleanup() {
	if mc.closed.Swap(true) {
		return
	}
	mc.setState(StateFailed)
	if mc.netConn != nil {
		mc.netConn.Close()
	}
}

// setCanceled records why the watcher is about to call cleanup, so the
// blocked read/write that's about to fail can report CancelledError
// instead of a generic socket error.
func (mc *Session) setCanceled(cause error) {
	mc.canceled.Store(&CancelledError{Err: cause})
}

/******************************************************************************
*                                 Connect                                     *
******************************************************************************/

// Connect dials each host in order, reads and validates the initial
// handshake, optionally upgrades to TLS, and authenticates via
// mysql_native_password.
func (mc *Session) Connect(ctx context.Context, cfg *Config) error {
	if mc.State() != StateCreated {
		return &InvalidStateError{State: mc.State(), Op: "connect"}
	}
	mc.cfg = cfg

	conn, err := dialFirst(ctx, cfg.Hosts, cfg.Port)
	if err != nil {
		mc.setState(StateFailed)
		return err
	}

	mc.netConn = conn
	mc.rawConn = conn
	mc.buf = newBuffer(conn)
	mc.buf.setReadTimeout(cfg.ReadTimeout)
	mc.buf.setWriteTimeout(cfg.WriteTimeout)
	mc.stream = mc.buf
	mc.conv = &conversation{}
	mc.maxAllowedPacket = cfg.maxAllowedPacket()
	mc.closeSignal = make(chan struct{})
	mc.startWatcher()

	done, err := mc.watchCancel(ctx)
	if err != nil {
		conn.Close()
		mc.setState(StateFailed)
		return err
	}
	defer close(done)

	if err := mc.handshake(cfg); err != nil {
		mc.setState(StateFailed)
		conn.Close()
		return err
	}

	mc.setState(StateConnected)
	return nil
}

// dialFirst tries each host's address in order until one TCP connect
// succeeds, or returns the last error if all fail.
func dialFirst(ctx context.Context, hosts []string, port int) (net.Conn, error) {
	var lastErr error
	d := &net.Dialer{}
	for _, host := range hosts {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrInvalidConn
	}
	return nil, lastErr
}

/******************************************************************************
*                          Send/Receive primitives                           *
******************************************************************************/

// Send starts a new conversation and writes payload as its first packet.
func (mc *Session) Send(ctx context.Context, payload []byte) error {
	if err := mc.checkUsable("send"); err != nil {
		return err
	}
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return err
	}
	defer close(done)

	mc.startConversation()
	data, err := mc.buf.takeBuffer(len(payload) + 4)
	if err != nil {
		mc.fail(err)
		return errBadConnNoWrite
	}
	copy(data[4:], payload)
	return mc.writePacket(data)
}

// Receive starts a new conversation and reads its first packet.
func (mc *Session) Receive(ctx context.Context) ([]byte, error) {
	if err := mc.checkUsable("receive"); err != nil {
		return nil, err
	}
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return nil, err
	}
	defer close(done)

	mc.startConversation()
	return mc.readPacket()
}

// SendReply continues the current conversation without resetting its
// sequence counter.
func (mc *Session) SendReply(ctx context.Context, payload []byte) error {
	if err := mc.checkUsable("send_reply"); err != nil {
		return err
	}
	if err := mc.conv.requireStarted("send_reply"); err != nil {
		return err
	}
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return err
	}
	defer close(done)

	data, err := mc.buf.takeBuffer(len(payload) + 4)
	if err != nil {
		mc.fail(err)
		return errBadConnNoWrite
	}
	copy(data[4:], payload)
	return mc.writePacket(data)
}

// ReceiveReply continues the current conversation.
func (mc *Session) ReceiveReply(ctx context.Context) ([]byte, error) {
	if err := mc.checkUsable("receive_reply"); err != nil {
		return nil, err
	}
	if err := mc.conv.requireStarted("receive_reply"); err != nil {
		return nil, err
	}
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return nil, err
	}
	defer close(done)

	return mc.readPacket()
}

/******************************************************************************
*                              Ping / Dispose                                 *
******************************************************************************/

// TryPing sends COM_PING and swallows EOF/socket errors, returning false
// instead.
func (mc *Session) TryPing(ctx context.Context) bool {
	if mc.State() != StateConnected {
		return false
	}
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return false
	}
	defer close(done)

	if err := mc.writeCommandPacket(comPing); err != nil {
		return false
	}
	return mc.readResultOK() == nil
}

// Dispose performs a best-effort COM_QUIT (ignoring protocol errors),
// shuts the socket down, and moves the session to Closed. It is the only
// operation legal from any state, and is safe to call more than once.
func (mc *Session) Dispose(ctx context.Context) {
	mc.closeOnce.Do(func() {
		if mc.State() == StateConnected && mc.conv != nil {
			mc.startConversation()
			mc.conv.behavior = protocolErrorIgnore
			if data, err := mc.buf.takeSmallBuffer(5); err == nil {
				data[4] = comQuit
				_ = mc.writePacket(data)
			}
		}
		mc.stopWatcher()
		if mc.netConn != nil {
			mc.netConn.Close()
		}
		mc.setState(StateClosed)
		mc.closed.Store(true)
	})
}

// OpenResultSet assumes the caller already sent the query payload via
// Send, and reads the result-set header immediately.
func (mc *Session) OpenResultSet(ctx context.Context) (*ResultSetCursor, error) {
	if err := mc.checkUsable("open_result_set"); err != nil {
		return nil, err
	}
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return nil, err
	}
	defer close(done)

	return openResultSet(mc)
}

// Pool and PoolGeneration expose the opaque pool identity threaded through
// from Config as a weak back-reference; the core never dereferences
// either value.
func (mc *Session) Pool() any              { return mc.pool }
func (mc *Session) PoolGeneration() uint64 { return mc.poolGeneration }

// LastAffectedRows / LastInsertID expose the most recent OK payload's
// fields.
func (mc *Session) LastAffectedRows() int64 { return mc.lastAffectedRows }
func (mc *Session) LastInsertID() int64     { return mc.lastInsertID }
