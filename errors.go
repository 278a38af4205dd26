// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"errors"
	"fmt"
)

// Sentinel errors. Kept as package-level values rather than ad-hoc
// fmt.Errorf at every call site.
var (
	ErrInvalidConn  = errors.New("mysql: invalid connection")
	ErrPktSync      = errors.New("mysql: commands out of sync; sequence mismatch")
	ErrPktSyncMul   = errors.New("mysql: commands out of sync; did you run multiple statements at once?")
	ErrPktTooLarge  = errors.New("mysql: writing a packet larger than max_allowed_packet")
	ErrBusyBuffer   = errors.New("mysql: busy buffer")
	ErrMalformPkt   = errors.New("mysql: malformed packet")
	ErrOldProtocol  = errors.New("mysql: this server only supports the old, insecure authentication protocol")
	ErrNoTLS        = errors.New("mysql: SSL is required but the server does not advertise CLIENT_SSL")

	errBadConnNoWrite = errors.New("mysql: bad connection, no data was written")

	// ErrConversationNotStarted is returned when SendReply/ReceiveReply is
	// called without a preceding Send/Receive on the conversation.
	ErrConversationNotStarted = errors.New("mysql: send_reply/receive_reply called without a preceding send/receive")
)

// ConnState is a Session's lifecycle state.
type ConnState int

const (
	StateCreated ConnState = iota
	StateConnected
	StateClosed
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InvalidStateError is returned when an operation other than Dispose is
// attempted on a Failed or Created session.
type InvalidStateError struct {
	State ConnState
	Op    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("mysql: invalid state %s for operation %q", e.State, e.Op)
}

// ObjectDisposedError is returned when an operation other than Dispose is
// attempted on a Closed session.
type ObjectDisposedError struct {
	Op string
}

func (e *ObjectDisposedError) Error() string {
	return fmt.Sprintf("mysql: session is closed, cannot %q", e.Op)
}

// ProtocolError signals malformed framing, an unsupported capability, an
// unexpected payload shape, or a column value that cannot be decoded.
// Sequence mismatches are reported as ErrPktSync/ErrPktSyncMul instead.
// The session is marked Failed when the error comes out of the packet
// reader or out of Connect; a decode error from ResultSetCursor.Value
// leaves the session's state unchanged.
type ProtocolError struct {
	Msg string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mysql: protocol error: %s: %v", e.Msg, e.Err)
	}
	return "mysql: protocol error: " + e.Msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// AuthenticationError is returned when the server refuses credentials or
// requires a plugin this core does not implement.
type AuthenticationError struct {
	Msg string
}

func (e *AuthenticationError) Error() string { return "mysql: authentication failed: " + e.Msg }

// UnsupportedError is returned for LOCAL INFILE, prepared statements, the
// binary row protocol, or an unrecognized column type — all explicit
// this core does not implement.
type UnsupportedError struct {
	Feature string
}

func (e *UnsupportedError) Error() string { return "mysql: unsupported: " + e.Feature }

// CancelledError wraps a caller-supplied context cancellation observed
// mid-I/O.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string { return "mysql: operation cancelled: " + e.Err.Error() }
func (e *CancelledError) Unwrap() error  { return e.Err }

// MySQLError is the typed domain error decoded from an ERR payload
// (header 0xFF). Receiving one does NOT fail the session.
type MySQLError struct {
	Number  uint16
	SQLState [5]byte
	Message string
}

func (e *MySQLError) Error() string {
	if e.SQLState != ([5]byte{}) {
		return fmt.Sprintf("Error %d (%s): %s", e.Number, e.SQLState, e.Message)
	}
	return fmt.Sprintf("Error %d: %s", e.Number, e.Message)
}
