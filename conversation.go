// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// protocolErrorBehavior selects how a conversation reacts to a sequence
// mismatch. Every exchange uses Throw except the best-effort COM_QUIT sent
// from Dispose, which uses Ignore.
type protocolErrorBehavior int

const (
	protocolErrorThrow protocolErrorBehavior = iota
	protocolErrorIgnore
)

// conversation owns the sequence-number counter for one caller-initiated
// request/response turn. Send/Receive call startNew; SendReply/ReceiveReply
// continue the current conversation without resetting the counter.
type conversation struct {
	next     uint8
	started  bool // true once startNew has been called at least once
	behavior protocolErrorBehavior
}

// startNew resets the sequence counter to 0. Called exactly once per
// caller-initiated, non-reply exchange.
func (c *conversation) startNew() {
	c.next = 0
	c.started = true
	c.behavior = protocolErrorThrow
}

// take returns the sequence byte to stamp on the next outbound packet and
// advances the counter, mod 256.
func (c *conversation) take() uint8 {
	seq := c.next
	c.next++
	return seq
}

// expect validates an inbound packet's sequence byte against the counter,
// then advances it. Under protocolErrorIgnore (used only during the QUIT
// cleanup send) a mismatch is swallowed rather than surfaced.
func (c *conversation) expect(got uint8) error {
	want := c.next
	c.next++
	if got == want {
		return nil
	}
	if c.behavior == protocolErrorIgnore {
		return nil
	}
	if got > want {
		return ErrPktSyncMul
	}
	return ErrPktSync
}

// requireStarted rejects a reply call (SendReply/ReceiveReply) made
// without a preceding Send/Receive on this conversation.
func (c *conversation) requireStarted(op string) error {
	if !c.started {
		return ErrConversationNotStarted
	}
	return nil
}
