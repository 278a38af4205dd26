// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"io"
	"net"
	"time"
)

const defaultBufSize = 4 * 1024

const maxCachedBufSize = 256 * 1024

// buffer reads/writes raw bytes over a socket, and doubles as scratch space
// for building outbound packets so the hot path (one query, one row) does
// not allocate.
//
// A session's traffic is half-duplex, so the same buffer can safely serve
// both directions: only one of readNext/takeBuffer is ever outstanding at
// a time.
type buffer struct {
	buf          []byte // buf[idx:idx+length] holds unread bytes
	idx          int
	length       int
	nc           net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func newBuffer(nc net.Conn) *buffer {
	return &buffer{buf: make([]byte, defaultBufSize), nc: nc}
}

// setConn swaps the underlying net.Conn in place. Used exactly once, when
// Connect upgrades a raw socket to a TLS stream after the SSL-request
// packet; every plaintext byte belonging to that packet must already be
// flushed before this call.
func (b *buffer) setConn(nc net.Conn) { b.nc = nc }

func (b *buffer) setReadTimeout(d time.Duration) { b.readTimeout = d }

func (b *buffer) setWriteTimeout(d time.Duration) { b.writeTimeout = d }

// readNext returns a slice holding exactly the next n bytes read from the
// connection. The slice aliases the internal buffer and is only valid
// until the next readNext/fill call — callers that need to keep the bytes
// must copy them.
func (b *buffer) readNext(need int) ([]byte, error) {
	if b.length >= need {
		offset := b.idx
		b.idx += need
		b.length -= need
		return b.buf[offset : offset+need], nil
	}
	return b.fill(need)
}

// fill slides any unread bytes to the front of buf (growing it if the
// caller wants more than it currently holds), then reads from the
// connection until at least need bytes are buffered.
func (b *buffer) fill(need int) ([]byte, error) {
	if need > len(b.buf) {
		newBuf := make([]byte, ((need/defaultBufSize)+1)*defaultBufSize)
		copy(newBuf, b.buf[b.idx:b.idx+b.length])
		b.buf = newBuf
	} else {
		copy(b.buf, b.buf[b.idx:b.idx+b.length])
	}
	n := b.length
	b.idx = 0

	for n < need {
		if b.readTimeout > 0 {
			if err := b.nc.SetReadDeadline(time.Now().Add(b.readTimeout)); err != nil {
				return nil, err
			}
		}
		nn, err := b.nc.Read(b.buf[n:])
		n += nn
		if err != nil {
			if err == io.EOF {
				if n >= need {
					break
				}
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}

	// shrink an oversized buffer back down once it has drained, so one big
	// row doesn't pin megabytes of backing array for the life of the session.
	if len(b.buf) > maxCachedBufSize && n == need {
		out := b.buf[:need]
		b.buf = make([]byte, defaultBufSize)
		b.idx = 0
		b.length = 0
		return out, nil
	}

	b.idx = need
	b.length = n - need
	return b.buf[0:need], nil
}

func (b *buffer) write(data []byte) error {
	if b.writeTimeout > 0 {
		if err := b.nc.SetWriteDeadline(time.Now().Add(b.writeTimeout)); err != nil {
			return err
		}
	}
	n, err := b.nc.Write(data)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	return err
}

// takeBuffer returns scratch space of the requested size. If possible, a
// slice from the existing buffer is returned; otherwise a bigger one is
// allocated. Only one taken buffer may be outstanding at a time.
func (b *buffer) takeBuffer(length int) ([]byte, error) {
	if b.length > 0 {
		return nil, ErrBusyBuffer
	}
	if length <= cap(b.buf) {
		return b.buf[:length], nil
	}
	if length < maxPacketSize {
		b.buf = make([]byte, length)
		return b.buf, nil
	}
	return make([]byte, length), nil
}

// takeSmallBuffer is a shortcut for a length known to be <= defaultBufSize.
func (b *buffer) takeSmallBuffer(length int) ([]byte, error) {
	if b.length > 0 {
		return nil, ErrBusyBuffer
	}
	if length > cap(b.buf) {
		b.buf = make([]byte, length)
	}
	return b.buf[:length], nil
}

// takeCompleteBuffer returns the full existing buffer when the necessary
// size isn't known up front.
func (b *buffer) takeCompleteBuffer() ([]byte, error) {
	if b.length > 0 {
		return nil, ErrBusyBuffer
	}
	return b.buf, nil
}

// store keeps buf around as the new backing array if it's a reasonable
// size to cache.
func (b *buffer) store(buf []byte) error {
	if b.length > 0 {
		return ErrBusyBuffer
	}
	if cap(buf) <= maxPacketSize && cap(buf) > cap(b.buf) {
		b.buf = buf[:cap(buf)]
	}
	return nil
}
