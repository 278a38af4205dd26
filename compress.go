// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"bytes"
	"compress/zlib"
	"io"
)

// compressedHeaderSize is [0..2] compressed length, [3] sequence,
// [4..6] uncompressed length.
const compressedHeaderSize = 7

// minCompressSize: packets smaller than this are always sent uncompressed,
// since zlib framing overhead would make them bigger, not smaller.
// Grounded on other_examples/..._Pooh-Mucho-go-mysql-stdzlib__packettransceiver.go.go,
// which names the same threshold (there: minCompressSize = 100; the
// go-sql-driver/mysql fork this repo descends from is more conservative).
const minCompressSize = 50

// byteStream is the seam between the packet codec and whatever sits below
// it — either the raw buffer, or a compressor wrapping the raw buffer.
// Satisfied by both *buffer and *compressor.
type byteStream interface {
	readNext(need int) ([]byte, error)
	write(data []byte) error
}

// compressor implements the CLIENT_COMPRESS wire protocol on top of an
// inner byteStream (the raw buffer). It owns its own sequence counter,
// independent of the packet codec's inner-packet sequence.
type compressor struct {
	inner byteStream

	seq uint8 // compressed_sequence, monotonic within a conversation

	// pending holds decompressed bytes not yet handed to the caller.
	pending []byte
}

func newCompressor(inner byteStream) *compressor {
	return &compressor{inner: inner}
}

func (c *compressor) resetSequence() { c.seq = 0 }

// readNext returns exactly `need` decompressed bytes, draining and
// decompressing further compressed frames from inner as needed.
func (c *compressor) readNext(need int) ([]byte, error) {
	for len(c.pending) < need {
		if err := c.readFrame(); err != nil {
			return nil, err
		}
	}
	out := c.pending[:need]
	c.pending = c.pending[need:]
	return append([]byte(nil), out...), nil
}

func (c *compressor) readFrame() error {
	header, err := c.inner.readNext(compressedHeaderSize)
	if err != nil {
		return err
	}
	compressedLen := int(uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16)
	seq := header[3]
	uncompressedLen := int(uint32(header[4]) | uint32(header[5])<<8 | uint32(header[6])<<16)

	if seq != c.seq {
		if seq > c.seq {
			return ErrPktSyncMul
		}
		return ErrPktSync
	}
	c.seq++

	data, err := c.inner.readNext(compressedLen)
	if err != nil {
		return err
	}

	if uncompressedLen == 0 {
		// uncompressed_length == 0 means the payload was sent as-is, with
		// real RFC1950 framing reserved for the compressed case below.
		c.pending = append(c.pending, data...)
		return nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return &ProtocolError{Msg: "invalid zlib stream in compressed packet", Err: err}
	}
	defer zr.Close()

	out := make([]byte, uncompressedLen)
	if _, err := io.ReadFull(zr, out); err != nil {
		return &ProtocolError{Msg: "short zlib stream in compressed packet", Err: err}
	}
	c.pending = append(c.pending, out...)
	return nil
}

// write wraps data (one or more physical packets already produced by the
// packet codec) in one or more compressed frames, fragmenting on
// maxPacketSize the same way the uncompressed layer fragments packets.
func (c *compressor) write(data []byte) error {
	for len(data) > 0 {
		chunk := data
		if len(chunk) > maxPacketSize {
			chunk = chunk[:maxPacketSize]
		}
		if err := c.writeFrame(chunk); err != nil {
			return err
		}
		data = data[len(chunk):]
	}
	return nil
}

func (c *compressor) writeFrame(chunk []byte) error {
	var frame []byte

	if len(chunk) >= minCompressSize {
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
		if err == nil {
			if _, err = zw.Write(chunk); err == nil {
				err = zw.Close()
			}
		}
		// Only use the compressed form if it is actually smaller than the
		// original.
		if err == nil && buf.Len() < len(chunk) {
			frame = make([]byte, compressedHeaderSize+buf.Len())
			putUint24(frame[0:3], buf.Len())
			frame[3] = c.seq
			putUint24(frame[4:7], len(chunk))
			copy(frame[compressedHeaderSize:], buf.Bytes())
		}
	}

	if frame == nil {
		frame = make([]byte, compressedHeaderSize+len(chunk))
		putUint24(frame[0:3], len(chunk))
		frame[3] = c.seq
		putUint24(frame[4:7], 0)
		copy(frame[compressedHeaderSize:], chunk)
	}

	c.seq++
	return c.inner.write(frame)
}

func putUint24(b []byte, v int) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
