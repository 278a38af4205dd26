// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"encoding/binary"
	"fmt"
)

// Packets documentation:
// http://dev.mysql.com/doc/internals/en/client-server-protocol.html

/******************************************************************************
*                                Packet codec                                *
******************************************************************************/

// readPacket reads one logical payload, reassembling the fragmentation
// chain: a packet whose length is exactly 0xFFFFFF is followed by a
// continuation packet with the next sequence number, concatenated into the
// same logical payload. A 0-length continuation packet terminates a
// payload whose length is an exact multiple of maxPacketSize; a 0-length
// first packet is an empty payload.
func (mc *Session) readPacket() ([]byte, error) {
	var prevData []byte
	for {
		header, err := mc.stream.readNext(4)
		if err != nil {
			return nil, mc.fail(err)
		}

		pktLen := int(uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16)
		if err := mc.conv.expect(header[3]); err != nil {
			return nil, mc.fail(err)
		}

		if pktLen == 0 {
			if prevData == nil {
				return []byte{}, nil
			}
			return prevData, nil
		}

		data, err := mc.stream.readNext(pktLen)
		if err != nil {
			return nil, mc.fail(err)
		}

		if pktLen < maxPacketSize {
			if prevData == nil {
				return data, nil
			}
			return append(prevData, data...), nil
		}

		prevData = append(prevData, data...)
	}
}

// writePacket fragments data (len(data)-4 bytes of payload, with 4 bytes
// of header space already reserved at data[0:4]) into one or more physical
// packets.
func (mc *Session) writePacket(data []byte) error {
	pktLen := len(data) - 4
	if pktLen > mc.maxAllowedPacket {
		return ErrPktTooLarge
	}

	for {
		var size int
		if pktLen >= maxPacketSize {
			data[0], data[1], data[2] = 0xff, 0xff, 0xff
			size = maxPacketSize
		} else {
			putUint24(data[0:3], pktLen)
			size = pktLen
		}
		data[3] = mc.conv.take()

		if err := mc.stream.write(data[:4+size]); err != nil {
			return mc.fail(err)
		}

		if size != maxPacketSize {
			return nil
		}
		pktLen -= size
		data = data[size:]
	}
}

/******************************************************************************
*                              Command packets                                *
******************************************************************************/

// writeCommandPacket starts a new conversation and sends a bare command
// byte (COM_PING, COM_QUIT, COM_RESET_CONNECTION).
func (mc *Session) writeCommandPacket(command byte) error {
	mc.startConversation()
	data, err := mc.buf.takeSmallBuffer(4 + 1)
	if err != nil {
		return errBadConnNoWrite
	}
	data[4] = command
	return mc.writePacket(data)
}

// writeCommandPacketStr starts a new conversation and sends a command byte
// followed by a string argument (COM_QUERY; COM_CHANGE_USER has its own
// encoder in auth.go).
func (mc *Session) writeCommandPacketStr(command byte, arg string) error {
	mc.startConversation()
	pktLen := 1 + len(arg)
	data, err := mc.buf.takeBuffer(pktLen + 4)
	if err != nil {
		return errBadConnNoWrite
	}
	data[4] = command
	copy(data[5:], arg)
	return mc.writePacket(data)
}

/******************************************************************************
*                              Result packets                                 *
******************************************************************************/

// readResultOK expects a plain OK payload (used during authentication and
// for COM_PING/COM_RESET_CONNECTION/COM_CHANGE_USER) and fails otherwise.
func (mc *Session) readResultOK() error {
	data, err := mc.readPacket()
	if err != nil {
		return err
	}
	if data[0] == iOK {
		return mc.handleOKPacket(data)
	}
	return mc.handleErrorPacket(data)
}

// readResultSetHeaderPacket implements a result set's header phase. It
// returns the column count, or 0 if the response was a plain OK (no
// result set).
func (mc *Session) readResultSetHeaderPacket() (int, error) {
	data, err := mc.readPacket()
	if err != nil {
		return 0, err
	}

	switch data[0] {
	case iOK:
		return 0, mc.handleOKPacket(data)
	case iERR:
		return 0, mc.handleErrorPacket(data)
	case iLocalInFile:
		return 0, &UnsupportedError{Feature: "LOCAL INFILE"}
	}

	num, _, _, err := readLengthEncodedInteger(data)
	if err != nil {
		return 0, err
	}
	return int(num), nil
}

// handleErrorPacket decodes an ERR payload into a *MySQLError. Receiving
// one does not fail the session, except for the read-only-primary codes
// below when the caller opted into RejectReadOnly.
func (mc *Session) handleErrorPacket(data []byte) error {
	if data[0] != iERR {
		return ErrMalformPkt
	}

	errno := binary.LittleEndian.Uint16(data[1:3])

	// 1792: ER_CANT_EXECUTE_IN_READ_ONLY_TRANSACTION
	// 1290: ER_OPTION_PREVENTS_STATEMENT (returned by Aurora during failover)
	if (errno == 1792 || errno == 1290) && mc.cfg.RejectReadOnly {
		return mc.fail(&MySQLError{Number: errno, Message: "connected to a read-only primary"})
	}

	me := &MySQLError{Number: errno}

	pos := 3
	if len(data) > 3 && data[3] == 0x23 { // '#'
		copy(me.SQLState[:], data[4:9])
		pos = 9
	}
	me.Message = string(data[pos:])
	return me
}

func readStatus(b []byte) statusFlag {
	return statusFlag(b[0]) | statusFlag(b[1])<<8
}

// handleOKPacket decodes an OK payload, updating the session's
// affected-rows / last-insert-id / server-status state.
func (mc *Session) handleOKPacket(data []byte) error {
	affectedRows, _, n, err := readLengthEncodedInteger(data[1:])
	if err != nil {
		return err
	}
	insertID, _, m, err := readLengthEncodedInteger(data[1+n:])
	if err != nil {
		return err
	}

	mc.lastAffectedRows = int64(affectedRows)
	mc.lastInsertID = int64(insertID)

	rest := data[1+n+m:]
	if len(rest) >= 2 {
		mc.status = readStatus(rest[:2])
	}
	return nil
}

// readColumns reads `count` ColumnDefinition41 payloads followed by an EOF
// payload — the header phase of a result set.
func (mc *Session) readColumns(count int) ([]columnDefinition, error) {
	columns := make([]columnDefinition, count)

	for i := 0; ; i++ {
		data, err := mc.readPacket()
		if err != nil {
			return nil, err
		}

		if data[0] == iEOF && (len(data) == 5 || len(data) == 1) {
			if i == count {
				return columns, nil
			}
			return nil, fmt.Errorf("mysql: column count mismatch n:%d len:%d", count, i)
		}

		pos, err := skipLengthEncodedString(data) // catalog
		if err != nil {
			return nil, err
		}
		n, err := skipLengthEncodedString(data[pos:]) // schema
		if err != nil {
			return nil, err
		}
		pos += n

		tableName, _, n, err := readLengthEncodedString(data[pos:])
		if err != nil {
			return nil, err
		}
		columns[i].table = string(tableName)
		pos += n

		n, err = skipLengthEncodedString(data[pos:]) // original table
		if err != nil {
			return nil, err
		}
		pos += n

		name, _, n, err := readLengthEncodedString(data[pos:])
		if err != nil {
			return nil, err
		}
		columns[i].name = string(name)
		pos += n

		n, err = skipLengthEncodedString(data[pos:]) // original name
		if err != nil {
			return nil, err
		}
		pos += n

		pos++ // filler [uint8]

		columns[i].charSet = data[pos]
		pos += 2 // charset, collation

		columns[i].length = binary.LittleEndian.Uint32(data[pos : pos+4])
		pos += 4

		columns[i].fieldType = fieldType(data[pos])
		pos++

		columns[i].flags = fieldFlag(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2

		columns[i].decimals = data[pos]
	}
}

// readUntilEOF discards packets until an EOF or error appears — used to
// drain an unread result set (e.g. Rows.Close, NextResult skipping).
func (mc *Session) readUntilEOF() error {
	for {
		data, err := mc.readPacket()
		if err != nil {
			return err
		}
		switch data[0] {
		case iERR:
			return mc.handleErrorPacket(data)
		case iEOF:
			if len(data) == 5 {
				mc.status = readStatus(data[3:])
			}
			return nil
		}
	}
}

// discardResults drains every pending result set after the one currently
// being consumed.
func (mc *Session) discardResults() error {
	for mc.status&statusMoreResultsExists != 0 {
		resLen, err := mc.readResultSetHeaderPacket()
		if err != nil {
			return err
		}
		if resLen > 0 {
			if err := mc.readUntilEOF(); err != nil {
				return err
			}
			if err := mc.readUntilEOF(); err != nil {
				return err
			}
		}
	}
	return nil
}
