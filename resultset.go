// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// cursorState is the ResultSetCursor's state machine.
type cursorState int

const (
	cursorNone cursorState = iota
	cursorReadResultSetHeader
	cursorAlreadyReadFirstRow
	cursorReadingRows
	cursorHasMoreData
	cursorNoMoreData
)

// ResultSetCursor borrows a Session positioned right after a query's Send,
// walks the header phase into column metadata, then streams rows in the
// textual protocol. Generalized off database/sql's driver.Rows interface
// onto the plain send/receive Session surface.
type ResultSetCursor struct {
	mc      *Session
	columns []columnDefinition
	state   cursorState

	rowData []byte
	offsets []int // -1 marks a NULL column
	lengths []int

	drained bool // true once this result set's rows have all been read or skipped
}

// openResultSet creates a cursor over mc's reply to a query: the caller
// must already have sent the query payload on mc.
func openResultSet(mc *Session) (*ResultSetCursor, error) {
	c := &ResultSetCursor{mc: mc}
	if err := c.readHeader(); err != nil {
		return nil, err
	}
	return c, nil
}

// readHeader implements the header phase, looping over OK payloads that
// advertise MORE_RESULTS_EXIST until it lands on either a real result set
// or the final OK.
func (c *ResultSetCursor) readHeader() error {
	for {
		resLen, err := c.mc.readResultSetHeaderPacket()
		if err != nil {
			c.state = cursorNone
			return err
		}
		if resLen == 0 {
			if c.mc.status&statusMoreResultsExists != 0 {
				c.state = cursorHasMoreData
				continue
			}
			c.state = cursorNoMoreData
			c.drained = true
			return nil
		}

		columns, err := c.mc.readColumns(resLen)
		if err != nil {
			return err
		}
		c.columns = columns
		c.state = cursorReadResultSetHeader
		c.drained = false
		return nil
	}
}

// Columns returns the current result set's column metadata, or nil if the
// cursor has no active result set (e.g. it only ever saw an OK payload).
func (c *ResultSetCursor) Columns() []columnDefinition { return c.columns }

// ColumnNames renders display names for the current result set.
func (c *ResultSetCursor) ColumnNames() []string {
	return columnNames(c.columns, c.mc.cfg.ColumnsWithAlias)
}

// Next reads the next payload, decoding a row or transitioning to
// HasMoreData/NoMoreData on EOF.
func (c *ResultSetCursor) Next() (bool, error) {
	if c.state == cursorAlreadyReadFirstRow {
		c.state = cursorReadingRows
		return true, nil
	}
	return c.advance()
}

func (c *ResultSetCursor) advance() (bool, error) {
	data, err := c.mc.readPacket()
	if err != nil {
		return false, err
	}

	if data[0] == iERR {
		c.drained = true
		return false, c.mc.handleErrorPacket(data)
	}
	if data[0] == iEOF && len(data) < 9 {
		if len(data) >= 5 {
			c.mc.status = readStatus(data[3:5])
		}
		c.drained = true
		if c.mc.status&statusMoreResultsExists != 0 {
			c.state = cursorHasMoreData
		} else {
			c.state = cursorNoMoreData
		}
		return false, nil
	}

	offsets := make([]int, len(c.columns))
	lengths := make([]int, len(c.columns))
	pos := 0
	for i := range c.columns {
		v, isNull, n, err := readLengthEncodedInteger(data[pos:])
		if err != nil {
			return false, err
		}
		pos += n
		if isNull {
			offsets[i] = -1
			continue
		}
		offsets[i] = pos
		lengths[i] = int(v)
		pos += int(v)
	}

	c.rowData = data
	c.offsets = offsets
	c.lengths = lengths
	c.state = cursorReadingRows
	return true, nil
}

// HasRows eagerly reads the first row to answer "does this result set have
// any rows" without losing it — the AlreadyReadFirstRow state exists for
// exactly this peek.
func (c *ResultSetCursor) HasRows() (bool, error) {
	switch c.state {
	case cursorAlreadyReadFirstRow:
		return true, nil
	case cursorReadResultSetHeader:
		ok, err := c.advance()
		if err != nil {
			return false, err
		}
		if ok {
			c.state = cursorAlreadyReadFirstRow
		}
		return ok, nil
	default:
		return false, nil
	}
}

// Value decodes column i of the current row.
func (c *ResultSetCursor) Value(i int) (any, error) {
	col := &c.columns[i]
	off := c.offsets[i]
	if off < 0 {
		return Null{}, nil
	}
	raw := c.rowData[off : off+c.lengths[i]]
	return decodeValue(col, raw, false, c.mc.cfg.loc(), c.mc.cfg.ConvertZeroDateTime)
}

// NextResult drains any unread rows of the current result set, then
// advances to the next one if the server announced more are coming.
func (c *ResultSetCursor) NextResult() (bool, error) {
	if !c.drained {
		if err := c.mc.readUntilEOF(); err != nil {
			return false, err
		}
		c.drained = true
	}

	switch c.state {
	case cursorHasMoreData:
		if err := c.readHeader(); err != nil {
			return false, err
		}
		return c.state != cursorNoMoreData, nil
	default:
		return false, nil
	}
}

// Close drains whatever is left of the cursor's result sets so the
// session's conversation stays in sync for the next Send.
func (c *ResultSetCursor) Close() error {
	if !c.drained {
		if err := c.mc.readUntilEOF(); err != nil {
			return err
		}
		c.drained = true
	}
	return c.mc.discardResults()
}
