package mysql

import (
	"context"
	"errors"
	"net"
	"testing"
)

// lenencStr returns a length-encoded string: a 1-byte length prefix (valid
// for any string under 251 bytes) followed by the bytes themselves.
func lenencStr(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

// columnDefPacket builds one ColumnDefinition41 payload for a single
// unaliased column with the given name, type and flags.
func columnDefPacket(name string, charset byte, typ fieldType, flags fieldFlag) []byte {
	var b []byte
	b = append(b, lenencStr("def")...) // catalog
	b = append(b, lenencStr("")...)    // schema
	b = append(b, lenencStr("")...)    // table
	b = append(b, lenencStr("")...)    // orig table
	b = append(b, lenencStr(name)...)  // name
	b = append(b, lenencStr("")...)    // orig name
	b = append(b, 0x0c)                // filler
	b = append(b, charset, 0x00)       // charset (2 bytes)
	b = append(b, 11, 0, 0, 0)         // column length (4 bytes)
	b = append(b, byte(typ))
	b = append(b, byte(flags), byte(flags>>8))
	b = append(b, 0x00) // decimals
	b = append(b, 0x00, 0x00) // reserved
	return b
}

func eofPacket(status statusFlag) []byte {
	return []byte{iEOF, 0x00, 0x00, byte(status), byte(status >> 8)}
}

// serveResultSet writes a sequence of payloads onto conn as consecutive
// framed packets sharing one sequence counter, the way a server answers a
// single query.
func serveResultSet(t *testing.T, conn net.Conn, payloads [][]byte) {
	t.Helper()
	var seq uint8
	for _, p := range payloads {
		writeRawPacket(t, conn, p, &seq)
	}
}

// TestResultSetSimpleSelect covers a single-column, single-row result set:
// column count, one ColumnDefinition, the column-definitions EOF, one row,
// and a trailing EOF with no MORE_RESULTS_EXIST bit set.
func TestResultSetSimpleSelect(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	mc := newTestSession(client)
	defer mc.stopWatcher()

	go serveResultSet(t, server, [][]byte{
		{0x01}, // column count
		columnDefPacket("1", charSetBinary, fieldTypeLong, 0),
		eofPacket(0),
		{0x01, 0x31}, // row: length-encoded "1"
		eofPacket(0x0022),
	})

	cur, err := mc.OpenResultSet(context.Background())
	if err != nil {
		t.Fatalf("OpenResultSet: %v", err)
	}

	names := cur.ColumnNames()
	if len(names) != 1 || names[0] != "1" {
		t.Fatalf("ColumnNames = %v, want [\"1\"]", names)
	}

	ok, err := cur.Next()
	if err != nil || !ok {
		t.Fatalf("Next() = %v, %v, want true, nil", ok, err)
	}
	v, err := cur.Value(0)
	if err != nil {
		t.Fatalf("Value(0): %v", err)
	}
	if v != int32(1) {
		t.Fatalf("Value(0) = %#v, want int32(1)", v)
	}

	ok, err = cur.Next()
	if err != nil || ok {
		t.Fatalf("second Next() = %v, %v, want false, nil", ok, err)
	}

	more, err := cur.NextResult()
	if err != nil || more {
		t.Fatalf("NextResult() = %v, %v, want false, nil", more, err)
	}
}

// TestResultSetOKNoRows covers a query whose reply is a plain OK: no
// column phase, no rows, affected/insert-id both zero.
func TestResultSetOKNoRows(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	mc := newTestSession(client)
	defer mc.stopWatcher()

	// OK payload: affected_rows=0, last_insert_id=0, status=0x0002, warnings=0.
	go serveResultSet(t, server, [][]byte{
		{iOK, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00},
	})

	cur, err := mc.OpenResultSet(context.Background())
	if err != nil {
		t.Fatalf("OpenResultSet: %v", err)
	}
	if cur.Columns() != nil {
		t.Fatalf("Columns() = %v, want nil for a plain OK reply", cur.Columns())
	}
	if mc.lastAffectedRows != 0 || mc.lastInsertID != 0 {
		t.Fatalf("affected=%d insertID=%d, want 0, 0", mc.lastAffectedRows, mc.lastInsertID)
	}
}

// TestResultSetServerError covers a query answered by an ERR payload: it
// surfaces as a *MySQLError and the session stays Connected.
func TestResultSetServerError(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	mc := newTestSession(client)
	defer mc.stopWatcher()

	errPkt := []byte{iERR, 0x24, 0x04, '#', '4', '2', '0', '0', '0'}
	errPkt = append(errPkt, []byte("You have an error")...)

	go serveResultSet(t, server, [][]byte{errPkt})

	_, err := mc.OpenResultSet(context.Background())
	var myErr *MySQLError
	if !errors.As(err, &myErr) {
		t.Fatalf("OpenResultSet error = %v, want *MySQLError", err)
	}
	if myErr.Number != 1060 {
		t.Fatalf("Number = %d, want 1060", myErr.Number)
	}
	if string(myErr.SQLState[:]) != "42000" {
		t.Fatalf("SQLState = %q, want 42000", myErr.SQLState)
	}
	if myErr.Message != "You have an error" {
		t.Fatalf("Message = %q", myErr.Message)
	}
	if mc.State() != StateConnected {
		t.Fatalf("session state = %v, want Connected", mc.State())
	}
}

// TestResultSetMultiRowNulls covers a result set where some column values
// in later rows are NULL (length-encoded 0xFB), read alongside non-NULL
// values of the same unsigned Longlong column.
func TestResultSetMultiRowNulls(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	mc := newTestSession(client)
	defer mc.stopWatcher()

	go serveResultSet(t, server, [][]byte{
		{0x01},
		columnDefPacket("n", charSetBinary, fieldTypeLongLong, flagUnsigned),
		eofPacket(0),
		{0x01, 0x35}, // row 1: "5"
		{0xfb},       // row 2: NULL
		eofPacket(0),
	})

	cur, err := mc.OpenResultSet(context.Background())
	if err != nil {
		t.Fatalf("OpenResultSet: %v", err)
	}

	ok, err := cur.Next()
	if err != nil || !ok {
		t.Fatalf("Next() (row 1) = %v, %v", ok, err)
	}
	v, err := cur.Value(0)
	if err != nil {
		t.Fatalf("Value(0) row 1: %v", err)
	}
	if v != uint64(5) {
		t.Fatalf("row 1 value = %#v, want uint64(5)", v)
	}

	ok, err = cur.Next()
	if err != nil || !ok {
		t.Fatalf("Next() (row 2) = %v, %v", ok, err)
	}
	v, err = cur.Value(0)
	if err != nil {
		t.Fatalf("Value(0) row 2: %v", err)
	}
	if _, isNull := v.(Null); !isNull {
		t.Fatalf("row 2 value = %#v, want Null{}", v)
	}

	ok, _ = cur.Next()
	if ok {
		t.Fatal("expected no third row")
	}
}

// TestResultSetHasRowsPeek exercises the AlreadyReadFirstRow state: HasRows
// reads ahead to answer the question, and a following Next() still returns
// that same row rather than skipping it.
func TestResultSetHasRowsPeek(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	mc := newTestSession(client)
	defer mc.stopWatcher()

	go serveResultSet(t, server, [][]byte{
		{0x01},
		columnDefPacket("x", charSetBinary, fieldTypeLong, 0),
		eofPacket(0),
		{0x01, 0x37}, // "7"
		eofPacket(0),
	})

	cur, err := mc.OpenResultSet(context.Background())
	if err != nil {
		t.Fatalf("OpenResultSet: %v", err)
	}

	has, err := cur.HasRows()
	if err != nil || !has {
		t.Fatalf("HasRows() = %v, %v, want true, nil", has, err)
	}

	ok, err := cur.Next()
	if err != nil || !ok {
		t.Fatalf("Next() after HasRows = %v, %v, want true, nil", ok, err)
	}
	v, err := cur.Value(0)
	if err != nil || v != int32(7) {
		t.Fatalf("Value(0) = %#v, %v, want int32(7)", v, err)
	}
}
