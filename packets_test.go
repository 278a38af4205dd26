package mysql

import (
	"bytes"
	"io"
	"net"
	"testing"
)

// readRawPacket reassembles one logical payload directly off the wire,
// independent of the Session under test, so round-trip tests verify
// against an independent implementation of the packet framing.
func readRawPacket(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	var result []byte
	for {
		hdr := make([]byte, 4)
		if _, err := io.ReadFull(conn, hdr); err != nil {
			t.Fatalf("reading header: %v", err)
		}
		n := int(hdr[0]) | int(hdr[1])<<8 | int(hdr[2])<<16
		if n == 0 {
			if result == nil {
				return []byte{} // an empty first packet is an empty payload
			}
			return result
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(conn, buf); err != nil {
			t.Fatalf("reading payload: %v", err)
		}
		result = append(result, buf...)
		if n < maxPacketSize {
			return result
		}
	}
}

// writeRawPacket fragments and frames payload the same way writePacket
// does, but via an entirely independent implementation.
func writeRawPacket(t *testing.T, conn net.Conn, payload []byte, seq *uint8) {
	t.Helper()
	for {
		n := len(payload)
		if n > maxPacketSize {
			n = maxPacketSize
		}
		hdr := []byte{byte(n), byte(n >> 8), byte(n >> 16), *seq}
		*seq++
		if _, err := conn.Write(hdr); err != nil {
			t.Fatalf("writing header: %v", err)
		}
		if n > 0 {
			if _, err := conn.Write(payload[:n]); err != nil {
				t.Fatalf("writing payload: %v", err)
			}
		}
		payload = payload[n:]
		if n != maxPacketSize {
			return
		}
	}
}

func fillPattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

// TestWritePacketRoundTrip checks the framing round-trips correctly for a
// range of sizes from empty up to just under the fragmentation boundary.
func TestWritePacketRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 100, 4096, maxPacketSize - 1}

	for _, size := range sizes {
		size := size
		t.Run(sizeName(size), func(t *testing.T) {
			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()

			mc := newTestSession(client)
			defer mc.stopWatcher()

			payload := fillPattern(size)
			done := make(chan []byte, 1)
			go func() { done <- readRawPacket(t, server) }()

			data, err := mc.buf.takeBuffer(size + 4)
			if err != nil {
				t.Fatalf("takeBuffer: %v", err)
			}
			copy(data[4:], payload)
			if err := mc.writePacket(data); err != nil {
				t.Fatalf("writePacket: %v", err)
			}

			got := <-done
			if !bytes.Equal(got, payload) {
				t.Fatalf("round-tripped payload differs: got %d bytes, want %d", len(got), len(payload))
			}
		})
	}
}

// TestReadPacketRoundTrip exercises readPacket against an independently
// framed payload, including the exact-multiple-of-maxPacketSize boundary
// case at exactly maxPacketSize.
func TestReadPacketRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 4096, maxPacketSize}

	for _, size := range sizes {
		size := size
		t.Run(sizeName(size), func(t *testing.T) {
			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()

			mc := newTestSession(client)
			defer mc.stopWatcher()

			payload := fillPattern(size)
			go func() {
				var seq uint8
				writeRawPacket(t, server, payload, &seq)
			}()

			got, err := mc.readPacket()
			if err != nil {
				t.Fatalf("readPacket: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("read payload differs: got %d bytes, want %d", len(got), len(payload))
			}
		})
	}
}

// TestPacketSequenceOrdering checks that within one conversation,
// outbound sequence numbers are 0, 1, 2, ... uninterrupted.
func TestPacketSequenceOrdering(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	mc := newTestSession(client)
	defer mc.stopWatcher()
	mc.conv.startNew()

	seqs := make(chan uint8, 3)
	go func() {
		for i := 0; i < 3; i++ {
			hdr := make([]byte, 4)
			if _, err := io.ReadFull(server, hdr); err != nil {
				return
			}
			seqs <- hdr[3]
			n := int(hdr[0]) | int(hdr[1])<<8 | int(hdr[2])<<16
			io.CopyN(io.Discard, server, int64(n))
		}
	}()

	for i := 0; i < 3; i++ {
		data, err := mc.buf.takeSmallBuffer(5)
		if err != nil {
			t.Fatalf("takeSmallBuffer: %v", err)
		}
		data[4] = byte(i)
		if err := mc.writePacket(data); err != nil {
			t.Fatalf("writePacket: %v", err)
		}
	}

	for want := uint8(0); want < 3; want++ {
		got := <-seqs
		if got != want {
			t.Fatalf("packet %d: sequence byte = %d, want %d", want, got, want)
		}
	}
}

func sizeName(n int) string {
	switch {
	case n == 0:
		return "empty"
	case n == maxPacketSize:
		return "exact-boundary"
	case n == maxPacketSize-1:
		return "just-under-boundary"
	default:
		return "n"
	}
}
