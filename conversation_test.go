package mysql

import (
	"context"
	"errors"
	"net"
	"testing"
)

// TestSendReplyWithoutSendFails checks that calling SendReply/ReceiveReply
// without a preceding Send/Receive fails with a dedicated error
// (ErrConversationNotStarted — see DESIGN.md's Open Question decision on
// this point).
func TestSendReplyWithoutSendFails(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	mc := newTestSession(client)
	defer mc.stopWatcher()

	err := mc.SendReply(context.Background(), []byte("x"))
	if !errors.Is(err, ErrConversationNotStarted) {
		t.Fatalf("SendReply without a prior Send: got %v, want ErrConversationNotStarted", err)
	}

	_, err = mc.ReceiveReply(context.Background())
	if !errors.Is(err, ErrConversationNotStarted) {
		t.Fatalf("ReceiveReply without a prior Receive: got %v, want ErrConversationNotStarted", err)
	}
}

// TestConversationStartNewResetsSequence checks that take advances the
// sequence counter and startNew resets it to 0.
func TestConversationStartNewResetsSequence(t *testing.T) {
	c := &conversation{}
	c.startNew()
	c.take()
	c.take()
	if c.next != 2 {
		t.Fatalf("after two take()s, next = %d, want 2", c.next)
	}

	c.startNew()
	if c.next != 0 {
		t.Fatalf("startNew should reset next to 0, got %d", c.next)
	}

	seq := c.take()
	if seq != 0 {
		t.Fatalf("first take() after startNew = %d, want 0", seq)
	}
}

func TestConversationExpectDetectsMismatch(t *testing.T) {
	c := &conversation{}
	c.startNew()

	if err := c.expect(0); err != nil {
		t.Fatalf("expect(0) on fresh conversation: %v", err)
	}
	if err := c.expect(5); !errors.Is(err, ErrPktSyncMul) {
		t.Fatalf("expect(5) after expect(0): got %v, want ErrPktSyncMul", err)
	}
}
