package ic

import (
	"net"
	"testing"
	"time"

	"github.com/intersec-oss/iop/icwire"
	"github.com/intersec-oss/iop/internal/status"
)

type echoDispatcher struct{}

func (echoDispatcher) Dispatch(c *Channel, h icwire.Header, payload []byte) {
	c.Reply(h.Slot, status.Ok, payload)
}

func TestChannelHandshakeAndQueryReply(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client := NewChannel(clientConn, "", false, nil)
	server := NewChannel(serverConn, "", false, echoDispatcher{})

	go client.Run(false, false)
	go server.Run(true, false)
	defer client.Close()
	defer server.Close()

	deadline := time.Now().Add(2 * time.Second)
	for client.State() != StateReady || server.State() != StateReady {
		if time.Now().After(deadline) {
			t.Fatalf("handshake never completed: client=%s server=%s", client.State(), server.State())
		}
		time.Sleep(time.Millisecond)
	}

	replyCh := make(chan []byte, 1)
	if err := client.Send(1, 1, []byte("ping"), icwire.PriorityNormal, time.Second, func(code status.Code, reply []byte) {
		if code != status.Ok {
			t.Errorf("got code %v, want Ok", code)
		}
		replyCh <- reply
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-replyCh:
		if string(got) != "ping" {
			t.Fatalf("got reply %q, want %q", got, "ping")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("reply never arrived")
	}
}

func TestChannelSendTimeoutWithNoPeer(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	client := NewChannel(clientConn, "", false, nil)
	go client.Run(false, false)
	defer client.Close()

	// drain the peer side so the client's VERSION write and subsequent
	// frames don't block forever on the unbuffered net.Pipe, but never
	// reply - simulating a peer that accepted the query and vanished.
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := serverConn.Read(buf); err != nil {
				return
			}
		}
	}()

	done := make(chan status.Code, 1)
	err := client.Send(1, 1, []byte("x"), icwire.PriorityNormal, 20*time.Millisecond, func(code status.Code, reply []byte) {
		done <- code
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case code := <-done:
		if code != status.TimedOut {
			t.Fatalf("got %v, want TimedOut", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout continuation never fired")
	}
}
