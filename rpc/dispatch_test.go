package rpc

import (
	"net"
	"testing"
	"time"

	"github.com/intersec-oss/iop/ic"
	"github.com/intersec-oss/iop/icwire"
	"github.com/intersec-oss/iop/internal/status"
)

func waitReady(t *testing.T, chans ...*ic.Channel) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		allReady := true
		for _, c := range chans {
			if c.State() != ic.StateReady {
				allReady = false
			}
		}
		if allReady {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("channels never reached READY")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDispatchNormalReply(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	reg := NewRegistry()
	reg.Register(1, 1, &Cbe{Kind: Normal, Fn: func(r *Responder, slot Slot, args []byte, hdr *Header) {
		r.Reply(append([]byte("echo:"), args...))
	}})
	d := &Dispatcher{Registry: reg}

	client := ic.NewChannel(clientConn, "", false, nil)
	server := ic.NewChannel(serverConn, "", false, d)
	go client.Run(false, false)
	go server.Run(true, false)
	defer client.Close()
	defer server.Close()

	waitReady(t, client, server)

	done := make(chan string, 1)
	err := client.Send(1, 1, []byte("hi"), icwire.PriorityNormal, time.Second, func(code status.Code, reply []byte) {
		if code != status.Ok {
			t.Errorf("got code %v, want Ok", code)
			done <- ""
			return
		}
		done <- string(reply)
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case got := <-done:
		if got != "echo:hi" {
			t.Fatalf("got %q, want %q", got, "echo:hi")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("reply never arrived")
	}
}

func TestDispatchUnimplemented(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	d := &Dispatcher{Registry: NewRegistry()}
	client := ic.NewChannel(clientConn, "", false, nil)
	server := ic.NewChannel(serverConn, "", false, d)
	go client.Run(false, false)
	go server.Run(true, false)
	defer client.Close()
	defer server.Close()

	waitReady(t, client, server)

	done := make(chan status.Code, 1)
	err := client.Send(9, 9, nil, icwire.PriorityNormal, time.Second, func(code status.Code, reply []byte) {
		done <- code
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case code := <-done:
		if code != status.Unimplemented {
			t.Fatalf("got %v, want Unimplemented", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("reply never arrived")
	}
}

func TestDispatchThrowAndReplyErr(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	reg := NewRegistry()
	reg.Register(1, 1, &Cbe{Kind: Normal, Fn: func(r *Responder, slot Slot, args []byte, hdr *Header) {
		r.Throw([]byte("boom"))
	}})
	reg.Register(1, 2, &Cbe{Kind: Normal, Fn: func(r *Responder, slot Slot, args []byte, hdr *Header) {
		r.ReplyErr(status.Retry)
	}})
	d := &Dispatcher{Registry: reg}

	client := ic.NewChannel(clientConn, "", false, nil)
	server := ic.NewChannel(serverConn, "", false, d)
	go client.Run(false, false)
	go server.Run(true, false)
	defer client.Close()
	defer server.Close()

	waitReady(t, client, server)

	excCh := make(chan status.Code, 1)
	_ = client.Send(1, 1, nil, icwire.PriorityNormal, time.Second, func(code status.Code, reply []byte) { excCh <- code })
	retryCh := make(chan status.Code, 1)
	_ = client.Send(1, 2, nil, icwire.PriorityNormal, time.Second, func(code status.Code, reply []byte) { retryCh <- code })

	select {
	case code := <-excCh:
		if code != status.Exn {
			t.Fatalf("got %v, want Exn", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("exn reply never arrived")
	}
	select {
	case code := <-retryCh:
		if code != status.Retry {
			t.Fatalf("got %v, want Retry", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("retry reply never arrived")
	}
}

func TestProxyStaticForwardsAndRepliesVerbatim(t *testing.T) {
	frontClient, frontServer := net.Pipe()
	backClient, backServer := net.Pipe()
	defer frontClient.Close()
	defer frontServer.Close()
	defer backClient.Close()
	defer backServer.Close()

	backendReg := NewRegistry()
	backendReg.Register(2, 2, &Cbe{Kind: Normal, Fn: func(r *Responder, slot Slot, args []byte, hdr *Header) {
		r.Reply(append([]byte("backend:"), args...))
	}})
	backendDispatcher := &Dispatcher{Registry: backendReg}

	backendServerSide := ic.NewChannel(backServer, "", false, backendDispatcher)
	proxyToBackend := ic.NewChannel(backClient, "", false, nil)
	go backendServerSide.Run(true, false)
	go proxyToBackend.Run(false, false)
	defer backendServerSide.Close()
	defer proxyToBackend.Close()
	waitReady(t, backendServerSide, proxyToBackend)

	frontReg := NewRegistry()
	frontReg.Register(2, 2, &Cbe{Kind: ProxyStatic, Target: proxyToBackend, ProxyTimeout: time.Second})
	frontDispatcher := &Dispatcher{Registry: frontReg}

	frontServerSide := ic.NewChannel(frontServer, "", false, frontDispatcher)
	caller := ic.NewChannel(frontClient, "", false, nil)
	go frontServerSide.Run(true, false)
	go caller.Run(false, false)
	defer frontServerSide.Close()
	defer caller.Close()
	waitReady(t, frontServerSide, caller)

	done := make(chan string, 1)
	err := caller.Send(2, 2, []byte("hi"), icwire.PriorityNormal, 2*time.Second, func(code status.Code, reply []byte) {
		if code != status.Ok {
			t.Errorf("got code %v, want Ok", code)
		}
		done <- string(reply)
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case got := <-done:
		if got != "backend:hi" {
			t.Fatalf("got %q, want %q", got, "backend:hi")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("proxied reply never arrived")
	}
}
