package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSyntheticHeaderBasicAuthAndPeer(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/Foo/bar", nil)
	r.SetBasicAuth("alice", "s3cr3t")
	r.RemoteAddr = "10.0.0.5:54321"

	hdr := syntheticHeader(r)
	if hdr.Login != "alice" || hdr.Password != "s3cr3t" {
		t.Fatalf("got login=%q password=%q", hdr.Login, hdr.Password)
	}
	if hdr.PeerAddr != "10.0.0.5" {
		t.Fatalf("got peer addr %q, want 10.0.0.5", hdr.PeerAddr)
	}
	if hdr.WorkspaceID != 0 {
		t.Fatalf("HTTP-originated header must leave workspace_id unset, got %d", hdr.WorkspaceID)
	}
}

func TestDecodeBasicAuth(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.SetBasicAuth("bob", "hunter2")
	login, password, ok := decodeBasicAuth(r.Header.Get("Authorization"))
	if !ok || login != "bob" || password != "hunter2" {
		t.Fatalf("got %q %q %v", login, password, ok)
	}
	if _, _, ok := decodeBasicAuth("garbage"); ok {
		t.Fatalf("garbage header should not decode")
	}
}
