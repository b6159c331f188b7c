package gateway

import (
	"encoding/base64"
	"net"
	"net/http"
	"strings"

	"github.com/intersec-oss/iop/rpc"
)

// syntheticHeader builds the rpc.Header spec.md §4.7 step 3 describes: a
// synthetic IC header carrying the Basic-auth login/password and the
// peer address, with workspace_id left unset (it is an IC-originated-only
// field per SPEC_FULL.md §5).
func syntheticHeader(r *http.Request) *rpc.Header {
	hdr := &rpc.Header{PeerAddr: peerAddr(r)}
	if login, password, ok := r.BasicAuth(); ok {
		hdr.Login = login
		hdr.Password = password
	}
	return hdr
}

func peerAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// decodeBasicAuth splits a Basic Authorization header value into login
// and password; tests use it to check a header built by net/http.
func decodeBasicAuth(header string) (login, password string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	login, password, ok = strings.Cut(string(raw), ":")
	return login, password, ok
}
