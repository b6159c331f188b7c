package gateway

import (
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/intersec-oss/iop/internal/status"
	"github.com/intersec-oss/iop/rpc"
)

var _ http.Handler = (*Trigger)(nil)

// httpCall is the rpc.HTTPResponder a ServeHTTP invocation blocks on: it
// is handed to rpc.Invoke as the reply destination and unblocks the HTTP
// goroutine when the callback (possibly running later, on a proxied
// channel's event loop) finishes.
type httpCall struct {
	done    chan struct{}
	code    status.Code
	payload []byte
}

func newHTTPCall() *httpCall { return &httpCall{done: make(chan struct{})} }

func (c *httpCall) RespondHTTP(code status.Code, payload []byte) {
	c.code = code
	c.payload = payload
	close(c.done)
}

// ServeHTTP implements spec.md §4.7's request processing steps 1-4.
func (t *Trigger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && r.URL.Path == t.schemaPath() {
		http.Redirect(w, r, t.SchemaURL, http.StatusFound)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body := io.LimitReader(r.Body, t.maxQuerySize()+1)
	reader, err := decompressBody(r.Header.Get("Content-Encoding"), body)
	if err != nil {
		http.Error(w, "bad content-encoding", http.StatusBadRequest)
		return
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if int64(len(raw)) > t.maxQuerySize() {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}

	// Step 1: URL tail selects the RPC by name; absent tail means SOAP,
	// whose name comes from the Body's first child element.
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, t.Prefix), "/")
	soap := name == "" || !strings.Contains(r.Header.Get("Content-Type"), "application/json")
	switch t.PackMode {
	case PackJSON:
		soap = false
	case PackSOAP:
		soap = true
	}

	var args []byte
	if name == "" {
		bodyName, inner, err := soapBodyName(raw)
		if err != nil {
			t.writeSOAPFault(w, http.StatusInternalServerError, "soap:Client", err.Error())
			return
		}
		name = bodyName
		args = inner
	} else if soap {
		_, inner, err := soapBodyName(raw)
		if err != nil {
			t.writeSOAPFault(w, http.StatusInternalServerError, "soap:Client", err.Error())
			return
		}
		args = inner
	} else {
		// Step 2: application/json selects JSON unpack; the body is
		// only checked to parse as JSON here and is forwarded to the
		// callback unchanged.
		var v any
		if err := jsoniter.Unmarshal(raw, &v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		args = raw
	}

	rpcID, ok := t.resolve(name)
	if !ok {
		if soap {
			t.writeSOAPFault(w, http.StatusInternalServerError, "soap:Client", "unknown rpc "+name)
		} else {
			http.Error(w, "unknown rpc "+name, http.StatusNotFound)
		}
		return
	}

	// Step 3: synthetic IC header from Basic auth + peer address.
	hdr := syntheticHeader(r)

	call := newHTTPCall()
	// Step 4: dispatch per §4.6 with the HTTP slot form.
	rpc.Invoke(t.Registry, t.Iface, rpcID, args, hdr, call)

	select {
	case <-call.done:
	case <-time.After(proxyTimeout):
		call.code = status.TimedOut
	}

	if t.ReplyHook != nil {
		t.ReplyHook(name, call.code.HTTPStatus(), call.payload)
	}

	if soap {
		t.writeSOAPReply(w, call)
		return
	}
	t.writeJSONReply(w, r, call)
}

func (t *Trigger) writeJSONReply(w http.ResponseWriter, r *http.Request, call *httpCall) {
	w.Header().Set("Content-Type", "application/json")
	encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
	body := compressBody(w, encoding, call.payload)
	w.WriteHeader(call.code.HTTPStatus())
	_, _ = w.Write(body)
}

func (t *Trigger) writeSOAPReply(w http.ResponseWriter, call *httpCall) {
	if call.code == status.Exn || call.code != status.Ok {
		// SOAP mandates HTTP 500 on any fault, transport or application
		// (spec.md §4.7 step 2's closing note).
		t.writeSOAPFault(w, http.StatusInternalServerError, "soap:Server", call.code.String())
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(call.payload)
}

func (t *Trigger) writeSOAPFault(w http.ResponseWriter, httpCode int, faultCode, message string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(httpCode)
	_, _ = w.Write(soapFault(faultCode, message))
}

// schemaPath is where a Trigger answers GET requests with its negotiated
// schema URL, a minor convenience spec.md §4.7 names as a Trigger field
// but does not mandate a route for; we mount it at <prefix>_schema to
// keep it out of the RPC name namespace.
func (t *Trigger) schemaPath() string { return path.Join(t.Prefix, "_schema") }
