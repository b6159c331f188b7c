package gateway

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// negotiateEncoding picks gzip, deflate, or none from an Accept-Encoding
// header, per spec.md §4.7's closing paragraph. We prefer gzip when a
// client accepts both, matching the ordering most HTTP clients send the
// header in.
func negotiateEncoding(acceptEncoding string) string {
	for _, tok := range strings.Split(acceptEncoding, ",") {
		name := strings.TrimSpace(strings.SplitN(tok, ";", 2)[0])
		if name == "gzip" {
			return "gzip"
		}
	}
	for _, tok := range strings.Split(acceptEncoding, ",") {
		name := strings.TrimSpace(strings.SplitN(tok, ";", 2)[0])
		if name == "deflate" {
			return "deflate"
		}
	}
	return ""
}

// compressBody encodes payload per encoding ("gzip", "deflate", or "" for
// identity) and, on a non-identity encoding, sets Content-Encoding on w.
func compressBody(w http.ResponseWriter, encoding string, payload []byte) []byte {
	switch encoding {
	case "gzip":
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		_, _ = gw.Write(payload)
		_ = gw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		return buf.Bytes()
	case "deflate":
		var buf bytes.Buffer
		fw, _ := flate.NewWriter(&buf, flate.DefaultCompression)
		_, _ = fw.Write(payload)
		_ = fw.Close()
		w.Header().Set("Content-Encoding", "deflate")
		return buf.Bytes()
	default:
		return payload
	}
}

// decompressBody reverses compressBody for an inbound request body,
// keyed off Content-Encoding rather than Accept-Encoding.
func decompressBody(contentEncoding string, body io.Reader) (io.Reader, error) {
	switch contentEncoding {
	case "gzip":
		return gzip.NewReader(body)
	case "deflate":
		return flate.NewReader(body), nil
	default:
		return body, nil
	}
}
