package gateway

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"
)

func TestNegotiateEncoding(t *testing.T) {
	cases := map[string]string{
		"gzip, deflate": "gzip",
		"deflate":       "deflate",
		"br":            "",
		"":              "",
	}
	for accept, want := range cases {
		if got := negotiateEncoding(accept); got != want {
			t.Errorf("negotiateEncoding(%q) = %q, want %q", accept, got, want)
		}
	}
}

func TestCompressDecompressRoundtrip(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	for _, enc := range []string{"gzip", "deflate", ""} {
		w := httptest.NewRecorder()
		compressed := compressBody(w, enc, payload)
		reader, err := decompressBody(enc, bytes.NewReader(compressed))
		if err != nil {
			t.Fatalf("%s: decompressBody: %v", enc, err)
		}
		got, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("%s: read: %v", enc, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("%s: roundtrip mismatch: got %q want %q", enc, got, payload)
		}
	}
}
