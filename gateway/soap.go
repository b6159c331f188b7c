package gateway

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// soapBodyName returns the SOAP Body's first child element's local name -
// the RPC name spec.md §4.7 step 1 says to use when the URL tail didn't
// already select one - and the raw inner XML of that element, which the
// caller hands to the IOP-XML unpacker.
func soapBodyName(body []byte) (name string, inner []byte, err error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var env struct {
		Body struct {
			Raw []byte `xml:",innerxml"`
		} `xml:"Body"`
	}
	if err := dec.Decode(&env); err != nil {
		return "", nil, fmt.Errorf("soap envelope decode: %w", err)
	}
	inner = bytes.TrimSpace(env.Body.Raw)
	d2 := xml.NewDecoder(bytes.NewReader(inner))
	for {
		tok, err := d2.Token()
		if err != nil {
			return "", nil, fmt.Errorf("soap body has no element child: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, inner, nil
		}
	}
}

// soapFault builds a minimal SOAP 1.1 Fault document; spec.md §4.7
// mandates HTTP 500 on every SOAP fault regardless of the underlying
// ic_status (transport errors and application exceptions are
// indistinguishable to a SOAP client by design).
func soapFault(code, message string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">`)
	buf.WriteString(`<soap:Body><soap:Fault><faultcode>`)
	xml.EscapeText(&buf, []byte(code))
	buf.WriteString(`</faultcode><faultstring>`)
	xml.EscapeText(&buf, []byte(message))
	buf.WriteString(`</faultstring></soap:Fault></soap:Body></soap:Envelope>`)
	return buf.Bytes()
}
