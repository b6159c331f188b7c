package gateway

import (
	"strings"
	"testing"
)

func TestSoapBodyName(t *testing.T) {
	envelope := []byte(`<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <doThing xmlns="urn:MyIface"><n>3</n></doThing>
  </soap:Body>
</soap:Envelope>`)

	name, inner, err := soapBodyName(envelope)
	if err != nil {
		t.Fatalf("soapBodyName: %v", err)
	}
	if name != "doThing" {
		t.Fatalf("got name %q, want doThing", name)
	}
	if len(inner) == 0 {
		t.Fatalf("expected non-empty inner xml")
	}
}

func TestSoapBodyNameNoChild(t *testing.T) {
	envelope := []byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body></soap:Body></soap:Envelope>`)
	if _, _, err := soapBodyName(envelope); err == nil {
		t.Fatalf("expected error for bodyless envelope")
	}
}

func TestSoapFault(t *testing.T) {
	doc := string(soapFault("soap:Server", "boom"))
	if !strings.Contains(doc, "<faultcode>soap:Server</faultcode>") ||
		!strings.Contains(doc, "<faultstring>boom</faultstring>") {
		t.Fatalf("fault doc missing expected elements: %s", doc)
	}
}
