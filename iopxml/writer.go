package iopxml

import (
	"bufio"
	"encoding/xml"
	"io"
	"strings"
)

// xmlWriter is a single-pass streaming tag-stack writer, grounded on
// original_source/xmlpp.h's xmlpp_t: opentag/putattr/closetag with the
// same self-closing-tag optimization (xmlpp_closetag collapses an
// attribute-only element to "<tag/>" when no content was ever written to
// it). Unlike asn1's BER Pack, XML carries no length prefixes, so there
// is no size pass to run first - one descriptor walk emits bytes
// directly.
type xmlWriter struct {
	bw      *bufio.Writer
	stack   []string
	pending string // tag name opened but not yet closed with '>' or "/>"
	err     error
}

func newXMLWriter(w io.Writer) *xmlWriter {
	return &xmlWriter{bw: bufio.NewWriter(w)}
}

func (x *xmlWriter) fail(err error) {
	if x.err == nil {
		x.err = err
	}
}

func (x *xmlWriter) flushPending() {
	if x.pending == "" {
		return
	}
	x.bw.WriteByte('>')
	x.stack = append(x.stack, x.pending)
	x.pending = ""
}

// openTag closes whatever tag is pending (if any) and opens name,
// leaving it pending so attr calls can still append to its start tag.
func (x *xmlWriter) openTag(name string) {
	x.flushPending()
	x.bw.WriteByte('<')
	x.bw.WriteString(name)
	x.pending = name
}

// attr writes an attribute on the still-open start tag; must be called
// before any text/child content (openTag/closeTag) for this element.
func (x *xmlWriter) attr(key, val string) {
	x.bw.WriteByte(' ')
	x.bw.WriteString(key)
	x.bw.WriteString(`="`)
	x.writeEscaped(val, true)
	x.bw.WriteByte('"')
}

// closeTag closes the innermost open element: "/>" if it never received
// content (xmlpp_closetag's self-closing path), "</name>" otherwise.
func (x *xmlWriter) closeTag() {
	if x.pending != "" {
		x.bw.WriteString("/>")
		x.pending = ""
		return
	}
	n := len(x.stack) - 1
	name := x.stack[n]
	x.stack = x.stack[:n]
	x.bw.WriteString("</")
	x.bw.WriteString(name)
	x.bw.WriteByte('>')
}

func (x *xmlWriter) text(s string) {
	x.flushPending()
	x.writeEscaped(s, false)
}

func (x *xmlWriter) writeEscaped(s string, attr bool) {
	var sb strings.Builder
	if err := xml.EscapeText(&sb, []byte(s)); err != nil {
		x.fail(err)
		return
	}
	esc := sb.String()
	if attr {
		esc = strings.ReplaceAll(esc, "\n", "&#xA;")
	}
	x.bw.WriteString(esc)
}

func (x *xmlWriter) finish() error {
	if x.err != nil {
		return x.err
	}
	return x.bw.Flush()
}
