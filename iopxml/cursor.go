package iopxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// cursor is the streaming XML reader the unpacker walks, grounded on
// original_source/iop-xml-unpack.c's xml_reader_t: a single token of
// lookahead, element-boundary helpers (nextChild/nodeIsClosing), and a
// fail that prefixes the returned error with "iopxml:"; unlike xmlr_fail,
// it records no reader position.
type cursor struct {
	dec  *xml.Decoder
	peek xml.Token
	have bool

	// lastStart is the most recently consumed StartElement, kept around
	// so callers positioned right after it (unpackLeaf, class dispatch)
	// can read its attributes (xsi:type, href) without the cursor having
	// to thread them through every return value.
	lastStart xml.StartElement
}

func newCursor(r io.Reader) *cursor {
	return &cursor{dec: xml.NewDecoder(r)}
}

func (c *cursor) next() (xml.Token, error) {
	var tok xml.Token
	if c.have {
		c.have = false
		tok = c.peek
	} else {
		t, err := c.dec.Token()
		if err != nil {
			return nil, err
		}
		tok = t
	}
	if se, ok := tok.(xml.StartElement); ok {
		c.lastStart = se
	}
	return tok, nil
}

func (c *cursor) peekTok() (xml.Token, error) {
	if !c.have {
		tok, err := c.dec.Token()
		if err != nil {
			return nil, err
		}
		c.peek = tok
		c.have = true
	}
	return c.peek, nil
}

func (c *cursor) fail(format string, args ...any) error {
	return fmt.Errorf("iopxml: "+format, args...)
}

// skipCharData advances past any CharData tokens (whitespace between
// elements) so the next peek/next sees a StartElement/EndElement.
func (c *cursor) skipCharData() error {
	for {
		tok, err := c.peekTok()
		if err != nil {
			return err
		}
		if _, ok := tok.(xml.CharData); !ok {
			return nil
		}
		if _, err := c.next(); err != nil {
			return err
		}
	}
}

// nextChild advances into the first child element of the element the
// cursor is currently positioned on, returning (name, true) or
// (zero, false) if the element has no children (xmlr_next_child's
// XMLR_NOCHILD case).
func (c *cursor) nextChild() (xml.Name, bool, error) {
	if err := c.skipCharData(); err != nil {
		return xml.Name{}, false, err
	}
	tok, err := c.peekTok()
	if err != nil {
		return xml.Name{}, false, err
	}
	switch t := tok.(type) {
	case xml.StartElement:
		_, _ = c.next()
		return t.Name, true, nil
	case xml.EndElement:
		return xml.Name{}, false, nil
	default:
		return xml.Name{}, false, c.fail("expected element, got %T", tok)
	}
}

// nodeIsClosing reports whether the cursor sits on a closing tag (the
// enclosing element has no more children).
func (c *cursor) nodeIsClosing() (bool, error) {
	if err := c.skipCharData(); err != nil {
		return false, err
	}
	tok, err := c.peekTok()
	if err != nil {
		return false, err
	}
	_, ok := tok.(xml.EndElement)
	return ok, nil
}

// nextSibling consumes the current element's closing tag (and any
// remaining content) and advances to the next sibling's opening tag,
// returning its name, or reports the enclosing element is exhausted.
func (c *cursor) nextSibling() (xml.Name, bool, error) {
	if err := c.skipToElementEnd(); err != nil {
		return xml.Name{}, false, err
	}
	if err := c.skipCharData(); err != nil {
		return xml.Name{}, false, err
	}
	tok, err := c.peekTok()
	if err != nil {
		return xml.Name{}, false, err
	}
	switch t := tok.(type) {
	case xml.StartElement:
		_, _ = c.next()
		return t.Name, true, nil
	case xml.EndElement:
		return xml.Name{}, false, nil
	default:
		return xml.Name{}, false, c.fail("expected element, got %T", tok)
	}
}

// skipToElementEnd consumes tokens until (and including) the matching
// EndElement for the element whose StartElement was already consumed -
// used once a field's value has been read to discard any XML the
// descriptor-driven decode didn't explicitly walk.
func (c *cursor) skipToElementEnd() error {
	depth := 1
	for depth > 0 {
		tok, err := c.next()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// elementIsEmpty reports whether the element just opened (cursor
// positioned right after its StartElement) closes immediately with no
// text or child content - encoding/xml always emits a separate
// EndElement token even for a self-closing tag, so this peeks for it.
func (c *cursor) elementIsEmpty() (bool, error) {
	tok, err := c.peekTok()
	if err != nil {
		return false, err
	}
	_, ok := tok.(xml.EndElement)
	return ok, nil
}

// getText reads the element's text content (cursor positioned right
// after its StartElement) and, like the composite walks, leaves the
// element's own EndElement unconsumed - the caller's subsequent
// nextSibling/skipToElementEnd closes it, the same invariant every
// other unpack* function relies on.
func (c *cursor) getText() (string, error) {
	var sb strings.Builder
	for {
		tok, err := c.peekTok()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
			if _, err := c.next(); err != nil {
				return "", err
			}
		case xml.EndElement:
			return sb.String(), nil
		case xml.StartElement:
			return "", c.fail("unexpected child element <%s> reading text content", t.Name.Local)
		}
	}
}

// getInnerXML reads and returns the raw inner XML of the element the
// cursor just opened (cursor positioned right after its StartElement),
// consuming through its matching EndElement - used for IOP_T_XML fields
// (spec.md §4.3's base64/xml-inner fields, the xml-inner half).
func (c *cursor) getInnerXML() (string, error) {
	var sb strings.Builder
	depth := 1
	enc := xml.NewEncoder(&sb)
	for depth > 0 {
		tok, err := c.next()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if err := enc.EncodeToken(t); err != nil {
				return "", err
			}
		case xml.EndElement:
			depth--
			if depth > 0 {
				if err := enc.EncodeToken(t); err != nil {
					return "", err
				}
			}
		default:
			if err := enc.EncodeToken(tok); err != nil {
				return "", err
			}
		}
	}
	_ = enc.Flush()
	return sb.String(), nil
}

// currentAttr looks up attr on a StartElement token; callers pass the
// cursor's lastStart (the StartElement most recently returned by
// next()/nextChild()) or a StartElement they peeked themselves.
func currentAttr(start xml.StartElement, local string) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}
