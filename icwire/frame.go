package icwire

import (
	"io"

	"github.com/intersec-oss/iop/internal/cfg"
	"github.com/intersec-oss/iop/internal/status"
)

// ReadFrame reads one header+payload frame from r. The payload slice is
// freshly allocated; callers that need to avoid the allocation on a hot
// receive path should read the header alone and stream the payload
// themselves.
func ReadFrame(r io.Reader) (Header, []byte, error) {
	hdrBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hdrBuf); err != nil {
		if err == io.EOF {
			return Header{}, nil, err
		}
		return Header{}, nil, status.Wrap(status.Invalid, err, "icwire: short frame header read")
	}
	h, err := Unmarshal(hdrBuf)
	if err != nil {
		return Header{}, nil, err
	}
	if max := cfg.Get().MaxFrameSize; max > 0 && h.DataLength > max {
		return Header{}, nil, status.New(status.Invalid, "icwire: frame data_length %d exceeds max %d", h.DataLength, max)
	}
	if h.DataLength == 0 {
		return h, nil, nil
	}
	payload := make([]byte, h.DataLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Header{}, nil, status.Wrap(status.Invalid, err, "icwire: short frame payload read")
	}
	return h, payload, nil
}

// WriteFrame writes h (with DataLength overwritten to len(payload)) and
// payload to w as a single frame. Two Write calls, not one concatenated
// buffer, mirroring the teacher's header-then-body send split in
// transport/sendmsg.go's Read state machine (inHdr, then inPayload).
func WriteFrame(w io.Writer, h Header, payload []byte) error {
	h.DataLength = uint32(len(payload))
	if _, err := w.Write(h.Marshal()); err != nil {
		return status.Wrap(status.Invalid, err, "icwire: frame header write")
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return status.Wrap(status.Invalid, err, "icwire: frame payload write")
	}
	return nil
}
