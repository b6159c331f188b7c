package cos

import (
	"crypto/rand"
)

// idABC mirrors the teacher's uuidABC alphabet shape (url-safe, no padding
// ambiguity) without pulling in teris-io/shortid, which this module never
// exercises elsewhere.
const idABC = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenSessionID returns a short diagnostic id for a channel session or a
// gateway trigger instance - log-correlation only, never wire-visible.
func GenSessionID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = idABC[int(c)%len(idABC)]
	}
	return string(out)
}

// StopCh is a closeable, multi-listener stop signal - grounded on the
// teacher's cos.StopCh used throughout transport/base.go for lastCh/stopCh.
type StopCh struct {
	ch chan struct{}
}

func (s *StopCh) Init()           { s.ch = make(chan struct{}) }
func (s *StopCh) Listen() <-chan struct{} { return s.ch }
func (s *StopCh) Close() {
	select {
	case <-s.ch:
	default:
		close(s.ch)
	}
}
