package ic

import (
	"container/list"

	"github.com/intersec-oss/iop/icwire"
)

// outMsg is one queued outbound frame: a query (with a continuation
// registered in the pending table), a reply, or a stream-control frame.
type outMsg struct {
	header  icwire.Header
	payload []byte
	elem    *list.Element // this message's node in sendQueue.msgList, for O(1) cancel
}

// sendQueue implements spec §4.5.1's msg_list: HIGH messages join the
// head (after existing HIGHs), NORMAL messages are inserted just after
// the last NORMAL enqueued (tracked by lastNormal so NORMALs stay FIFO
// among themselves), LOW messages join the tail. Starvation of LOW under
// sustained HIGH traffic is accepted, per spec.
//
// Grounded on transport/collect.go's heap-as-priority-structure idiom,
// reworked as an explicit doubly-linked list (container/list) since three
// fixed priority classes don't justify a heap's O(log n) reshuffling -
// each insert is O(1) given the lastHigh and lastNormal cursors.
type sendQueue struct {
	msgList    list.List
	lastHigh   *list.Element // nil when no HIGH msg is queued
	lastNormal *list.Element // nil when no NORMAL msg is queued
}

func (q *sendQueue) push(m *outMsg, prio icwire.Priority) {
	switch prio {
	case icwire.PriorityHigh:
		if q.lastHigh == nil {
			m.elem = q.msgList.PushFront(m)
		} else {
			m.elem = q.msgList.InsertAfter(m, q.lastHigh)
		}
		q.lastHigh = m.elem
	case icwire.PriorityNormal:
		switch {
		case q.lastNormal != nil:
			m.elem = q.msgList.InsertAfter(m, q.lastNormal)
		case q.lastHigh != nil:
			m.elem = q.msgList.InsertAfter(m, q.lastHigh)
		default:
			m.elem = q.msgList.PushFront(m)
		}
		q.lastNormal = m.elem
	default: // PriorityLow
		m.elem = q.msgList.PushBack(m)
	}
}

// pop removes and returns the head message ready to be packed into the
// iov list, or nil if the queue is empty.
func (q *sendQueue) pop() *outMsg {
	front := q.msgList.Front()
	if front == nil {
		return nil
	}
	return q.remove(front)
}

func (q *sendQueue) remove(e *list.Element) *outMsg {
	m := q.msgList.Remove(e).(*outMsg)
	if q.lastHigh == e {
		q.lastHigh = nil
	}
	if q.lastNormal == e {
		q.lastNormal = nil
	}
	m.elem = nil
	return m
}

// cancelBySlot scans for a still-queued query carrying slot and removes
// it; used when a per-message timeout (spec §4.5.3) or an explicit Cancel
// (spec §4.5.5) fires before the query ever reached the wire.
func (q *sendQueue) cancelBySlot(slot uint32) bool {
	for e := q.msgList.Front(); e != nil; e = e.Next() {
		if e.Value.(*outMsg).header.Slot == slot {
			q.remove(e)
			return true
		}
	}
	return false
}

func (q *sendQueue) empty() bool { return q.msgList.Len() == 0 }
