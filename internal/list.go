package internal

import "sync"

// List is a thread-safe intrusive doubly-linked list of Frames.
//
// Rationale for intrusive over boxed: eviction (Unlink) is O(1) and needs
// no auxiliary node map — a Frame knows its own position via its prev/next
// fields. Pool owns two of these (free, freeable); each gets its own mutex,
// distinct from the Pool's and from any Frame's (see lock ordering in
// pool.go).
type List struct {
	mu    sync.Mutex
	first *Frame
	last  *Frame
}

// Add appends frame at the tail of the list.
func (l *List) Add(frame *Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()

	frame.prev = l.last
	frame.next = nil

	if l.last != nil {
		l.last.next = frame
		l.last = frame
	} else {
		l.first = frame
		l.last = frame
	}
}

// PopFront removes and returns the head of the list, or nil if empty.
func (l *List) PopFront() *Frame {
	l.mu.Lock()
	defer l.mu.Unlock()

	frame := l.first
	if frame == nil {
		return nil
	}

	l.first = frame.next
	if l.first != nil {
		l.first.prev = nil
	} else {
		l.last = nil
	}

	frame.prev, frame.next = nil, nil
	return frame
}

// Unlink removes frame from whichever position it occupies. The caller
// asserts frame is currently a member of this list; Unlink does not verify
// membership.
func (l *List) Unlink(frame *Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if frame.prev != nil {
		frame.prev.next = frame.next
	} else {
		l.first = frame.next
	}

	if frame.next != nil {
		frame.next.prev = frame.prev
	} else {
		l.last = frame.prev
	}

	frame.prev, frame.next = nil, nil
}

// Len reports the current list length. O(n); diagnostics and tests only.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for f := l.first; f != nil; f = f.next {
		n++
	}
	return n
}
