package engine

import "unsermarkt/internal/common"

// matchLog is a bounded ring of recent matches. Once full, the oldest
// record is overwritten; callers that must see every match register a
// callback instead of draining the ring.
type matchLog struct {
	buf   []common.Match
	start int
	size  int
}

func newMatchLog(capacity int) *matchLog {
	if capacity < 1 {
		capacity = defaultMatchLogCapacity
	}
	return &matchLog{buf: make([]common.Match, capacity)}
}

func (l *matchLog) append(m common.Match) {
	if l.size < len(l.buf) {
		l.buf[(l.start+l.size)%len(l.buf)] = m
		l.size++
		return
	}
	l.buf[l.start] = m
	l.start = (l.start + 1) % len(l.buf)
}

// forEach visits records oldest first. Returning false stops the walk.
func (l *matchLog) forEach(fn func(common.Match) bool) {
	for i := 0; i < l.size; i++ {
		if !fn(l.buf[(l.start+i)%len(l.buf)]) {
			return
		}
	}
}

// forEachReverse visits records newest first.
func (l *matchLog) forEachReverse(fn func(common.Match) bool) {
	for i := l.size - 1; i >= 0; i-- {
		if !fn(l.buf[(l.start+i)%len(l.buf)]) {
			return
		}
	}
}

func (l *matchLog) clear() {
	l.start, l.size = 0, 0
}
