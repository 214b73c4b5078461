package session

type latchState int

const (
	latchOpen latchState = iota
	latchInFlight
	latchConsumed
)

// latch is a one-shot guard around a side effect. It is not synchronized;
// the owning Session serializes access.
type latch struct {
	state latchState
}

// acquire moves an open latch to in-flight and reports whether it did.
func (l *latch) acquire() bool {
	if l.state != latchOpen {
		return false
	}
	l.state = latchInFlight
	return true
}

// commit marks the effect as done for good.
func (l *latch) commit() {
	l.state = latchConsumed
}

// release reopens an in-flight latch after a failed attempt.
func (l *latch) release() {
	if l.state == latchInFlight {
		l.state = latchOpen
	}
}

// triggered reports whether the effect was issued (in flight or done).
func (l *latch) triggered() bool {
	return l.state != latchOpen
}

// consumed reports whether the effect completed.
func (l *latch) consumed() bool {
	return l.state == latchConsumed
}

func (l *latch) reset() {
	l.state = latchOpen
}
