package sched

import "github.com/sweeney/flowmouse/internal/clock"

type entry struct {
	id   TaskID
	at   clock.Tick
	prio Priority
	seq  uint64
}

// less orders by fire time, then higher priority, then arming order.
func (a entry) less(b entry) bool {
	if a.at != b.at {
		return clock.Before(a.at, b.at)
	}
	if a.prio != b.prio {
		return a.prio > b.prio
	}
	return a.seq < b.seq
}

// timerQueue is a sorted list of pending entries. Capacity is fixed to the
// number of tasks at construction, so insertion never allocates.
type timerQueue struct {
	entries []entry
}

func newTimerQueue(capacity int) timerQueue {
	return timerQueue{entries: make([]entry, 0, capacity)}
}

func (q *timerQueue) insert(e entry) {
	i := len(q.entries)
	q.entries = append(q.entries, e)
	for i > 0 && e.less(q.entries[i-1]) {
		q.entries[i] = q.entries[i-1]
		i--
	}
	q.entries[i] = e
}

// popDue removes and returns the head if its deadline has been reached.
func (q *timerQueue) popDue(now clock.Tick) (entry, bool) {
	if len(q.entries) == 0 || !clock.Due(now, q.entries[0].at) {
		return entry{}, false
	}
	head := q.entries[0]
	copy(q.entries, q.entries[1:])
	q.entries = q.entries[:len(q.entries)-1]
	return head, true
}

func (q *timerQueue) peek() (entry, bool) {
	if len(q.entries) == 0 {
		return entry{}, false
	}
	return q.entries[0], true
}

func (q *timerQueue) len() int { return len(q.entries) }

// readyQueues holds released tasks, one FIFO per priority level.
type readyQueues struct {
	levels [MaxPriority + 1][]TaskID
}

func newReadyQueues(capacity int) readyQueues {
	var r readyQueues
	for i := range r.levels {
		r.levels[i] = make([]TaskID, 0, capacity)
	}
	return r
}

func (r *readyQueues) push(p Priority, id TaskID) {
	r.levels[p] = append(r.levels[p], id)
}

// popAbove removes the oldest task of the highest priority strictly above floor.
func (r *readyQueues) popAbove(floor Priority) (TaskID, bool) {
	for p := MaxPriority; p > floor; p-- {
		q := r.levels[p]
		if len(q) == 0 {
			continue
		}
		id := q[0]
		copy(q, q[1:])
		r.levels[p] = q[:len(q)-1]
		return id, true
	}
	return 0, false
}
