package mqtt

import "log"

// bufferedMsg is a formatted system event waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog keeps system events published while offline, oldest first. Reports
// never go here: a stale motion sample is worthless after a reconnect.
//
// A retained message replaces any earlier retained message on the same topic,
// since the broker would only keep the newest one anyway. When the backlog is
// full the oldest message is dropped.
//
// Not safe for concurrent use.
type backlog struct {
	msgs    []bufferedMsg
	limit   int
	dropped uint64
	warned  bool
}

func newBacklog(limit int) *backlog {
	if limit < 1 {
		limit = 1
	}
	return &backlog{msgs: make([]bufferedMsg, 0, limit), limit: limit}
}

func (b *backlog) push(msg bufferedMsg) {
	if msg.retained {
		b.supersede(msg.topic)
	}
	if len(b.msgs) == b.limit {
		if !b.warned {
			log.Printf("mqtt: backlog full (%d messages), dropping oldest", b.limit)
			b.warned = true
		}
		b.dropped++
		copy(b.msgs, b.msgs[1:])
		b.msgs = b.msgs[:len(b.msgs)-1]
	}
	b.msgs = append(b.msgs, msg)
}

// supersede removes queued retained messages for topic.
func (b *backlog) supersede(topic string) {
	kept := b.msgs[:0]
	for _, m := range b.msgs {
		if m.retained && m.topic == topic {
			continue
		}
		kept = append(kept, m)
	}
	clear(b.msgs[len(kept):])
	b.msgs = kept
}

// drain hands back everything queued and empties the backlog.
func (b *backlog) drain() []bufferedMsg {
	if len(b.msgs) == 0 {
		return nil
	}
	out := make([]bufferedMsg, len(b.msgs))
	copy(out, b.msgs)
	clear(b.msgs)
	b.msgs = b.msgs[:0]
	b.warned = false
	return out
}

func (b *backlog) len() int { return len(b.msgs) }
