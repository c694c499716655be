package address

// EventKey uniquely identifies a log within a chain's history, per
// spec.md §3. It is the key the event deduplicator (C7) tracks.
type EventKey struct {
	TxHash   Topic
	LogIndex uint
}

// Log is the raw event record produced by the chain transport, with at
// minimum the fields spec.md §3 requires of an Event.
type Log struct {
	Address     Address
	Topics      []Topic
	Data        []byte
	BlockNumber uint64
	TxIndex     uint
	LogIndex    uint
	TxHash      Topic
}

// Topic0 returns the event-signature topic, or the zero hash if the log
// carries no topics (anonymous events are not supported upstream).
func (l Log) Topic0() Topic {
	if len(l.Topics) == 0 {
		return Topic{}
	}
	return l.Topics[0]
}

// Key returns the log's EventKey and reports whether both fields are
// present (a zero tx hash is treated as missing).
func (l Log) Key() (EventKey, bool) {
	var zero Topic
	if l.TxHash == zero {
		return EventKey{}, false
	}
	return EventKey{TxHash: l.TxHash, LogIndex: l.LogIndex}, true
}

// Less orders logs by (block, tx index, log index), the ascending order
// the historical updater (C8) and streaming updater (C9) both rely on.
func (l Log) Less(o Log) bool {
	if l.BlockNumber != o.BlockNumber {
		return l.BlockNumber < o.BlockNumber
	}
	if l.TxIndex != o.TxIndex {
		return l.TxIndex < o.TxIndex
	}
	return l.LogIndex < o.LogIndex
}
