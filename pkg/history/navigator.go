package history

// Navigator walks back and forward through entries, oldest to newest. Its
// position is the entry on screen; one past the newest entry means nothing
// from the history is shown yet.
type Navigator struct {
	entries []Entry
	pos     int
}

// NewNavigator takes entries newest first, as returned by Store.List.
func NewNavigator(newestFirst []Entry) *Navigator {
	n := &Navigator{entries: make([]Entry, 0, len(newestFirst))}
	for i := len(newestFirst) - 1; i >= 0; i-- {
		n.entries = append(n.entries, newestFirst[i])
	}
	n.pos = len(n.entries)
	return n
}

// Push records e as the entry on screen. Entries ahead of the current
// position are dropped, the way a browser forgets forward pages.
func (n *Navigator) Push(e Entry) {
	if n.pos < len(n.entries) {
		n.entries = n.entries[:n.pos+1]
	}
	if last := len(n.entries) - 1; last < 0 || !n.entries[last].Same(e) {
		n.entries = append(n.entries, e)
	}
	n.pos = len(n.entries) - 1
}

// Back moves to the previous entry.
func (n *Navigator) Back() (Entry, bool) {
	if n.pos == 0 || len(n.entries) == 0 {
		return Entry{}, false
	}
	n.pos--
	return n.entries[n.pos], true
}

// Forward moves to the next entry.
func (n *Navigator) Forward() (Entry, bool) {
	if n.pos >= len(n.entries)-1 {
		return Entry{}, false
	}
	n.pos++
	return n.entries[n.pos], true
}

// Len returns the number of entries.
func (n *Navigator) Len() int { return len(n.entries) }
