package query

// Key identifies what triggered a new query.
type Key int

const (
	// KeyNone marks queries not triggered by typing, such as facet toggles.
	KeyNone Key = iota
	// KeyOther is any key that changes the query text.
	KeyOther
	KeyPageUp
	KeyPageDown
)

// IsPaging reports whether k only moves through the hits of the same query.
func (k Key) IsPaging() bool {
	return k == KeyPageUp || k == KeyPageDown
}

func (k Key) String() string {
	switch k {
	case KeyNone:
		return "none"
	case KeyOther:
		return "other"
	case KeyPageUp:
		return "pgup"
	case KeyPageDown:
		return "pgdown"
	default:
		return "unknown"
	}
}

// Page returns the first-hit offset after key. PageDown moves one page
// forward, PageUp one page back, any other key starts over at 0. The result
// lies in [0, max(0, total-size)].
func Page(first, total, size int, key Key) int {
	switch key {
	case KeyPageDown:
		first += size
	case KeyPageUp:
		first -= size
	case KeyOther:
		first = 0
	}
	return Clamp(first, total, size)
}

// Clamp keeps a page of size hits starting at first inside total hits.
func Clamp(first, total, size int) int {
	if first+size > total {
		first = total - size
	}
	if first < 0 {
		first = 0
	}
	return first
}
