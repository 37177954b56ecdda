package session

// Selection is the ordered set of selected facet words. Words are kept in
// the order they were selected.
type Selection struct {
	items []string
	index map[string]int
}

// NewSelection returns a selection holding words, duplicates removed.
func NewSelection(words ...string) *Selection {
	s := &Selection{index: make(map[string]int)}
	for _, w := range words {
		s.Add(w)
	}
	return s
}

// Has reports whether word is selected.
func (s *Selection) Has(word string) bool {
	_, ok := s.index[word]
	return ok
}

// Add selects word. It reports false if word was already selected.
func (s *Selection) Add(word string) bool {
	if s.Has(word) {
		return false
	}
	s.index[word] = len(s.items)
	s.items = append(s.items, word)
	return true
}

// Remove unselects word. It reports false if word was not selected.
func (s *Selection) Remove(word string) bool {
	i, ok := s.index[word]
	if !ok {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.index, word)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j]] = j
	}
	return true
}

// Toggle flips the state of word and reports whether it is now selected.
func (s *Selection) Toggle(word string) bool {
	if s.Remove(word) {
		return false
	}
	s.Add(word)
	return true
}

// Clear unselects everything.
func (s *Selection) Clear() {
	s.items = nil
	s.index = make(map[string]int)
}

// Len returns the number of selected words.
func (s *Selection) Len() int { return len(s.items) }

// Items returns a copy of the selected words in selection order.
func (s *Selection) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
