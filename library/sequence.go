package library

// Sequence hands out increasing positive ids. It is seeded with every id
// already in use so freshly minted ids never collide with loaded ones.
type Sequence struct {
	last int
}

// Observe records id as taken.
func (s *Sequence) Observe(id int) {
	if id > s.last {
		s.last = id
	}
}

// Next returns an id greater than every id observed or handed out so far.
func (s *Sequence) Next() int {
	s.last++
	return s.last
}

// Peek returns the id Next would hand out, without consuming it.
func (s *Sequence) Peek() int { return s.last + 1 }
