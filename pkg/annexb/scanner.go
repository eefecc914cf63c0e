package annexb

// Scanner returns the NAL units of an Annex-B buffer one at a time.
type Scanner struct {
	Buf []byte

	pos         int
	initialized bool
}

// Next returns the next NAL unit, without start code.
// It returns false when the buffer is exhausted.
func (s *Scanner) Next() ([]byte, bool) {
	if !s.initialized {
		s.initialized = true
		s.pos, _ = NextStart(s.Buf, 0)
	}

	for s.pos >= 0 && s.pos < len(s.Buf) {
		start := s.pos
		next, startLen := NextStart(s.Buf, start)

		end := len(s.Buf)
		if next >= 0 {
			end = next - startLen
		}

		s.pos = next

		if end > start {
			return s.Buf[start:end], true
		}
	}

	s.pos = -1
	return nil, false
}
