package synth

// SetAllocator replaces the buffer allocator so tests can simulate allocation failures.
func SetAllocator(s *Synthesizer, allocate func(size int) ([]byte, error)) {
	s.allocate = allocate
}

// AllocateBuffer exposes the default allocator.
var AllocateBuffer = allocateBuffer
