package coordinator

// future is a single fetch whose outcome can be inspected without blocking.
type future[P any] struct {
	done  chan struct{}
	value P
	err   error
}

func newFuture[P any]() *future[P] {
	return &future[P]{done: make(chan struct{})}
}

// settle must be called exactly once.
func (f *future[P]) settle(value P, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

func (f *future[P]) settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// peek returns the outcome of a settled future. Callers check settled first.
func (f *future[P]) peek() (P, error) {
	return f.value, f.err
}

