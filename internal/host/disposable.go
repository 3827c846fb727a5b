package host

// Disposable releases a resource or unregisters a listener.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a function to Disposable.
type DisposableFunc func()

// Dispose calls f.
func (f DisposableFunc) Dispose() {
	if f != nil {
		f()
	}
}

// Subscriptions owns a list of disposables and releases them in reverse
// registration order. Dispose drains the list exactly once; anything added
// afterwards is disposed immediately.
type Subscriptions struct {
	items    []Disposable
	disposed bool
}

// Add registers disposables with the list.
func (s *Subscriptions) Add(ds ...Disposable) {
	for _, d := range ds {
		if d == nil {
			continue
		}
		if s.disposed {
			d.Dispose()
			continue
		}
		s.items = append(s.items, d)
	}
}

// Len reports how many disposables are still owned.
func (s *Subscriptions) Len() int {
	return len(s.items)
}

// Disposed reports whether Dispose has run.
func (s *Subscriptions) Disposed() bool {
	return s.disposed
}

// Dispose releases every owned disposable, last registered first.
func (s *Subscriptions) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	for len(s.items) > 0 {
		last := len(s.items) - 1
		d := s.items[last]
		s.items = s.items[:last]
		d.Dispose()
	}
}
