package observer

import "sync"

// List is a set of callbacks notified in subscription order. Notify calls
// observers outside the list lock so an observer may unsubscribe itself.
type List[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	observers []entry[T]
}

type entry[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (l *List[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.observers = append(l.observers, entry[T]{id: id, fn: fn})
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, e := range l.observers {
			if e.id == id {
				l.observers = append(l.observers[:i:i], l.observers[i+1:]...)
				return
			}
		}
	}
}

// Notify delivers event to every current observer.
func (l *List[T]) Notify(event T) {
	l.mu.Lock()
	snapshot := make([]func(T), len(l.observers))
	for i, e := range l.observers {
		snapshot[i] = e.fn
	}
	l.mu.Unlock()

	for _, fn := range snapshot {
		fn(event)
	}
}

func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.observers)
}
