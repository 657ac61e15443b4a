package app

import "sync"

// Store holds the single State value, applies events through Reduce and fans
// snapshots out to subscribers.
type Store struct {
	mu          sync.RWMutex
	state       State
	subscribers map[chan State]struct{}
	observers   []func(State)
}

func NewStore() *Store {
	return &Store{
		state:       initialState(),
		subscribers: make(map[chan State]struct{}),
	}
}

// Apply reduces e into the state and returns the states before and after.
// Observers run after the lock is released and see the newest state, not
// necessarily next, so they must reconcile rather than diff.
func (s *Store) Apply(e Event) (prev, next State) {
	s.mu.Lock()
	prev = s.state
	next = Reduce(prev, e)
	s.state = next
	s.broadcastLocked()
	observers := s.observers
	s.mu.Unlock()

	for _, observe := range observers {
		observe(s.Snapshot())
	}
	return prev, next
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Observe registers fn to run after every Apply.
func (s *Store) Observe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Subscribe returns a channel of state snapshots, primed with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Store) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.state
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Store) broadcastLocked() {
	for ch := range s.subscribers {
		select {
		case ch <- s.state:
		default:
			// slow subscriber: replace its oldest snapshot with the newest
			select {
			case <-ch:
			default:
			}
			ch <- s.state
		}
	}
}
