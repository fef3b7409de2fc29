package store

import (
	"sync"
)

// Listener observes every committed snapshot, in commit order.
type Listener func(prev, next State, actions []Action)

// Store owns the state of one conversation surface. All mutations go through
// Dispatch or Update, which serialize on a single lock so each batch commits
// atomically and observers never see a partial batch.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	order     []int
	nextID    int
}

func NewStore(initial State) *Store {
	return &Store{
		state:     initial,
		listeners: make(map[int]Listener),
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies actions as one batch.
func (s *Store) Dispatch(actions ...Action) (State, error) {
	return s.Update(func(State) ([]Action, error) {
		return actions, nil
	})
}

// Update lets plan inspect the current state and return the batch to apply,
// all under the store lock. An error from plan aborts without a commit.
func (s *Store) Update(plan func(current State) ([]Action, error)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := plan(s.state)
	if err != nil {
		return s.state, err
	}
	if len(actions) == 0 {
		return s.state, nil
	}

	next, err := Reduce(s.state, actions...)
	if err != nil {
		return s.state, err
	}
	next.Version = s.state.Version + 1

	prev := s.state
	s.state = next
	for _, id := range s.order {
		s.listeners[id](prev, next, actions)
	}
	return next, nil
}

// Subscribe registers l and returns a function that removes it.
// Listeners run under the store lock and must not dispatch.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.order = append(s.order, id)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.listeners[id]; !ok {
			return
		}
		delete(s.listeners, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
	}
}
