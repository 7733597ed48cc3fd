package orchestrator

import (
	"sort"
	"sync"
)

// taskStore is the in-process task registry. All returned tasks are
// clones; mutation goes through Update so readers never observe partial
// writes.
type taskStore struct {
	mu      sync.RWMutex
	tasks   map[string]*Task
	nextSeq uint64
}

func newTaskStore() *taskStore {
	return &taskStore{tasks: make(map[string]*Task)}
}

func (s *taskStore) Create(task *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := task.Clone()
	s.nextSeq++
	stored.seq = s.nextSeq
	s.tasks[task.ID] = stored
}

func (s *taskStore) Get(id string) (*Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return task.Clone(), true
}

// Update applies fn to the stored task under the lock.
func (s *taskStore) Update(id string, fn func(*Task)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return false
	}
	fn(task)
	return true
}

func (s *taskStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	return true
}

// List returns all tasks newest first. Timestamp ties fall back to the
// creation sequence so repeated calls yield identical order.
func (s *taskStore) List() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, task.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].seq > out[j].seq
	})
	return out
}

func (s *taskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
