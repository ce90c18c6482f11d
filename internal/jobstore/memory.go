package jobstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trunov/imageconv/internal/entities"
)

var ErrClosed = errors.New("job store closed")

type memoryEntry struct {
	job   entities.Job
	timer *time.Timer
}

// MemoryStore is the in-process Store. Each job schedules its own removal;
// Close cancels every pending removal.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.RWMutex
	jobs   map[string]*memoryEntry
	closed bool
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:  ttl,
		now:  time.Now,
		jobs: make(map[string]*memoryEntry),
	}
}

func (s *MemoryStore) Put(_ context.Context, outputs []entities.ConvertedOutput) (entities.Job, error) {
	created := s.now()
	job := entities.Job{
		ID:        uuid.New().String(),
		Outputs:   append([]entities.ConvertedOutput(nil), outputs...),
		CreatedAt: created,
		ExpiresAt: created.Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return entities.Job{}, ErrClosed
	}
	if _, exists := s.jobs[job.ID]; exists {
		return entities.Job{}, fmt.Errorf("job id collision: %s", job.ID)
	}

	id := job.ID
	s.jobs[id] = &memoryEntry{
		job:   job,
		timer: time.AfterFunc(s.ttl, func() { s.expire(id) }),
	}
	return job, nil
}

func (s *MemoryStore) expire(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; ok {
		delete(s.jobs, id)
		log.Printf("[jobstore] job %s expired", id)
	}
}

func (s *MemoryStore) Get(_ context.Context, jobID string) (entities.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[jobID]
	if !ok {
		return entities.Job{}, fmt.Errorf("job %s: %w", jobID, entities.ErrNotFound)
	}
	return e.job, nil
}

func (s *MemoryStore) GetFile(ctx context.Context, jobID, name string) (entities.ConvertedOutput, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return entities.ConvertedOutput{}, err
	}
	out, ok := job.File(name)
	if !ok {
		return entities.ConvertedOutput{}, fmt.Errorf("file %s in job %s: %w", name, jobID, entities.ErrNotFound)
	}
	return out, nil
}

// Len reports the number of live jobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.jobs {
		e.timer.Stop()
		delete(s.jobs, id)
	}
	s.closed = true
	return nil
}
