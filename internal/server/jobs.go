package server

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/legaltts/legaltts/internal/pipeline"
)

// Job states.
const (
	StateQueued  = "queued"
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

// JobStatus is the public view of a submitted document.
type JobStatus struct {
	ID        string         `json:"id"`
	Document  string         `json:"document"`
	State     string         `json:"state"`
	Stage     pipeline.Stage `json:"stage,omitempty"`
	Percent   int            `json:"percent"`
	RunID     string         `json:"run_id,omitempty"`
	Error     string         `json:"error,omitempty"`
	Audio     string         `json:"audio,omitempty"`
	Repeats   int            `json:"repeats"`
	Excised   float64        `json:"excised_seconds"`
	Submitted time.Time      `json:"submitted"`
	Finished  *time.Time     `json:"finished,omitempty"`
}

type jobStore struct {
	mu   sync.RWMutex
	jobs map[string]*JobStatus
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*JobStatus)}
}

func (s *jobStore) add(id, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = &JobStatus{
		ID:        id,
		Document:  filepath.Base(path),
		State:     StateQueued,
		Submitted: time.Now(),
	}
}

func (s *jobStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

func (s *jobStore) get(id string) (JobStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return JobStatus{}, false
	}
	return *j, true
}

// list returns every job, newest first.
func (s *jobStore) list() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].Submitted.After(out[k].Submitted)
	})
	return out
}

func (s *jobStore) update(id string, fn func(*JobStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		fn(j)
	}
}

func (s *jobStore) start(id string) {
	s.update(id, func(j *JobStatus) { j.State = StateRunning })
}

func (s *jobStore) progress(id string, e pipeline.Event) {
	s.update(id, func(j *JobStatus) {
		j.RunID = e.RunID
		j.Stage = e.Stage
		j.Percent = e.Percent
	})
}

func (s *jobStore) finish(id string, res *pipeline.Result, err error) {
	s.update(id, func(j *JobStatus) {
		now := time.Now()
		j.Finished = &now
		if res != nil {
			j.RunID = res.RunID
			if res.Dedup != nil {
				j.Repeats = res.Dedup.RepeatCount
				j.Excised = res.Dedup.ExcisedDuration.Seconds()
			}
		}
		if err != nil {
			j.State = StateFailed
			j.Error = err.Error()
			return
		}
		j.State = StateDone
		j.Stage = pipeline.StageDone
		j.Percent = 100
		if res != nil && res.Duration > 0 {
			j.Audio = res.PlayTarget()
		}
	})
}
