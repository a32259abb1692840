package batch

import "sync"

// Progress is a point-in-time view of a running job.
type Progress struct {
	JobID     string `json:"job_id"`
	Current   int    `json:"current"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Percent   int    `json:"percent"`
	Done      bool   `json:"done"`
}

// Tracker keeps the latest progress per job in memory.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]Progress
}

func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]Progress)}
}

// Update records p unless it would move the job backwards.
func (t *Tracker) Update(p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.jobs[p.JobID]; ok && (prev.Done || prev.Current > p.Current) {
		return
	}
	t.jobs[p.JobID] = p
}

func (t *Tracker) Get(jobID string) (Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.jobs[jobID]
	return p, ok
}

// Forget drops a job, typically once its terminal state is persisted.
func (t *Tracker) Forget(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, jobID)
}
