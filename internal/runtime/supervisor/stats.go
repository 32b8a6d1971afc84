package supervisor

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// RunStats aggregates every run of one goroutine name.
type RunStats struct {
	Name        string        `json:"name"`
	Active      int           `json:"active"`
	Runs        int           `json:"runs"`
	Restarts    int           `json:"restarts"`
	Panics      int           `json:"panics"`
	LastStartAt time.Time     `json:"last_start_at"`
	LastErr     string        `json:"last_err,omitempty"`
	LastErrAt   time.Time     `json:"last_err_at,omitempty"`
	LastPanic   string        `json:"last_panic,omitempty"`
	Uptime      time.Duration `json:"uptime"`
}

type Snapshot struct {
	FirstError string     `json:"first_error,omitempty"`
	Goroutines []RunStats `json:"goroutines"`
}

type statsTable struct {
	mu sync.Mutex
	m  map[string]*RunStats
}

func (t *statsTable) get(name string) *RunStats {
	if t.m == nil {
		t.m = map[string]*RunStats{}
	}
	st := t.m[name]
	if st == nil {
		st = &RunStats{Name: name}
		t.m[name] = st
	}
	return st
}

func (t *statsTable) start(name string, restart bool) time.Time {
	now := time.Now()
	t.mu.Lock()
	st := t.get(name)
	st.Active++
	st.Runs++
	if restart {
		st.Restarts++
	}
	st.LastStartAt = now
	t.mu.Unlock()
	return now
}

func (t *statsTable) stop(name string, startedAt time.Time, err error) {
	t.mu.Lock()
	st := t.get(name)
	if st.Active > 0 {
		st.Active--
	}
	st.Uptime += time.Since(startedAt)
	if err != nil {
		st.LastErr = err.Error()
		st.LastErrAt = time.Now()
	}
	t.mu.Unlock()
}

func (t *statsTable) panicked(name string, p any) {
	t.mu.Lock()
	st := t.get(name)
	st.Panics++
	st.LastPanic = fmt.Sprint(p)
	t.mu.Unlock()
}

// Snapshot copies the current statistics, active goroutines first.
func (s *Supervisor) Snapshot() Snapshot {
	var snap Snapshot
	if err := s.Err(); err != nil {
		snap.FirstError = err.Error()
	}
	s.stats.mu.Lock()
	for _, st := range s.stats.m {
		snap.Goroutines = append(snap.Goroutines, *st)
	}
	s.stats.mu.Unlock()

	sort.Slice(snap.Goroutines, func(i, j int) bool {
		a, b := snap.Goroutines[i], snap.Goroutines[j]
		if (a.Active > 0) != (b.Active > 0) {
			return a.Active > 0
		}
		return a.Name < b.Name
	})
	return snap
}
