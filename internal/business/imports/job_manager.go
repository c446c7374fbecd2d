package imports

import "sync"

// JobManager keeps the stop handles of running watches.
// It allows external cancellation of a watch by its ID.
type JobManager struct {
	mu    sync.RWMutex
	stops map[string]func()
}

// NewJobManager creates a new JobManager instance.
func NewJobManager() *JobManager {
	return &JobManager{
		stops: make(map[string]func()),
	}
}

// Register stores the stop handle of a watch that just started.
func (jm *JobManager) Register(watchID string, stop func()) {
	jm.mu.Lock()
	jm.stops[watchID] = stop
	n := len(jm.stops)
	jm.mu.Unlock()
	setActiveWatches(n)
}

// Cancel stops a watch if it is registered.
// Returns true if the watch was found and stopped.
func (jm *JobManager) Cancel(watchID string) bool {
	jm.mu.Lock()
	stop, ok := jm.stops[watchID]
	delete(jm.stops, watchID)
	n := len(jm.stops)
	jm.mu.Unlock()
	if !ok {
		return false
	}
	stop()
	setActiveWatches(n)
	return true
}

// CancelAll stops every registered watch and returns how many there were.
func (jm *JobManager) CancelAll() int {
	jm.mu.Lock()
	stops := jm.stops
	jm.stops = make(map[string]func())
	jm.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	setActiveWatches(0)
	return len(stops)
}

// Unregister forgets a watch that ended on its own.
func (jm *JobManager) Unregister(watchID string) {
	jm.mu.Lock()
	delete(jm.stops, watchID)
	n := len(jm.stops)
	jm.mu.Unlock()
	setActiveWatches(n)
}

// IsRunning checks if a watch is currently registered.
func (jm *JobManager) IsRunning(watchID string) bool {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	_, ok := jm.stops[watchID]
	return ok
}
