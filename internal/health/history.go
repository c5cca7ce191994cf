package health

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"

	"github.com/ysicing/pulseguard/internal/models"
)

// historyDepth is the number of recent checks kept per monitor for the
// evaluator's short-window failure-rate signal, grounded on the teacher's
// fixed-length history array pattern.
const historyDepth = 20

// maxTrackedMonitors bounds the number of per-monitor ring buffers held in
// memory at once; monitors outside the working set are evicted and start
// again from an empty window on their next Record.
const maxTrackedMonitors = 4096

// sample is one entry in a monitor's rolling window.
type sample struct {
	up bool
}

// History is an in-process, memory-bounded cache of each monitor's recent
// check outcomes, used only to compute the windowed failure rate the alert
// engine feeds into its incident threshold; it is never the system of record (that is the
// persisted Check table).
type History struct {
	mu    sync.Mutex
	cache *lru.Cache[uuid.UUID, *ring]
}

// NewHistory creates a History bounded to maxTrackedMonitors entries.
func NewHistory() *History {
	cache, err := lru.New[uuid.UUID, *ring](maxTrackedMonitors)
	if err != nil {
		// Only returns an error for a non-positive size, which is a
		// programmer error given the constant above.
		panic(err)
	}
	return &History{cache: cache}
}

// ring is a fixed-capacity circular buffer of recent samples for one
// monitor.
type ring struct {
	mu      sync.Mutex
	buf     [historyDepth]sample
	size    int
	next    int
}

func (r *ring) push(s sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = s
	r.next = (r.next + 1) % historyDepth
	if r.size < historyDepth {
		r.size++
	}
}

// failureRate returns the fraction of recent samples that were not up (down
// or degraded), over at most historyDepth samples.
func (r *ring) failureRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return 0
	}
	failures := 0
	for i := 0; i < r.size; i++ {
		if !r.buf[i].up {
			failures++
		}
	}
	return float64(failures) / float64(r.size)
}

// Record appends a check outcome for monitorID, creating its ring buffer on
// first use.
func (h *History) Record(monitorID uuid.UUID, status models.CheckStatus) {
	h.mu.Lock()
	r, ok := h.cache.Get(monitorID)
	if !ok {
		r = &ring{}
		h.cache.Add(monitorID, r)
	}
	h.mu.Unlock()
	r.push(sample{up: status == models.CheckStatusUp})
}

// FailureRate returns the short-window failure rate for monitorID, or 0 if
// no samples have been recorded yet.
func (h *History) FailureRate(monitorID uuid.UUID) float64 {
	h.mu.Lock()
	r, ok := h.cache.Get(monitorID)
	h.mu.Unlock()
	if !ok {
		return 0
	}
	return r.failureRate()
}

// Forget drops a monitor's history, called when a monitor is deleted or
// deactivated so a stale window never leaks into a future reused ID.
func (h *History) Forget(monitorID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache.Remove(monitorID)
}
