package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysicing/pulseguard/internal/models"
	"github.com/ysicing/pulseguard/internal/repository"
)

// fakeQueue is an in-memory jobQueue double that mirrors the Redis-backed
// queue's pending/active semantics closely enough to exercise Scheduler's
// decision logic (reconcile's skip-if-exists check, dispatch's post-success
// reschedule) without a live Redis.
type fakeQueue struct {
	mu      sync.Mutex
	pending map[uuid.UUID]time.Time
	active  map[uuid.UUID]time.Time
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{pending: map[uuid.UUID]time.Time{}, active: map[uuid.UUID]time.Time{}}
}

func (f *fakeQueue) Enqueue(_ context.Context, monitorID uuid.UUID, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[monitorID] = time.Now().Add(delay)
	return nil
}

func (f *fakeQueue) EnqueueNow(_ context.Context, monitorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[monitorID] = time.Now()
	return nil
}

func (f *fakeQueue) Cancel(_ context.Context, monitorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, monitorID)
	delete(f.active, monitorID)
	return nil
}

func (f *fakeQueue) Exists(_ context.Context, monitorID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pending[monitorID]; ok {
		return true, nil
	}
	_, ok := f.active[monitorID]
	return ok, nil
}

func (f *fakeQueue) ClaimReady(_ context.Context, _ int64, _ time.Duration) ([]uuid.UUID, error) {
	return nil, nil
}

func (f *fakeQueue) ReclaimExpiredLeases(_ context.Context) (int, error) { return 0, nil }

func (f *fakeQueue) Ack(_ context.Context, monitorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, monitorID)
	return nil
}

// Fail mirrors the real queue's "not yet exhausted" branch: drop from
// active and put back on pending for an immediate retry.
func (f *fakeQueue) Fail(_ context.Context, monitorID uuid.UUID, _ int64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, monitorID)
	f.pending[monitorID] = time.Now()
	return 1, false, nil
}

func (f *fakeQueue) Stats(_ context.Context) (Stats, error) { return Stats{}, nil }

func (f *fakeQueue) dueAt(monitorID uuid.UUID) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	due, ok := f.pending[monitorID]
	return due, ok
}

func (f *fakeQueue) markActive(monitorID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[monitorID] = time.Now()
}

// fakeMonitorRepository implements repository.MonitorRepository backed by
// a single fixed monitor set, enough for reconcile (ListActive) and
// dispatch's post-run reschedule lookup (GetByID).
type fakeMonitorRepository struct {
	monitor *models.Monitor
}

func (f *fakeMonitorRepository) Create(context.Context, *models.Monitor) error { return nil }

func (f *fakeMonitorRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Monitor, error) {
	if f.monitor == nil || f.monitor.ID != id {
		return nil, gormNotFound{}
	}
	return f.monitor, nil
}

func (f *fakeMonitorRepository) List(context.Context, repository.MonitorFilter) ([]*models.Monitor, int64, error) {
	return nil, 0, nil
}

func (f *fakeMonitorRepository) ListActive(context.Context) ([]*models.Monitor, error) {
	if f.monitor == nil || !f.monitor.IsActive {
		return nil, nil
	}
	return []*models.Monitor{f.monitor}, nil
}

func (f *fakeMonitorRepository) Update(context.Context, *models.Monitor) error { return nil }
func (f *fakeMonitorRepository) Delete(context.Context, uuid.UUID) error      { return nil }
func (f *fakeMonitorRepository) ApplyCheckOutcome(context.Context, uuid.UUID, repository.CheckOutcome) error {
	return nil
}

// gormNotFound is a minimal stand-in error; dispatch's rescheduleNext only
// needs GetByID to fail, it never inspects the error's type.
type gormNotFound struct{}

func (gormNotFound) Error() string { return "record not found" }

// fakeHandler is a JobHandler whose result is fixed at construction.
type fakeHandler struct{ err error }

func (f fakeHandler) Run(context.Context, uuid.UUID) error { return f.err }

func testMonitor() *models.Monitor {
	return &models.Monitor{
		BaseModel:       models.BaseModel{ID: uuid.New()},
		OwnerID:         uuid.New(),
		Name:            "example",
		Protocol:        models.ProtocolHTTP,
		Target:          "https://example.com",
		IntervalMinutes: 5,
		IsActive:        true,
	}
}

func newTestScheduler(q *fakeQueue, monitors repository.MonitorRepository, handler JobHandler) *Scheduler {
	return &Scheduler{
		queue:      q,
		monitors:   monitors,
		handler:    handler,
		instanceID: "test-scheduler",
		stopCh:     make(chan struct{}),
	}
}

// TestReconcile_SkipsMonitorWithExistingJob guards against reconcileLoop's
// 30s tick re-scheduling (and so clobbering the due time of) a monitor that
// already has a pending or active job — the bug that made a >=5 minute
// probe interval unreachable.
func TestReconcile_SkipsMonitorWithExistingJob(t *testing.T) {
	ctx := context.Background()
	monitor := testMonitor()
	q := newFakeQueue()
	repo := &fakeMonitorRepository{monitor: monitor}
	s := newTestScheduler(q, repo, fakeHandler{})
	s.isLeader.Store(true)

	s.reconcile(ctx)
	firstDue, ok := q.dueAt(monitor.ID)
	require.True(t, ok, "first reconcile should schedule the monitor")

	time.Sleep(5 * time.Millisecond)
	s.reconcile(ctx)
	secondDue, ok := q.dueAt(monitor.ID)
	require.True(t, ok)

	assert.Equal(t, firstDue, secondDue, "reconcile must not re-schedule a monitor that already has a pending job")
	assert.True(t, s.IsReady())
}

// TestReconcile_SchedulesMonitorWithNoJob covers the complementary case: a
// monitor with no pending/active entry (newly active, or one whose job
// vanished) is scheduled.
func TestReconcile_SchedulesMonitorWithNoJob(t *testing.T) {
	ctx := context.Background()
	monitor := testMonitor()
	q := newFakeQueue()
	repo := &fakeMonitorRepository{monitor: monitor}
	s := newTestScheduler(q, repo, fakeHandler{})
	s.isLeader.Store(true)

	s.reconcile(ctx)

	due, ok := q.dueAt(monitor.ID)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), due, 2*time.Second)
}

// TestReconcile_NotLeaderDoesNothing ensures only the elected leader
// reconciles the monitor set (§4.D Leadership).
func TestReconcile_NotLeaderDoesNothing(t *testing.T) {
	ctx := context.Background()
	monitor := testMonitor()
	q := newFakeQueue()
	repo := &fakeMonitorRepository{monitor: monitor}
	s := newTestScheduler(q, repo, fakeHandler{})

	s.reconcile(ctx)

	_, ok := q.dueAt(monitor.ID)
	assert.False(t, ok)
	assert.False(t, s.IsReady())
}

// TestDispatch_ReschedulesNextJobOnSuccess is the regression test for §4.D/
// §4.E's "ack the job and enqueue the next": a successful run must leave
// the monitor with a fresh pending entry, not just an acked active one.
func TestDispatch_ReschedulesNextJobOnSuccess(t *testing.T) {
	ctx := context.Background()
	monitor := testMonitor()
	q := newFakeQueue()
	q.markActive(monitor.ID)
	repo := &fakeMonitorRepository{monitor: monitor}
	s := newTestScheduler(q, repo, fakeHandler{err: nil})

	s.dispatch(ctx, monitor.ID)

	_, stillActive := q.active[monitor.ID]
	assert.False(t, stillActive, "a successfully processed job must be acked off the active set")

	due, scheduled := q.dueAt(monitor.ID)
	require.True(t, scheduled, "dispatch must enqueue the monitor's next job after a successful run")
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), due, 2*time.Second)
}

// TestDispatch_InactiveMonitorNotRescheduled covers §4.D Cancellation: a
// monitor deactivated between claim and completion is acked but not put
// back on the queue.
func TestDispatch_InactiveMonitorNotRescheduled(t *testing.T) {
	ctx := context.Background()
	monitor := testMonitor()
	monitor.IsActive = false
	q := newFakeQueue()
	q.markActive(monitor.ID)
	repo := &fakeMonitorRepository{monitor: monitor}
	s := newTestScheduler(q, repo, fakeHandler{err: nil})

	s.dispatch(ctx, monitor.ID)

	_, scheduled := q.dueAt(monitor.ID)
	assert.False(t, scheduled)
}

// TestDispatch_FailureDoesNotDoubleSchedule asserts a failed run relies on
// queue.Fail's own immediate-retry re-enqueue rather than also going
// through rescheduleNext, so a failing monitor isn't scheduled twice.
func TestDispatch_FailureDoesNotDoubleSchedule(t *testing.T) {
	ctx := context.Background()
	monitor := testMonitor()
	q := newFakeQueue()
	q.markActive(monitor.ID)
	repo := &fakeMonitorRepository{monitor: monitor}
	s := newTestScheduler(q, repo, fakeHandler{err: assertErr})

	s.dispatch(ctx, monitor.ID)

	_, stillActive := q.active[monitor.ID]
	assert.False(t, stillActive)

	due, scheduled := q.dueAt(monitor.ID)
	require.True(t, scheduled, "queue.Fail should have put the job back on pending for an immediate retry")
	assert.WithinDuration(t, time.Now(), due, 2*time.Second,
		"a failed run must be retried immediately, not scheduled a full interval out by rescheduleNext")
}

var assertErr = assertError("probe failed")

type assertError string

func (e assertError) Error() string { return string(e) }
