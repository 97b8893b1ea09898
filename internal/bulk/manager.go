package bulk

import (
	"context"
	"errors"
	"sync"

	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/store"
)

// ErrRunInProgress is returned when a second run is started while one is active
var ErrRunInProgress = errors.New("a bulk run is already in progress")

// ErrNoRun is returned when there is no run to observe or cancel
var ErrNoRun = errors.New("no bulk run")

type run struct {
	token    *Token
	progress *Progress
	done     chan struct{}
}

// Manager hosts at most one bulk run per process and keeps the last run's
// progress readable after it finishes
type Manager struct {
	mu      sync.Mutex
	store   *store.Store
	orch    *Orchestrator
	base    context.Context
	current *run
}

// NewManager creates a manager. Runs inherit values from base; cancelling
// base stops runs at their next checkpoint.
func NewManager(base context.Context, s *store.Store, orch *Orchestrator) *Manager {
	return &Manager{base: base, store: s, orch: orch}
}

// Start prepares reqs and launches the run in the background. It returns
// the plan so the caller can show preparation errors and the total.
func (m *Manager) Start(ctx context.Context, reqs []Request, opts models.GenerationOptions) (*Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.running() {
		return nil, ErrRunInProgress
	}

	plan, err := Prepare(ctx, m.store, reqs, opts)
	if err != nil {
		return nil, err
	}

	r := &run{token: NewToken(), progress: NewProgress(), done: make(chan struct{})}
	r.progress.update(func(s *Snapshot) {
		s.IsRunning = true
		s.Total = plan.Total
		s.Errors = append([]string{}, plan.Errors...)
	})
	m.current = r

	go func() {
		defer close(r.done)
		m.orch.Run(m.base, plan, r.token, r.progress)
	}()
	return plan, nil
}

// running must be called with mu held
func (m *Manager) running() bool {
	select {
	case <-m.current.done:
		return false
	default:
		return true
	}
}

// Current returns the progress of the active or most recent run
func (m *Manager) Current() (Snapshot, error) {
	r, err := m.latest()
	if err != nil {
		return Snapshot{}, err
	}
	return r.progress.Snapshot(), nil
}

// Subscribe streams the progress of the active or most recent run
func (m *Manager) Subscribe() (<-chan Snapshot, func(), error) {
	r, err := m.latest()
	if err != nil {
		return nil, nil, err
	}
	ch, unsubscribe := r.progress.Subscribe()
	return ch, unsubscribe, nil
}

// Cancel requests the active run to stop starting new steps
func (m *Manager) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.running() {
		return ErrNoRun
	}
	m.current.token.Cancel()
	return nil
}

// Wait blocks until the active run, if any, has finished or ctx is done
func (m *Manager) Wait(ctx context.Context) error {
	r, err := m.latest()
	if err != nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) latest() (*run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNoRun
	}
	return m.current, nil
}
