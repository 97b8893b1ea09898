package bulk

import (
	"sync"
	"time"
)

// StepView is one successful step as shown to progress readers
type StepView struct {
	SiteID    string `json:"site_id"`
	SiteName  string `json:"site_name"`
	ArticleID string `json:"article_id"`
	Title     string `json:"title"`
	Keyword   string `json:"keyword"`
}

// Snapshot is a copy of the progress state at one point in time
type Snapshot struct {
	IsRunning   bool       `json:"is_running"`
	Total       int        `json:"total"`
	Completed   int        `json:"completed"`
	CurrentSite string     `json:"current_site"`
	Errors      []string   `json:"errors"`
	Results     []StepView `json:"results"`
	Cancelled   bool       `json:"cancelled"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Errors = append([]string{}, s.Errors...)
	out.Results = append([]StepView{}, s.Results...)
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

// Progress is owned by one run. Only the orchestrator writes to it; any
// number of readers may poll Snapshot or Subscribe.
type Progress struct {
	mu     sync.RWMutex
	state  Snapshot
	subs   map[chan Snapshot]struct{}
	closed bool
}

// NewProgress returns an idle progress tracker
func NewProgress() *Progress {
	return &Progress{
		state: Snapshot{Errors: []string{}, Results: []StepView{}},
		subs:  make(map[chan Snapshot]struct{}),
	}
}

// Snapshot returns a copy of the current state
func (p *Progress) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.clone()
}

// Subscribe returns a channel receiving the latest snapshot after every
// change. Slow readers only see the newest state. The channel is closed
// after the final snapshot of the run or when unsubscribe is called.
func (p *Progress) Subscribe() (<-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan Snapshot, 1)
	ch <- p.state.clone()
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	p.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if _, ok := p.subs[ch]; ok {
				delete(p.subs, ch)
				close(ch)
			}
		})
	}
}

func (p *Progress) update(fn func(*Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
	p.broadcast()
}

// finish applies fn, publishes the final state and closes every subscription
func (p *Progress) finish(fn func(*Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
	p.broadcast()
	for ch := range p.subs {
		close(ch)
	}
	p.subs = map[chan Snapshot]struct{}{}
	p.closed = true
}

// broadcast must be called with mu held
func (p *Progress) broadcast() {
	snap := p.state.clone()
	for ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
