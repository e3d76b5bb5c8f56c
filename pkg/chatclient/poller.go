package chatclient

import (
	"context"
	"sync"
	"time"
)

// Poller drives periodic state refreshes while the chat view is on screen.
// Ticks are skipped whenever the visibility callback reports the view is
// hidden, so a backgrounded client stops generating traffic.
type Poller struct {
	interval time.Duration
	visible  func() bool
	refresh  func(ctx context.Context)

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewPoller constructs a poller. visible may be nil, in which case every
// tick refreshes.
func NewPoller(interval time.Duration, visible func() bool, refresh func(ctx context.Context)) *Poller {
	if interval <= 0 {
		interval = 2500 * time.Millisecond
	}
	if visible == nil {
		visible = func() bool { return true }
	}

	return &Poller{
		interval: interval,
		visible:  visible,
		refresh:  refresh,
	}
}

// Start begins polling. It refreshes once immediately, then on every tick
// while visible, until Stop is called or the context ends.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.mu.Unlock()

	go p.loop(runCtx)
}

// Stop halts polling. Safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.cancel()
	p.running = false
}

func (p *Poller) loop(ctx context.Context) {
	if p.visible() {
		p.refresh(ctx)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.visible() {
				continue
			}
			p.refresh(ctx)
		}
	}
}
