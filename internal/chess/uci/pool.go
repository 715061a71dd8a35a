package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/chess-guess-trainer/internal/obslog"
)

var ErrPoolClosed = errors.New("uci: pool closed")

type PoolConfig struct {
	BinaryPath string
	// PerOptionsCapacity bounds live engine processes per distinct Options.
	PerOptionsCapacity int
}

// Pool keeps warm engine processes grouped by the Options they were started
// with. Evaluation (multipv 1) and top-move (multipv k) searches therefore
// never reconfigure each other's processes.
type Pool struct {
	binaryPath string
	capacity   int

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
}

// lane is the set of processes for one Options value. slots holds one token
// per process that may still be started or is idle; a search owns a token
// for as long as it holds a session.
type lane struct {
	slots chan struct{}

	mu   sync.Mutex
	idle []*Session
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("engine binary path required")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("engine binary: %w", err)
	}
	capacity := cfg.PerOptionsCapacity
	if capacity <= 0 {
		capacity = defaultCapacity()
	}
	return &Pool{
		binaryPath: cfg.BinaryPath,
		capacity:   capacity,
		lanes:      make(map[string]*lane),
	}, nil
}

// Acquire returns a ready session for opt, reusing an idle one when
// possible. It waits for a Release when the lane is full.
func (p *Pool) Acquire(ctx context.Context, opt Options) (*Session, error) {
	ln, err := p.lane(opt)
	if err != nil {
		return nil, err
	}

	select {
	case <-ln.slots:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for s := ln.pop(); s != nil; s = ln.pop() {
		if err := s.EnsureReady(ctx); err == nil {
			return s, nil
		}
		obslog.L().Debug("uci_idle_session_stale", zap.Int("multipv", opt.MultiPV))
		_ = s.Close()
	}

	s, err := NewSession(ctx, p.binaryPath, opt)
	if err != nil {
		ln.slots <- struct{}{}
		return nil, err
	}
	s.lane = ln
	return s, nil
}

// Release hands s back to its lane. A session that failed its last command
// is closed instead of reused.
func (p *Pool) Release(s *Session, failure error) {
	if s == nil || s.lane == nil {
		return
	}
	ln := s.lane

	// pushing under p.mu keeps a concurrent Close from missing s
	p.mu.Lock()
	reuse := failure == nil && !p.closed
	if reuse {
		ln.push(s)
	}
	p.mu.Unlock()

	if !reuse {
		_ = s.Close()
	}
	ln.slots <- struct{}{}
}

// Close stops every idle process. Sessions still checked out are closed by
// Release.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	lanes := make([]*lane, 0, len(p.lanes))
	for _, ln := range p.lanes {
		lanes = append(lanes, ln)
	}
	p.mu.Unlock()

	for _, ln := range lanes {
		for s := ln.pop(); s != nil; s = ln.pop() {
			_ = s.Close()
		}
	}
	return nil
}

func (p *Pool) lane(opt Options) (*lane, error) {
	key := optionsKey(opt)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	ln, ok := p.lanes[key]
	if !ok {
		ln = &lane{slots: make(chan struct{}, p.capacity)}
		for range p.capacity {
			ln.slots <- struct{}{}
		}
		p.lanes[key] = ln
	}
	return ln, nil
}

func (ln *lane) pop() *Session {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	n := len(ln.idle)
	if n == 0 {
		return nil
	}
	s := ln.idle[n-1]
	ln.idle = ln.idle[:n-1]
	return s
}

func (ln *lane) push(s *Session) {
	ln.mu.Lock()
	ln.idle = append(ln.idle, s)
	ln.mu.Unlock()
}

func optionsKey(opt Options) string {
	return "t" + strconv.Itoa(opt.Threads) +
		"/s" + strconv.Itoa(opt.SkillLevel) +
		"/h" + strconv.Itoa(opt.HashMB) +
		"/pv" + strconv.Itoa(opt.MultiPV)
}

// defaultCapacity is the CPU count clamped to [2, 4].
func defaultCapacity() int {
	return min(max(runtime.NumCPU(), 2), 4)
}
