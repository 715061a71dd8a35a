package chess

import (
	"time"

	"github.com/park285/chess-guess-trainer/internal/chess/uci"
)

const (
	defaultDepth    = 15
	defaultHashMB   = 64
	defaultTimeout  = 15 * time.Second
	defaultTopMoves = 3
	fullStrength    = 20
)

// EngineConfig describes how positions are searched. A zero value searches
// at depth 15 with one thread.
type EngineConfig struct {
	BinaryPath     string
	Depth          int
	MoveTimeMillis int
	Threads        int
	HashMB         int
	PoolSize       int
	Timeout        time.Duration
	TopMoves       int
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.Depth <= 0 && c.MoveTimeMillis <= 0 {
		c.Depth = defaultDepth
	}
	if c.Threads <= 0 {
		c.Threads = 1
	}
	if c.HashMB <= 0 {
		c.HashMB = defaultHashMB
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.TopMoves <= 0 {
		c.TopMoves = defaultTopMoves
	}
	return c
}

func (c EngineConfig) limits() uci.Limits {
	return uci.Limits{Depth: c.Depth, MoveTimeMillis: c.MoveTimeMillis}
}

func (c EngineConfig) options(multiPV int) uci.Options {
	if multiPV <= 0 {
		multiPV = 1
	}
	return uci.Options{
		Threads:    c.Threads,
		SkillLevel: fullStrength,
		HashMB:     c.HashMB,
		MultiPV:    multiPV,
	}
}
