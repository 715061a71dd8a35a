package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-guess-trainer/internal/obslog"
)

const (
	handshakeTimeout = 4 * time.Second
	readyAttempts    = 3
	readyBackoff     = 150 * time.Millisecond
	moveOverheadMS   = 100
)

var errEngineExited = errors.New("engine process exited")

// Options are the setoption values a process is started with. Processes are
// only shared between searches that agree on all of them.
type Options struct {
	Threads    int
	SkillLevel int
	HashMB     int
	MultiPV    int
}

// Limits bound a single search. At least one must be set.
type Limits struct {
	Depth          int
	MoveTimeMillis int
	NodeCap        int
}

const (
	ScoreCP   = "cp"
	ScoreMate = "mate"
)

// Candidate is one multipv line, scored relative to the side to move.
// Move is empty when the engine reports a score without a pv, which happens
// in mated or stalemated positions.
type Candidate struct {
	Move       string
	ScoreKind  string
	ScoreValue int
	Principal  []string
}

type SearchRequest struct {
	FEN    string
	Moves  []string
	Limits Limits
}

type SearchResponse struct {
	Candidates []Candidate
	BestMove   string
}

// Session is one running engine process. Searches on a session are
// serialized.
type Session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string
	quit  chan struct{}

	writeMu  sync.Mutex
	searchMu sync.Mutex
	once     sync.Once
	waitErr  error

	lane *lane
}

// NewSession starts binaryPath and runs the uci handshake with opt applied.
func NewSession(ctx context.Context, binaryPath string, opt Options) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}

	cmd := exec.Command(binaryPath)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("engine stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{cmd: cmd, stdin: stdin, lines: make(chan string, 64), quit: make(chan struct{})}
	go s.pump(stdout)

	if err := s.handshake(ctx, opt); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// pump forwards engine output line by line until the process closes stdout.
func (s *Session) pump(r io.Reader) {
	defer close(s.lines)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		select {
		case s.lines <- strings.TrimSpace(sc.Text()):
		case <-s.quit:
			return
		}
	}
}

func (s *Session) handshake(ctx context.Context, opt Options) error {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	if err := s.write("uci\n"); err != nil {
		return err
	}
	if err := s.expect(ctx, "uciok"); err != nil {
		return fmt.Errorf("uci handshake: %w", err)
	}
	for _, line := range optionCommands(opt) {
		if err := s.write(line); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	if err := s.write("isready\n"); err != nil {
		return err
	}
	if err := s.expect(ctx, "readyok"); err != nil {
		return fmt.Errorf("uci handshake: %w", err)
	}
	return nil
}

func optionCommands(opt Options) []string {
	threads := max(opt.Threads, 1)
	return []string{
		"setoption name Threads value " + strconv.Itoa(threads) + "\n",
		"setoption name Hash value " + strconv.Itoa(opt.HashMB) + "\n",
		"setoption name Skill Level value " + strconv.Itoa(opt.SkillLevel) + "\n",
		"setoption name MultiPV value " + strconv.Itoa(opt.MultiPV) + "\n",
		"setoption name Move Overhead value " + strconv.Itoa(moveOverheadMS) + "\n",
	}
}

// EnsureReady round-trips isready.
func (s *Session) EnsureReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	if err := s.write("isready\n"); err != nil {
		return err
	}
	if err := s.expect(ctx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// NewGame clears engine state between unrelated positions. Slow engines
// get a few chances to answer isready after ucinewgame.
func (s *Session) NewGame(ctx context.Context) error {
	if err := s.write("ucinewgame\n"); err != nil {
		return err
	}
	var err error
	for attempt := 1; attempt <= readyAttempts; attempt++ {
		if err = s.EnsureReady(ctx); err == nil || errors.Is(err, errEngineExited) {
			return err
		}
		obslog.L().Debug("uci_ready_retry", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == readyAttempts {
			break
		}
		t := time.NewTimer(readyBackoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}

// Search sends the position and reads info lines until bestmove.
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()

	goTokens, err := buildGoTokens(req.Limits)
	if err != nil {
		return SearchResponse{}, err
	}
	position := buildPositionCommand(req.FEN, req.Moves)
	if err := s.write(position); err != nil {
		return SearchResponse{}, err
	}
	if err := s.write(strings.Join(goTokens, " ") + "\n"); err != nil {
		return SearchResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, computeSearchTimeout(req.Limits))
	defer cancel()

	lines := make(map[int]Candidate)
	for {
		line, err := s.next(ctx)
		if err != nil {
			obslog.L().Warn("uci_search_aborted",
				zap.String("position", strings.TrimSpace(position)),
				zap.Strings("go", goTokens),
				zap.Error(err))
			// the engine is still searching; stop it so a later search on
			// this process does not read stale output
			_ = s.write("stop\n")
			return SearchResponse{}, err
		}
		if rest, ok := strings.CutPrefix(line, "bestmove"); ok {
			var best string
			if f := strings.Fields(rest); len(f) > 0 {
				best = f[0]
			}
			return SearchResponse{Candidates: collapseCandidates(lines), BestMove: best}, nil
		}
		if strings.HasPrefix(line, "info ") {
			if idx, cand, ok := parseInfo(line); ok {
				lines[idx] = cand
			}
		}
	}
}

// Close kills the process and reaps it. It is safe to call more than once.
func (s *Session) Close() error {
	s.once.Do(func() {
		close(s.quit)
		_ = s.write("quit\n")
		_ = s.stdin.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

func (s *Session) write(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := io.WriteString(s.stdin, line); err != nil {
		return fmt.Errorf("write %q: %w", strings.TrimSpace(line), err)
	}
	return nil
}

func (s *Session) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			return "", errEngineExited
		}
		return line, nil
	}
}

func (s *Session) expect(ctx context.Context, token string) error {
	for {
		line, err := s.next(ctx)
		if err != nil {
			return err
		}
		if line == token {
			return nil
		}
	}
}

func buildPositionCommand(fen string, moves []string) string {
	cmd := "position startpos"
	if f := strings.TrimSpace(fen); f != "" && f != "startpos" {
		cmd = "position fen " + f
	}
	if len(moves) > 0 {
		cmd += " moves " + strings.Join(moves, " ")
	}
	return cmd + "\n"
}

func buildGoTokens(l Limits) ([]string, error) {
	tokens := []string{"go"}
	add := func(name string, v int) {
		if v > 0 {
			tokens = append(tokens, name, strconv.Itoa(v))
		}
	}
	add("depth", l.Depth)
	add("movetime", l.MoveTimeMillis)
	add("nodes", l.NodeCap)
	if len(tokens) == 1 {
		return nil, errors.New("search needs a depth, movetime or node limit")
	}
	return tokens, nil
}

// computeSearchTimeout is the read deadline for one search. Movetime
// searches get three times the budget plus slack; depth searches scale
// with depth inside [6s, 20s].
func computeSearchTimeout(l Limits) time.Duration {
	const (
		floor   = 6 * time.Second
		ceiling = 20 * time.Second
	)
	if l.MoveTimeMillis > 0 {
		return 3 * time.Duration(l.MoveTimeMillis+2000) * time.Millisecond
	}
	if l.Depth > 0 {
		return min(max(time.Duration(l.Depth)*300*time.Millisecond, floor), ceiling)
	}
	return floor
}

func validateOptions(opt Options) error {
	switch {
	case opt.SkillLevel < 0 || opt.SkillLevel > 20:
		return fmt.Errorf("skill level %d outside 0..20", opt.SkillLevel)
	case opt.HashMB < 1:
		return fmt.Errorf("hash must be positive, got %d", opt.HashMB)
	case opt.MultiPV < 1:
		return fmt.Errorf("multipv must be positive, got %d", opt.MultiPV)
	}
	return nil
}

// parseInfo reads the multipv index and score of an info line. Lines
// without a cp or mate score are rejected. Bound markers are ignored.
func parseInfo(line string) (int, Candidate, bool) {
	fields := strings.Fields(line)
	idx := 1
	var (
		cand   Candidate
		scored bool
	)
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "multipv":
			if i+1 < len(fields) {
				if v, err := strconv.Atoi(fields[i+1]); err == nil {
					idx = v
				}
				i++
			}
		case "score":
			if i+2 >= len(fields) {
				continue
			}
			kind := fields[i+1]
			v, err := strconv.Atoi(fields[i+2])
			if err == nil && (kind == ScoreCP || kind == ScoreMate) {
				cand.ScoreKind, cand.ScoreValue, scored = kind, v, true
			}
			i += 2
		case "pv":
			if pv := fields[i+1:]; len(pv) > 0 {
				cand.Principal = slices.Clone(pv)
				cand.Move = pv[0]
			}
			i = len(fields)
		}
	}
	if !scored {
		return 0, Candidate{}, false
	}
	return idx, cand, true
}

// collapseCandidates orders the latest line per multipv index.
func collapseCandidates(byIndex map[int]Candidate) []Candidate {
	if len(byIndex) == 0 {
		return nil
	}
	idx := make([]int, 0, len(byIndex))
	for k := range byIndex {
		idx = append(idx, k)
	}
	slices.Sort(idx)
	out := make([]Candidate, len(idx))
	for i, k := range idx {
		out[i] = byIndex[k]
	}
	return out
}
