package trainer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	corechess "github.com/park285/chess-guess-trainer/internal/chess"
	"github.com/park285/chess-guess-trainer/internal/domain"
	"github.com/park285/chess-guess-trainer/internal/msgcat"
	coretrainer "github.com/park285/chess-guess-trainer/internal/trainer"
)

type countingEngine struct {
	evalCalls int
	topCalls  int
	err       error
}

func (e *countingEngine) Evaluate(_ context.Context, _ string, _ string) (corechess.Evaluation, error) {
	e.evalCalls++
	if e.err != nil {
		return corechess.Evaluation{}, e.err
	}
	return corechess.Evaluation{Kind: corechess.Centipawn, Value: 25}, nil
}

func (e *countingEngine) TopMoves(_ context.Context, _ string, k int) ([]corechess.MoveSuggestion, error) {
	e.topCalls++
	if e.err != nil {
		return nil, e.err
	}
	return []corechess.MoveSuggestion{{UCI: "e2e4", SAN: "e4", Eval: corechess.Evaluation{Kind: corechess.Centipawn, Value: 30}, Display: "0.30", RelativeStrength: 100}}, nil
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func openingGame() *domain.HistoricalGame {
	return &domain.HistoricalGame{
		ID:     "open",
		Event:  "Club",
		White:  "A",
		Black:  "B",
		Result: "*",
		Plies:  []string{"e2e4", "e7e5", "g1f3", "b8c6"},
	}
}

func newTestService(t *testing.T, repo Repository, clock *testClock) *Service {
	t.Helper()
	msgs, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	cfg := Config{SessionTTL: time.Hour, PerMoveCap: 15, TopMoves: 3, MoveLocale: "fr"}
	if clock != nil {
		cfg.Now = clock.Now
	}
	svc, err := NewService(NewLibrary(openingGame()), &countingEngine{}, repo, msgs, cfg, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestServiceSessionLifecycle(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(t, repo, nil)
	ctx := context.Background()

	view, err := svc.StartSession(ctx, StartRequest{GameID: "open", Side: "white", Variant: "", Player: "alice"})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if view.ID == "" || view.State.Variant != "classic" || view.Game.Plies != 4 {
		t.Fatalf("view = %+v", view)
	}
	if svc.ActiveSessions() != 1 {
		t.Fatalf("active sessions = %d", svc.ActiveSessions())
	}

	res, err := svc.Submit(ctx, view.ID, "e4")
	if err != nil || !res.Correct {
		t.Fatalf("Submit e4: %+v %v", res, err)
	}
	// fr locale: C is the knight
	res, err = svc.Submit(ctx, view.ID, "Cf3")
	if err != nil || !res.Correct || !res.GameOver {
		t.Fatalf("Submit Cf3: %+v %v", res, err)
	}

	if _, err := svc.Submit(ctx, view.ID, "d4"); !errors.Is(err, coretrainer.ErrGameComplete) {
		t.Fatalf("expected ErrGameComplete, got %v", err)
	}

	history, err := svc.History(ctx, "alice", 10)
	if err != nil || len(history) != 1 {
		t.Fatalf("History: %v %v", history, err)
	}
	got := history[0]
	if got.SessionUUID != view.ID || got.Score != 20 || got.MaxScore != 30 || got.Correct != 2 || got.Side != domain.White {
		t.Fatalf("stored result = %+v", got)
	}
	if got.PlayerHash == "alice" || got.PlayerHash != playerHash("alice") {
		t.Fatalf("player hash = %q", got.PlayerHash)
	}

	st, err := svc.State(ctx, view.ID)
	if err != nil || !st.State.GameOver {
		t.Fatalf("State: %+v %v", st, err)
	}
	if err := svc.Delete(ctx, view.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.State(ctx, view.ID); !errors.Is(err, coretrainer.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, view.ID); !errors.Is(err, coretrainer.ErrSessionNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestServiceStartErrors(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	if _, err := svc.StartSession(ctx, StartRequest{GameID: "nope", Side: "white"}); !errors.Is(err, coretrainer.ErrUnknownGame) {
		t.Fatalf("unknown game: %v", err)
	}
	if _, err := svc.StartSession(ctx, StartRequest{GameID: "open", Side: "green"}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("bad side: %v", err)
	}
	if _, err := svc.StartSession(ctx, StartRequest{GameID: "open", Side: "black", Variant: "marathon"}); !errors.Is(err, coretrainer.ErrUnknownVariant) {
		t.Fatalf("unknown variant: %v", err)
	}
	if _, err := svc.Submit(ctx, "missing", "e4"); !errors.Is(err, coretrainer.ErrSessionNotFound) {
		t.Fatalf("missing session: %v", err)
	}
	if _, err := svc.History(ctx, "  ", 5); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("empty player: %v", err)
	}
}

func TestServiceBlackSideStartsAfterOpponentMove(t *testing.T) {
	svc := newTestService(t, nil, nil)
	view, err := svc.StartSession(context.Background(), StartRequest{GameID: "open", Side: "b", Variant: "three-tries"})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if view.State.LastOpponentMove != "e4" || view.State.AttemptsLeft != 3 || view.State.UserPlies != 2 {
		t.Fatalf("state = %+v", view.State)
	}
}

func TestServiceAnonymousSessionIsNotStored(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(t, repo, nil)
	ctx := context.Background()
	view, err := svc.StartSession(ctx, StartRequest{GameID: "open", Side: "white"})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	for _, mv := range []string{"e2e4", "g1f3"} {
		if _, err := svc.Submit(ctx, view.ID, mv); err != nil {
			t.Fatalf("Submit %s: %v", mv, err)
		}
	}
	got, _ := repo.RecentResults(ctx, "", 10)
	if len(got) != 0 {
		t.Fatalf("anonymous result stored: %+v", got)
	}
}

func TestServiceSessionsExpire(t *testing.T) {
	clock := &testClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(t, nil, clock)
	view, err := svc.StartSession(context.Background(), StartRequest{GameID: "open", Side: "white"})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	clock.t = clock.t.Add(2 * time.Hour)
	if _, err := svc.Submit(context.Background(), view.ID, "e4"); !errors.Is(err, coretrainer.ErrSessionNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestLoadLibrary(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"immortal.pgn": "[Event \"Casual\"]\n[White \"Anderssen\"]\n[Black \"Kieseritzky\"]\n[Result \"*\"]\n\n1. e4 e5 2. f4 exf4 *\n",
		"queens.yaml":  "event: Sample\nwhite: W\nblack: B\nmoves: [d4, d5, c4]\ncomments: [\"queen pawn\"]\n",
		"broken.yaml":  "moves: [e5]\n",
		"notes.txt":    "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	lib, err := LoadLibrary(dir, nil)
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	list := lib.List()
	if len(list) != 2 || list[0].ID != "immortal" || list[1].ID != "queens" {
		t.Fatalf("list = %+v", list)
	}
	if list[0].White != "Anderssen" || list[0].Plies != 4 || list[1].Plies != 3 {
		t.Fatalf("summaries = %+v", list)
	}
	if list[0].ECO != "C33" || !strings.HasPrefix(list[0].Opening, "King's Gambit Accepted") {
		t.Fatalf("immortal opening = %s %q", list[0].ECO, list[0].Opening)
	}
	if list[1].ECO != "D06" {
		t.Fatalf("queens opening = %s %q", list[1].ECO, list[1].Opening)
	}
	g, err := lib.Get("queens")
	if err != nil || g.Plies[2] != "c2c4" || g.Comment(0) != "queen pawn" {
		t.Fatalf("Get queens = %+v %v", g, err)
	}
	if _, err := lib.Get("broken"); !errors.Is(err, coretrainer.ErrUnknownGame) {
		t.Fatalf("broken game should be skipped: %v", err)
	}
	if _, err := LoadLibrary(filepath.Join(dir, "missing"), nil); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"s1", "s2", "s3"} {
		_, err := repo.InsertResult(ctx, &domain.TrainingResult{SessionUUID: id, PlayerHash: "p", EndedAt: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if _, err := repo.InsertResult(ctx, &domain.TrainingResult{SessionUUID: "s2", PlayerHash: "p"}); !errors.Is(err, ErrDuplicateResult) {
		t.Fatalf("duplicate insert: %v", err)
	}
	got, err := repo.RecentResults(ctx, "p", 2)
	if err != nil || len(got) != 2 || got[0].SessionUUID != "s3" || got[1].SessionUUID != "s2" {
		t.Fatalf("recent = %+v %v", got, err)
	}
	if got[0].ID != 3 {
		t.Fatalf("id = %d", got[0].ID)
	}
}
