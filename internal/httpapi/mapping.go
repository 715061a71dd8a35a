package httpapi

import (
	"time"

	corechess "github.com/park285/chess-guess-trainer/internal/chess"
	"github.com/park285/chess-guess-trainer/internal/domain"
	svctrainer "github.com/park285/chess-guess-trainer/internal/service/trainer"
	coretrainer "github.com/park285/chess-guess-trainer/internal/trainer"
	"github.com/park285/chess-guess-trainer/pkg/trainerdto"
)

func toGame(g svctrainer.GameSummary) trainerdto.Game {
	return trainerdto.Game{
		ID:      g.ID,
		Event:   g.Event,
		Date:    g.Date,
		White:   g.White,
		Black:   g.Black,
		Result:  g.Result,
		Plies:   g.Plies,
		ECO:     g.ECO,
		Opening: g.Opening,
	}
}

func toSuggestions(moves []corechess.MoveSuggestion) []trainerdto.MoveSuggestion {
	out := make([]trainerdto.MoveSuggestion, len(moves))
	for i, m := range moves {
		out[i] = trainerdto.MoveSuggestion{
			UCI:              m.UCI,
			SAN:              m.SAN,
			Evaluation:       trainerdto.Evaluation{Kind: string(m.Eval.Kind), Value: m.Eval.Value},
			DisplayScore:     m.Display,
			RelativeStrength: m.RelativeStrength,
		}
	}
	return out
}

func toState(v *svctrainer.SessionView) trainerdto.SessionState {
	st := v.State
	dto := trainerdto.SessionState{
		SessionID:        v.ID,
		Game:             toGame(v.Game),
		Side:             string(st.Side),
		Variant:          st.Variant,
		BoardFEN:         st.BoardFEN,
		Cursor:           st.Cursor,
		UserPlies:        st.UserPlies,
		Score:            st.Score,
		MaxScore:         st.MaxScore,
		ScorePercentage:  st.ScorePercentage,
		AttemptsUsed:     st.AttemptsUsed,
		AttemptsLeft:     st.AttemptsLeft,
		LastOpponentMove: optional(st.LastOpponentMove),
		OpponentComment:  st.OpponentComment,
		Hint:             st.Hint,
		BestMoves:        toSuggestions(st.BestMoves),
		GameOver:         st.GameOver,
	}
	dto.TimeLimit, dto.TimeLeft = timerFields(st.TimeLimit, st.TimeLeft)
	return dto
}

func toSubmitResult(r coretrainer.SubmitResult) trainerdto.SubmitResult {
	dto := trainerdto.SubmitResult{
		Status:                    string(r.Status),
		IsCorrect:                 r.Correct,
		ValidFormat:               r.ValidFormat,
		Error:                     r.Error,
		SubmittedMove:             r.SubmittedMove,
		CorrectMove:               r.CorrectMove,
		OpponentMove:              r.OpponentMove,
		LastOpponentMove:          optional(r.LastOpponentMove),
		Comment:                   r.Comment,
		OpponentComment:           r.OpponentComment,
		Hint:                      r.Hint,
		IsPawnMove:                r.IsPawnMove,
		MoveQuality:               r.MoveQuality,
		BoardFEN:                  r.BoardFEN,
		Score:                     r.Score,
		ScorePercentage:           r.ScorePercentage,
		MaxScore:                  r.MaxScore,
		PointsEarned:              r.PointsEarned,
		IsCheckmate:               r.IsCheckmate,
		CheckmateBonus:            r.CheckmateBonus,
		Unscored:                  r.Unscored,
		TimedOut:                  r.TimedOut,
		GameOver:                  r.GameOver,
		BestMoves:                 toSuggestions(r.BestMoves),
		PreviousPositionBestMoves: toSuggestions(r.PreviousPositionBestMoves),
		AttemptsUsed:              r.AttemptsUsed,
		AttemptsLeft:              r.AttemptsLeft,
	}
	dto.TimeLimit, dto.TimeLeft = timerFields(r.TimeLimit, r.TimeLeft)
	return dto
}

func toHistory(results []*domain.TrainingResult) trainerdto.History {
	out := trainerdto.History{Results: make([]trainerdto.TrainingResult, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, trainerdto.TrainingResult{
			SessionID:       r.SessionUUID,
			GameID:          r.GameID,
			Side:            string(r.Side),
			Variant:         r.Variant,
			Score:           r.Score,
			MaxScore:        r.MaxScore,
			ScorePercentage: r.Percentage,
			UserPlies:       r.UserPlies,
			Correct:         r.Correct,
			Unscored:        r.Unscored,
			StartedAt:       r.StartedAt,
			EndedAt:         r.EndedAt,
			DurationSeconds: r.Duration.Seconds(),
		})
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timerFields(limit, left time.Duration) (*float64, *float64) {
	if limit <= 0 {
		return nil, nil
	}
	l, r := limit.Seconds(), left.Seconds()
	return &l, &r
}
