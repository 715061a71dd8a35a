package trainerdto

import "time"

type Game struct {
	ID      string `json:"id"`
	Event   string `json:"event,omitempty"`
	Date    string `json:"date,omitempty"`
	White   string `json:"white,omitempty"`
	Black   string `json:"black,omitempty"`
	Result  string `json:"result,omitempty"`
	Plies   int    `json:"plies"`
	ECO     string `json:"eco,omitempty"`
	Opening string `json:"opening,omitempty"`
}

type GameList struct {
	Games    []Game   `json:"games"`
	Variants []string `json:"variants"`
}

type Evaluation struct {
	Kind  string `json:"kind"`
	Value int    `json:"value"`
}

// MoveSuggestion is one engine line for the current position.
type MoveSuggestion struct {
	UCI              string     `json:"uci"`
	SAN              string     `json:"san"`
	Evaluation       Evaluation `json:"evaluation"`
	DisplayScore     string     `json:"display_score"`
	RelativeStrength float64    `json:"relative_strength"`
}

// SessionState mirrors a session between submissions. Durations are in
// seconds; timer fields are omitted for untimed variants.
type SessionState struct {
	SessionID        string           `json:"session_id"`
	Game             Game             `json:"game"`
	Side             string           `json:"side"`
	Variant          string           `json:"variant"`
	BoardFEN         string           `json:"board_fen"`
	Cursor           int              `json:"cursor"`
	UserPlies        int              `json:"user_plies"`
	Score            int              `json:"score"`
	MaxScore         int              `json:"max_score"`
	ScorePercentage  float64          `json:"score_percentage"`
	AttemptsUsed     int              `json:"attempts_used"`
	AttemptsLeft     int              `json:"attempts_left"`
	LastOpponentMove *string          `json:"last_opponent_move"`
	OpponentComment  string           `json:"opponent_comment,omitempty"`
	Hint             string           `json:"hint,omitempty"`
	BestMoves        []MoveSuggestion `json:"best_moves"`
	GameOver         bool             `json:"game_over"`
	TimeLimit        *float64         `json:"time_limit,omitempty"`
	TimeLeft         *float64         `json:"time_left,omitempty"`
}

// SubmitResult is the response to one submitted move.
type SubmitResult struct {
	Status      string `json:"status"`
	IsCorrect   bool   `json:"is_correct"`
	ValidFormat bool   `json:"valid_format"`
	Error       string `json:"error,omitempty"`

	SubmittedMove    string  `json:"submitted_move,omitempty"`
	CorrectMove      string  `json:"correct_move,omitempty"`
	OpponentMove     string  `json:"opponent_move,omitempty"`
	LastOpponentMove *string `json:"last_opponent_move"`
	Comment          string  `json:"comment,omitempty"`
	OpponentComment  string  `json:"opponent_comment,omitempty"`
	Hint             string  `json:"hint,omitempty"`
	IsPawnMove       bool    `json:"is_pawn_move"`
	MoveQuality      string  `json:"move_quality,omitempty"`

	BoardFEN        string  `json:"board_fen"`
	Score           int     `json:"score"`
	ScorePercentage float64 `json:"score_percentage"`
	MaxScore        int     `json:"max_score"`
	PointsEarned    int     `json:"points_earned"`
	IsCheckmate     bool    `json:"is_checkmate"`
	CheckmateBonus  int     `json:"checkmate_bonus"`
	Unscored        bool    `json:"unscored"`
	TimedOut        bool    `json:"timed_out,omitempty"`
	GameOver        bool    `json:"game_over"`

	BestMoves                 []MoveSuggestion `json:"best_moves"`
	PreviousPositionBestMoves []MoveSuggestion `json:"previous_position_best_moves"`

	AttemptsUsed int      `json:"attempts_used"`
	AttemptsLeft int      `json:"attempts_left"`
	TimeLimit    *float64 `json:"time_limit,omitempty"`
	TimeLeft     *float64 `json:"time_left,omitempty"`
}

type TrainingResult struct {
	SessionID       string    `json:"session_id"`
	GameID          string    `json:"game_id"`
	Side            string    `json:"side"`
	Variant         string    `json:"variant"`
	Score           int       `json:"score"`
	MaxScore        int       `json:"max_score"`
	ScorePercentage float64   `json:"score_percentage"`
	UserPlies       int       `json:"user_plies"`
	Correct         int       `json:"correct"`
	Unscored        int       `json:"unscored"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds float64   `json:"duration_seconds"`
}

type History struct {
	Results []TrainingResult `json:"results"`
}
