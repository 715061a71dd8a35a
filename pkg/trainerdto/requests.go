package trainerdto

type StartSessionRequest struct {
	GameID  string `json:"game_id"`
	Side    string `json:"side"`
	Variant string `json:"variant,omitempty"`
	Player  string `json:"player,omitempty"`
}

type SubmitMoveRequest struct {
	Move string `json:"move"`
}
