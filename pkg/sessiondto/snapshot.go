package sessiondto

// ChatEntry is one line of the session chat log.
type ChatEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Terminal describes how a finished game ended.
type Terminal struct {
	State  string `json:"state"` // "none" | "checkmate" | "draw" | "resigned"
	Winner string `json:"winner,omitempty"`
	Method string `json:"method,omitempty"`
}

// Snapshot is the read-only view of a session handed to presentation clients.
type Snapshot struct {
	SessionID    string      `json:"session_id"`
	FEN          string      `json:"fen"`
	Turn         string      `json:"turn"` // "human" | "ai_thinking" | "game_over"
	SideToMove   string      `json:"side_to_move"`
	InCheck      bool        `json:"in_check"`
	History      []string    `json:"history"`
	Terminal     Terminal    `json:"terminal"`
	Analysis     string      `json:"analysis,omitempty"`
	ChatLog      []ChatEntry `json:"chat_log"`
	Difficulty   int         `json:"difficulty"`
	LegalTargets []string    `json:"legal_targets,omitempty"`
}

// MoveResult is returned after a human move was accepted.
type MoveResult struct {
	Snapshot  Snapshot `json:"snapshot"`
	PlayerSAN string   `json:"player_san"`
}
