package session

import "context"

type TurnState string

const (
	TurnHuman      TurnState = "human"
	TurnAiThinking TurnState = "ai_thinking"
	TurnGameOver   TurnState = "game_over"
)

const (
	TerminalNone      = "none"
	TerminalCheckmate = "checkmate"
	TerminalDraw      = "draw"
	TerminalResigned  = "resigned"
)

const (
	RolePlayer = "player"
	RoleCoach  = "coach"
	RoleSystem = "system"
)

const (
	MinDifficulty = 100
	MaxDifficulty = 4000
)

// Terminal describes how a finished game ended.
type Terminal struct {
	State  string
	Winner string
	Method string
}

// ChatEntry is one appended line of the session chat log.
type ChatEntry struct {
	Role string
	Text string
}

// MoveQuery asks the model for a move in the given position.
type MoveQuery struct {
	FEN        string
	History    []string // recent SAN window, oldest first
	Difficulty int
}

// AnalysisQuery asks the model for a short commentary on the position.
type AnalysisQuery struct {
	FEN        string
	History    []string
	Difficulty int
}

// ChatQuery asks the model for a conversational reply.
type ChatQuery struct {
	Text       string
	FEN        string
	History    []string
	Difficulty int
	Hostile    bool
}

// MoveProvider returns a move token for the position, or "" on any
// failure. Implementations never surface errors past this boundary and
// give no legality guarantee; callers must validate the token.
type MoveProvider interface {
	SuggestMove(ctx context.Context, q MoveQuery) string
}

// AnalysisProvider returns a short commentary, or a fixed fallback string
// on failure. Never returns an error.
type AnalysisProvider interface {
	Commentary(ctx context.Context, q AnalysisQuery) string
}

// ChatProvider returns a conversational reply, or a fixed fallback string
// on failure. Never returns an error.
type ChatProvider interface {
	Reply(ctx context.Context, q ChatQuery) string
}

// Event is a session lifecycle notification for presentation clients.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Ply       int    `json:"ply,omitempty"`
	SAN       string `json:"san,omitempty"`
	Turn      string `json:"turn,omitempty"`
	Text      string `json:"text,omitempty"`
}

const (
	EventMoveApplied = "move_applied"
	EventAiThinking  = "ai_thinking"
	EventAnalysis    = "analysis"
	EventChat        = "chat"
	EventGameOver    = "game_over"
	EventNewGame     = "new_game"
)

// EventSink receives session events. Publishing must never block the
// orchestrator for long; sinks are expected to drop on backpressure.
type EventSink interface {
	Publish(ev Event)
}

type noopSink struct{}

func (noopSink) Publish(Event) {}

// Snapshot is a consistent read-only copy of session state.
type Snapshot struct {
	SessionID    string
	FEN          string
	Turn         TurnState
	SideToMove   string
	InCheck      bool
	History      []string
	Terminal     Terminal
	Analysis     string
	ChatLog      []ChatEntry
	Difficulty   int
	LegalTargets []string
}

// MoveOutcome reports an accepted human move back to the caller.
type MoveOutcome struct {
	SAN      string
	Snapshot Snapshot
}
