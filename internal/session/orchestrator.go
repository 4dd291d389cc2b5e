// Package session owns the single mutable game state of one human-vs-model
// chess session and sequences every transition against it: human move
// application, model move acquisition with fallback recovery, and the
// interleaved asynchronous commentary and chat requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/llmchess-duel/internal/moderation"
	"github.com/park285/llmchess-duel/internal/rules"
)

var (
	ErrIllegalMove       = errors.New("illegal move")
	ErrTurnNotYours      = errors.New("a model move is already in flight")
	ErrGameOver          = errors.New("game is over")
	ErrAiTurnInFlight    = errors.New("cannot change settings during a model move")
	ErrInvalidDifficulty = errors.New("difficulty rating out of range")
)

// Options wires a session's collaborators. Mover, Analyst and Chatter are
// required; the rest defaults.
type Options struct {
	Mover      MoveProvider
	Analyst    AnalysisProvider
	Chatter    ChatProvider
	Classifier moderation.Classifier
	Picker     MovePicker
	Events     EventSink
	Logger     *zap.Logger

	Difficulty    int
	AiMoveDelay   time.Duration
	HistoryWindow int
	ChatLogLimit  int
}

// Session is the orchestrator for one game. All state lives behind one
// mutex; transitions are applied atomically against the current state, and
// the TurnAiThinking latch keeps re-entrant human submissions out while a
// model request is outstanding.
type Session struct {
	mu sync.Mutex

	id         string
	generation int // bumped by NewGame; stale async results are discarded

	moves      []string // applied UCI moves, authoritative record
	history    []string // SAN records, one per applied ply
	fen        string
	sideToMove string
	inCheck    bool
	turn       TurnState
	terminal   Terminal
	difficulty int
	analysis   string
	chatLog    []ChatEntry

	mover      MoveProvider
	analyst    AnalysisProvider
	chatter    ChatProvider
	classifier moderation.Classifier
	picker     MovePicker
	events     EventSink
	logger     *zap.Logger

	aiMoveDelay   time.Duration
	historyWindow int
	chatLogLimit  int
}

func New(id string, opts Options) (*Session, error) {
	if opts.Mover == nil {
		return nil, fmt.Errorf("move provider is required")
	}
	if opts.Analyst == nil {
		return nil, fmt.Errorf("analysis provider is required")
	}
	if opts.Chatter == nil {
		return nil, fmt.Errorf("chat provider is required")
	}
	if opts.Classifier == nil {
		opts.Classifier = moderation.NewDefaultClassifier()
	}
	if opts.Picker == nil {
		opts.Picker = NewRandomLegal(0)
	}
	if opts.Events == nil {
		opts.Events = noopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Difficulty == 0 {
		opts.Difficulty = 1200
	}
	if opts.Difficulty < MinDifficulty || opts.Difficulty > MaxDifficulty {
		return nil, ErrInvalidDifficulty
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 20
	}
	if opts.ChatLogLimit <= 0 {
		opts.ChatLogLimit = 200
	}

	startFEN, err := rules.StartFEN(nil)
	if err != nil {
		return nil, err
	}

	return &Session{
		id:            id,
		fen:           startFEN,
		sideToMove:    "white",
		turn:          TurnHuman,
		terminal:      Terminal{State: TerminalNone},
		difficulty:    opts.Difficulty,
		mover:         opts.Mover,
		analyst:       opts.Analyst,
		chatter:       opts.Chatter,
		classifier:    opts.Classifier,
		picker:        opts.Picker,
		events:        opts.Events,
		logger:        opts.Logger,
		aiMoveDelay:   opts.AiMoveDelay,
		historyWindow: opts.HistoryWindow,
		chatLogLimit:  opts.ChatLogLimit,
	}, nil
}

func (s *Session) ID() string { return s.id }

// SubmitHumanMove validates and applies a human move. On success the model
// turn is scheduled asynchronously and the updated snapshot is returned
// immediately; the caller observes the model's reply through later
// snapshots or the event feed.
func (s *Session) SubmitHumanMove(req rules.MoveRequest) (*MoveOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.turn {
	case TurnGameOver:
		return nil, ErrGameOver
	case TurnAiThinking:
		return nil, ErrTurnNotYours
	}

	applied, err := rules.Apply(s.moves, req)
	if err != nil {
		if errors.Is(err, rules.ErrIllegalMove) {
			return nil, ErrIllegalMove
		}
		return nil, err
	}

	s.applyLocked(applied)

	if s.terminal.State != TerminalNone {
		s.turn = TurnGameOver
		s.publishMoveLocked(applied.SAN)
		s.finishLocked()
	} else {
		s.turn = TurnAiThinking
		s.publishMoveLocked(applied.SAN)
		s.events.Publish(Event{Type: EventAiThinking, SessionID: s.id, Ply: len(s.history), Turn: string(s.turn)})
		go s.runAiTurn(s.aiTurnInputLocked())
	}

	s.scheduleAnalysisLocked()

	return &MoveOutcome{SAN: applied.SAN, Snapshot: s.snapshotLocked("")}, nil
}

type aiTurnInput struct {
	generation int
	query      MoveQuery
}

func (s *Session) aiTurnInputLocked() aiTurnInput {
	return aiTurnInput{
		generation: s.generation,
		query: MoveQuery{
			FEN:        s.fen,
			History:    s.recentHistoryLocked(),
			Difficulty: s.difficulty,
		},
	}
}

// runAiTurn acquires a move suggestion outside the lock and resolves it
// against whatever state is current on arrival. The short delay lets the
// human move render before the thinking indicator appears.
func (s *Session) runAiTurn(in aiTurnInput) {
	if s.aiMoveDelay > 0 {
		time.Sleep(s.aiMoveDelay)
	}
	token := s.mover.SuggestMove(context.Background(), in.query)
	s.resolveAiTurn(in.generation, token)
}

func (s *Session) resolveAiTurn(generation int, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || s.turn != TurnAiThinking {
		// The game was replaced or resigned while the request was out.
		s.logger.Debug("discarding stale model move", zap.String("session_id", s.id), zap.String("token", token))
		return
	}

	var applied *rules.Applied
	if token != "" {
		var err error
		applied, err = rules.ApplyToken(s.moves, token)
		if err != nil {
			s.logger.Warn("model suggested an illegal move, falling back",
				zap.String("session_id", s.id),
				zap.String("token", token),
				zap.Int("ply", len(s.history)),
			)
			applied = nil
		}
	} else {
		s.logger.Warn("model move request failed, falling back", zap.String("session_id", s.id))
	}

	if applied == nil {
		applied = s.fallbackMoveLocked()
		if applied == nil {
			// No legal move can only mean the record is corrupt; release the
			// latch so the session stays usable.
			s.turn = TurnHuman
			return
		}
	}

	s.applyLocked(applied)

	if s.terminal.State != TerminalNone {
		s.turn = TurnGameOver
		s.publishMoveLocked(applied.SAN)
		s.finishLocked()
	} else {
		s.turn = TurnHuman
		s.publishMoveLocked(applied.SAN)
	}

	s.scheduleAnalysisLocked()
}

// fallbackMoveLocked applies the configured selection policy over the full
// legal-move set so the session never stalls on a provider failure.
func (s *Session) fallbackMoveLocked() *rules.Applied {
	legal, err := rules.LegalMoves(s.moves)
	if err != nil {
		s.logger.Error("legal move enumeration failed", zap.String("session_id", s.id), zap.Error(err))
		return nil
	}
	if len(legal) == 0 {
		s.logger.Error("no legal moves in a non-terminal position", zap.String("session_id", s.id))
		return nil
	}
	pick := s.picker.Pick(legal)
	applied, err := rules.ApplyToken(s.moves, pick)
	if err != nil {
		s.logger.Error("fallback move failed to apply",
			zap.String("session_id", s.id),
			zap.String("move", pick),
			zap.Error(err),
		)
		return nil
	}
	s.logger.Info("fallback move selected", zap.String("session_id", s.id), zap.String("move", pick))
	return applied
}

// applyLocked commits one applied ply: position, history and derived fields
// change together or not at all. Callers publish the move event once the
// turn transition has settled.
func (s *Session) applyLocked(applied *rules.Applied) {
	s.moves = append(s.moves, applied.UCI)
	s.history = append(s.history, applied.SAN)
	s.fen = applied.FEN
	s.sideToMove = applied.SideToMove
	s.inCheck = applied.InCheck
	if applied.Terminal != rules.TerminalNone {
		s.terminal = Terminal{State: applied.Terminal, Winner: applied.Winner, Method: applied.Method}
	}
}

// publishMoveLocked announces an applied ply with the turn state the move
// left behind.
func (s *Session) publishMoveLocked(san string) {
	s.events.Publish(Event{
		Type:      EventMoveApplied,
		SessionID: s.id,
		Ply:       len(s.history),
		SAN:       san,
		Turn:      string(s.turn),
	})
}

func (s *Session) finishLocked() {
	s.turn = TurnGameOver
	summary := s.terminalSummaryLocked()
	s.appendChatLocked(ChatEntry{Role: RoleSystem, Text: summary})
	s.events.Publish(Event{Type: EventGameOver, SessionID: s.id, Ply: len(s.history), Text: summary})
	s.logger.Info("game over",
		zap.String("session_id", s.id),
		zap.String("terminal", s.terminal.State),
		zap.String("winner", s.terminal.Winner),
		zap.String("method", s.terminal.Method),
		zap.Int("plies", len(s.history)),
	)
}

func (s *Session) terminalSummaryLocked() string {
	switch s.terminal.State {
	case TerminalCheckmate:
		return fmt.Sprintf("Checkmate. %s wins.", s.terminal.Winner)
	case TerminalDraw:
		if s.terminal.Method != "" {
			return fmt.Sprintf("Draw (%s).", s.terminal.Method)
		}
		return "Draw."
	case TerminalResigned:
		return fmt.Sprintf("Resignation. %s wins.", s.terminal.Winner)
	default:
		return ""
	}
}

// scheduleAnalysisLocked issues a best-effort commentary request for the
// position just recorded. The ply at issue time gates the response: if a
// newer move lands first, the reply is discarded on arrival.
func (s *Session) scheduleAnalysisLocked() {
	q := AnalysisQuery{
		FEN:        s.fen,
		History:    s.recentHistoryLocked(),
		Difficulty: s.difficulty,
	}
	generation, ply := s.generation, len(s.history)
	go func() {
		text := s.analyst.Commentary(context.Background(), q)
		if text == "" {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if generation != s.generation || ply != len(s.history) {
			s.logger.Debug("discarding stale analysis",
				zap.String("session_id", s.id),
				zap.Int("ply", ply),
				zap.Int("current_ply", len(s.history)),
			)
			return
		}
		s.analysis = text
		s.events.Publish(Event{Type: EventAnalysis, SessionID: s.id, Ply: ply, Text: text})
	}()
}

// SendChat appends the player's message, asks the model for a reply and
// appends it. Chat is accepted in every state and never gates the turn
// machine.
func (s *Session) SendChat(ctx context.Context, text string) (string, bool, error) {
	s.mu.Lock()
	hostile := s.classifier.Hostile(text)
	s.appendChatLocked(ChatEntry{Role: RolePlayer, Text: text})
	q := ChatQuery{
		Text:       text,
		FEN:        s.fen,
		History:    s.recentHistoryLocked(),
		Difficulty: s.difficulty,
		Hostile:    hostile,
	}
	generation := s.generation
	s.mu.Unlock()

	reply := s.chatter.Reply(ctx, q)

	s.mu.Lock()
	if generation == s.generation {
		s.appendChatLocked(ChatEntry{Role: RoleCoach, Text: reply})
		s.events.Publish(Event{Type: EventChat, SessionID: s.id, Text: reply})
	}
	s.mu.Unlock()

	return reply, hostile, nil
}

// SetDifficulty changes the rating used for subsequent model requests.
// Rejected while a model move is in flight so an outstanding request and
// the setting cannot race.
func (s *Session) SetDifficulty(rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turn == TurnAiThinking {
		return ErrAiTurnInFlight
	}
	if rating < MinDifficulty || rating > MaxDifficulty {
		return ErrInvalidDifficulty
	}
	s.difficulty = rating
	return nil
}

// Resign ends the game in the model's favor. Accepted in any non-terminal
// state; an in-flight model move becomes stale and is discarded on arrival.
func (s *Session) Resign() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turn == TurnGameOver {
		return ErrGameOver
	}
	s.terminal = Terminal{State: TerminalResigned, Winner: "black", Method: "resignation"}
	s.finishLocked()
	return nil
}

// NewGame fully replaces the session state: fresh position, empty history
// and chat log. Async results for the previous game are discarded by the
// generation bump.
func (s *Session) NewGame() error {
	startFEN, err := rules.StartFEN(nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.moves = nil
	s.history = nil
	s.fen = startFEN
	s.sideToMove = "white"
	s.inCheck = false
	s.turn = TurnHuman
	s.terminal = Terminal{State: TerminalNone}
	s.analysis = ""
	s.chatLog = nil
	s.events.Publish(Event{Type: EventNewGame, SessionID: s.id, Turn: string(s.turn)})
	return nil
}

// Snapshot returns a consistent copy of session state. When selected names
// a square and it is the human's turn, legal destination squares for that
// square are included for highlighting.
func (s *Session) Snapshot(selected string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(selected)
}

func (s *Session) snapshotLocked(selected string) Snapshot {
	snap := Snapshot{
		SessionID:  s.id,
		FEN:        s.fen,
		Turn:       s.turn,
		SideToMove: s.sideToMove,
		InCheck:    s.inCheck,
		History:    append([]string(nil), s.history...),
		Terminal:   s.terminal,
		Analysis:   s.analysis,
		ChatLog:    append([]ChatEntry(nil), s.chatLog...),
		Difficulty: s.difficulty,
	}
	if selected != "" && s.turn == TurnHuman {
		targets, err := rules.LegalTargets(s.moves, selected)
		if err == nil {
			snap.LegalTargets = targets
		}
	}
	return snap
}

func (s *Session) recentHistoryLocked() []string {
	start := len(s.history) - s.historyWindow
	if start < 0 {
		start = 0
	}
	return append([]string(nil), s.history[start:]...)
}

func (s *Session) appendChatLocked(entry ChatEntry) {
	s.chatLog = append(s.chatLog, entry)
	if len(s.chatLog) > s.chatLogLimit {
		s.chatLog = append([]ChatEntry(nil), s.chatLog[len(s.chatLog)-s.chatLogLimit:]...)
	}
}
