// Package rules adapts the chess rules engine for the session orchestrator.
// Positions are handled the same way the rest of the service stores them:
// as the ordered list of applied UCI moves, replayed from the start position.
package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrIllegalMove   = errors.New("illegal move")
	ErrCorruptRecord = errors.New("recorded moves no longer replay")
)

const (
	TerminalNone      = "none"
	TerminalCheckmate = "checkmate"
	TerminalDraw      = "draw"
)

// MoveRequest is a coordinate move intent from the presentation layer.
type MoveRequest struct {
	From      string
	To        string
	Promotion string // "q", "r", "b", "n" or empty
}

// UCI renders the request as a UCI token, e.g. "e2e4" or "e7e8q".
func (r MoveRequest) UCI() string {
	return strings.ToLower(strings.TrimSpace(r.From) + strings.TrimSpace(r.To) + strings.TrimSpace(r.Promotion))
}

// Applied reports the outcome of a successfully applied move.
type Applied struct {
	SAN        string
	UCI        string
	FEN        string
	SideToMove string
	InCheck    bool
	Terminal   string
	Winner     string // set when Terminal == TerminalCheckmate
	Method     string // engine's method label for finished games
}

// Replay rebuilds a game by applying the recorded UCI moves from the
// start position. Records come from our own successful applications, so a
// replay failure means the record is corrupt.
func Replay(moves []string) (*nchess.Game, error) {
	game := nchess.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(strings.ToLower(strings.TrimSpace(mv)), nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, mv, err)
		}
	}
	return game, nil
}

// Apply validates a coordinate move against the position reached by moves
// and applies it. Returns ErrIllegalMove when the request is not legal.
func Apply(moves []string, req MoveRequest) (*Applied, error) {
	return applyToken(moves, req.UCI(), false)
}

// ApplyToken parses an untrusted move token (SAN preferred, UCI accepted)
// and applies it if legal. The token is never trusted: it must decode
// against the current position and survive the engine's legality check.
func ApplyToken(moves []string, token string) (*Applied, error) {
	return applyToken(moves, token, true)
}

func applyToken(moves []string, token string, allowSAN bool) (*Applied, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrIllegalMove
	}

	game, err := Replay(moves)
	if err != nil {
		return nil, err
	}
	pos := game.Position()

	var move *nchess.Move
	if allowSAN {
		if mv, derr := (nchess.AlgebraicNotation{}).Decode(pos, token); derr == nil {
			move = mv
		}
	}
	if move == nil {
		mv, derr := (nchess.UCINotation{}).Decode(pos, strings.ToLower(token))
		if derr != nil {
			return nil, ErrIllegalMove
		}
		move = mv
	}
	if err := game.Move(move, nil); err != nil {
		return nil, ErrIllegalMove
	}

	san := nchess.AlgebraicNotation{}.Encode(pos, move)
	uci := strings.ToLower(nchess.UCINotation{}.Encode(pos, move))

	applied := &Applied{
		SAN:        san,
		UCI:        uci,
		FEN:        game.FEN(),
		SideToMove: colorName(game.Position().Turn()),
		InCheck:    move.HasTag(nchess.Check),
	}
	applied.Terminal, applied.Winner, applied.Method = terminalFromGame(game)
	return applied, nil
}

// LegalMoves returns every legal move in the current position as UCI tokens.
func LegalMoves(moves []string) ([]string, error) {
	game, err := Replay(moves)
	if err != nil {
		return nil, err
	}
	valid := game.ValidMoves()
	out := make([]string, 0, len(valid))
	for i := range valid {
		out = append(out, strings.ToLower(valid[i].String()))
	}
	return out, nil
}

// LegalTargets returns the destination squares reachable from one square,
// for presentation-side highlighting.
func LegalTargets(moves []string, from string) ([]string, error) {
	from = strings.ToLower(strings.TrimSpace(from))
	game, err := Replay(moves)
	if err != nil {
		return nil, err
	}
	valid := game.ValidMoves()
	var out []string
	seen := make(map[string]struct{})
	for i := range valid {
		if strings.ToLower(valid[i].S1().String()) != from {
			continue
		}
		to := strings.ToLower(valid[i].S2().String())
		if _, ok := seen[to]; ok {
			continue
		}
		seen[to] = struct{}{}
		out = append(out, to)
	}
	return out, nil
}

// SideToMove reports which color moves next: "white" or "black".
func SideToMove(moves []string) (string, error) {
	game, err := Replay(moves)
	if err != nil {
		return "", err
	}
	return colorName(game.Position().Turn()), nil
}

func colorName(c nchess.Color) string {
	if c == nchess.White {
		return "white"
	}
	return "black"
}

// InCheck reports whether the side to move is currently in check.
func InCheck(moves []string) (bool, error) {
	game, err := Replay(moves)
	if err != nil {
		return false, err
	}
	applied := game.Moves()
	if len(applied) == 0 {
		return false, nil
	}
	return applied[len(applied)-1].HasTag(nchess.Check), nil
}

// Terminal reports the terminal status of the position reached by moves.
func Terminal(moves []string) (terminal, winner, method string, err error) {
	game, rerr := Replay(moves)
	if rerr != nil {
		return "", "", "", rerr
	}
	terminal, winner, method = terminalFromGame(game)
	return terminal, winner, method, nil
}

// StartFEN is the FEN of the position reached by moves (start position for nil).
func StartFEN(moves []string) (string, error) {
	game, err := Replay(moves)
	if err != nil {
		return "", err
	}
	return game.FEN(), nil
}

func terminalFromGame(game *nchess.Game) (terminal, winner, method string) {
	switch game.Outcome() {
	case nchess.WhiteWon:
		return TerminalCheckmate, "white", strings.ToLower(game.Method().String())
	case nchess.BlackWon:
		return TerminalCheckmate, "black", strings.ToLower(game.Method().String())
	case nchess.Draw:
		return TerminalDraw, "", strings.ToLower(game.Method().String())
	default:
		return TerminalNone, "", ""
	}
}
