package httpapi

import (
	"github.com/park285/llmchess-duel/internal/rules"
	"github.com/park285/llmchess-duel/internal/session"
	"github.com/park285/llmchess-duel/pkg/sessiondto"
)

func toRulesMove(req sessiondto.MoveRequest) rules.MoveRequest {
	return rules.MoveRequest{
		From:      req.From,
		To:        req.To,
		Promotion: req.Promotion,
	}
}

func toSnapshot(snap session.Snapshot) sessiondto.Snapshot {
	out := sessiondto.Snapshot{
		SessionID:  snap.SessionID,
		FEN:        snap.FEN,
		Turn:       string(snap.Turn),
		SideToMove: snap.SideToMove,
		InCheck:    snap.InCheck,
		History:    snap.History,
		Terminal: sessiondto.Terminal{
			State:  snap.Terminal.State,
			Winner: snap.Terminal.Winner,
			Method: snap.Terminal.Method,
		},
		Analysis:     snap.Analysis,
		ChatLog:      make([]sessiondto.ChatEntry, 0, len(snap.ChatLog)),
		Difficulty:   snap.Difficulty,
		LegalTargets: snap.LegalTargets,
	}
	if out.History == nil {
		out.History = []string{}
	}
	for _, entry := range snap.ChatLog {
		out.ChatLog = append(out.ChatLog, sessiondto.ChatEntry{Role: entry.Role, Text: entry.Text})
	}
	return out
}
