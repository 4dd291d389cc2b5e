package llm

import (
	"fmt"
	"strings"
)

const (
	moveSystemPrompt = "You are playing the black pieces in a chess game. " +
		"Play at the strength of a %d Elo player. " +
		"Reply with exactly one move for black in standard algebraic notation and nothing else."

	analysisSystemPrompt = "You are a chess coach watching a live game. " +
		"In one or two sentences, comment on the current position for a %d Elo audience. " +
		"Do not suggest concrete moves for either side."

	chatCoachPrompt = "You are a friendly chess coach chatting with the player of the white pieces " +
		"during a live game against a %d Elo opponent. Keep replies short, encouraging and on topic."

	chatRivalPrompt = "You are the player of the black pieces in a live chess game, playing at %d Elo. " +
		"Your opponent is trash-talking you. Reply in kind: short, cocky and competitive, " +
		"but never crude or abusive."
)

func buildMovePrompt(fen string, history []string, difficulty int) []Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Position (FEN): %s\n", fen)
	if len(history) > 0 {
		fmt.Fprintf(&b, "Recent moves: %s\n", strings.Join(history, " "))
	}
	b.WriteString("Your move as black:")
	return []Message{
		{Role: "system", Content: fmt.Sprintf(moveSystemPrompt, difficulty)},
		{Role: "user", Content: b.String()},
	}
}

func buildAnalysisPrompt(fen string, history []string, difficulty int) []Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Position (FEN): %s\n", fen)
	if len(history) > 0 {
		fmt.Fprintf(&b, "Recent moves: %s\n", strings.Join(history, " "))
	}
	b.WriteString("Comment on this position.")
	return []Message{
		{Role: "system", Content: fmt.Sprintf(analysisSystemPrompt, difficulty)},
		{Role: "user", Content: b.String()},
	}
}

func buildChatPrompt(text, fen string, history []string, difficulty int, hostile bool) []Message {
	system := fmt.Sprintf(chatCoachPrompt, difficulty)
	if hostile {
		system = fmt.Sprintf(chatRivalPrompt, difficulty)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Position (FEN): %s\n", fen)
	if len(history) > 0 {
		fmt.Fprintf(&b, "Recent moves: %s\n", strings.Join(history, " "))
	}
	fmt.Fprintf(&b, "The player says: %s", text)
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: b.String()},
	}
}

// extractMoveToken pulls a single move token out of free-form model output.
// Models frequently wrap the move in prose, move numbers or annotations;
// the rules layer decides whether the token is actually legal.
func extractMoveToken(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	// Drop code fences and keep the first non-empty line.
	var line string
	for _, l := range strings.Split(content, "\n") {
		l = strings.TrimSpace(strings.Trim(l, "`"))
		if l == "" {
			continue
		}
		line = l
		break
	}
	if line == "" {
		return ""
	}
	for _, field := range strings.Fields(line) {
		token := cleanMoveToken(field)
		if token != "" {
			return token
		}
	}
	return ""
}

func cleanMoveToken(field string) string {
	token := strings.Trim(field, "\"'`.,;:()[]")
	// "1." / "12..." style move numbers carry no move.
	if i := strings.LastIndex(token, "."); i >= 0 {
		token = token[i+1:]
	}
	token = strings.TrimRight(token, "!?")
	if token == "" || isMoveNumber(token) {
		return ""
	}
	return token
}

func isMoveNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
