package exec

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/toolpilot/dialogue"
	"github.com/jonwraymond/toolpilot/runtime"
)

var (
	// ErrEmptyInstruction is returned for blank instructions.
	ErrEmptyInstruction = errors.New("exec: instruction is empty")

	// ErrNotApproved marks a sensitive capability the approver denied.
	ErrNotApproved = errors.New("exec: capability not approved")
)

// Round outcomes reported to the Observer.
const (
	RoundExecuted = "executed"
	RoundResponse = "response"
	RoundFailed   = "failed"
)

// Session is one conversation with its own bounded history. Rounds on a
// session run one at a time; separate sessions run concurrently.
type Session struct {
	id      string
	exec    *Exec
	gate    chan struct{}
	history *History

	mu   sync.RWMutex
	conv dialogue.Conversation
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// History returns the recorded rounds, most recent first.
func (s *Session) History() []HistoryEntry {
	return s.history.Entries()
}

// HistoryLen returns the number of recorded rounds.
func (s *Session) HistoryLen() int {
	return s.history.Len()
}

// Conversation returns a copy of the conversation, system turn first.
func (s *Session) Conversation() dialogue.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.withSystem(s.conv)
}

// RunInstruction runs one round: it asks the model what to do, runs the
// requested capabilities in order, and asks the model to analyze the results.
//
// On failure or cancellation the conversation is left as it was before the
// round and nothing is recorded in history.
func (s *Session) RunInstruction(ctx context.Context, text string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{Error: ErrEmptyInstruction.Error()}, ErrEmptyInstruction
	}
	if err := s.exec.model.CheckCredential(); err != nil {
		return Outcome{Error: err.Error()}, err
	}

	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return Outcome{Error: ctx.Err().Error()}, ctx.Err()
	}
	defer func() { <-s.gate }()

	start := time.Now()
	out, err := s.round(ctx, text)

	kind := RoundResponse
	switch {
	case err != nil:
		kind = RoundFailed
		out.Error = err.Error()
	case out.Executed:
		kind = RoundExecuted
	}
	if o := s.exec.opts.Observer; o != nil {
		o.ObserveRound(kind, time.Since(start))
	}
	return out, err
}

func (s *Session) round(ctx context.Context, text string) (Outcome, error) {
	e := s.exec
	id := uuid.NewString()
	logger := e.logger.With().Str("session", s.id).Str("round_id", id).Logger()
	out := Outcome{RoundID: id}

	s.mu.RLock()
	conv := append(dialogue.Conversation(nil), s.conv...)
	s.mu.RUnlock()

	conv = append(conv, dialogue.Turn{Role: dialogue.RoleUser, Content: text})
	reply, err := e.model.Send(ctx, s.withSystem(conv), e.opts.Act)
	if err != nil {
		logger.Warn().Err(err).Msg("round failed while querying")
		return out, err
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	if !reply.HasToolCalls() {
		conv = append(conv, dialogue.Turn{Role: dialogue.RoleAssistant, Content: reply.Text})
		s.commit(conv)
		out.Response = reply.Text
		if e.opts.RecordFreeText {
			s.history.Push(HistoryEntry{ID: id, Timestamp: time.Now(), Instruction: text, Output: reply.Text})
		}
		logger.Debug().Msg("free-text reply")
		return out, nil
	}

	conv = append(conv, dialogue.Turn{Role: dialogue.RoleAssistant, Content: reply.Text, ToolCalls: reply.ToolCalls})

	results := make([]runtime.Result, 0, len(reply.ToolCalls))
	for _, call := range reply.ToolCalls {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		results = append(results, e.invoke(ctx, call, logger))
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	out.Executed = true
	out.Results = results
	out.Command = commandLine(results)
	out.Output = outputText(results)

	conv = append(conv, dialogue.Turn{Role: dialogue.RoleUser, Content: resultsTurn(results)})
	analysis, err := e.model.Send(ctx, s.withSystem(conv), e.opts.Analyze)
	if err != nil {
		logger.Warn().Err(err).Msg("round failed while analyzing")
		return out, err
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	conv = append(conv, dialogue.Turn{Role: dialogue.RoleAssistant, Content: analysis.Text})

	s.commit(conv)
	out.Analysis = analysis.Text
	s.history.Push(HistoryEntry{
		ID:          id,
		Timestamp:   time.Now(),
		Instruction: text,
		Executed:    true,
		Command:     out.Command,
		Output:      out.Output,
		Analysis:    out.Analysis,
	})
	logger.Info().Str("command", out.Command).Int("calls", len(results)).Msg("round executed")
	return out, nil
}

// commit replaces the conversation, dropping the oldest turns beyond the
// bound so that the retained conversation starts with a user turn.
func (s *Session) commit(conv dialogue.Conversation) {
	limit := s.exec.opts.MaxTurns
	if len(conv) > limit {
		conv = conv[len(conv)-limit:]
		for len(conv) > 0 && conv[0].Role != dialogue.RoleUser {
			conv = conv[1:]
		}
	}
	s.mu.Lock()
	s.conv = append(dialogue.Conversation(nil), conv...)
	s.mu.Unlock()
}

func (s *Session) withSystem(conv dialogue.Conversation) dialogue.Conversation {
	out := make(dialogue.Conversation, 0, len(conv)+1)
	out = append(out, dialogue.Turn{Role: dialogue.RoleSystem, Content: s.exec.SystemPrompt()})
	return append(out, conv...)
}
