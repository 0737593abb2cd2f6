package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrEmptyQuestion is returned when the question is blank.
var ErrEmptyQuestion = errors.New("question is empty")

const (
	rejectedAnswer = "I can only look up data you have access to, and that question needs a query I am not allowed to run."
	failedAnswer   = "I could not run a query for that question. Try rephrasing it."
)

// Answer is the assistant's reply to a question.
type Answer struct {
	Text      string   `json:"text"`
	SQL       string   `json:"sql,omitempty"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated"`
}

// Service answers questions about company data by having a Model write SQL
// that is guarded, executed and summarised.
type Service struct {
	model    Model
	chats    ChatRepository
	runner   Runner
	resolver *Resolver
	now      func() time.Time
}

// NewService creates a new assistant Service. A nil model leaves the
// assistant unavailable.
func NewService(model Model, chats ChatRepository, runner Runner, resolver *Resolver) *Service {
	return &Service{model: model, chats: chats, runner: runner, resolver: resolver, now: time.Now}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Available reports whether a model is configured.
func (s *Service) Available() bool {
	return s.model != nil
}

// Ask answers question for scope and records the exchange in the caller's history.
func (s *Service) Ask(ctx context.Context, scope Scope, question string) (*Answer, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	if err := s.chats.Append(ctx, &Message{
		CompanyID: scope.CompanyID, UserID: scope.UserID, Role: RoleUser, Content: question,
	}); err != nil {
		return nil, err
	}

	answer, err := s.answer(ctx, scope, question)
	if err != nil {
		return nil, err
	}

	if err := s.chats.Append(ctx, &Message{
		CompanyID: scope.CompanyID, UserID: scope.UserID, Role: RoleAssistant,
		Content: answer.Text, SQL: answer.SQL,
	}); err != nil {
		return nil, err
	}
	return answer, nil
}

func (s *Service) answer(ctx context.Context, scope Scope, question string) (*Answer, error) {
	answer := &Answer{Columns: []string{}, Rows: [][]any{}}

	reply, err := s.model.Generate(ctx, BuildPrompt(scope, s.now()), question)
	if err != nil {
		return nil, fmt.Errorf("generating query: %w", err)
	}

	generated, ok := ExtractSQL(reply)
	if !ok {
		answer.Text = NoQueryAnswer(reply)
		return answer, nil
	}

	guarded, err := Guard(generated, scope)
	if err != nil {
		slog.Warn("assistant query rejected", "userId", scope.UserID, "sql", generated, "error", err)
		answer.Text = rejectedAnswer
		return answer, nil
	}
	answer.SQL = guarded

	res, err := s.runner.Run(ctx, guarded)
	if err != nil {
		slog.Warn("assistant query failed", "userId", scope.UserID, "sql", guarded, "error", err)
		answer.Text = failedAnswer
		return answer, nil
	}

	if s.resolver != nil {
		if err := s.resolver.Resolve(ctx, scope.CompanyID, res); err != nil {
			slog.Warn("failed to resolve names", "error", err)
		}
	}
	answer.Columns, answer.Rows, answer.Truncated = res.Columns, res.Rows, res.Truncated

	table := RenderTable(res)
	summary, err := s.model.Generate(ctx, summarySystem, SummaryPrompt(question, table))
	if err != nil {
		slog.Warn("failed to summarise result", "error", err)
		summary = table
	}
	answer.Text = summary
	return answer, nil
}

// History returns the caller's latest chat messages, oldest first.
func (s *Service) History(ctx context.Context, scope Scope, limit int) ([]Message, error) {
	return s.chats.Recent(ctx, scope.UserID, limit)
}

// ClearHistory deletes the caller's chat history.
func (s *Service) ClearHistory(ctx context.Context, scope Scope) (int64, error) {
	return s.chats.Clear(ctx, scope.UserID)
}
