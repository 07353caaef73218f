// Package assistant answers operational questions, preferring a configured
// language model and falling back to canned analysis built from live data.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/airsial/opshub/internal/stats"
	"github.com/airsial/opshub/internal/storage/sqlite"
	"github.com/airsial/opshub/pkg/logger"
)

// ErrEmptyQuery is returned when the submitted question is blank.
var ErrEmptyQuery = errors.New("assistant query must not be empty")

// systemPrompt frames every model call; the operational summary rides in
// the user message.
const systemPrompt = `You are an expert airline operations AI assistant.
Analyze fleet data and provide strategic insights, risk assessments,
and actionable recommendations. Be specific with numbers and timelines.
Focus on cost reduction, efficiency improvements, and safety.`

// Service answers user queries and keeps per-user conversation history.
type Service struct {
	stats        *stats.Service
	chat         *sqlite.ChatStorage
	generator    Generator
	timeout      time.Duration
	historyLimit int
	logger       *logger.Logger
}

// NewService wires the assistant together. A nil generator means every
// answer comes from the fallback responder.
func NewService(statsSvc *stats.Service, chat *sqlite.ChatStorage, gen Generator, timeoutSeconds, historyLimit int, log *logger.Logger) *Service {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Service{
		stats:        statsSvc,
		chat:         chat,
		generator:    gen,
		timeout:      time.Duration(timeoutSeconds) * time.Second,
		historyLimit: historyLimit,
		logger:       log.Named("assistant"),
	}
}

// Ask answers one query. Model failures never surface to the caller; the
// worst case is an answer from the canned responder.
func (s *Service) Ask(ctx context.Context, username, query string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	summary, err := s.stats.Summary()
	if err != nil {
		return nil, fmt.Errorf("failed to build assistant context: %w", err)
	}

	answer := &Answer{Source: SourceFallback}
	if s.generator != nil {
		gctx, cancel := context.WithTimeout(ctx, s.timeout)
		content, genErr := s.generator.Generate(gctx, systemPrompt, summary.Render()+"\nQuestion: "+query)
		cancel()
		switch {
		case genErr != nil:
			s.logger.Warn("Model call failed, using fallback responder", logger.Error(genErr))
		case strings.TrimSpace(content) == "":
			s.logger.Warn("Model returned an empty answer, using fallback responder")
		default:
			answer.Content = content
			answer.Source = SourceLLM
		}
	}
	if answer.Source == SourceFallback {
		answer.Content = Fallback(query, summary)
	}

	s.record(username, "user", query, "")
	s.record(username, "assistant", answer.Content, answer.Source)
	return answer, nil
}

// record persists one history row. History must not break answering, so
// failures are logged and dropped.
func (s *Service) record(username, role, content, source string) {
	if s.chat == nil {
		return
	}
	_, err := s.chat.StoreMessage(&sqlite.ChatMessage{
		Username:  username,
		Role:      role,
		Content:   content,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("Failed to store chat message",
			logger.Error(err),
			logger.String("username", username))
	}
}

// History returns the user's conversation, oldest first, capped at the
// configured limit counted from the newest entry.
func (s *Service) History(username string) ([]*sqlite.ChatMessage, error) {
	if s.chat == nil {
		return nil, nil
	}
	return s.chat.GetMessagesByUsername(username, s.historyLimit)
}

// Clear deletes the user's conversation and reports how many rows went.
func (s *Service) Clear(username string) (int64, error) {
	if s.chat == nil {
		return 0, nil
	}
	return s.chat.ClearMessages(username)
}
