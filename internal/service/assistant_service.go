package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/yardline/internal/apperr"
	"go.uber.org/zap"
)

const assistantPersona = `You are the rental assistant for Yardline Rentals, a construction-equipment rental company.
Help visitors choose equipment (excavators, skid steers, wheel loaders, dozers, rollers, water trucks and articulated trucks),
explain rental terms, and compare renting against buying. Keep answers short and practical.
When a visitor asks for a quote or availability, ask for their name, phone or email, and job location,
and suggest they use the contact form. Never invent prices or stock levels.`

// AssistantService relays a chat turn and its history to the language model. It keeps no state.
type AssistantService struct {
	model  ChatModel
	logger *zap.Logger
}

// NewAssistantService creates an AssistantService. A nil model yields CONFIG_ERROR on every call.
func NewAssistantService(model ChatModel, logger *zap.Logger) *AssistantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantService{model: model, logger: logger}
}

// Configured reports whether a language model is wired in.
func (s *AssistantService) Configured() bool {
	return s.model != nil
}

// Reply appends message to history as a user turn and returns the model's text verbatim.
func (s *AssistantService) Reply(ctx context.Context, message string, history []ChatTurn) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", apperr.Validation("message is required")
	}
	if s.model == nil {
		return "", apperr.Config("language model is not configured")
	}

	turns := make([]ChatTurn, 0, len(history)+1)
	for i, turn := range history {
		role, err := normalizeChatRole(turn.Role)
		if err != nil {
			return "", apperr.Validation(fmt.Sprintf("history[%d]: %v", i, err))
		}
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		turns = append(turns, ChatTurn{Role: role, Content: turn.Content})
	}
	turns = append(turns, ChatTurn{Role: "user", Content: message})

	reply, err := s.model.Reply(ctx, assistantPersona, turns)
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return "", err
		}
		return "", apperr.Upstream("assistant call failed", err)
	}
	return reply, nil
}

func normalizeChatRole(role string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "user", "":
		return "user", nil
	case "assistant", "model", "bot":
		return "model", nil
	default:
		return "", fmt.Errorf("unsupported role %q", role)
	}
}
