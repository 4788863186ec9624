package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yardline/internal/apperr"
	"github.com/yardline/internal/logging"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ChatTurn is one message of a conversation. Role is "user" or "model".
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GeneratedImage is raw image bytes returned by an image model.
type GeneratedImage struct {
	Data     []byte
	MIMEType string
}

// ChatModel answers a conversation under a system instruction.
type ChatModel interface {
	Reply(ctx context.Context, system string, turns []ChatTurn) (string, error)
}

// ImageModel renders an image from a text prompt.
type ImageModel interface {
	GenerateImage(ctx context.Context, prompt string) (GeneratedImage, error)
}

// GeminiModel implements ChatModel and ImageModel with the Gemini API.
type GeminiModel struct {
	client     *genai.Client
	chatModel  string
	imageModel string
	logger     *zap.Logger
}

// GeminiOptions configures NewGeminiModel. An empty BaseURL uses the public endpoint.
type GeminiOptions struct {
	APIKey     string
	ChatModel  string
	ImageModel string
	BaseURL    string
}

// NewGeminiModel creates a client. A blank key is a configuration error.
func NewGeminiModel(ctx context.Context, opts GeminiOptions, logger *zap.Logger) (*GeminiModel, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, apperr.Config("language model API key is not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(opts.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiModel{
		client:     client,
		chatModel:  opts.ChatModel,
		imageModel: opts.ImageModel,
		logger:     logger,
	}, nil
}

func (m *GeminiModel) Reply(ctx context.Context, system string, turns []ChatTurn) (string, error) {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.RoleUser
		if turn.Role == genai.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, genai.Role(role)))
	}
	if len(turns) > 0 {
		logging.LogExchange(m.logger, "CHAT", "prompt", turns[len(turns)-1].Content)
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.chatModel, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	})
	if err != nil {
		return "", upstreamError("chat completion failed", err)
	}

	text := resp.Text()
	logging.LogExchange(m.logger, "CHAT", "response", text)
	if strings.TrimSpace(text) == "" {
		return "", apperr.Upstream("chat completion returned no text", nil)
	}
	return text, nil
}

func (m *GeminiModel) GenerateImage(ctx context.Context, prompt string) (GeneratedImage, error) {
	logging.LogExchange(m.logger, "IMAGE", "prompt", prompt)

	resp, err := m.client.Models.GenerateImages(ctx, m.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "16:9",
	})
	if err != nil {
		return GeneratedImage{}, upstreamError("image generation failed", err)
	}
	for _, generated := range resp.GeneratedImages {
		if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		return GeneratedImage{Data: generated.Image.ImageBytes, MIMEType: generated.Image.MIMEType}, nil
	}
	return GeneratedImage{}, apperr.Upstream("image generation returned no images", nil)
}

// upstreamError keeps the provider status and payload in the error details.
func upstreamError(message string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apperr.Upstream(message, err).
			WithDetails(fmt.Sprintf("status %d %s: %s", apiErr.Code, apiErr.Status, apiErr.Message))
	}
	return apperr.Upstream(message, err)
}
