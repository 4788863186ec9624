package service

import (
	"context"
	"path"
	"strings"

	"github.com/yardline/internal/apperr"
	"github.com/yardline/internal/imaging"
	"go.uber.org/zap"
)

const (
	aiKeyPrefix       = "ai"
	importedKeyPrefix = "imported"
	maxPromptHintRune = 40
)

// AIImageResult is a hosted generated or imported image.
type AIImageResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// AIImageService generates or imports header images into the AI photos bucket.
// Uploads never overwrite an existing key.
type AIImageService struct {
	model    ImageModel
	pipeline *IngestionPipeline
	bucket   string
	logger   *zap.Logger
}

func NewAIImageService(model ImageModel, pipeline *IngestionPipeline, bucket string, logger *zap.Logger) *AIImageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIImageService{model: model, pipeline: pipeline, bucket: bucket, logger: logger}
}

// Generate renders prompt with the image model and hosts the result.
func (s *AIImageService) Generate(ctx context.Context, prompt string) (AIImageResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return AIImageResult{}, apperr.Validation("prompt is required")
	}
	if s.model == nil {
		return AIImageResult{}, apperr.Config("image model is not configured")
	}

	generated, err := s.model.GenerateImage(ctx, prompt)
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return AIImageResult{}, err
		}
		return AIImageResult{}, apperr.Upstream("image generation failed", err)
	}

	stored, err := s.pipeline.Put(ctx, generated.Data, IngestRequest{
		Profile: imaging.ProfileHeader,
		Bucket:  s.bucket,
		Prefix:  aiKeyPrefix,
		Hint:    promptHint(prompt),
		Upsert:  false,
	})
	if err != nil {
		return AIImageResult{}, err
	}
	return AIImageResult{URL: stored.URL, Filename: stored.Key}, nil
}

// ImportByURL downloads a remote image and hosts it.
func (s *AIImageService) ImportByURL(ctx context.Context, source string) (AIImageResult, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return AIImageResult{}, apperr.Validation("url is required")
	}
	kind, err := s.pipeline.Classify(source, s.bucket)
	if err != nil {
		return AIImageResult{}, err
	}
	if kind != SourceRemote && kind != SourceCanonical {
		return AIImageResult{}, apperr.Invalid("url must be an http(s) URL", nil)
	}

	stored, err := s.pipeline.Ingest(ctx, IngestRequest{
		Source:  source,
		Profile: imaging.ProfileHeader,
		Bucket:  s.bucket,
		Prefix:  importedKeyPrefix,
		Hint:    hintFromURL(source),
		Upsert:  false,
	})
	if err != nil {
		return AIImageResult{}, err
	}
	filename := stored.Key
	if filename == "" {
		filename = path.Base(stored.URL)
	}
	return AIImageResult{URL: stored.URL, Filename: filename}, nil
}

func promptHint(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > maxPromptHintRune {
		runes = runes[:maxPromptHintRune]
	}
	return strings.TrimSpace(string(runes))
}
