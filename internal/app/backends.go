// Package app builds the AI and storage backends selected by configuration.
package app

import (
	"context"
	"fmt"
	"os"

	"roomStylerAi/internal/config"
	"roomStylerAi/internal/llm"
	"roomStylerAi/internal/logger"
	"roomStylerAi/internal/media"
	"roomStylerAi/internal/vision"
)

// NewDesigner returns the image backend named by AI_PROVIDER.
func NewDesigner(ctx context.Context, cfg config.Config) (vision.Designer, error) {
	switch cfg.AI.Provider {
	case "imagen":
		logger.InfoWithFields("designer ready", logger.Fields{"provider": "vertex-imagen", "model": cfg.AI.Vertex.Model})
		return vision.NewVertexImagen(vision.VertexImagenConfig{
			ProjectID:          cfg.AI.Vertex.ProjectID,
			Location:           cfg.AI.Vertex.Location,
			Model:              cfg.AI.Vertex.Model,
			APIKey:             cfg.AI.Vertex.APIKey,
			ServiceAccountJSON: cfg.AI.Vertex.ServiceAccountJSON,
			Timeout:            cfg.AITimeout(),
		}), nil
	default:
		designer, err := vision.NewGeminiDesigner(ctx, cfg.AI.GeminiAPIKey, cfg.AI.GeminiImageModel, cfg.AITimeout())
		if err != nil {
			return nil, fmt.Errorf("app: gemini designer: %w", err)
		}
		logger.InfoWithFields("designer ready", logger.Fields{"provider": "gemini", "model": cfg.AI.GeminiImageModel})
		return designer, nil
	}
}

// NewConversations returns the chat backend named by CHAT_PROVIDER.
func NewConversations(ctx context.Context, cfg config.Config) (vision.Conversations, error) {
	switch cfg.AI.ChatProvider {
	case "openai":
		if cfg.AI.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("app: OPENAI_API_KEY is required for CHAT_PROVIDER=openai")
		}
		logger.InfoWithFields("chat ready", logger.Fields{"provider": "openai", "model": cfg.AI.OpenAIModel})
		return vision.NewHistoryChats(llm.NewOpenAIClient(cfg.AI.OpenAIAPIKey, cfg.AI.OpenAIModel, cfg.AITimeout())), nil
	case "gemini-rest":
		client, err := geminiREST(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.InfoWithFields("chat ready", logger.Fields{"provider": "gemini-rest", "model": cfg.AI.GeminiChatModel})
		return vision.NewHistoryChats(client), nil
	default:
		chats, err := vision.NewGeminiChats(ctx, cfg.AI.GeminiAPIKey, cfg.AI.GeminiChatModel, cfg.AITimeout())
		if err != nil {
			return nil, fmt.Errorf("app: gemini chats: %w", err)
		}
		logger.InfoWithFields("chat ready", logger.Fields{"provider": "gemini", "model": cfg.AI.GeminiChatModel})
		return chats, nil
	}
}

func geminiREST(ctx context.Context, cfg config.Config) (*llm.GeminiClient, error) {
	if cfg.AI.ServiceAccountFile != "" {
		ts, err := llm.ServiceAccountTokenSource(ctx, cfg.AI.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("app: gemini credentials: %w", err)
		}
		return llm.NewGeminiClient("", cfg.AI.GeminiChatModel, cfg.AITimeout(), ts), nil
	}
	if cfg.AI.GeminiAPIKey == "" {
		return nil, fmt.Errorf("app: GEMINI_API_KEY or GOOGLE_APPLICATION_CREDENTIALS is required for CHAT_PROVIDER=gemini-rest")
	}
	return llm.NewGeminiClient(cfg.AI.GeminiAPIKey, cfg.AI.GeminiChatModel, cfg.AITimeout(), nil), nil
}

// NewAnalyzer returns the room analyzer, or nil when no Gemini key is set.
func NewAnalyzer(ctx context.Context, cfg config.Config) (vision.Analyzer, error) {
	if cfg.AI.GeminiAPIKey == "" {
		logger.WarnWithFields("room analysis disabled", logger.Fields{"reason": "GEMINI_API_KEY not set"})
		return nil, nil
	}
	analyzer, err := vision.NewGeminiAnalyzer(ctx, cfg.AI.GeminiAPIKey, cfg.AI.VisionModel, cfg.AITimeout())
	if err != nil {
		return nil, fmt.Errorf("app: gemini analyzer: %w", err)
	}
	return analyzer, nil
}

// NewUploader returns the S3 exporter when configured, a local directory otherwise.
func NewUploader(ctx context.Context, cfg config.Config) (media.Uploader, error) {
	if cfg.Media.Bucket != "" && cfg.Media.Region != "" {
		uploader, err := media.NewUploader(ctx, media.Config{
			Bucket:          cfg.Media.Bucket,
			Region:          cfg.Media.Region,
			Endpoint:        cfg.Media.Endpoint,
			PublicURL:       cfg.Media.PublicURL,
			KeyPrefix:       cfg.Media.KeyPrefix,
			ForcePathStyle:  cfg.Media.ForcePathStyle,
			AccessKeyID:     cfg.Media.AccessKeyID,
			SecretAccessKey: cfg.Media.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("app: s3 uploader: %w", err)
		}
		logger.InfoWithFields("export ready", logger.Fields{"backend": "s3", "bucket": cfg.Media.Bucket})
		return uploader, nil
	}

	dir := cfg.Media.LocalDir
	if dir == "" {
		dir = os.TempDir()
	}
	uploader, err := media.NewLocalUploader(dir)
	if err != nil {
		return nil, fmt.Errorf("app: local uploader: %w", err)
	}
	logger.InfoWithFields("export ready", logger.Fields{"backend": "local", "dir": dir})
	return uploader, nil
}
