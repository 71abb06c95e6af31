package mainconfig

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/KLcoding01/K-AI-Scribe-sub000/internal/config"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/llm"
	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

// BuildLLMClient assembles the provider chain from configuration: Bedrock,
// Gemini, or Bedrock with Gemini fallback when both are configured. Returns
// a nil client when nothing is configured; the caller reports ErrUnconfigured.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (llm.Client, string) {
	var bedrock llm.Client
	if cfg.BedrockModelID != "" && (cfg.LLMProvider == "bedrock" || cfg.LLMProvider == "auto") {
		bedrock = llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg))
	}

	var gemini llm.Client
	if cfg.GeminiAPIKey != "" && (cfg.LLMProvider == "gemini" || cfg.LLMProvider == "auto") {
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create Gemini client", "error", err)
		} else {
			gemini = client
		}
	}

	switch {
	case bedrock != nil && gemini != nil:
		return llm.NewFallbackClient(bedrock, gemini, logger), cfg.BedrockModelID
	case bedrock != nil:
		return bedrock, cfg.BedrockModelID
	case gemini != nil:
		model := cfg.GeminiModelID
		if model == "" {
			model = "gemini-2.5-flash"
		}
		return gemini, model
	default:
		return nil, ""
	}
}
