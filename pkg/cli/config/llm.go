package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/service/llm"
	"github.com/urfave/cli/v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type providerDefaults struct {
	chatModel  string
	embedModel string
	dimension  int
}

var llmDefaults = map[string]providerDefaults{
	ProviderGemini: {chatModel: "gemini-2.0-flash", embedModel: "text-embedding-004", dimension: 768},
	ProviderOpenAI: {chatModel: "gpt-4o-mini", embedModel: "text-embedding-3-small", dimension: 1536},
}

// LLM selects and configures the provider used for embeddings and judging
type LLM struct {
	provider       string
	geminiProject  string
	geminiLocation string
	openaiAPIKey   string
	chatModel      string
	embedModel     string
	dimension      int
	rps            float64
	burst          int
	attempts       int
	noJudge        bool
}

func (x *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Category:    "llm",
			Usage:       "LLM provider [gemini|openai]",
			Value:       ProviderGemini,
			Sources:     cli.EnvVars("GAPCHECK_LLM_PROVIDER"),
			Destination: &x.provider,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Category:    "llm",
			Usage:       "Google Cloud project ID for Gemini API",
			Sources:     cli.EnvVars("GAPCHECK_GEMINI_PROJECT"),
			Destination: &x.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Category:    "llm",
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GAPCHECK_GEMINI_LOCATION"),
			Destination: &x.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Category:    "llm",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("GAPCHECK_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Destination: &x.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "chat-model",
			Category:    "llm",
			Usage:       "Model used to judge requirements (provider default if empty)",
			Sources:     cli.EnvVars("GAPCHECK_CHAT_MODEL"),
			Destination: &x.chatModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Category:    "llm",
			Usage:       "Model used to embed chunks and queries (provider default if empty)",
			Sources:     cli.EnvVars("GAPCHECK_EMBEDDING_MODEL"),
			Destination: &x.embedModel,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Category:    "llm",
			Usage:       "Dimension of the embedding model (provider default if 0)",
			Sources:     cli.EnvVars("GAPCHECK_EMBEDDING_DIMENSION"),
			Destination: &x.dimension,
		},
		&cli.FloatFlag{
			Name:        "llm-rps",
			Category:    "llm",
			Usage:       "Maximum provider requests per second (0 disables limiting)",
			Value:       5,
			Sources:     cli.EnvVars("GAPCHECK_LLM_RPS"),
			Destination: &x.rps,
		},
		&cli.IntFlag{
			Name:        "llm-burst",
			Category:    "llm",
			Usage:       "Burst size of the provider rate limiter",
			Value:       5,
			Sources:     cli.EnvVars("GAPCHECK_LLM_BURST"),
			Destination: &x.burst,
		},
		&cli.IntFlag{
			Name:        "llm-attempts",
			Category:    "llm",
			Usage:       "Attempts per provider call before giving up",
			Value:       3,
			Sources:     cli.EnvVars("GAPCHECK_LLM_ATTEMPTS"),
			Destination: &x.attempts,
		},
		&cli.BoolFlag{
			Name:        "no-judge",
			Category:    "llm",
			Usage:       "Classify from retrieval similarity only",
			Sources:     cli.EnvVars("GAPCHECK_NO_JUDGE"),
			Destination: &x.noJudge,
		},
	}
}

func (x LLM) LogValue() slog.Value {
	fp, _ := x.Fingerprint()
	return slog.GroupValue(
		slog.String("provider", x.provider),
		slog.String("gemini_project", x.geminiProject),
		slog.String("gemini_location", x.geminiLocation),
		slog.Bool("openai_api_key", x.openaiAPIKey != ""),
		slog.String("chat_model", x.resolvedChatModel()),
		slog.String("embedding_model", fp.Model),
		slog.Int("embedding_dimension", fp.Dimension),
		slog.Bool("judge", !x.noJudge),
	)
}

func (x *LLM) defaults() (providerDefaults, error) {
	d, ok := llmDefaults[x.provider]
	if !ok {
		return providerDefaults{}, goerr.Wrap(ErrUnknownProvider, "unsupported LLM provider", goerr.V("provider", x.provider))
	}
	return d, nil
}

func (x *LLM) resolvedChatModel() string {
	if x.chatModel != "" {
		return x.chatModel
	}
	return llmDefaults[x.provider].chatModel
}

// Fingerprint describes the embedding space selected by the flags. It does not contact the provider.
func (x *LLM) Fingerprint() (model.EmbeddingFingerprint, error) {
	d, err := x.defaults()
	if err != nil {
		return model.EmbeddingFingerprint{}, err
	}
	fp := model.EmbeddingFingerprint{
		Provider:  x.provider,
		Model:     d.embedModel,
		Dimension: d.dimension,
	}
	if x.embedModel != "" {
		fp.Model = x.embedModel
		// a custom model has no known default dimension
		fp.Dimension = 0
	}
	if x.dimension > 0 {
		fp.Dimension = x.dimension
	}
	if err := fp.Validate(); err != nil {
		return fp, goerr.Wrap(err, "set --embedding-dimension for a custom embedding model")
	}
	return fp, nil
}

// JudgeEnabled reports whether classification should consult the chat model
func (x *LLM) JudgeEnabled() bool {
	return !x.noJudge
}

func (x *LLM) newProvider(ctx context.Context, fp model.EmbeddingFingerprint) (gollem.LLMClient, error) {
	switch x.provider {
	case ProviderGemini:
		if x.geminiProject == "" {
			return nil, goerr.Wrap(model.ErrInvalidConfig, "gemini-project is required for the gemini provider")
		}
		client, err := gemini.New(ctx, x.geminiProject, x.geminiLocation,
			gemini.WithModel(x.resolvedChatModel()),
			gemini.WithEmbeddingModel(fp.Model),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client")
		}
		return client, nil

	case ProviderOpenAI:
		if x.openaiAPIKey == "" {
			return nil, goerr.Wrap(model.ErrInvalidConfig, "openai-api-key is required for the openai provider")
		}
		client, err := openai.New(ctx, x.openaiAPIKey,
			openai.WithModel(x.resolvedChatModel()),
			openai.WithEmbeddingModel(fp.Model),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OpenAI client")
		}
		return client, nil

	default:
		return nil, goerr.Wrap(ErrUnknownProvider, "unsupported LLM provider", goerr.V("provider", x.provider))
	}
}

// Configure builds the embedder/judge client for the selected provider
func (x *LLM) Configure(ctx context.Context) (*llm.Client, error) {
	fp, err := x.Fingerprint()
	if err != nil {
		return nil, err
	}

	provider, err := x.newProvider(ctx, fp)
	if err != nil {
		return nil, err
	}

	return llm.New(provider, fp,
		llm.WithRateLimit(x.rps, x.burst),
		llm.WithRetry(x.attempts, time.Second, 8*time.Second),
	)
}
