package llm

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
	"golang.org/x/time/rate"
)

const (
	defaultBatchSize = 100
	defaultAttempts  = 3
	defaultBaseWait  = time.Second
	defaultMaxWait   = 8 * time.Second

	defaultSystemPrompt = "You are a solution architect assessing how well an ecommerce storefront platform covers business requirements. Answer only in the format requested."
)

// Client embeds and judges through a gollem LLM client
type Client struct {
	llm          gollem.LLMClient
	fingerprint  model.EmbeddingFingerprint
	limiter      *rate.Limiter
	retry        retryPolicy
	batchSize    int
	systemPrompt string
}

var (
	_ interfaces.Embedder = &Client{}
	_ interfaces.Judge    = &Client{}
)

// Option is a functional option for Client configuration
type Option func(*Client)

// WithRateLimit limits provider calls to rps requests per second with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithRetry sets the attempt ceiling and backoff bounds for provider calls
func WithRetry(attempts int, base, maxWait time.Duration) Option {
	return func(c *Client) {
		c.retry = retryPolicy{
			attempts: max(attempts, 1),
			base:     base,
			max:      maxWait,
			wrap:     c.retry.wrap,
		}
	}
}

// WithBatchSize sets how many texts are embedded per provider call
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithSystemPrompt replaces the system prompt of judge sessions
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) {
		c.systemPrompt = prompt
	}
}

// New creates a Client. fp describes the vectors llmClient produces and must be complete.
func New(llmClient gollem.LLMClient, fp model.EmbeddingFingerprint, opts ...Option) (*Client, error) {
	if llmClient == nil {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "LLM client is required")
	}
	if err := fp.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		llm:         llmClient,
		fingerprint: fp,
		retry: retryPolicy{
			attempts: defaultAttempts,
			base:     defaultBaseWait,
			max:      defaultMaxWait,
		},
		batchSize:    defaultBatchSize,
		systemPrompt: defaultSystemPrompt,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) Fingerprint() model.EmbeddingFingerprint {
	return c.fingerprint
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return goerr.Wrap(err, "rate limiter wait aborted")
	}
	return nil
}

// Embed returns one vector per text. gollem providers do not distinguish query and
// document embeddings, so taskType is only recorded.
func (c *Client) Embed(ctx context.Context, texts []string, taskType types.TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	logging.From(ctx).Debug("embedding texts",
		"count", len(texts),
		"task_type", taskType.String(),
		"model", c.fingerprint.Model)

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		batch := texts[start:min(start+c.batchSize, len(texts))]

		var vectors [][]float64
		err := c.retry.do(ctx, "embed", func(ctx context.Context) error {
			if err := c.wait(ctx); err != nil {
				return err
			}
			v, err := c.llm.GenerateEmbedding(ctx, c.fingerprint.Dimension, batch)
			if err != nil {
				return err
			}
			vectors = v
			return nil
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to generate embeddings",
				goerr.V("provider", c.fingerprint.Provider),
				goerr.V("model", c.fingerprint.Model),
				goerr.V("batch_start", start))
		}

		if len(vectors) != len(batch) {
			return nil, goerr.Wrap(model.ErrProviderRejected, "provider returned wrong number of embeddings",
				goerr.V("expected", len(batch)),
				goerr.V("actual", len(vectors)))
		}

		for _, v := range vectors {
			vec := toFloat32(v)
			if err := c.fingerprint.CheckDimension(c.fingerprint.CollectionName(), vec); err != nil {
				return nil, goerr.Wrap(err, "provider returned embedding of unexpected size")
			}
			result = append(result, vec)
		}
	}

	return result, nil
}

// Judge sends prompt in a fresh session and returns the concatenated response text
func (c *Client) Judge(ctx context.Context, prompt string) (string, error) {
	var text string
	err := c.retry.do(ctx, "judge", func(ctx context.Context) error {
		if err := c.wait(ctx); err != nil {
			return err
		}

		session, err := c.llm.NewSession(ctx, gollem.WithSessionSystemPrompt(c.systemPrompt))
		if err != nil {
			return goerr.Wrap(err, "failed to create LLM session")
		}

		resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
		if err != nil {
			return goerr.Wrap(err, "failed to generate content from LLM")
		}
		if resp == nil || len(resp.Texts) == 0 {
			return goerr.New("LLM returned no text")
		}

		text = strings.Join(resp.Texts, "")
		return nil
	})
	if err != nil {
		return "", goerr.Wrap(err, "judge call failed", goerr.V("provider", c.fingerprint.Provider))
	}

	return text, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
