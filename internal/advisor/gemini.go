package advisor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/denisok6893-rgb/travel-matching/internal/logging"
	"github.com/denisok6893-rgb/travel-matching/internal/metrics"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// FallbackModel is used when no override is set and ListModels yields nothing.
	FallbackModel = "models/text-bison-001"

	maxErrorBody     = 2048
	modelListTimeout = 10 * time.Second
)

// TextGenerator turns a prompt into free text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelSource is implemented by generators that can enumerate backend models.
type ModelSource interface {
	ListModels(ctx context.Context) ([]Model, error)
	SelectedModel(ctx context.Context) string
}

// Model is one entry of the Gemini ListModels reply.
type Model struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName,omitempty"`
	Description                string   `json:"description,omitempty"`
	InputTokenLimit            int      `json:"inputTokenLimit,omitempty"`
	OutputTokenLimit           int      `json:"outputTokenLimit,omitempty"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods,omitempty"`
}

type GeminiConfig struct {
	APIKey string
	// Model pins the model; empty picks one from ListModels on first use.
	Model             string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
}

// GeminiClient calls the Gemini generateContent REST endpoint behind a rate
// limiter and a circuit breaker.
type GeminiClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
	log     zerolog.Logger

	mu        sync.Mutex
	model     string
	resolved  bool
	resolving singleflight.Group
}

// NewGeminiClient builds a client. A nil http client gets one with cfg.Timeout.
func NewGeminiClient(cfg GeminiConfig, client *http.Client) *GeminiClient {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
		burst = max(1, cfg.RequestsPerMinute/10)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	c := &GeminiClient{
		apiKey:  cfg.APIKey,
		baseURL: base,
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		log:     *logging.Component("gemini"),
	}
	if cfg.Model != "" {
		c.model = cfg.Model
		c.resolved = true
	}

	c.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			c.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	metrics.BreakerState.WithLabelValues("gemini").Set(float64(gobreaker.StateClosed))
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type listModelsResponse struct {
	Models        []Model `json:"models"`
	NextPageToken string  `json:"nextPageToken"`
}

// Generate returns the text of the first candidate. An empty candidate list
// yields "" without error so callers can apply their empty-text fallback.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", newProviderError(CodeNotConfigured, "gemini api key is not set", nil)
	}
	model := c.SelectedModel(ctx)

	if err := c.limiter.Wait(ctx); err != nil {
		return "", newProviderError(CodeRateLimited, "local rate limit", err)
	}

	text, err := c.breaker.Execute(func() (string, error) {
		t, err := c.generate(ctx, model, prompt)
		return t, mapError(err)
	})
	if err != nil {
		return "", mapError(err)
	}
	return text, nil
}

func (c *GeminiClient) generate(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s",
		c.baseURL, modelPath(model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", newProviderError(CodeBadResponse, "decode generateContent reply", err)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", newProviderError(CodeBadResponse, "prompt blocked: "+resp.PromptFeedback.BlockReason, nil)
		}
		return "", nil
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// ListModels returns every model visible to the key. Without a key the list
// is empty.
func (c *GeminiClient) ListModels(ctx context.Context) ([]Model, error) {
	if c.apiKey == "" {
		return []Model{}, nil
	}

	models := []Model{}
	pageToken := ""
	for {
		q := url.Values{"key": {c.apiKey}}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models?"+q.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		raw, err := c.do(req)
		if err != nil {
			return nil, mapError(err)
		}
		var page listModelsResponse
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, newProviderError(CodeBadResponse, "decode models reply", err)
		}
		models = append(models, page.Models...)
		if page.NextPageToken == "" {
			return models, nil
		}
		pageToken = page.NextPageToken
	}
}

// SelectedModel resolves the model once: the configured override, else the
// first listed model whose name contains "gemini", else the first listed
// model, else FallbackModel. Concurrent first callers share one listing; a
// caller whose ctx ends first gets FallbackModel without it being cached.
func (c *GeminiClient) SelectedModel(ctx context.Context) string {
	c.mu.Lock()
	if c.resolved {
		m := c.model
		c.mu.Unlock()
		return m
	}
	c.mu.Unlock()

	ch := c.resolving.DoChan("model", func() (any, error) {
		// detached so one caller's cancellation does not fail the others
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), modelListTimeout)
		defer cancel()
		models, err := c.ListModels(lctx)
		if err != nil {
			c.log.Warn().Err(err).Msg("list models failed")
		}
		m := pickModel(models)

		c.mu.Lock()
		c.model, c.resolved = m, true
		c.mu.Unlock()
		c.log.Info().Str("model", m).Msg("selected model for generative calls")
		return m, nil
	})

	select {
	case res := <-ch:
		return res.Val.(string)
	case <-ctx.Done():
		return FallbackModel
	}
}

func pickModel(models []Model) string {
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.Name), "gemini") {
			return m.Name
		}
	}
	if len(models) > 0 && models[0].Name != "" {
		return models[0].Name
	}
	return FallbackModel
}

// modelPath accepts both "gemini-x" and "models/gemini-x".
func modelPath(name string) string {
	return "models/" + strings.TrimPrefix(name, "models/")
}

func (c *GeminiClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(raw)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &statusError{StatusCode: resp.StatusCode, Body: msg}
	}
	return raw, nil
}
