package boxapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/antonvlasov/metapilot/internal/core/domain"
	"github.com/antonvlasov/metapilot/internal/infrastructure/resilience"
)

// Client talks to the cloud content API: metadata template listing, AI
// classification and extraction, and metadata writes. All calls share one
// access token, one AI model choice and one resilience policy.
type Client struct {
	baseURL    string
	token      string
	aiModel    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	HTTPTimeout        time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, token, aiModel string, options Options) *Client {
	timeout := options.HTTPTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		aiModel:    aiModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// call routes one named operation through the resilience executor when one
// is configured.
func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	err := c.executor.Execute(ctx, operation, fn, classifyAPIError)
	return wrapTemporaryIfNeeded(operation, err)
}

type fileItem struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func fileItems(fileID string) []fileItem {
	return []fileItem{{ID: fileID, Type: "file"}}
}

type aiAgent struct {
	Type      string     `json:"type"`
	BasicText *modelSpec `json:"basic_text,omitempty"`
}

type modelSpec struct {
	Model string `json:"model"`
}

// applyAgent attaches the ai_agent override to an AI request. Without a
// configured model, or with a zero mode, the field is left out entirely and
// the service picks its default agent.
func (c *Client) applyAgent(request map[string]any, mode domain.AgentMode) map[string]any {
	if c.aiModel == "" || mode == "" {
		return request
	}
	request["ai_agent"] = aiAgent{
		Type:      string(mode),
		BasicText: &modelSpec{Model: c.aiModel},
	}
	return request
}
