package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4.1-mini"
	DefaultMaxTokens     = 300
	DefaultTemperature   = 0.4
	defaultOpenAITimeout = 20 * time.Second

	chatCompletionsEndpoint = "/chat/completions"
)

// OpenAIConfig configures an OpenAI-compatible chat completions client.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	// Temperature nil selects DefaultTemperature; zero is a valid setting.
	Temperature *float64
}

// OpenAIClient implements Completer against an OpenAI-compatible API.
type OpenAIClient struct {
	client      *resty.Client
	cfg         OpenAIConfig
	temperature float64
}

// NewOpenAIClient returns nil when no API key is configured, which disables augmentation.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultOpenAITimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)

	return &OpenAIClient{client: client, cfg: cfg, temperature: temperature}
}

// Client exposes the underlying resty client.
func (c *OpenAIClient) Client() *resty.Client {
	return c.client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message *chatMessage `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one chat completion request. Every failure is an *AugmentationError.
func (c *OpenAIClient) Complete(ctx context.Context, p Prompt) (string, error) {
	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.temperature,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(chatCompletionsEndpoint)
	if err != nil {
		if isTimeout(err) {
			return "", &AugmentationError{Kind: KindTimeout, Err: err}
		}
		return "", &AugmentationError{Kind: KindServiceError, Err: err}
	}

	if !resp.IsSuccess() {
		var apiErr apiErrorBody
		msg := fmt.Sprintf("status %d", resp.StatusCode())
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Error != nil && apiErr.Error.Message != "" {
			msg += ": " + apiErr.Error.Message
		}
		return "", &AugmentationError{Kind: KindServiceError, Err: errors.New(msg)}
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", &AugmentationError{Kind: KindMalformedResponse, Err: err}
	}
	if len(out.Choices) == 0 || out.Choices[0].Message == nil {
		return "", &AugmentationError{Kind: KindMalformedResponse, Err: errors.New("no choices in response")}
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", &AugmentationError{Kind: KindMalformedResponse, Err: errors.New("empty message content")}
	}
	return text, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
