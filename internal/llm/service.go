package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/havenchat/haven/internal/models"
)

// ErrMissingAPIKey is returned when no provider credential is configured.
// The message doubles as the user-facing error string.
var ErrMissingAPIKey = errors.New("GROQ_API_KEY is missing")

// UpstreamError carries the provider's non-success status and response body.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Groq API error %d", e.StatusCode)
}

// fallbackReply is returned when the provider answers 200 with no content.
const fallbackReply = "I’m sorry, I couldn’t generate a response."

type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// Service forwards chat turns to an OpenAI-compatible completion endpoint.
// The HTTP exchange is done directly so upstream failures can surface the
// provider's raw status code and body.
type Service struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

func New(cfg Config, logger *zap.Logger) *Service {
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type completionRequest struct {
	Model       string            `json:"model"`
	Messages    []models.ChatTurn `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
	Stream      bool              `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete prepends the configured system prompt to turns, submits the full
// sequence to the provider, and returns the first completion's text. Nothing
// is retried.
func (s *Service) Complete(ctx context.Context, turns []models.ChatTurn) (string, error) {
	if s.cfg.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	messages := make([]models.ChatTurn, 0, len(turns)+1)
	messages = append(messages, models.ChatTurn{Role: "system", Content: s.cfg.SystemPrompt})
	messages = append(messages, turns...)

	body, err := json.Marshal(completionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", errors.Wrap(err, "encode completion request")
	}

	if ce := s.logger.Check(zap.DebugLevel, "forwarding chat completion"); ce != nil {
		ce.Write(
			zap.Int("turns", len(turns)),
			zap.Int("prompt_tokens_estimate", s.estimateTokens(messages)))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build completion request")
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "call completion provider")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody := "<no body>"
		if b, readErr := io.ReadAll(resp.Body); readErr == nil && len(b) > 0 {
			errBody = string(b)
		}
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: errBody}
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", errors.Wrap(err, "decode completion response")
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return fallbackReply, nil
	}
	return completion.Choices[0].Message.Content, nil
}

// estimateTokens is best-effort accounting for debug logs only. cl100k is an
// approximation for llama-family models; encoder init failures are ignored.
func (s *Service) estimateTokens(turns []models.ChatTurn) int {
	s.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			s.logger.Debug("token encoder unavailable", zap.Error(err))
			return
		}
		s.enc = enc
	})
	if s.enc == nil {
		return 0
	}
	n := 0
	for _, t := range turns {
		n += len(s.enc.Encode(t.Content, nil, nil))
	}
	return n
}
