package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/routeworks/llm-router/config"
	"github.com/routeworks/llm-router/models"
	"go.uber.org/zap"
)

// openRouterModelMap maps internal backend names to OpenRouter model IDs.
var openRouterModelMap = map[models.ModelName]string{
	models.ModelClaudeSonnet: "anthropic/claude-3.5-sonnet",
	models.ModelGPT4o:        "openai/gpt-4o",
	models.ModelGeminiPro:    "google/gemini-pro-1.5",
	models.ModelDeepSeekV3:   "deepseek/deepseek-chat",
	models.ModelGPT4oMini:    "openai/gpt-4o-mini",
	models.ModelClaudeHaiku:  "anthropic/claude-3-haiku",
}

// OpenRouter is the live completion gateway, active in full mode.
type OpenRouter struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewOpenRouter creates a live gateway from the gateway config.
func NewOpenRouter(cfg config.GatewayConfig, logger *zap.Logger) *OpenRouter {
	return &OpenRouter{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete performs a non-streaming chat completion call.
func (g *OpenRouter) Complete(ctx context.Context, req Request) (*Completion, error) {
	body, err := g.buildPayload(req, false)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := g.post(ctx, body)
	if err != nil {
		return nil, &ProviderError{Model: req.Model, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	latencyMs := int(time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		g.logger.Error("openrouter error response",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return nil, &ProviderError{Model: req.Model, Message: fmt.Sprintf("api error: status %d", resp.StatusCode)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ProviderError{Model: req.Model, Message: "malformed response", Cause: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, &ProviderError{Model: req.Model, Message: "empty choices"}
	}

	text := parsed.Choices[0].Message.Content
	tokens := 0
	if parsed.Usage != nil {
		tokens = parsed.Usage.TotalTokens
	}
	if tokens == 0 {
		// Usage is not always reported; estimate from the text.
		tokens = estimateTokens(text, 1.3)
	}

	return &Completion{
		ResponseText: text,
		LatencyMs:    latencyMs,
		TokensUsed:   tokens,
	}, nil
}

// CompleteStream performs a streaming chat completion call, translating the
// upstream SSE lines into StreamEvents. Mid-stream upstream failures surface
// as a terminal Err event.
func (g *OpenRouter) CompleteStream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	body, err := g.buildPayload(req, true)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := g.post(ctx, body)
	if err != nil {
		return nil, &ProviderError{Model: req.Model, Message: "request failed", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		resp.Body.Close()
		g.logger.Error("openrouter stream error response",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return nil, &ProviderError{Model: req.Model, Message: fmt.Sprintf("api error: status %d", resp.StatusCode)}
	}

	out := make(chan StreamEvent)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		var fullText strings.Builder
		tokens := 0

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimSpace(line[len("data: "):])
			if data == "[DONE]" {
				break
			}

			var parsed chatResponse
			if err := json.Unmarshal([]byte(data), &parsed); err != nil {
				continue
			}
			if len(parsed.Choices) > 0 {
				if content := parsed.Choices[0].Delta.Content; content != "" {
					fullText.WriteString(content)
					select {
					case out <- StreamEvent{Content: content}:
					case <-ctx.Done():
						return
					}
				}
			}
			// Usage arrives on the final chunk when the provider reports it.
			if parsed.Usage != nil && parsed.Usage.TotalTokens > 0 {
				tokens = parsed.Usage.TotalTokens
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case out <- StreamEvent{Err: &ProviderError{Model: req.Model, Message: "stream interrupted", Cause: err}}:
			case <-ctx.Done():
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		text := fullText.String()
		if tokens == 0 {
			tokens = estimateTokens(text, 1.3)
		}
		select {
		case out <- StreamEvent{Final: &Completion{
			ResponseText: text,
			LatencyMs:    int(time.Since(start).Milliseconds()),
			TokensUsed:   tokens,
		}}:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

func (g *OpenRouter) buildPayload(req Request, stream bool) ([]byte, error) {
	upstreamModel, ok := openRouterModelMap[req.Model]
	if !ok {
		return nil, &ProviderError{Model: req.Model, Message: "no upstream mapping"}
	}
	payload := chatPayload{
		Model:    upstreamModel,
		Messages: []chatMessage{{Role: "user", Content: req.Prompt}},
		Stream:   stream,
	}
	return json.Marshal(payload)
}

func (g *OpenRouter) post(ctx context.Context, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("HTTP-Referer", "https://llm-router.dev")
	httpReq.Header.Set("X-Title", "Intelligent LLM Router")
	return g.client.Do(httpReq)
}
