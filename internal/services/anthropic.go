package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/narrative-engine/pkg/chat"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	DefaultAnthropicTemperature = 0.7
	DefaultAnthropicMaxTokens   = 2048
)

// AnthropicService implements LLMService for Anthropic Claude. Generation
// runs on modelName; Meta calls run on metaModelName when set.
type AnthropicService struct {
	apiKey        string
	modelName     string
	metaModelName string
	httpClient    *http.Client
	logger        *slog.Logger
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Tools       []chat.Tool        `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

// anthropicContentBlock covers the block types this engine uses: text,
// tool_use (model side), and tool_result (engine side).
type anthropicContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type anthropicResponse struct {
	ID         string                  `json:"id"`
	Role       string                  `json:"role"`
	Content    []anthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicService(apiKey, modelName, metaModelName string, logger *slog.Logger) *AnthropicService {
	return &AnthropicService{
		apiKey:        apiKey,
		modelName:     modelName,
		metaModelName: metaModelName,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

func (a *AnthropicService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// splitChatMessages combines system messages into a single system prompt and
// converts the rest to the messages API wire shape, reconstructing tool_use
// and tool_result blocks from the history.
func splitChatMessages(messages []chat.ChatMessage) (string, []anthropicMessage) {
	var systemParts []string
	var wire []anthropicMessage

	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}

		var blocks []anthropicContentBlock
		switch {
		case msg.Request != nil:
			if msg.Content != "" {
				blocks = append(blocks, anthropicContentBlock{Type: "text", Text: msg.Content})
			}
			blocks = append(blocks, anthropicContentBlock{
				Type:  "tool_use",
				ID:    msg.Request.ID,
				Name:  msg.Request.Name,
				Input: msg.Request.Input,
			})
		case msg.ResultFor != "":
			blocks = append(blocks, anthropicContentBlock{
				Type:      "tool_result",
				ToolUseID: msg.ResultFor,
				Content:   msg.Content,
			})
		default:
			blocks = append(blocks, anthropicContentBlock{Type: "text", Text: msg.Content})
		}

		wire = append(wire, anthropicMessage{Role: msg.Role, Content: blocks})
	}

	return strings.Join(systemParts, "\n\n"), wire
}

// parseGenerateResult maps an API response onto the engine's result shape.
// Text blocks concatenate; the first tool_use block becomes the request.
func parseGenerateResult(resp *anthropicResponse) *chat.GenerateResult {
	result := &chat.GenerateResult{StopReason: resp.StopReason}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			result.Text += block.Text
		case "tool_use":
			if result.Request == nil {
				result.Request = &chat.ActionRequest{
					ID:    block.ID,
					Name:  block.Name,
					Input: block.Input,
				}
			}
		}
	}
	return result
}

func (a *AnthropicService) complete(ctx context.Context, messages []chat.ChatMessage, tools []chat.Tool, modelName string) (*anthropicResponse, error) {
	systemPrompt, wire := splitChatMessages(messages)

	temperature := DefaultAnthropicTemperature
	apiReq := anthropicRequest{
		Model:       modelName,
		MaxTokens:   DefaultAnthropicMaxTokens,
		Temperature: &temperature,
		System:      systemPrompt,
		Messages:    wire,
		Tools:       tools,
	}

	reqBody, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicBaseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", apiResp.Error.Message)
	}

	a.logger.Debug("Anthropic completion",
		"model", modelName,
		"stop_reason", apiResp.StopReason,
		"input_tokens", apiResp.Usage.InputTokens,
		"output_tokens", apiResp.Usage.OutputTokens)
	return &apiResp, nil
}

func (a *AnthropicService) Generate(ctx context.Context, messages []chat.ChatMessage, tools []chat.Tool) (*chat.GenerateResult, error) {
	resp, err := a.complete(ctx, messages, tools, a.modelName)
	if err != nil {
		return nil, err
	}
	return parseGenerateResult(resp), nil
}

func (a *AnthropicService) Meta(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	modelName := a.modelName
	if a.metaModelName != "" {
		modelName = a.metaModelName
	}

	resp, err := a.complete(ctx, messages, nil, modelName)
	if err != nil {
		return "", err
	}

	result := parseGenerateResult(resp)
	if result.Text == "" {
		return "", fmt.Errorf("empty meta response")
	}
	return result.Text, nil
}
