package llm

import (
	"context"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// GeminiConfig holds the settings for the Gemini backend
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// ChatModelCaller adapts an eino chat model to Caller
type ChatModelCaller struct {
	chatModel model.BaseChatModel
	name      string
}

// NewChatModelCaller wraps any eino chat model
func NewChatModelCaller(chatModel model.BaseChatModel, name string) *ChatModelCaller {
	return &ChatModelCaller{chatModel: chatModel, name: name}
}

// NewGemini builds a Gemini chat model through genai and wraps it as a Caller
func NewGemini(ctx context.Context, cfg GeminiConfig) (*ChatModelCaller, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}

	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens
	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini chat model", goerr.V("model", cfg.Model))
	}

	return NewChatModelCaller(chatModel, cfg.Model), nil
}

// Call sends the prompts as a system and a user message. The per-call model
// name is ignored because an eino chat model is bound to one model.
func (c *ChatModelCaller) Call(ctx context.Context, req CallRequest) (*Result, error) {
	messages := []*schema.Message{
		schema.SystemMessage(req.SystemPrompt),
		schema.UserMessage(req.UserPrompt),
	}

	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, goerr.Wrap(err, "chat model call failed", goerr.V("model", c.name))
	}
	if resp == nil {
		return nil, goerr.New("chat model returned no message", goerr.V("model", c.name))
	}

	return finish(resp.Content, req.Mode)
}
