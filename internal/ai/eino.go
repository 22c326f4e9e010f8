package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoClient adapts an eino chat model to the Runtime interface. The
// "openai" provider uses it with the eino-ext OpenAI model.
type EinoClient struct {
	chat model.BaseChatModel
}

// NewEinoClient wraps an existing eino chat model.
func NewEinoClient(chat model.BaseChatModel) *EinoClient {
	return &EinoClient{chat: chat}
}

// NewOpenAIClient builds an eino OpenAI chat model. baseURL may be empty for
// the public API or point at any OpenAI-compatible endpoint.
func NewOpenAIClient(ctx context.Context, apiKey, baseURL string, timeout time.Duration) (*EinoClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is missing (set CHARTLOOM_OPENAI_API_KEY)")
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	return NewEinoClient(cm), nil
}

func (c *EinoClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	opts := []model.Option{model.WithModel(req.Model)}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	msg, err := c.chat.Generate(ctx, toSchemaMessages(req.Messages), opts...)
	if err != nil {
		return nil, fmt.Errorf("eino generate: %w", err)
	}
	return fromSchemaMessage(msg), nil
}

func toSchemaMessages(in []Message) []*schema.Message {
	out := make([]*schema.Message, len(in))
	for i, m := range in {
		out[i] = &schema.Message{Role: schema.RoleType(m.Role), Content: m.Content}
	}
	return out
}

func fromSchemaMessage(msg *schema.Message) *GenerateResponse {
	resp := &GenerateResponse{}
	if msg == nil {
		return resp
	}
	resp.Choices = []Choice{{Message: Message{Role: string(msg.Role), Content: msg.Content}}}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		u := msg.ResponseMeta.Usage
		resp.Usage = Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return resp
}
