package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"

	"github.com/ssandy33/ado-pulse/internal/config"
)

const narrativePrompt = "You are an engineering finance analyst. Given a team's weekly CapEx/OpEx time-logging summary, " +
	"write at most five short sentences: overall compliance, notable CapEx/OpEx shifts, wrong-level logging, " +
	"and one suggested action. Refer to members only by the aliases provided."

type Client struct {
	key   string
	model string
	cli   openai.Client
	log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger, opts ...option.RequestOption) *Client {
	model := cfg.OpenAIModel
	if strings.TrimSpace(model) == "" {
		model = "gpt-4.1-mini"
	}
	base := []option.RequestOption{option.WithAPIKey(cfg.OpenAIKey)}
	if cfg.OpenAITimeout > 0 {
		base = append(base, option.WithRequestTimeout(cfg.OpenAITimeout))
	}
	opts = append(base, opts...)
	return &Client{key: cfg.OpenAIKey, model: model, cli: openai.NewClient(opts...), log: log}
}

func (c *Client) Enabled() bool { return strings.TrimSpace(c.key) != "" }

// Narrate asks the model for a short digest narrative over payload, which
// callers must already have anonymized.
func (c *Client) Narrate(ctx context.Context, payload any) (string, error) {
	if !c.Enabled() {
		return "", errors.New("openai: missing key")
	}
	c.log.Debug().Str("model", c.model).Msg("openai narrative call")
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(narrativePrompt),
			openai.UserMessage(string(b)),
		},
	}
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
