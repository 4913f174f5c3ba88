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
    "github.com/sarahgant/ADOApp-sub000/internal/config"
)

type Client struct {
    key   string
    model string
    cli   openai.Client
    log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    model := cfg.OpenAIModel
    if strings.TrimSpace(model) == "" { model = "gpt-4.1-mini" }
    cli := openai.NewClient(option.WithAPIKey(cfg.OpenAIKey))
    return &Client{key: cfg.OpenAIKey, model: model, cli: cli, log: log}
}

// Summarize turns the latest team KPIs into a short narrative for the digest.
func (c *Client) Summarize(ctx context.Context, kpis map[string]float64, notes []string) (string, error) {
    if strings.TrimSpace(c.key) == "" { return "", errors.New("openai: missing key") }
    c.log.Info().Str("model", c.model).Msg("openai Summarize call")
    payload := map[string]any{"kpis": kpis, "notes": notes}
    userContent := ""
    if b, err := json.Marshal(payload); err == nil { userContent = string(b) }
    params := openai.ChatCompletionNewParams{
        Model: shared.ChatModel(c.model),
        Messages: []openai.ChatCompletionMessageParamUnion{
            openai.SystemMessage("You are a senior agile coach. Given sprint and team KPIs from a work tracker, produce a concise, actionable summary with anomalies and suggested actions."),
            openai.UserMessage(userContent),
        },
    }
    resp, err := c.cli.Chat.Completions.New(ctx, params)
    if err != nil { return "", err }
    if len(resp.Choices) == 0 { return "", errors.New("openai: no choices") }
    return resp.Choices[0].Message.Content, nil
}
