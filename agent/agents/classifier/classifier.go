// Package classifier implements the classification oracle on an OpenAI-compatible
// chat completions API.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	promptx "github.com/tanpawarit/chative-intent-router/agent/prompt"
	statex "github.com/tanpawarit/chative-intent-router/agent/state"
	openrouterx "github.com/tanpawarit/chative-intent-router/pkg/openrouter"
	"github.com/tidwall/gjson"
)

var _ contractx.Oracle = (*Oracle)(nil)

type Oracle struct {
	client    *openaisdk.Client
	model     string
	temp      float32
	maxTokens int64

	classifyPrompt     string
	continuationPrompt string
}

// New builds an Oracle for the classifier role. Extra request options are applied
// after the configuration, so they win.
func New(cfg openrouterx.Config, prompts promptx.PromptSet, opts ...option.RequestOption) (*Oracle, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: classifier model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(prompts.Classify) == "" || strings.TrimSpace(prompts.Continuation) == "" {
		return nil, fmt.Errorf("%w: classifier prompts", contractx.ErrPromptMissing)
	}

	client := openrouterx.NewClient(cfg, opts...)
	if client == nil {
		return nil, fmt.Errorf("%w: classifier api key is required", contractx.ErrValidation)
	}

	var maxTokens int64
	if cfg.MaxCompletionToken != nil {
		maxTokens = int64(*cfg.MaxCompletionToken)
	}

	return &Oracle{
		client:             client,
		model:              strings.TrimSpace(cfg.Model),
		temp:               cfg.Temperature,
		maxTokens:          maxTokens,
		classifyPrompt:     prompts.Classify,
		continuationPrompt: prompts.Continuation,
	}, nil
}

// Classify returns the intent the oracle picked for the newest utterance. The value
// is returned as answered; callers map anything outside the taxonomy to NONE.
func (o *Oracle) Classify(ctx context.Context, utterances []string) (statex.Intent, error) {
	if len(utterances) == 0 {
		return "", fmt.Errorf("%w: no utterances to classify", contractx.ErrValidation)
	}

	input, err := json.Marshal(map[string]any{
		"conversation": utterances,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal classify payload: %v", contractx.ErrValidation, err)
	}

	content, err := o.complete(ctx, o.classifyPrompt, string(input))
	if err != nil {
		return "", err
	}

	raw, err := field(content, "intent")
	if err != nil {
		return "", err
	}
	if raw.Type != gjson.String {
		return "", fmt.Errorf("%w: intent must be a string, got %s", contractx.ErrSchemaViolation, raw.Raw)
	}
	if intent, ok := statex.ParseIntent(raw.String()); ok {
		return intent, nil
	}
	return statex.Intent(strings.TrimSpace(raw.String())), nil
}

func (o *Oracle) IsContinuation(ctx context.Context, pendingPrompt string, utterance string) (bool, error) {
	input, err := json.Marshal(map[string]any{
		"question": pendingPrompt,
		"message":  utterance,
	})
	if err != nil {
		return false, fmt.Errorf("%w: marshal continuation payload: %v", contractx.ErrValidation, err)
	}

	content, err := o.complete(ctx, o.continuationPrompt, string(input))
	if err != nil {
		return false, err
	}

	raw, err := field(content, "continuation")
	if err != nil {
		return false, err
	}
	if raw.Type != gjson.True && raw.Type != gjson.False {
		return false, fmt.Errorf("%w: continuation must be a boolean, got %s", contractx.ErrSchemaViolation, raw.Raw)
	}
	return raw.Bool(), nil
}

func (o *Oracle) complete(ctx context.Context, systemPrompt string, input string) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(o.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemPrompt),
			openaisdk.UserMessage(input),
		},
		Temperature: openaisdk.Float(float64(o.temp)),
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(o.maxTokens)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %w", contractx.ErrModelInvoke, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", contractx.ErrSchemaViolation)
	}
	return resp.Choices[0].Message.Content, nil
}

var errNoJSONObject = errors.New("no json object in model output")

// field extracts key from the first JSON object in content, tolerating code fences and
// surrounding prose.
func field(content string, key string) (gjson.Result, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return gjson.Result{}, fmt.Errorf("%w: %w", contractx.ErrSchemaViolation, errNoJSONObject)
	}
	body := content[start : end+1]
	if !gjson.Valid(body) {
		return gjson.Result{}, fmt.Errorf("%w: invalid json %q", contractx.ErrSchemaViolation, body)
	}

	res := gjson.Get(body, key)
	if !res.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: field %q is missing", contractx.ErrSchemaViolation, key)
	}
	return res, nil
}
