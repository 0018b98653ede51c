package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	openrouterx "github.com/tanpawarit/chative-intent-router/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	MaxRetries         int           `envconfig:"MAX_RETRIES" split_words:"true" default:"2"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ClassifierModel        string  `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
	SummarizerModel        string  `envconfig:"SUMMARIZER_MODEL" split_words:"true"`
	ActionItemsModel       string  `envconfig:"ACTION_ITEMS_MODEL" split_words:"true"`
	SchedulerModel         string  `envconfig:"SCHEDULER_MODEL" split_words:"true"`
	ClassifierTemperature  float32 `envconfig:"CLASSIFIER_TEMPERATURE" split_words:"true" default:"0"`
	SummarizerTemperature  float32 `envconfig:"SUMMARIZER_TEMPERATURE" split_words:"true" default:"-1"`
	ActionItemsTemperature float32 `envconfig:"ACTION_ITEMS_TEMPERATURE" split_words:"true" default:"-1"`
	SchedulerTemperature   float32 `envconfig:"SCHEDULER_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the model settings of one role. Empty model overrides and
// negative temperatures fall back to the defaults.
func (c Config) OpenRouterFor(role contractx.Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(model string, temperature float32) {
		if v := strings.TrimSpace(model); v != "" {
			modelName = v
		}
		if temperature >= 0 {
			temp = temperature
		}
	}

	switch role {
	case contractx.RoleClassifier:
		override(c.ClassifierModel, c.ClassifierTemperature)
	case contractx.RoleSummarizer:
		override(c.SummarizerModel, c.SummarizerTemperature)
	case contractx.RoleActionItems:
		override(c.ActionItemsModel, c.ActionItemsTemperature)
	case contractx.RoleScheduler:
		override(c.SchedulerModel, c.SchedulerTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		MaxRetries:         c.MaxRetries,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
