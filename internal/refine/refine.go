// Package refine holds the optional correction step that runs on the
// reconciled record, before numbering and validation.
//
// A Refiner sees the raw recognized text and the reconciled record and
// returns a corrected record. The LLM refiner asks a chat model to fix
// fields the patterns got wrong; the rule-based refiner applies the same
// normalizations without a model and is used when no model is configured.
//
// Refiners may fail. Callers keep the record they passed in when Refine
// returns an error.
package refine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
)

// Refiner corrects an extracted record.
type Refiner interface {
	Refine(ctx context.Context, rawText string, rec invoice.Record) (invoice.Record, error)
}

// Noop returns records unchanged.
type Noop struct{}

func (Noop) Refine(_ context.Context, _ string, rec invoice.Record) (invoice.Record, error) {
	return rec, nil
}

const (
	ProviderNone   = "none"
	ProviderRules  = "rules"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second
)

// Config selects the refiner.
type Config struct {
	// Provider is none, rules, openai or ollama.
	Provider string `toml:"provider" json:"provider"`

	Model string `toml:"model" json:"model,omitempty"`

	// BaseURL points the openai provider at a compatible endpoint, or the
	// ollama provider at its server.
	BaseURL string `toml:"base_url" json:"base_url,omitempty"`

	// APIKey comes from OPENAI_API_KEY, never from the config file.
	APIKey string `toml:"-" json:"-"`

	// TimeoutSeconds bounds one Refine call. Zero means DefaultTimeout.
	TimeoutSeconds int `toml:"timeout_seconds" json:"timeout_seconds"`
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// New builds the refiner named by cfg.Provider.
//
// The openai provider without an API key degrades to the rule-based
// refiner with a warning rather than failing the run.
func New(cfg Config, log *logrus.Entry) (Refiner, error) {
	log = logging.OrNop(log)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderNone:
		return Noop{}, nil
	case ProviderRules:
		return NewRules(log), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			log.Warn("No OpenAI API key configured, using rule-based correction")
			return NewRules(log), nil
		}
		return newOpenAI(cfg, log)
	case ProviderOllama:
		return newOllama(cfg, log)
	}
	return nil, fmt.Errorf("unknown refiner provider %q", cfg.Provider)
}
