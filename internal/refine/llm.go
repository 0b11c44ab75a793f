package refine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
)

// ErrBadResponse reports a model answer that is not the expected JSON.
var ErrBadResponse = errors.New("unusable model response")

// maxPromptText is the number of runes of recognized text sent to the model.
const maxPromptText = 1000

// refinedFields are the fields the model is asked to correct.
var refinedFields = []invoice.Field{
	invoice.FieldInvoiceNumber,
	invoice.FieldIssueDate,
	invoice.FieldOrganization,
	invoice.FieldTaxID,
	invoice.FieldTelephone,
	invoice.FieldSubtotal,
	invoice.FieldVATAmount,
	invoice.FieldTotalAmount,
}

const systemPrompt = "You process Thai tax invoices (ใบกำกับภาษี). Answer with a single JSON object only."

const promptTemplate = `Text recognized from a Thai tax invoice:
%s

Fields extracted by pattern matching:
%s

Correct the extracted fields using the text:
- invoice_number: forms like "CT 68-000612" or "AP-20250101001" or 10 to 13 digits; prefer the value after เลขที่บิล or เลขที่. Remove inner spaces.
- issue_date: the text uses d/m/yyyy with a Buddhist era year. Answer YYYY-MM-DD in the Gregorian calendar (year - 543), e.g. 1/8/2568 -> 2025-08-01.
- organization: the company name only, e.g. "บริษัท พี 111 เดคคอร์ จำกัด", without address or phone.
- tax_id: exactly 13 digits without separators, e.g. "0 1355 63000 95 2" -> "0135563000952".
- telephone: digits only.
- subtotal (รวมเป็นเงิน), vat_amount (ภาษีมูลค่าเพิ่ม), total_amount (ยอดเงินสุทธิ): plain numbers with two decimals; total = subtotal + vat.

Answer with JSON using exactly these keys: %s. Use "" for unknown values.`

// LLM corrects records with a chat model.
type LLM struct {
	model   llms.Model
	name    string
	timeout time.Duration
	rules   *Rules
	log     *logrus.Entry
}

func newOpenAI(cfg Config, log *logrus.Entry) (*LLM, error) {
	name := cfg.Model
	if name == "" {
		name = DefaultModel
	}
	opts := []openai.Option{
		openai.WithModel(name),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return NewLLM(model, name, cfg.timeout(), log), nil
}

func newOllama(cfg Config, log *logrus.Entry) (*LLM, error) {
	if cfg.Model == "" {
		return nil, errors.New("ollama refiner needs a model name")
	}
	host := cfg.BaseURL
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	model, err := ollama.New(ollama.WithModel(cfg.Model), ollama.WithServerURL(host), ollama.WithFormat("json"))
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return NewLLM(model, cfg.Model, cfg.timeout(), log), nil
}

// NewLLM wraps model. A zero timeout means DefaultTimeout.
func NewLLM(model llms.Model, name string, timeout time.Duration, log *logrus.Entry) *LLM {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log = logging.OrNop(log)
	return &LLM{
		model:   model,
		name:    name,
		timeout: timeout,
		rules:   &Rules{log: log},
		log:     log.WithField("model", name),
	}
}

// Refine asks the model to correct rec, merges every non-empty answer
// into it and normalizes the result with the rule-based refiner.
func (l *LLM) Refine(ctx context.Context, rawText string, rec invoice.Record) (invoice.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	prompt, err := buildPrompt(rawText, rec)
	if err != nil {
		return rec, err
	}

	start := time.Now()
	resp, err := l.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithTemperature(0.1), llms.WithJSONMode())
	if err != nil {
		return rec, fmt.Errorf("error getting response from LLM: %w", err)
	}
	if len(resp.Choices) == 0 {
		return rec, fmt.Errorf("%w: no choices", ErrBadResponse)
	}

	answer, err := parseAnswer(resp.Choices[0].Content)
	if err != nil {
		return rec, err
	}

	out := rec
	var changed []invoice.Field
	for _, f := range refinedFields {
		v, ok := answer[string(f)]
		if !ok || v == "" || v == out.Get(f) {
			continue
		}
		_ = out.Set(f, v)
		changed = append(changed, f)
	}
	if out.Organization != rec.Organization {
		out.Name = out.Organization
	}

	l.log.WithFields(logrus.Fields{
		"changed":  changed,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Record refined")
	return l.rules.Refine(ctx, rawText, out)
}

func buildPrompt(rawText string, rec invoice.Record) (string, error) {
	if r := []rune(rawText); len(r) > maxPromptText {
		rawText = string(r[:maxPromptText])
	}

	current := make(map[string]string, len(refinedFields))
	keys := make([]string, 0, len(refinedFields))
	for _, f := range refinedFields {
		current[string(f)] = rec.Get(f)
		keys = append(keys, string(f))
	}
	js, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(promptTemplate, rawText, js, strings.Join(keys, ", ")), nil
}

// parseAnswer decodes the model's JSON object. Code fences are tolerated
// and numbers are accepted for any field.
func parseAnswer(content string) (map[string]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = strings.TrimSpace(val)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return out, nil
}
