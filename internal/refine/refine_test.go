package refine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
)

// fakeModel answers every request with a fixed completion.
type fakeModel struct {
	answer   string
	err      error
	delay    time.Duration
	messages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.answer}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

const scenarioText = "เลขที่บิล CT 68-000612 เลขประจำตัวผู้เสียภาษี 0 1355 63000 95 2 วันที่ 1/8/2568"

func extracted() invoice.Record {
	rec := invoice.Record{
		InvoiceNumber: "AP20250802001",
		IssueDate:     "2025-08-01",
		TaxID:         "",
		Subtotal:      "5448.60",
		VATAmount:     "381.40",
	}
	invoice.ApplyDefaults(&rec)
	return rec
}

func TestNoop(t *testing.T) {
	rec := extracted()
	out, err := Noop{}.Refine(context.Background(), "x", rec)
	require.NoError(t, err)
	assert.Equal(t, rec, out)
}

func TestNew(t *testing.T) {
	tests := []struct {
		cfg  Config
		want any
	}{
		{Config{}, Noop{}},
		{Config{Provider: "none"}, Noop{}},
		{Config{Provider: "rules"}, &Rules{}},
		{Config{Provider: "openai"}, &Rules{}},
		{Config{Provider: "OpenAI", APIKey: "k"}, &LLM{}},
		{Config{Provider: "ollama", Model: "llama3"}, &LLM{}},
	}
	for _, tt := range tests {
		r, err := New(tt.cfg, nil)
		require.NoError(t, err, tt.cfg.Provider)
		assert.IsType(t, tt.want, r, tt.cfg.Provider)
	}

	_, err := New(Config{Provider: "gemini"}, nil)
	assert.Error(t, err)

	_, err = New(Config{Provider: "ollama"}, nil)
	assert.Error(t, err)
}

func TestRules_RecoversCTNumber(t *testing.T) {
	out, err := NewRules(nil).Refine(context.Background(), scenarioText, extracted())
	require.NoError(t, err)
	assert.Equal(t, "CT68-000612", out.InvoiceNumber)
	assert.Equal(t, "CT", out.Series)
}

func TestRules_KeepsNumberWithoutCTText(t *testing.T) {
	out, err := NewRules(nil).Refine(context.Background(), "ใบกำกับภาษี", extracted())
	require.NoError(t, err)
	assert.Equal(t, "AP20250802001", out.InvoiceNumber)
	assert.Equal(t, "AP", out.Series)
}

func TestRules_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := extracted()
	out, err := NewRules(nil).Refine(ctx, scenarioText, rec)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, rec, out)
}

func TestNormalize(t *testing.T) {
	rec := invoice.Record{
		InvoiceNumber: "CT 68-000612",
		TaxID:         "0 1355 63000 95 2",
		Telephone:     "02-123-4567",
		IssueDate:     "2568-08-01",
		DueDate:       "2025-09-01",
		TaxDate:       "not a date",
		Subtotal:      "5,448.6",
		TotalAmount:   "abc",
		Organization:  "บริษัท พี 111 เดคคอร์ จำกัด ที่อยู่ 99/1 ถนนสุขุมวิท",
	}

	out := Normalize(rec)
	assert.Equal(t, "CT68-000612", out.InvoiceNumber)
	assert.Equal(t, "0135563000952", out.TaxID)
	assert.Equal(t, "021234567", out.Telephone)
	assert.Equal(t, "2025-08-01", out.IssueDate)
	assert.Equal(t, "2025-09-01", out.DueDate)
	assert.Equal(t, "not a date", out.TaxDate)
	assert.Equal(t, "5448.60", out.Subtotal)
	assert.Equal(t, "abc", out.TotalAmount)
	assert.Equal(t, "บริษัท พี 111 เดคคอร์ จำกัด", out.Organization)
	assert.Equal(t, out.Organization, out.Name)
}

func TestNormalize_LeavesInvalidIDs(t *testing.T) {
	out := Normalize(invoice.Record{TaxID: "0 1355 63000", Telephone: "02-12"})
	assert.Equal(t, "0 1355 63000", out.TaxID)
	assert.Equal(t, "02-12", out.Telephone)
}

func TestLLM_MergesAnswer(t *testing.T) {
	model := &fakeModel{answer: "```json\n" + `{
		"invoice_number": "CT 68-000612",
		"issue_date": "2025-08-01",
		"organization": "บริษัท พี 111 เดคคอร์ จำกัด",
		"tax_id": "0135563000952",
		"telephone": "",
		"subtotal": 5448.6,
		"vat_amount": "381.40",
		"total_amount": "5830.00",
		"confidence": 0.9
	}` + "\n```"}

	out, err := NewLLM(model, "fake", 0, nil).Refine(context.Background(), scenarioText, extracted())
	require.NoError(t, err)

	assert.Equal(t, "CT68-000612", out.InvoiceNumber)
	assert.Equal(t, "0135563000952", out.TaxID)
	assert.Equal(t, "บริษัท พี 111 เดคคอร์ จำกัด", out.Organization)
	assert.Equal(t, out.Organization, out.Name)
	assert.Equal(t, "5448.60", out.Subtotal)
	assert.Equal(t, "5830.00", out.TotalAmount)
	assert.Equal(t, "CT", out.Series)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	prompt := model.messages[1].Parts[0].(llms.TextContent).Text
	assert.Contains(t, prompt, "เลขที่บิล CT 68-000612")
	assert.Contains(t, prompt, `"invoice_number": "AP20250802001"`)
}

func TestLLM_Errors(t *testing.T) {
	rec := extracted()

	out, err := NewLLM(&fakeModel{err: errors.New("boom")}, "fake", 0, nil).Refine(context.Background(), "x", rec)
	assert.Error(t, err)
	assert.Equal(t, rec, out)

	out, err = NewLLM(&fakeModel{answer: "I cannot help"}, "fake", 0, nil).Refine(context.Background(), "x", rec)
	assert.ErrorIs(t, err, ErrBadResponse)
	assert.Equal(t, rec, out)
}

func TestLLM_Timeout(t *testing.T) {
	model := &fakeModel{answer: "{}", delay: time.Second}
	_, err := NewLLM(model, "fake", 20*time.Millisecond, nil).Refine(context.Background(), "x", extracted())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuildPrompt_TruncatesText(t *testing.T) {
	base, err := buildPrompt("", invoice.Record{})
	require.NoError(t, err)
	prompt, err := buildPrompt(strings.Repeat("ก", 5000), invoice.Record{})
	require.NoError(t, err)
	assert.Equal(t, maxPromptText, strings.Count(prompt, "ก")-strings.Count(base, "ก"))
}

func TestOpenAIEndpoint(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)

		answer, _ := json.Marshal(map[string]string{"tax_id": "0135563000952"})
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": string(answer)},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	r, err := New(Config{Provider: "openai", APIKey: "test-key", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	out, err := r.Refine(context.Background(), scenarioText, extracted())
	require.NoError(t, err)
	assert.Equal(t, "0135563000952", out.TaxID)
	assert.Equal(t, "gpt-4o-mini", body["model"])
}
