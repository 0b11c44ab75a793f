package ocr

import (
	"context"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const azureResponse = `{
  "language": "th",
  "orientation": "Up",
  "regions": [
    {"boundingBox": "10,10,200,40", "lines": [
      {"boundingBox": "10,10,200,20", "words": [
        {"boundingBox": "10,10,50,20", "text": "เลขที่บิล"},
        {"boundingBox": "70,10,80,20", "text": "CT68-000612"}
      ]},
      {"boundingBox": "10,30,200,20", "words": [
        {"boundingBox": "10,30,50,20", "text": "ยอดเงินสุทธิ"},
        {"boundingBox": "70,30,80,20", "text": "5,830.00"}
      ]}
    ]}
  ]
}`

func TestAzureEngine_ExtractText(t *testing.T) {
	var gotKey, gotPath, gotLanguage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotPath = r.URL.Path
		gotLanguage = r.URL.Query().Get("language")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(azureResponse))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Azure = AzureConfig{Endpoint: srv.URL + "/", Key: "secret", RequestsPerSecond: 100}
	engine, err := newAzure(cfg)
	require.NoError(t, err)
	assert.Equal(t, KindAzure, engine.Kind())

	text, err := engine.ExtractText(context.Background(), image.NewGray(image.Rect(0, 0, 20, 20)))
	require.NoError(t, err)
	assert.Equal(t, "เลขที่บิล CT68-000612\nยอดเงินสุทธิ 5,830.00", text)
	assert.Equal(t, "secret", gotKey)
	assert.True(t, strings.HasSuffix(gotPath, "/ocr"), gotPath)
	assert.Equal(t, "unk", gotLanguage)
}

func TestAzureEngine_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"401","message":"Access denied"}}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Azure = AzureConfig{Endpoint: srv.URL, Key: "wrong", RequestsPerSecond: 100}
	engine, err := newAzure(cfg)
	require.NoError(t, err)

	_, err = engine.ExtractText(context.Background(), image.NewGray(image.Rect(0, 0, 20, 20)))
	assert.Error(t, err)
}

func TestAzureEngine_CancelledWhileThrottled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Azure = AzureConfig{Endpoint: "http://127.0.0.1:1", Key: "k", RequestsPerSecond: 0.001}
	engine, err := newAzure(cfg)
	require.NoError(t, err)

	ae := engine.(*azureEngine)
	require.True(t, ae.limiter.Allow(), "first token should be free")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.ExtractText(ctx, image.NewGray(image.Rect(0, 0, 4, 4)))
	assert.Error(t, err)
}

func TestAzureEngine_Unconfigured(t *testing.T) {
	_, err := newAzure(DefaultConfig())
	assert.True(t, errors.Is(err, ErrRecognitionUnavailable))
}

func TestOcrResultText_Empty(t *testing.T) {
	assert.Equal(t, "", ocrResultText(computervision.OcrResult{}))

	regions := []computervision.OcrRegion{{}}
	assert.Equal(t, "", ocrResultText(computervision.OcrResult{Regions: &regions}))
}
