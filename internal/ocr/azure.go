package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"golang.org/x/time/rate"

	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
)

// DefaultAzureRate is the free tier request rate of Computer Vision.
const DefaultAzureRate = 0.33

// AzureConfig holds the Computer Vision endpoint settings.
type AzureConfig struct {
	Endpoint string `toml:"endpoint" json:"endpoint,omitempty"`

	// Key comes from AZURE_VISION_KEY, never from the config file.
	Key string `toml:"-" json:"-"`

	// RequestsPerSecond throttles calls across all workers.
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

type azureEngine struct {
	client  computervision.BaseClient
	limiter *rate.Limiter
}

func newAzure(cfg Config) (Engine, error) {
	az := cfg.Azure
	if az.Endpoint == "" || az.Key == "" {
		return nil, fmt.Errorf("%w: azure endpoint and key are not configured", ErrRecognitionUnavailable)
	}

	client := computervision.New(strings.TrimRight(az.Endpoint, "/"))
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(az.Key)

	rps := az.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultAzureRate
	}
	return &azureEngine{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

func (e *azureEngine) Kind() Kind      { return KindAzure }
func (e *azureEngine) Version() string { return "computervision v3.0" }

// ExtractText sends img to the printed text endpoint with automatic
// language and orientation detection. The v3.0 printed text model has no
// Thai language, so this engine only suits invoices printed in Latin
// script; Thai invoices need the tesseract engine.
func (e *azureEngine) ExtractText(ctx context.Context, img image.Image) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return "", err
	}

	result, err := e.client.RecognizePrintedTextInStream(ctx, true, io.NopCloser(bytes.NewReader(data)), computervision.OcrLanguagesUnk)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return ocrResultText(result), nil
}

// ocrResultText joins the words of every line with spaces and the lines
// with newlines, in reading order.
func ocrResultText(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}
	var lines []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			if len(words) > 0 {
				lines = append(lines, strings.Join(words, " "))
			}
		}
	}
	return strings.Join(lines, "\n")
}
