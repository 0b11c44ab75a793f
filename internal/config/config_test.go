package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/thai-invoice-ocr/internal/conditioning"
	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, conditioning.Gentle, cfg.Conditioning.Profile)
	assert.True(t, cfg.Conditioning.Deskew)
	assert.Equal(t, 200, cfg.Raster.DPI)
	assert.Equal(t, "tha+eng", cfg.OCR.Languages)
	assert.Equal(t, 6, cfg.OCR.PageSegMode)
	assert.Equal(t, "0.10", cfg.Tolerance)
	assert.Equal(t, "files", cfg.Store.Driver)

	tol, err := cfg.ToleranceAmount()
	require.NoError(t, err)
	assert.Equal(t, invoice.DefaultTolerance, tol)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
workers = 3
tolerance = "1.00"

[conditioning]
profile = "aggressive"
manual_angle = -2.5

[ocr]
engine = "tesseract-cli"

[numbering]
scheme = "yy"
digits = 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, conditioning.Aggressive, cfg.Conditioning.Profile)
	require.NotNil(t, cfg.Conditioning.ManualAngle)
	assert.Equal(t, -2.5, *cfg.Conditioning.ManualAngle)
	assert.Equal(t, "tesseract-cli", cfg.OCR.Engine)
	assert.Equal(t, invoice.Scheme("yy"), cfg.Numbering.Scheme)
	assert.Equal(t, 5, cfg.Numbering.Digits)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, "tha+eng", cfg.OCR.Languages)
	assert.True(t, cfg.Conditioning.Deskew)

	tol, err := cfg.ToleranceAmount()
	require.NoError(t, err)
	assert.Equal(t, invoice.Amount(100), tol)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_DefaultPathOptional(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Raster, cfg.Raster)
}

func TestLoad_DotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AZURE_VISION_KEY", "")
	t.Setenv("INVOICE_OCR_WORKERS", "")
	os.Unsetenv("AZURE_VISION_KEY")
	os.Unsetenv("INVOICE_OCR_WORKERS")
	require.NoError(t, os.WriteFile(".env", []byte("AZURE_VISION_KEY=secret\nINVOICE_OCR_WORKERS=2\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("AZURE_VISION_KEY")
		os.Unsetenv("INVOICE_OCR_WORKERS")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.OCR.Azure.Key)
	assert.Equal(t, 2, cfg.Workers)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"INVOICE_OCR_PROFILE":   "aggressive",
		"INVOICE_OCR_ENGINE":    "azure",
		"INVOICE_OCR_DPI":       "300",
		"INVOICE_OCR_STORE":     "postgres",
		"DATABASE_URL":          "postgres://localhost/invoices",
		"OPENAI_API_KEY":        "sk-test",
		"AZURE_VISION_ENDPOINT": "https://example.cognitiveservices.azure.com",
		"INVOICE_OCR_LOG_LEVEL": "",
	}))
	require.NoError(t, err)

	assert.Equal(t, conditioning.Aggressive, cfg.Conditioning.Profile)
	assert.Equal(t, "azure", cfg.OCR.Engine)
	assert.Equal(t, 300, cfg.Raster.DPI)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/invoices", cfg.Store.DSN)
	assert.Equal(t, "sk-test", cfg.Refiner.APIKey)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv_BadValues(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.applyEnv(envMap(map[string]string{"INVOICE_OCR_DPI": "high"})))

	cfg = Default()
	assert.Error(t, cfg.applyEnv(envMap(map[string]string{"INVOICE_OCR_PROFILE": "extreme"})))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"engine", func(c *Config) { c.OCR.Engine = "paddle" }},
		{"dpi", func(c *Config) { c.Raster.DPI = 5000 }},
		{"workers", func(c *Config) { c.Workers = -1 }},
		{"digits", func(c *Config) { c.Numbering.Digits = -1 }},
		{"tolerance", func(c *Config) { c.Tolerance = "ten baht" }},
		{"negative tolerance", func(c *Config) { c.Tolerance = "-1" }},
		{"store", func(c *Config) { c.Store.Driver = "mongo" }},
		{"postgres dsn", func(c *Config) { c.Store.Driver = "postgres" }},
		{"refiner", func(c *Config) { c.Refiner.Provider = "gemini" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMarshal_OmitsSecrets(t *testing.T) {
	cfg := Default()
	cfg.OCR.Azure.Key = "azure-secret"
	cfg.Refiner.APIKey = "sk-secret"
	cfg.Store.DSN = "postgres://user:pw@db/invoices"

	data, err := cfg.Marshal()
	require.NoError(t, err)
	text := string(data)
	assert.NotContains(t, text, "azure-secret")
	assert.NotContains(t, text, "sk-secret")
	assert.NotContains(t, text, "pw@db")
	assert.Regexp(t, `profile = ['"]gentle['"]`, text)

	var back Config
	require.NoError(t, toml.Unmarshal(data, &back))
	assert.Equal(t, cfg.Conditioning.Profile, back.Conditioning.Profile)
	assert.Equal(t, cfg.Raster, back.Raster)
	assert.Equal(t, cfg.Numbering, back.Numbering)
}
