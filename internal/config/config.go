// Package config loads run settings from a TOML file, a .env file and the
// environment, in that order of increasing precedence.
//
// Secrets (the Azure key, the OpenAI key and the database URL) are never
// read from or written to the TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/ironsheep/thai-invoice-ocr/internal/conditioning"
	"github.com/ironsheep/thai-invoice-ocr/internal/detection"
	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
	"github.com/ironsheep/thai-invoice-ocr/internal/ocr"
	"github.com/ironsheep/thai-invoice-ocr/internal/raster"
	"github.com/ironsheep/thai-invoice-ocr/internal/refine"
	"github.com/ironsheep/thai-invoice-ocr/internal/store"
)

// DefaultPath is read when no config file is named and it exists.
const DefaultPath = "invoice-ocr.toml"

// Config is the full run configuration.
type Config struct {
	Conditioning conditioning.Options       `toml:"conditioning"`
	Regions      detection.TextRegionConfig `toml:"regions"`
	OCR          ocr.Config                 `toml:"ocr"`
	Raster       Raster                     `toml:"raster"`
	Numbering    invoice.NumberingPolicy    `toml:"numbering"`

	// Tolerance is the allowed gap in baht between subtotal+VAT and total.
	Tolerance string `toml:"tolerance"`

	// Workers bounds concurrent page pipelines. Zero means one per CPU.
	Workers int `toml:"workers"`

	Refiner refine.Config  `toml:"refiner"`
	Store   store.Config   `toml:"store"`
	Log     logging.Config `toml:"log"`
	Server  Server         `toml:"server"`
	Watch   Watch          `toml:"watch"`
}

type Raster struct {
	DPI          int    `toml:"dpi"`
	PdftoppmPath string `toml:"pdftoppm_path"`
}

// Server holds the HTTP API settings.
type Server struct {
	Addr string `toml:"addr"`

	// MaxUploadMB bounds POST /scan-invoice bodies.
	MaxUploadMB int `toml:"max_upload_mb"`
}

// Watch holds the inbox watcher settings.
type Watch struct {
	Inbox string `toml:"inbox"`

	// Processed receives inputs after a successful scan, Failed the rest.
	// Empty leaves inputs in place.
	Processed string `toml:"processed"`
	Failed    string `toml:"failed"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Conditioning: conditioning.DefaultOptions(),
		Regions:      detection.DefaultTextRegionConfig(),
		OCR:          ocr.DefaultConfig(),
		Raster:       Raster{DPI: raster.DefaultDPI},
		Numbering:    invoice.DefaultNumberingPolicy(),
		Tolerance:    invoice.DefaultTolerance.String(),
		Refiner:      refine.Config{Provider: refine.ProviderRules, Model: refine.DefaultModel},
		Store:        store.DefaultConfig(),
		Log:          logging.Config{Level: "info", Format: "text"},
		Server:       Server{Addr: ":8080", MaxUploadMB: 32},
		Watch:        Watch{Inbox: "inbox", Processed: "inbox/processed", Failed: "inbox/failed"},
	}
}

// Load builds a Config from the defaults, the TOML file at path, a .env
// file in the working directory and the environment. An empty path reads
// DefaultPath when it exists.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides settings from environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	if v, ok := lookup("INVOICE_OCR_PROFILE"); ok && v != "" {
		p, err := conditioning.ParseProfile(v)
		if err != nil {
			return fmt.Errorf("INVOICE_OCR_PROFILE: %w", err)
		}
		c.Conditioning.Profile = p
	}
	str("INVOICE_OCR_ENGINE", &c.OCR.Engine)
	str("INVOICE_OCR_TOLERANCE", &c.Tolerance)
	str("INVOICE_OCR_LOG_LEVEL", &c.Log.Level)
	str("INVOICE_OCR_REFINER", &c.Refiner.Provider)
	str("INVOICE_OCR_STORE", &c.Store.Driver)
	str("INVOICE_OCR_STORE_PATH", &c.Store.Path)
	str("INVOICE_OCR_ADDR", &c.Server.Addr)
	str("TESSDATA_PREFIX", &c.OCR.TessdataPrefix)
	str("AZURE_VISION_ENDPOINT", &c.OCR.Azure.Endpoint)
	str("AZURE_VISION_KEY", &c.OCR.Azure.Key)
	str("OPENAI_API_KEY", &c.Refiner.APIKey)
	str("OPENAI_BASE_URL", &c.Refiner.BaseURL)
	str("DATABASE_URL", &c.Store.DSN)

	if err := num("INVOICE_OCR_DPI", &c.Raster.DPI); err != nil {
		return err
	}
	return num("INVOICE_OCR_WORKERS", &c.Workers)
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error

	if _, err := ocr.ParseKind(c.OCR.Engine); err != nil {
		errs = append(errs, err)
	}
	if c.Raster.DPI < 0 || c.Raster.DPI > 1200 {
		errs = append(errs, fmt.Errorf("raster dpi %d out of range", c.Raster.DPI))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative"))
	}
	if c.Numbering.Digits < 0 || c.Numbering.Digits > 12 {
		errs = append(errs, fmt.Errorf("numbering digits %d out of range", c.Numbering.Digits))
	}
	if _, err := c.ToleranceAmount(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Store.Driver) {
	case "", store.DriverFiles, store.DriverSQLite:
	case store.DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("postgres store requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	switch strings.ToLower(c.Refiner.Provider) {
	case "", refine.ProviderNone, refine.ProviderRules, refine.ProviderOpenAI, refine.ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("unknown refiner provider %q", c.Refiner.Provider))
	}
	return errors.Join(errs...)
}

// ToleranceAmount parses Tolerance. Empty means invoice.DefaultTolerance.
func (c Config) ToleranceAmount() (invoice.Amount, error) {
	if strings.TrimSpace(c.Tolerance) == "" {
		return invoice.DefaultTolerance, nil
	}
	a, err := invoice.ParseAmount(c.Tolerance)
	if err != nil {
		return 0, fmt.Errorf("tolerance: %w", err)
	}
	if a < 0 {
		return 0, fmt.Errorf("tolerance %s must not be negative", c.Tolerance)
	}
	return a, nil
}

// Marshal renders c as TOML. Secrets are omitted.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}
