package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
)

// ErrRecognitionUnavailable reports that no usable recognition engine exists.
var ErrRecognitionUnavailable = errors.New("recognition unavailable")

// Kind names a recognition engine.
type Kind string

const (
	KindTesseract    Kind = "tesseract"
	KindTesseractCLI Kind = "tesseract-cli"
	KindAzure        Kind = "azure"
)

// Kinds lists every engine in the order Resolve tries them.
var Kinds = []Kind{KindTesseract, KindTesseractCLI, KindAzure}

// ParseKind parses an engine name. "" and "auto" return "".
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" || name == "auto" {
		return "", nil
	}
	for _, k := range Kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown ocr engine %q", s)
}

// Engine recognizes the text of one page image.
type Engine interface {
	Kind() Kind

	// Version describes the engine build, e.g. "5.3.0".
	Version() string

	// ExtractText returns the text of img with lines separated by "\n".
	ExtractText(ctx context.Context, img image.Image) (string, error)
}

// WordRecognizer is implemented by engines that can report word boxes.
type WordRecognizer interface {
	Words(ctx context.Context, img image.Image) ([]Word, error)
}

const (
	DefaultLanguages   = "tha+eng"
	DefaultPageSegMode = 6
)

// Config selects and configures the recognition engine.
type Config struct {
	// Engine is a Kind name, or "" / "auto" for the first available engine.
	Engine string `toml:"engine" json:"engine"`

	// Languages is a Tesseract language string such as "tha+eng".
	Languages string `toml:"languages" json:"languages"`

	// PageSegMode is the Tesseract page segmentation mode.
	PageSegMode int `toml:"psm" json:"psm"`

	// TesseractPath overrides the tesseract binary used by tesseract-cli.
	TesseractPath string `toml:"tesseract_path" json:"tesseract_path,omitempty"`

	// TessdataPrefix overrides the language data directory.
	TessdataPrefix string `toml:"tessdata_prefix" json:"tessdata_prefix,omitempty"`

	Azure AzureConfig `toml:"azure" json:"azure"`
}

// DefaultConfig returns automatic engine selection for Thai and English.
func DefaultConfig() Config {
	return Config{
		Languages:   DefaultLanguages,
		PageSegMode: DefaultPageSegMode,
		Azure:       AzureConfig{RequestsPerSecond: DefaultAzureRate},
	}
}

func (c Config) languages() string {
	if c.Languages == "" {
		return DefaultLanguages
	}
	return c.Languages
}

func (c Config) pageSegMode() int {
	if c.PageSegMode <= 0 {
		return DefaultPageSegMode
	}
	return c.PageSegMode
}

// probes builds each engine kind. A probe fails with an error wrapping
// ErrRecognitionUnavailable when its engine cannot be used here.
var probes = map[Kind]func(Config) (Engine, error){
	KindTesseract:    newTesseract,
	KindTesseractCLI: newTesseractCLI,
	KindAzure:        newAzure,
}

// Resolve probes the engines once and returns the configured one, or the
// first available one when none is configured.
func Resolve(cfg Config, log *logrus.Entry) (Engine, error) {
	log = logging.OrNop(log)

	kind, err := ParseKind(cfg.Engine)
	if err != nil {
		return nil, err
	}

	if kind != "" {
		engine, err := probes[kind](cfg)
		if err != nil {
			return nil, fmt.Errorf("ocr engine %s: %w", kind, err)
		}
		log.WithFields(logrus.Fields{"engine": kind, "version": engine.Version()}).Info("OCR engine selected")
		return engine, nil
	}

	var reasons []string
	for _, k := range Kinds {
		engine, err := probes[k](cfg)
		if err != nil {
			log.WithField("engine", k).WithError(err).Debug("OCR engine unavailable")
			reasons = append(reasons, fmt.Sprintf("%s: %v", k, err))
			continue
		}
		log.WithFields(logrus.Fields{"engine": k, "version": engine.Version()}).Info("OCR engine selected")
		return engine, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRecognitionUnavailable, strings.Join(reasons, "; "))
}

// Info describes the availability of one engine.
type Info struct {
	Kind      Kind   `json:"kind"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Probe reports the availability of every engine under cfg.
func Probe(cfg Config) []Info {
	infos := make([]Info, 0, len(Kinds))
	for _, k := range Kinds {
		info := Info{Kind: k}
		engine, err := probes[k](cfg)
		if err != nil {
			info.Error = err.Error()
		} else {
			info.Available = true
			info.Version = engine.Version()
		}
		infos = append(infos, info)
	}
	return infos
}
