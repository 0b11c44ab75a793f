package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/thai-invoice-ocr/internal/conditioning"
	"github.com/ironsheep/thai-invoice-ocr/internal/config"
	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
	"github.com/ironsheep/thai-invoice-ocr/internal/ocr"
	"github.com/ironsheep/thai-invoice-ocr/internal/pipeline"
	"github.com/ironsheep/thai-invoice-ocr/internal/raster"
	"github.com/ironsheep/thai-invoice-ocr/internal/refine"
	"github.com/ironsheep/thai-invoice-ocr/internal/store"
)

// needs selects the parts of the stack a command builds.
type needs struct {
	engine bool
	store  bool

	// adjust applies command flags to the loaded configuration.
	adjust func(*config.Config)
}

// app is the processing stack shared by the commands.
type app struct {
	cfg      config.Config
	log      *logrus.Entry
	pipeline *pipeline.Pipeline
	store    store.Store
}

// loadConfig reads the configuration and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)
	str("engine", &cfg.OCR.Engine)
	str("store", &cfg.Store.Driver)
	str("store-path", &cfg.Store.Path)
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("profile") {
		name, _ := flags.GetString("profile")
		p, err := conditioning.ParseProfile(name)
		if err != nil {
			return cfg, err
		}
		cfg.Conditioning.Profile = p
	}
	return cfg, cfg.Validate()
}

// newApp builds the stack for cmd. Logs go to stderr so stdout carries only
// command output.
func newApp(cmd *cobra.Command, n needs) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if n.adjust != nil {
		n.adjust(&cfg)
	}

	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	log := logrus.NewEntry(logger)

	tolerance, err := cfg.ToleranceAmount()
	if err != nil {
		return nil, err
	}

	var engine ocr.Engine
	if n.engine {
		if engine, err = ocr.Resolve(cfg.OCR, log); err != nil {
			return nil, err
		}
	}

	refiner, err := refine.New(cfg.Refiner, log)
	if err != nil {
		return nil, err
	}

	rasterizer := raster.New(raster.Options{PdftoppmPath: cfg.Raster.PdftoppmPath, Log: log})

	a := &app{
		cfg: cfg,
		log: log,
		pipeline: pipeline.New(engine, rasterizer, refiner, pipeline.Options{
			Conditioning: cfg.Conditioning,
			Numbering:    cfg.Numbering,
			Tolerance:    tolerance,
			Workers:      cfg.Workers,
			DPI:          cfg.Raster.DPI,
			Log:          log,
		}),
	}

	if n.store {
		if a.store, err = store.Open(cmd.Context(), cfg.Store, log); err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close store")
	}
}
