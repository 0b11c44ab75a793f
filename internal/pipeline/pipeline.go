package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/thai-invoice-ocr/internal/conditioning"
	"github.com/ironsheep/thai-invoice-ocr/internal/detection"
	"github.com/ironsheep/thai-invoice-ocr/internal/extract"
	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
	"github.com/ironsheep/thai-invoice-ocr/internal/ocr"
	"github.com/ironsheep/thai-invoice-ocr/internal/raster"
	"github.com/ironsheep/thai-invoice-ocr/internal/reconcile"
	"github.com/ironsheep/thai-invoice-ocr/internal/refine"
)

// ErrNoText is returned when no page of a document produced text.
var ErrNoText = errors.New("no text recognized")

// Options configures a Pipeline.
type Options struct {
	Conditioning conditioning.Options
	Numbering    invoice.NumberingPolicy

	// Tolerance is the allowed gap between subtotal+VAT and total. Zero
	// means invoice.DefaultTolerance.
	Tolerance invoice.Amount

	// Workers bounds concurrent pages. Zero means runtime.NumCPU.
	Workers int

	// DPI is the PDF rendering resolution. Zero means raster.DefaultDPI.
	DPI int

	// Now is the processing clock. Defaults to time.Now.
	Now func() time.Time

	Log *logrus.Entry
}

// Pipeline processes documents. It is safe for concurrent use.
type Pipeline struct {
	engine      ocr.Engine
	rasterizer  raster.Rasterizer
	refiner     refine.Refiner
	conditioner *conditioning.Conditioner
	numbering   invoice.NumberingPolicy
	tolerance   invoice.Amount
	workers     int
	dpi         int
	now         func() time.Time
	log         *logrus.Entry
}

// New returns a Pipeline. A nil refiner means refine.Noop.
func New(engine ocr.Engine, rasterizer raster.Rasterizer, refiner refine.Refiner, opts Options) *Pipeline {
	if refiner == nil {
		refiner = refine.Noop{}
	}
	p := &Pipeline{
		engine:     engine,
		rasterizer: rasterizer,
		refiner:    refiner,
		numbering:  opts.Numbering,
		tolerance:  opts.Tolerance,
		workers:    opts.Workers,
		dpi:        opts.DPI,
		now:        opts.Now,
		log:        logging.OrNop(opts.Log),
	}
	if p.tolerance <= 0 {
		p.tolerance = invoice.DefaultTolerance
	}
	if p.workers <= 0 {
		p.workers = runtime.NumCPU()
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.conditioner = conditioning.New(opts.Conditioning, p.log)
	return p
}

// Engine returns the recognition engine.
func (p *Pipeline) Engine() ocr.Engine {
	return p.engine
}

// PageResult is the outcome of one page.
type PageResult struct {
	Index       int                           `json:"index"`
	Text        string                        `json:"text"`
	Enhanced    bool                          `json:"enhanced"`
	Orientation detection.OrientationEstimate `json:"orientation"`
	Err         error                         `json:"-"`
}

// OK reports whether the page produced text without error.
func (r PageResult) OK() bool {
	return r.Err == nil
}

// BatchResult holds page results in page order.
type BatchResult struct {
	Pages     []PageResult `json:"pages"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// Text joins the recognized text of every page. Documents with more than
// one page get a "--- Page n ---" header per page; pages without text are
// left out.
func (b *BatchResult) Text() string {
	if len(b.Pages) == 1 {
		return b.Pages[0].Text
	}
	var parts []string
	for _, page := range b.Pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s\n", page.Index+1, page.Text))
	}
	return strings.Join(parts, "\n")
}

// Enhanced reports whether every successful page was enhanced.
func (b *BatchResult) Enhanced() bool {
	seen := false
	for _, page := range b.Pages {
		if !page.OK() {
			continue
		}
		if !page.Enhanced {
			return false
		}
		seen = true
	}
	return seen
}

// Page conditions one page and recognizes its text.
func (p *Pipeline) Page(ctx context.Context, page imaging.PageImage) PageResult {
	return p.page(ctx, page, p.log)
}

func (p *Pipeline) page(ctx context.Context, page imaging.PageImage, log *logrus.Entry) PageResult {
	res := PageResult{Index: page.Meta.PageIndex}
	if p.engine == nil {
		res.Err = fmt.Errorf("%w: no engine configured", ocr.ErrRecognitionUnavailable)
		return res
	}

	cond, err := p.conditioner.Condition(ctx, page)
	if err != nil {
		res.Err = err
		return res
	}
	res.Enhanced = cond.EnhanceApplied
	res.Orientation = cond.Orientation

	text, err := p.engine.ExtractText(ctx, cond.Page.Image)
	if err != nil {
		res.Err = fmt.Errorf("page %d: %w", page.Meta.PageIndex+1, err)
		return res
	}
	res.Text = strings.TrimSpace(text)

	log.WithFields(logrus.Fields{
		"page":  page.Meta.PageIndex + 1,
		"chars": len([]rune(res.Text)),
	}).Debug("Page recognized")
	return res
}

// Batch processes pages concurrently. The context is checked before each
// page starts; a page already under way runs to completion. Page failures
// are recorded in the result. Batch returns an error only when the
// context ends or no engine can recognize text.
func (p *Pipeline) Batch(ctx context.Context, pages []imaging.PageImage) (*BatchResult, error) {
	return p.batch(ctx, pages, p.log)
}

func (p *Pipeline) batch(ctx context.Context, pages []imaging.PageImage, log *logrus.Entry) (*BatchResult, error) {
	results := make([]PageResult, len(pages))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := range pages {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(pages); j++ {
				results[j] = PageResult{Index: pages[j].Meta.PageIndex, Err: err}
			}
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = PageResult{Index: pages[i].Meta.PageIndex, Err: err}
				return nil
			}
			results[i] = p.page(ctx, pages[i], log)
			if errors.Is(results[i].Err, ocr.ErrRecognitionUnavailable) {
				return results[i].Err
			}
			return nil
		})
	}
	fatal := g.Wait()

	batch := &BatchResult{Pages: results}
	for _, r := range results {
		if r.OK() {
			batch.Succeeded++
			continue
		}
		batch.Failed++
		log.WithError(r.Err).WithField("page", r.Index+1).Warn("Page failed")
	}
	log.WithFields(logrus.Fields{
		"pages":     len(pages),
		"succeeded": batch.Succeeded,
		"failed":    batch.Failed,
	}).Info("Batch complete")

	if fatal != nil {
		return batch, fatal
	}
	if err := ctx.Err(); err != nil {
		return batch, err
	}
	return batch, nil
}

// Result is a processed document.
type Result struct {
	Document *invoice.Document `json:"document"`

	// Batch is nil for documents parsed from text.
	Batch *BatchResult `json:"batch,omitempty"`
}

// ProcessFile rasterizes path and processes its pages.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Result, error) {
	log := p.runLog().WithField("file", filepath.Base(path))

	pages, err := p.rasterizer.Pages(ctx, path, p.dpi)
	if err != nil {
		return nil, err
	}
	log.WithField("pages", len(pages)).Info("Document loaded")
	return p.processPages(ctx, filepath.Base(path), pages, log)
}

// ProcessPages processes already loaded pages as one document.
func (p *Pipeline) ProcessPages(ctx context.Context, source string, pages []imaging.PageImage) (*Result, error) {
	return p.processPages(ctx, source, pages, p.runLog().WithField("file", source))
}

func (p *Pipeline) processPages(ctx context.Context, source string, pages []imaging.PageImage, log *logrus.Entry) (*Result, error) {
	batch, err := p.batch(ctx, pages, log)
	if err != nil {
		return nil, err
	}
	if batch.Succeeded == 0 {
		return nil, fmt.Errorf("%w in %s: %d of %d pages failed", ErrNoText, source, batch.Failed, len(pages))
	}

	doc := p.parse(ctx, source, batch.Text(), log)
	doc.PageCount = len(pages)
	doc.Enhanced = batch.Enhanced()
	if batch.Failed > 0 {
		doc.Validation.Warnings = append(doc.Validation.Warnings,
			fmt.Sprintf("%d of %d pages could not be read", batch.Failed, len(pages)))
	}
	return &Result{Document: doc, Batch: batch}, nil
}

// ParseText builds a document from already recognized text.
func (p *Pipeline) ParseText(ctx context.Context, source, text string) *invoice.Document {
	return p.parse(ctx, source, text, p.runLog().WithField("file", source))
}

// parse runs extraction, reconciliation, refinement and numbering. A
// refiner error keeps the reconciled record.
func (p *Pipeline) parse(ctx context.Context, source, text string, log *logrus.Entry) *invoice.Document {
	now := p.now()

	ext := extract.New(extract.Options{Now: func() time.Time { return now }, Log: log}).Extract(text)

	rec := reconcile.New(reconcile.Options{
		Tolerance: p.tolerance,
		Now:       func() time.Time { return now },
		Log:       log,
	}).Reconcile(ext)

	refined, err := p.refiner.Refine(ctx, text, rec.Record)
	if err != nil {
		log.WithError(err).Warn("Refinement failed, keeping reconciled record")
	} else {
		rec.Synthetic = stillSynthetic(rec.Synthetic, rec.Record, refined)
		rec.Record = refined
	}

	day := now
	if issued, err := time.Parse(invoice.DateLayout, rec.Record.IssueDate); err == nil {
		day = issued
	}
	rec.Record.InvoiceNumber = p.numbering.Apply(rec.Record.InvoiceNumber, day)

	doc := invoice.NewDocument(source, rec.Record, now)
	doc.Engine = p.engineName()
	doc.Profile = p.conditioner.Profile().String()
	doc.RawText = text
	doc.Confidence = reconcile.Confidence(rec.Record, rec.Synthetic...)
	doc.Refresh(invoice.Validator{Tolerance: p.tolerance, Synthetic: rec.Synthetic}, rec.Warnings)

	log.WithFields(logrus.Fields{
		"document":   doc.ID,
		"invoice":    doc.Record.InvoiceNumber,
		"confidence": fmt.Sprintf("%.2f", doc.Confidence),
		"valid":      doc.Validation.OK(),
	}).Info("Document processed")
	return doc
}

// stillSynthetic drops synthetic fields the refiner replaced with a
// different value.
func stillSynthetic(synthetic []invoice.Field, before, after invoice.Record) []invoice.Field {
	var out []invoice.Field
	for _, f := range synthetic {
		if after.Get(f) == before.Get(f) {
			out = append(out, f)
		}
	}
	return out
}

func (p *Pipeline) engineName() string {
	if p.engine == nil {
		return ""
	}
	return string(p.engine.Kind())
}

func (p *Pipeline) runLog() *logrus.Entry {
	return p.log.WithField("run_id", uuid.NewString())
}
