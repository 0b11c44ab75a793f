// Package raster turns source documents into page images.
//
// Image files are decoded directly with EXIF auto-orientation. PDFs are
// rendered with pdftoppm (poppler-utils) at the requested DPI; when
// pdftoppm is missing or fails, the images embedded in each page are
// extracted with pdfcpu instead, which covers the common case of scanner
// PDFs that wrap one JPEG per page.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
)

// DefaultDPI is the PDF rendering resolution.
const DefaultDPI = 200

// ErrUnsupported reports a file that is neither a PDF nor a known image.
var ErrUnsupported = errors.New("unsupported document type")

// Rasterizer produces the pages of a document in order.
type Rasterizer interface {
	Pages(ctx context.Context, path string, dpi int) ([]imaging.PageImage, error)
}

// Options configure a Files rasterizer.
type Options struct {
	// PdftoppmPath is the pdftoppm binary. Empty means "pdftoppm" on PATH.
	PdftoppmPath string `toml:"pdftoppm_path" json:"pdftoppm_path,omitempty"`

	Log *logrus.Entry `toml:"-" json:"-"`
}

// Files rasterizes documents from the local file system.
type Files struct {
	pdftoppm string
	log      *logrus.Entry
}

// New creates a Files rasterizer.
func New(opts Options) *Files {
	bin := opts.PdftoppmPath
	if bin == "" {
		bin = "pdftoppm"
	}
	return &Files{pdftoppm: bin, log: logging.OrNop(opts.Log)}
}

// IsPDF reports whether path names a PDF.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// IsSupported reports whether path can be rasterized.
func IsSupported(path string) bool {
	return IsPDF(path) || imaging.IsImageFile(path)
}

// Pages returns the pages of path. A dpi of zero means DefaultDPI.
//
// Every page carries the file's base name as DocumentID; callers that
// assign their own document ids overwrite it.
func (f *Files) Pages(ctx context.Context, path string, dpi int) ([]imaging.PageImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	docID := filepath.Base(path)

	switch {
	case imaging.IsImageFile(path):
		page, err := imaging.LoadPage(path, imaging.Meta{DocumentID: docID})
		if err != nil {
			return nil, err
		}
		return []imaging.PageImage{page}, nil

	case IsPDF(path):
		pages, err := f.render(ctx, path, dpi)
		if err == nil {
			return pages, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		f.log.WithError(err).WithField("file", docID).Warn("pdftoppm unavailable, extracting embedded images")

		pages, embErr := embeddedPages(path)
		if embErr != nil {
			return nil, fmt.Errorf("%w: %s: render: %v; embedded images: %v", imaging.ErrLoadFailure, docID, err, embErr)
		}
		return pages, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

// render runs pdftoppm into a scratch directory and loads the PNGs it
// writes. pdftoppm pads page numbers to the width of the page count
// (page-1.png or page-01.png), so files are ordered by their number.
func (f *Files) render(ctx context.Context, path string, dpi int) ([]imaging.PageImage, error) {
	bin, err := exec.LookPath(f.pdftoppm)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "invoice-pages-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-png", "-r", strconv.Itoa(dpi), path, filepath.Join(dir, "page"))
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	files, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("pdftoppm produced no pages")
	}
	sortByPageNumber(files)

	docID := filepath.Base(path)
	pages := make([]imaging.PageImage, 0, len(files))
	for i, file := range files {
		page, err := imaging.LoadPage(file, imaging.Meta{DocumentID: docID, PageIndex: i, DPI: dpi})
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	f.log.WithFields(logrus.Fields{"file": docID, "pages": len(pages), "dpi": dpi}).Debug("PDF rendered")
	return pages, nil
}

// pageNumber extracts N from ".../page-N.png"; unparseable names sort last.
func pageNumber(file string) int {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	i := strings.LastIndexByte(name, '-')
	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

func sortByPageNumber(files []string) {
	sort.SliceStable(files, func(i, j int) bool {
		return pageNumber(files[i]) < pageNumber(files[j])
	})
}

// embeddedPages extracts the largest image embedded in every page.
// Pages without images are skipped.
func embeddedPages(path string) ([]imaging.PageImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	docID := filepath.Base(path)
	var pages []imaging.PageImage
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		images, err := pdfcpu.ExtractPageImages(ctx, pageNr, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNr, err)
		}

		var best *imaging.PageImage
		bestArea := 0
		for _, img := range images {
			decoded, err := imaging.Decode(img)
			if err != nil {
				continue
			}
			b := decoded.Bounds()
			if area := b.Dx() * b.Dy(); area > bestArea {
				page := imaging.NewPage(decoded, imaging.Meta{DocumentID: docID, PageIndex: len(pages)})
				best, bestArea = &page, area
			}
		}
		if best != nil {
			pages = append(pages, *best)
		}
	}
	if len(pages) == 0 {
		return nil, errors.New("no decodable page images")
	}
	return pages, nil
}
