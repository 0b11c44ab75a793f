// Package api exposes invoice scanning and the document store over HTTP.
//
//	POST /scan-invoice   multipart "file" (PDF or image) or form "text"
//	GET  /invoices       ?limit=&offset=
//	GET  /invoices/:id
//	GET  /healthz
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
	"github.com/ironsheep/thai-invoice-ocr/internal/ocr"
	"github.com/ironsheep/thai-invoice-ocr/internal/pipeline"
	"github.com/ironsheep/thai-invoice-ocr/internal/raster"
	"github.com/ironsheep/thai-invoice-ocr/internal/store"
)

// DefaultMaxUpload bounds request bodies when Options.MaxUploadBytes is zero.
const DefaultMaxUpload = 32 << 20

// Options configures the HTTP handlers.
type Options struct {
	Pipeline       *pipeline.Pipeline
	Store          store.Store
	MaxUploadBytes int64
	Log            *logrus.Entry
}

type handler struct {
	pipeline  *pipeline.Pipeline
	store     store.Store
	maxUpload int64
	log       *logrus.Entry
}

// NewRouter builds the gin engine serving the API.
func NewRouter(opts Options) *gin.Engine {
	h := &handler{
		pipeline:  opts.Pipeline,
		store:     opts.Store,
		maxUpload: opts.MaxUploadBytes,
		log:       logging.OrNop(opts.Log),
	}
	if h.maxUpload <= 0 {
		h.maxUpload = DefaultMaxUpload
	}

	r := gin.New()
	r.Use(gin.Recovery(), h.requestLog())
	r.MaxMultipartMemory = h.maxUpload

	r.POST("/scan-invoice", h.scanInvoice)
	r.GET("/invoices", h.listInvoices)
	r.GET("/invoices/:id", h.getInvoice)
	r.GET("/healthz", h.health)
	return r
}

// Serve runs the API on addr until ctx ends, then shuts down gracefully.
func Serve(ctx context.Context, addr string, opts Options) error {
	log := logging.OrNop(opts.Log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("HTTP API listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info("Shutting down HTTP API")
		return srv.Shutdown(shutdownCtx)
	}
}

func (h *handler) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("HTTP request")
	}
}

func (h *handler) fail(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// statusFor maps processing errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, raster.ErrUnsupported), errors.Is(err, imaging.ErrLoadFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrNoText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ocr.ErrRecognitionUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func (h *handler) scanInvoice(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	ctx := c.Request.Context()

	if text := c.PostForm("text"); text != "" {
		doc := h.pipeline.ParseText(ctx, c.DefaultPostForm("source", "text"), text)
		h.saveAndRespond(c, doc)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Errorf("expected multipart field \"file\" or form field \"text\": %w", err))
		return
	}
	name := filepath.Base(file.Filename)
	if !raster.IsSupported(name) {
		h.fail(c, http.StatusUnsupportedMediaType, fmt.Errorf("%w: %s", raster.ErrUnsupported, name))
		return
	}

	dir, err := os.MkdirTemp("", "invoice-upload-*")
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}

	res, err := h.pipeline.ProcessFile(ctx, path)
	if err != nil {
		h.log.WithError(err).WithField("file", name).Warn("Scan failed")
		h.fail(c, statusFor(err), err)
		return
	}
	h.saveAndRespond(c, res.Document)
}

// saveAndRespond stores doc when a store is configured and writes it back
// with 201, or 200 when nothing was stored.
func (h *handler) saveAndRespond(c *gin.Context, doc *invoice.Document) {
	if h.store == nil {
		c.JSON(http.StatusOK, doc)
		return
	}
	if err := h.store.Save(c.Request.Context(), doc); err != nil {
		h.log.WithError(err).WithField("document", doc.ID).Error("Failed to save document")
		h.fail(c, statusFor(err), err)
		return
	}
	c.Header("Location", "/invoices/"+doc.ID)
	c.JSON(http.StatusCreated, doc)
}

func (h *handler) listInvoices(c *gin.Context) {
	if h.store == nil {
		h.fail(c, http.StatusNotImplemented, errors.New("no document store configured"))
		return
	}
	var opts store.ListOptions
	var err error
	if v := c.Query("limit"); v != "" {
		if opts.Limit, err = strconv.Atoi(v); err != nil || opts.Limit < 0 {
			h.fail(c, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
	}
	if v := c.Query("offset"); v != "" {
		if opts.Offset, err = strconv.Atoi(v); err != nil || opts.Offset < 0 {
			h.fail(c, http.StatusBadRequest, fmt.Errorf("invalid offset %q", v))
			return
		}
	}

	list, err := h.store.List(c.Request.Context(), opts)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) getInvoice(c *gin.Context) {
	if h.store == nil {
		h.fail(c, http.StatusNotImplemented, errors.New("no document store configured"))
		return
	}
	doc, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *handler) health(c *gin.Context) {
	engine := ""
	if e := h.pipeline.Engine(); e != nil {
		engine = strings.TrimSpace(string(e.Kind()) + " " + e.Version())
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "engine": engine, "store": h.store != nil})
}
