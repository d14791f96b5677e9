// =============================================================================
// Plano de Aplicação Converter - Web Form
// =============================================================================
//
// This module serves the upload form and converts a single uploaded PDF into
// the filled spreadsheet.
//
// ROUTES:
//   GET  /         - upload form
//   POST /convert  - multipart field "pdf"; responds with the workbook
//   GET  /healthz  - liveness probe
//   GET  /metrics  - Prometheus metrics
//
// STATUS CODES:
//   400 - missing, oversized or unreadable upload
//   422 - the document has no text or no line items
//   429 - too many conversions at once
//   500 - template or other configuration errors
//
// The template is read on every request, so it can be replaced while the
// server runs.
//
// =============================================================================

package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/config"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/converter"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/logging"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/pdftext"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/xlsxparser"
)

const (
	// FormField is the multipart field carrying the PDF.
	FormField = "pdf"

	// DownloadName is the file name offered to the browser.
	DownloadName = "planilha_preenchida.xlsx"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	requestIDHeader = "X-Request-ID"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Logger is the logging surface used by the handler.
type Logger = logging.Logger

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a Handler.
type Options struct {
	// TemplatePath is the spreadsheet template.
	TemplatePath string

	// Header tunes header-row discovery in the template.
	Header xlsxparser.HeaderOptions

	// MaxUploadBytes caps the request body.
	// Default: 20 MiB
	MaxUploadBytes int64

	// RateLimit is the sustained number of conversions per second.
	// Zero disables limiting.
	RateLimit rate.Limit

	// RateBurst is the number of conversions allowed at once.
	// Default: 4
	RateBurst int

	// Registerer receives the handler's metrics. Default: a private registry.
	Registerer prometheus.Registerer

	// Gatherer serves /metrics. Default: the private registry.
	Gatherer prometheus.Gatherer
}

// OptionsFromConfig builds handler options from the main configuration.
func OptionsFromConfig(cfg *config.MainConfig) Options {
	return Options{
		TemplatePath:   cfg.TemplatePath,
		Header:         cfg.HeaderOptions(),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		RateLimit:      rate.Limit(cfg.Server.RateLimit),
		RateBurst:      cfg.Server.RateBurst,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 20 << 20
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 4
	}
	if o.Registerer == nil || o.Gatherer == nil {
		reg := prometheus.NewRegistry()
		o.Registerer, o.Gatherer = reg, reg
	}
	return o
}

// =============================================================================
// HANDLER
// =============================================================================

// Handler serves the web form.
type Handler struct {
	pipeline *converter.Pipeline
	options  Options
	limiter  *rate.Limiter
	metrics  *metrics
	logger   Logger
	mux      *http.ServeMux
}

// NewHandler creates the web form handler.
func NewHandler(pipeline *converter.Pipeline, options Options, logger Logger) (*Handler, error) {
	options = options.withDefaults()
	if logger == nil {
		logger = logging.Nop()
	}

	m, err := newMetrics(options.Registerer)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		pipeline: pipeline,
		options:  options,
		metrics:  m,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	if options.RateLimit > 0 {
		h.limiter = rate.NewLimiter(options.RateLimit, options.RateBurst)
	}

	h.mux.HandleFunc("GET /{$}", h.handleIndex)
	h.mux.HandleFunc("POST /convert", h.handleConvert)
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.Handle("GET /metrics", promhttp.HandlerFor(options.Gatherer, promhttp.HandlerOpts{}))

	return h, nil
}

// ServeHTTP assigns a request id and dispatches to the routes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, id)
	h.mux.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request by ServeHTTP.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type pageData struct {
	Error       string
	RequestID   string
	MaxUploadMB int64
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, "")
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := pageData{
		Error:       message,
		RequestID:   RequestID(r.Context()),
		MaxUploadMB: h.options.MaxUploadBytes >> 20,
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		h.logger.Errorw("failed to render form", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// =============================================================================
// CONVERSION
// =============================================================================

func (h *Handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := RequestID(r.Context())
	log := func(msg string, kv ...interface{}) { h.logger.Infow(msg, append([]interface{}{"request_id", id}, kv...)...) }

	if h.limiter != nil && !h.limiter.Allow() {
		h.metrics.observe(outcomeRateLimited, start)
		h.renderForm(w, r, http.StatusTooManyRequests, "Muitas conversões em andamento. Tente novamente em instantes.")
		return
	}

	// =========================================================================
	// STEP 1: READ UPLOAD
	// =========================================================================

	data, filename, err := h.readUpload(w, r)
	if err != nil {
		log("rejected upload", "error", err)
		h.metrics.observe(outcomeBadRequest, start)
		h.renderForm(w, r, http.StatusBadRequest, "Envie um arquivo PDF válido.")
		return
	}
	log("converting upload", "file", filename, "bytes", len(data))

	// =========================================================================
	// STEP 2: LOAD TEMPLATE
	// =========================================================================

	tmpl, err := converter.LoadTemplate(h.options.TemplatePath, h.options.Header)
	if err != nil {
		h.logger.Errorw("failed to load template", "request_id", id, "error", err)
		h.metrics.observe(outcomeServerError, start)
		h.renderForm(w, r, http.StatusInternalServerError, "Modelo de planilha indisponível. Contate o administrador.")
		return
	}

	// =========================================================================
	// STEP 3: CONVERT
	// =========================================================================

	out, doc, err := h.pipeline.Convert(r.Context(), data, tmpl)
	if err != nil {
		status, message, outcome := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.Errorw("conversion failed", "request_id", id, "error", err)
		} else {
			log("conversion rejected", "error", err)
		}
		h.metrics.observe(outcome, start)
		h.renderForm(w, r, status, message)
		return
	}

	log("conversion complete", "items", len(doc.Items),
		"diagnostics", len(doc.Validation.Diagnostics), "total", doc.Total.Display())
	h.metrics.items.Observe(float64(len(doc.Items)))
	h.metrics.observe(outcomeOK, start)

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+DownloadName+`"`)
	_, _ = w.Write(out)
}

// readUpload returns the bytes of the uploaded PDF.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.options.MaxUploadBytes)

	file, fh, err := r.FormFile(FormField)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty upload")
	}
	return data, fh.Filename, nil
}

// classify maps a conversion error to a status, a user message and a metric
// outcome.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, pdftext.ErrInvalidPDF):
		return http.StatusBadRequest, "O arquivo enviado não é um PDF válido.", outcomeBadRequest
	case errors.Is(err, pdftext.ErrNoText):
		return http.StatusUnprocessableEntity,
			"O PDF não contém texto extraível. Documentos digitalizados não são suportados.", outcomeNoItems
	case errors.Is(err, converter.ErrNoItems):
		return http.StatusUnprocessableEntity,
			"Nenhum item foi encontrado no documento. Verifique se é um Plano de Aplicação.", outcomeNoItems
	default:
		return http.StatusInternalServerError, "Não foi possível gerar a planilha.", outcomeServerError
	}
}
