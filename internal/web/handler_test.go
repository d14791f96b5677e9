package web

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/config"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/converter"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/xlsxparser"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	lines []string
}

func (f fakeSource) Lines(context.Context, io.ReaderAt, int64) ([]string, error) {
	return f.lines, nil
}

var plan = []string{
	"META ESPECÍFICA 1",
	"Item 1",
	"Descrição: Compra de viaturas",
	"Valor Total: R$ 1.234,56",
}

func writeTemplate(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	require.NoError(t, f.SetCellValue(sheet, "A1", "Número do Item"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "Descrição"))
	require.NoError(t, f.SetCellValue(sheet, "C1", "Valor Total"))

	path := filepath.Join(t.TempDir(), "modelo.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func newHandler(t *testing.T, lines []string, opts Options) *Handler {
	t.Helper()

	pipelineOpts := converter.DefaultPipelineOptions()
	pipelineOpts.ValidatePDF = false
	p := converter.NewPipeline(fakeSource{lines: lines}, pipelineOpts, nil)

	if opts.TemplatePath == "" {
		opts.TemplatePath = writeTemplate(t)
	}
	opts.Header = xlsxparser.DefaultHeaderOptions()

	h, err := NewHandler(p, opts, nil)
	require.NoError(t, err)
	return h
}

func uploadRequest(t *testing.T, field string, body []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "plano.pdf")
	require.NoError(t, err)
	_, err = fw.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/convert", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	h := newHandler(t, plan, Options{})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `name="pdf"`)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestUnknownPath(t *testing.T) {
	h := newHandler(t, plan, Options{})
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/outra", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := newHandler(t, plan, Options{})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newHandler(t, plan, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")

	rec := serve(h, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestConvertSuccess(t *testing.T) {
	h := newHandler(t, plan, Options{})

	rec := serve(h, uploadRequest(t, FormField, []byte("%PDF-1.4")))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="planilha_preenchida.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	got, err := f.GetCellValue(sheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Compra de viaturas", got)
}

func TestConvertMissingFile(t *testing.T) {
	h := newHandler(t, plan, Options{})

	rec := serve(h, uploadRequest(t, "outro_campo", []byte("%PDF")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Envie um arquivo PDF válido.")
}

func TestConvertEmptyFile(t *testing.T) {
	h := newHandler(t, plan, Options{})
	rec := serve(h, uploadRequest(t, FormField, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConvertTooLarge(t *testing.T) {
	h := newHandler(t, plan, Options{MaxUploadBytes: 1024})

	rec := serve(h, uploadRequest(t, FormField, bytes.Repeat([]byte("x"), 4096)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConvertNoItems(t *testing.T) {
	h := newHandler(t, []string{"Documento sem itens"}, Options{})

	rec := serve(h, uploadRequest(t, FormField, []byte("%PDF")))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Nenhum item foi encontrado")
}

func TestConvertMissingTemplate(t *testing.T) {
	h := newHandler(t, plan, Options{TemplatePath: filepath.Join(t.TempDir(), "sumiu.xlsx")})

	rec := serve(h, uploadRequest(t, FormField, []byte("%PDF")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestConvertRejectsNonPDFWhenValidating(t *testing.T) {
	p := converter.NewPipeline(fakeSource{lines: plan}, converter.DefaultPipelineOptions(), nil)
	h, err := NewHandler(p, Options{TemplatePath: writeTemplate(t)}, nil)
	require.NoError(t, err)

	rec := serve(h, uploadRequest(t, FormField, []byte("isto não é um pdf")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "não é um PDF válido")
}

func TestConvertRateLimited(t *testing.T) {
	h := newHandler(t, plan, Options{RateLimit: 0.001, RateBurst: 1})

	first := serve(h, uploadRequest(t, FormField, []byte("%PDF")))
	second := serve(h, uploadRequest(t, FormField, []byte("%PDF")))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestMetrics(t *testing.T) {
	h := newHandler(t, plan, Options{})
	serve(h, uploadRequest(t, FormField, []byte("%PDF")))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `plano_conversions_total{outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "plano_document_items_count 1")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RateLimit = 2

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, cfg.TemplatePath, opts.TemplatePath)
	assert.Equal(t, cfg.Server.MaxUploadBytes, opts.MaxUploadBytes)
	assert.EqualValues(t, 2, opts.RateLimit)
	assert.Equal(t, 5, opts.Header.ScanRows)
}

func TestServerShutsDownOnCancel(t *testing.T) {
	h := newHandler(t, plan, Options{})
	srv := NewServer(config.ServerConfig{
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}, h, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := &http.Client{Timeout: 2 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
