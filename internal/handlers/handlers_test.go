package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/invoicer/internal/db"
	"github.com/diewo77/invoicer/internal/mailer"
	"github.com/diewo77/invoicer/internal/render"
	"github.com/diewo77/invoicer/internal/services"
	"github.com/diewo77/invoicer/internal/store"
)

type recordingSender struct {
	enabled bool
	sent    []mailer.Message
}

func (s *recordingSender) Enabled() bool { return s.enabled }

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

type testAPI struct {
	mux    *http.ServeMux
	store  *store.Store
	sender *recordingSender
}

func setupHandlerTest(t *testing.T) *testAPI {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	st := store.New(gdb)
	sender := &recordingSender{enabled: true}
	invoices := services.NewInvoiceService(st, render.New(), sender, nil)
	templates := services.NewTemplateService(st)

	ih := NewInvoiceHandler(invoices, st, nil)
	th := NewTemplateHandler(templates, nil)
	lh := NewLogoHandler(st, invoices, 1<<16, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /currencies", Currencies)
	mux.HandleFunc("POST /invoices/preview", ih.Preview)
	mux.HandleFunc("POST /invoices/pdf", ih.Render)
	mux.HandleFunc("POST /invoices/email", ih.Email)
	mux.HandleFunc("POST /invoices", ih.Create)
	mux.HandleFunc("GET /invoices", ih.List)
	mux.HandleFunc("GET /invoices/{id}", ih.View)
	mux.HandleFunc("GET /invoices/{id}/pdf", ih.PDF)
	mux.HandleFunc("POST /invoices/{id}/email", ih.EmailRecord)
	mux.HandleFunc("DELETE /invoices/{id}", ih.Delete)
	mux.HandleFunc("GET /templates", th.List)
	mux.HandleFunc("POST /templates", th.Create)
	mux.HandleFunc("GET /templates/{id}", th.View)
	mux.HandleFunc("PUT /templates/{id}", th.Update)
	mux.HandleFunc("DELETE /templates/{id}", th.Delete)
	mux.HandleFunc("GET /templates/{id}/draft", th.Draft)
	mux.HandleFunc("GET /settings/logo", lh.Get)
	mux.HandleFunc("PUT /settings/logo", lh.Put)
	mux.HandleFunc("DELETE /settings/logo", lh.Delete)
	return &testAPI{mux: mux, store: st, sender: sender}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

const draftJSON = `{
	"sender": {"name": "Alex Rivers", "email": "alex@studio.test", "address": "123 Main St\nLos Angeles"},
	"client": {"name": "Acme Corp", "email": "billing@acme.test"},
	"number": "INV-2025-001",
	"invoice_date": "2025-03-01",
	"due_date": "2025-03-31",
	"currency": "USD",
	"tax_rate": 10,
	"items": [
		{"description": "Design", "quantity": 2, "rate": "100"},
		{"description": "", "quantity": 1, "rate": "999"},
		{"description": "Hosting", "quantity": 1, "rate": 50}
	],
	"notes": "Thank you for your business!"
}`

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestPreview(t *testing.T) {
	api := setupHandlerTest(t)
	rec := api.do(t, http.MethodPost, "/invoices/preview", draftJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body previewResponse
	decodeBody(t, rec, &body)
	assert.Len(t, body.Items, 2)
	assert.Equal(t, "250.00", body.Totals.Subtotal)
	assert.Equal(t, "25.00", body.Totals.Tax)
	assert.Equal(t, "275.00", body.Totals.Total)
	assert.Equal(t, "$275.00", body.Totals.Formatted["total"])
}

func TestPreviewValidation(t *testing.T) {
	api := setupHandlerTest(t)
	rec := api.do(t, http.MethodPost, "/invoices/preview",
		`{"number":"","sender":{"name":"A"},"client":{"name":"B"},"currency":"XYZ","tax_rate":45,"invoice_date":"03/01/2025","items":[]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Details map[string]string `json:"details"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "invalid_date", body.Details["invoice_date"])
}

func TestCreateListAndDownload(t *testing.T) {
	api := setupHandlerTest(t)

	rec := api.do(t, http.MethodPost, "/invoices", draftJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created recordResponse
	decodeBody(t, rec, &created)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "275.00", created.Totals.Total)
	assert.Equal(t, "2025-03-01", created.InvoiceDate)
	assert.Len(t, created.Items, 2)
	assert.Equal(t, fmt.Sprintf("/invoices/%d", created.ID), rec.Header().Get("Location"))

	rec = api.do(t, http.MethodGet, "/invoices?q=ACME", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []recordResponse `json:"items"`
		Total int              `json:"total"`
	}
	decodeBody(t, rec, &list)
	assert.Equal(t, 1, list.Total)

	rec = api.do(t, http.MethodGet, "/invoices?q=globex", "")
	decodeBody(t, rec, &list)
	assert.Equal(t, 0, list.Total)

	rec = api.do(t, http.MethodGet, "/invoices?since=2025-04-01", "")
	decodeBody(t, rec, &list)
	assert.Equal(t, 0, list.Total)

	rec = api.do(t, http.MethodGet, "/invoices?since=yesterday", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(t, http.MethodGet, fmt.Sprintf("/invoices/%d/pdf", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Invoice_INV-2025-001.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = api.do(t, http.MethodDelete, fmt.Sprintf("/invoices/%d", created.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodGet, fmt.Sprintf("/invoices/%d", created.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenderWithoutStoring(t *testing.T) {
	api := setupHandlerTest(t)
	rec := api.do(t, http.MethodPost, "/invoices/pdf", draftJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	recs, err := api.store.SearchInvoiceRecords(context.Background(), store.SearchQuery{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestInvalidID(t *testing.T) {
	api := setupHandlerTest(t)
	for _, path := range []string{"/invoices/abc", "/invoices/0/pdf", "/templates/-1"} {
		rec := api.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestEmail(t *testing.T) {
	api := setupHandlerTest(t)
	body := strings.TrimSuffix(strings.TrimSpace(draftJSON), "}") + `, "email": {"subject": "Your invoice"}}`
	rec := api.do(t, http.MethodPost, "/invoices/email", body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, api.sender.sent, 1)
	assert.Equal(t, "Your invoice", api.sender.sent[0].Subject)
	assert.Equal(t, "billing@acme.test", api.sender.sent[0].To)

	rec = api.do(t, http.MethodPost, "/invoices", draftJSON)
	var created recordResponse
	decodeBody(t, rec, &created)
	rec = api.do(t, http.MethodPost, fmt.Sprintf("/invoices/%d/email", created.ID), "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Len(t, api.sender.sent, 2)

	api.sender.enabled = false
	rec = api.do(t, http.MethodPost, fmt.Sprintf("/invoices/%d/email", created.ID), "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTemplatesCRUD(t *testing.T) {
	api := setupHandlerTest(t)

	rec := api.do(t, http.MethodPost, "/templates",
		`{"client_name":"Acme Corp","client_email":"billing@acme.test","sender_name":"Alex Rivers","currency":"EUR","tax_rate":20}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tpl struct {
		ID           uint   `json:"id"`
		TemplateName string `json:"template_name"`
		Currency     string `json:"currency"`
	}
	decodeBody(t, rec, &tpl)
	assert.Equal(t, "Template - Acme Corp", tpl.TemplateName)

	rec = api.do(t, http.MethodGet, fmt.Sprintf("/templates/%d/draft", tpl.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var d draftRequest
	decodeBody(t, rec, &d)
	assert.Equal(t, "Acme Corp", d.Client.Name)
	assert.Equal(t, "EUR", d.Currency)
	assert.Equal(t, 20, d.TaxRate)
	assert.NotEmpty(t, d.DueDate)

	rec = api.do(t, http.MethodPut, fmt.Sprintf("/templates/%d", tpl.ID),
		`{"template_name":"Acme","client_name":"Acme Corp","currency":"GBP","tax_rate":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &tpl)
	assert.Equal(t, "GBP", tpl.Currency)

	rec = api.do(t, http.MethodPost, "/templates", `{"client_name":"","tax_rate":99}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(t, http.MethodGet, "/templates", "")
	var list struct {
		Total int `json:"total"`
	}
	decodeBody(t, rec, &list)
	assert.Equal(t, 1, list.Total)

	rec = api.do(t, http.MethodDelete, fmt.Sprintf("/templates/%d", tpl.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodDelete, fmt.Sprintf("/templates/%d", tpl.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func pngLogo(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 10, 6))))
	return buf.Bytes()
}

func TestLogoSlot(t *testing.T) {
	api := setupHandlerTest(t)

	rec := api.do(t, http.MethodGet, "/settings/logo", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPut, "/settings/logo", bytes.NewReader(pngLogo(t)))
	req.Header.Set("Content-Type", "image/png")
	rec = httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var info struct {
		Format string `json:"format"`
		Width  int    `json:"width"`
	}
	decodeBody(t, rec, &info)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, 10, info.Width)

	rec = api.do(t, http.MethodGet, "/settings/logo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	// invoices now render with the logo
	rec = api.do(t, http.MethodPost, "/invoices/pdf", draftJSON)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodDelete, "/settings/logo", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodDelete, "/settings/logo", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLogoMultipartAndRejects(t *testing.T) {
	api := setupHandlerTest(t)

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("logo", "logo.png")
	require.NoError(t, err)
	_, err = fw.Write(pngLogo(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/settings/logo", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodPut, "/settings/logo", strings.NewReader("not an image"))
	rec = httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/settings/logo", bytes.NewReader(make([]byte, 1<<17)))
	rec = httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCurrencies(t *testing.T) {
	api := setupHandlerTest(t)
	rec := api.do(t, http.MethodGet, "/currencies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Default    string `json:"default"`
		Currencies []struct {
			Code string `json:"code"`
		} `json:"currencies"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "USD", body.Default)
	require.Len(t, body.Currencies, 3)
	assert.Equal(t, "EUR", body.Currencies[2].Code)
}
