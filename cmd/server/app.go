package main

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/diewo77/invoicer/httpx"
	"github.com/diewo77/invoicer/internal/config"
	"github.com/diewo77/invoicer/internal/db"
	"github.com/diewo77/invoicer/internal/handlers"
	"github.com/diewo77/invoicer/internal/render"
	"github.com/diewo77/invoicer/internal/services"
	"github.com/diewo77/invoicer/internal/store"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux          *http.ServeMux
	db           *gorm.DB
	log          *zap.Logger
	emailLimiter *rate.Limiter

	invoices  *handlers.InvoiceHandler
	templates *handlers.TemplateHandler
	logo      *handlers.LogoHandler
}

// NewApp wires the store, renderer, services and handlers.
func NewApp(dbConn *gorm.DB, cfg *config.Config, log *zap.Logger, sender services.Sender) *App {
	st := store.New(dbConn)
	invoiceSvc := services.NewInvoiceService(st, render.New(), sender, log.Named("invoices"))
	templateSvc := services.NewTemplateService(st)

	app := &App{
		mux:          http.NewServeMux(),
		db:           dbConn,
		log:          log,
		emailLimiter: newEmailLimiter(cfg.App.EmailRatePerMinute),
		invoices:     handlers.NewInvoiceHandler(invoiceSvc, st, log),
		templates:    handlers.NewTemplateHandler(templateSvc, log),
		logo:         handlers.NewLogoHandler(st, invoiceSvc, cfg.App.MaxLogoBytes, log),
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	withLogging(a.log, a.mux).ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	a.mux.HandleFunc("GET /healthz", handlers.Health(func(ctx context.Context) error { return db.Ping(ctx, a.db) }))
	a.mux.HandleFunc("GET /currencies", handlers.Currencies)

	// Invoices
	ih := a.invoices
	a.mux.HandleFunc("POST /invoices/preview", ih.Preview)
	a.mux.HandleFunc("POST /invoices/pdf", ih.Render)
	a.mux.HandleFunc("POST /invoices", ih.Create)
	a.mux.HandleFunc("GET /invoices", ih.List)
	a.mux.HandleFunc("GET /invoices/{id}", ih.View)
	a.mux.HandleFunc("GET /invoices/{id}/pdf", ih.PDF)
	a.mux.HandleFunc("DELETE /invoices/{id}", ih.Delete)
	a.mux.Handle("POST /invoices/email", a.limitEmail(http.HandlerFunc(ih.Email)))
	a.mux.Handle("POST /invoices/{id}/email", a.limitEmail(http.HandlerFunc(ih.EmailRecord)))

	// Client templates
	th := a.templates
	a.mux.HandleFunc("GET /templates", th.List)
	a.mux.HandleFunc("POST /templates", th.Create)
	a.mux.HandleFunc("GET /templates/{id}", th.View)
	a.mux.HandleFunc("PUT /templates/{id}", th.Update)
	a.mux.HandleFunc("DELETE /templates/{id}", th.Delete)
	a.mux.HandleFunc("GET /templates/{id}/draft", th.Draft)

	// Logo
	lh := a.logo
	a.mux.HandleFunc("GET /settings/logo", lh.Get)
	a.mux.HandleFunc("PUT /settings/logo", lh.Put)
	a.mux.HandleFunc("DELETE /settings/logo", lh.Delete)
}

// newEmailLimiter allows perMinute sends per minute with an equal burst.
// A non-positive value disables the limit.
func newEmailLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// limitEmail rejects email requests beyond the shared rate with 429.
func (a *App) limitEmail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.emailLimiter.Allow() {
			every := math.Max(1, math.Round(1/float64(a.emailLimiter.Limit())))
			w.Header().Set("Retry-After", strconv.Itoa(int(every)))
			httpx.JSONError(w, http.StatusTooManyRequests, "rate_limited", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// withLogging tags each request with an id and logs it once it completes.
func withLogging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		log.Info("request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
