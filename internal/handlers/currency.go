package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/invoicer/httpx"
	"github.com/diewo77/invoicer/internal/currency"
)

// Currencies lists the supported currencies in display order.
func Currencies(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"default":    currency.DefaultCode,
		"currencies": currency.All(),
	})
}

// Health answers liveness probes; ping checks the database.
func Health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ping(r.Context()); err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
	}
}
