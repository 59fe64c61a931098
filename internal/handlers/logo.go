package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/diewo77/invoicer/httpx"
	"github.com/diewo77/invoicer/internal/logo"
)

// LogoSlot reads and clears the stored logo.
type LogoSlot interface {
	GetLogo(ctx context.Context) ([]byte, error)
	DeleteLogo(ctx context.Context) error
}

// LogoSetter validates and stores a new logo.
type LogoSetter interface {
	SetLogo(ctx context.Context, raw []byte) (logo.Info, error)
}

type LogoHandler struct {
	slot     LogoSlot
	setter   LogoSetter
	maxBytes int64
	log      *zap.Logger
}

func NewLogoHandler(slot LogoSlot, setter LogoSetter, maxBytes int64, log *zap.Logger) *LogoHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogoHandler{slot: slot, setter: setter, maxBytes: maxBytes, log: log}
}

// Get: GET /settings/logo returns the stored PNG.
func (h *LogoHandler) Get(w http.ResponseWriter, r *http.Request) {
	data, err := h.slot.GetLogo(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Put: PUT /settings/logo accepts the image as the raw body or as the "logo"
// field of a multipart form.
func (h *LogoHandler) Put(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	data, err := h.readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.JSONError(w, http.StatusRequestEntityTooLarge, "logo_too_large", map[string]int64{"max_bytes": h.maxBytes})
			return
		}
		httpx.JSONError(w, http.StatusBadRequest, "invalid_upload", nil)
		return
	}
	info, err := h.setter.SetLogo(r.Context(), data)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, info)
}

func (h *LogoHandler) readUpload(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		return nil, err
	}
	f, _, err := r.FormFile("logo")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Delete: DELETE /settings/logo. Clearing an empty slot succeeds.
func (h *LogoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.slot.DeleteLogo(r.Context()); err != nil {
		fail(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
