package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SultanXM/Reedstreams-Backend/internal/adapters/security"
	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
)

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	latency, err := h.ping(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"latency_ms": latency.Milliseconds(),
	})
}

func (h *Handler) allStreams(w http.ResponseWriter, r *http.Request) {
	catalog := make(map[string][]domain.GameCategory)
	for _, provider := range h.service.Providers() {
		categories, err := h.service.CategorizedGames(r.Context(), provider)
		if err != nil {
			writeMappedError(r.Context(), w, "list_streams", err)
			return
		}
		catalog[provider] = categories
	}
	writeSuccess(w, http.StatusOK, catalog)
}

func (h *Handler) providerStreams(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	categories, err := h.service.CategorizedGames(r.Context(), provider)
	if err != nil {
		writeMappedError(r.Context(), w, "list_streams", err)
		return
	}
	writeSuccess(w, http.StatusOK, categories)
}

func (h *Handler) signedURL(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id must be an integer")
		return
	}

	clientID := security.DeriveClientID(h.identitySecret, readIP(r), r.UserAgent())
	signedURL, expiresAt, err := h.service.SignedStreamURL(r.Context(), provider, id, clientID)
	if err != nil {
		writeMappedError(r.Context(), w, "signed_url", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"signed_url": signedURL,
		"expires_at": expiresAt,
	})
}

func (h *Handler) decodeLink(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id must be an integer")
		return
	}

	url, err := h.service.DecodeLink(r.Context(), provider, id)
	if err != nil {
		writeMappedError(r.Context(), w, "decode_link", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"url": url})
}

func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if err := h.service.ClearCache(r.Context(), provider); err != nil {
		writeMappedError(r.Context(), w, "clear_cache", err)
		return
	}
	writeMessage(w, http.StatusOK, "cache cleared")
}
