package httpapi

import (
	"net/http"
	"strconv"

	"github.com/SultanXM/Reedstreams-Backend/internal/adapters/security"
	"github.com/SultanXM/Reedstreams-Backend/internal/application"
)

// proxy is the hot path: every manifest line and media segment a player
// loads comes through here. The response is raw media bytes, not the JSON
// envelope.
func (h *Handler) proxy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID := security.DeriveClientID(h.identitySecret, readIP(r), r.UserAgent())

	resp, err := h.service.Proxy(r.Context(), application.ProxyRequest{
		RawURL:   q.Get("url"),
		Schema:   q.Get("schema"),
		Sig:      q.Get("sig"),
		Exp:      q.Get("exp"),
		Client:   q.Get("client"),
		ClientID: clientID,
		Header:   r.Header,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "proxy", err)
		return
	}

	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// proxyPreflight exists so OPTIONS /proxy routes instead of 405ing; the
// CORS middleware answers before this runs.
func (h *Handler) proxyPreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
