package api

import (
	"bytes"
	"crypto/x509"
	"encoding/json"
	"io"
	"net/http"

	"github.com/signedmedia/c2pa-go/internal/c2pa"
	"github.com/signedmedia/c2pa-go/internal/jpeg"
	"github.com/signedmedia/c2pa-go/internal/status"
)

// maxBodyBytes bounds uploaded assets.
const maxBodyBytes = 64 << 20

// Handler serves verification and inspection requests.
type Handler struct {
	anchors []*x509.Certificate
}

// NewHandler builds a handler verifying against the given trust anchors
// (nil skips the trust check).
func NewHandler(anchors []*x509.Certificate) *Handler {
	return &Handler{anchors: anchors}
}

type statusJSON struct {
	Code    string `json:"code"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	URL     string `json:"url,omitempty"`
}

type verifyResponse struct {
	Valid    bool         `json:"valid"`
	Manifest string       `json:"manifest,omitempty"`
	Statuses []statusJSON `json:"statuses,omitempty"`
	Store    any          `json:"store,omitempty"`
	Error    string       `json:"error,omitempty"`
}

func statusesJSON(list []status.Status) []statusJSON {
	out := make([]statusJSON, 0, len(list))
	for _, s := range list {
		out = append(out, statusJSON{Code: string(s.Code), OK: s.OK, Message: s.Message, URL: s.URL})
	}
	return out
}

// loadStore reads the request body as either a JPEG or raw store bytes and
// returns the parsed store plus the asset bytes for hard-binding checks.
func loadStore(r *http.Request) (*c2pa.Store, []byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, err
	}
	if len(body) >= 2 && body[0] == 0xff && body[1] == 0xd8 {
		img, err := jpeg.Read(bytes.NewReader(body))
		if err != nil {
			return nil, nil, err
		}
		if img.C2PA == nil {
			return nil, body, nil
		}
		store, err := c2pa.ParseStore(img.C2PA)
		if err != nil {
			return nil, nil, err
		}
		return store, body, nil
	}
	store, err := c2pa.ParseStore(body)
	if err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}

// Verify handles POST /api/v1/verify: the body is a JPEG or raw store; the
// response carries the status list and the store projection.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	store, asset, err := loadStore(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Error: err.Error()})
		return
	}
	if store == nil {
		writeJSON(w, http.StatusOK, verifyResponse{Valid: false, Error: "no C2PA manifest found"})
		return
	}
	manifest := store.ActiveManifest()
	if manifest == nil {
		writeJSON(w, http.StatusOK, verifyResponse{Valid: false, Error: "store has no manifest"})
		return
	}
	// A bare store upload has no surrounding asset; the hard binding is then
	// checked against an empty stream and reports a mismatch.
	manifest.SetInputStream(bytes.NewReader(asset))
	statuses, err := manifest.Signature().Verify(h.anchors)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, verifyResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		Valid:    status.AllOK(statuses),
		Manifest: manifest.Label(),
		Statuses: statusesJSON(statuses),
		Store:    store.ToJSON(),
	})
}

// Inspect handles POST /api/v1/inspect: the body is a JPEG or raw store; the
// response carries only the store projection.
func (h *Handler) Inspect(w http.ResponseWriter, r *http.Request) {
	store, _, err := loadStore(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Error: err.Error()})
		return
	}
	if store == nil {
		writeJSON(w, http.StatusOK, verifyResponse{Error: "no C2PA manifest found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"store": store.ToJSON()})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
