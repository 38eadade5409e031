package etl

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/exametl/docpipe"
	"github.com/hazyhaar/exametl/pathguard"
	"github.com/hazyhaar/exametl/recognize"
	"github.com/hazyhaar/exametl/shield"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 1 << 20

// Routes returns the HTTP API:
//
//	GET    /health
//	GET    /v1/subjects
//	POST   /v1/extract   {"path": "...", "subject": "...", "output_csv": "...", "no_cache": false}
//	DELETE /v1/cache
func (r *Runner) Routes() http.Handler {
	router := chi.NewRouter()
	for _, mw := range shield.APIStack(r.logger, maxRequestBody) {
		router.Use(mw)
	}

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	subjects := r.subjectsEndpoint()
	router.Get("/v1/subjects", func(w http.ResponseWriter, req *http.Request) {
		resp, err := subjects(req.Context(), nil)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	extract := r.extractEndpoint()
	router.Post("/v1/extract", func(w http.ResponseWriter, req *http.Request) {
		var x extractReq
		if err := json.NewDecoder(req.Body).Decode(&x); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := extract(req.Context(), &x)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	router.Delete("/v1/cache", func(w http.ResponseWriter, req *http.Request) {
		if err := r.ClearCache(req.Context()); err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	})

	return router
}

func statusFor(err error) int {
	var ierr *recognize.InitError
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, pathguard.ErrPathTraversal):
		return http.StatusForbidden
	case errors.Is(err, docpipe.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, docpipe.ErrUnsupportedFormat), errors.Is(err, docpipe.ErrUnreadableDocument):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ierr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
