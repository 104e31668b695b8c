package control

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/xdswitch/cookies"
	"github.com/hazyhaar/xdswitch/kit"
	"github.com/hazyhaar/xdswitch/shield"
)

// NewHandler returns the HTTP API. /health is public; everything under
// /api requires the bearer token when tokenHash is set.
func NewHandler(s *Service, tokenHash string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	ep := NewEndpoints(s)

	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack(logger) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(shield.Bearer(tokenHash))

		r.Get("/tabs", serve(ep.Tabs, func(*http.Request) (any, error) {
			return &tabsRequest{}, nil
		}))

		r.Post("/tabs", serve(ep.Open, func(r *http.Request) (any, error) {
			var req openRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, err
			}
			return &req, nil
		}))

		r.Post("/tabs/{tabID}/activate", serve(ep.Activate, func(r *http.Request) (any, error) {
			return &activateRequest{TabID: chi.URLParam(r, "tabID")}, nil
		}))

		r.Post("/tabs/{tabID}/mode", serve(ep.Apply, func(r *http.Request) (any, error) {
			var req applyRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, err
			}
			req.TabID = chi.URLParam(r, "tabID")
			return &req, nil
		}))

		r.Post("/tabs/{tabID}/reconcile", serve(ep.Reconcile, func(r *http.Request) (any, error) {
			return &reconcileRequest{TabID: chi.URLParam(r, "tabID")}, nil
		}))

		r.Get("/status", serve(ep.Status, func(r *http.Request) (any, error) {
			return &statusRequest{URL: r.URL.Query().Get("url")}, nil
		}))

		r.Get("/journal", serve(ep.Journal, func(r *http.Request) (any, error) {
			return &journalRequest{Limit: queryInt(r, "limit", 50)}, nil
		}))
	})

	return r
}

func serve(endpoint kit.Endpoint, decode func(*http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decode(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = errors.New("empty body")
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := endpoint(r.Context(), req)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrTab):
		return http.StatusNotFound
	case errors.Is(err, cookies.ErrLookup):
		return http.StatusBadGateway
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

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
