package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/fleet"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
	"github.com/WessleyAI/fleetgraph/pkg/config"
	"github.com/WessleyAI/fleetgraph/pkg/metrics"
	"github.com/WessleyAI/fleetgraph/pkg/mid"
)

const maxBody = 1 << 20

// pinger is the part of the connection manager the health checks need.
type pinger interface {
	Ping(ctx context.Context) error
	State() graphdb.State
}

type api struct {
	store  *fleet.Store
	graph  pinger
	logger *slog.Logger
}

func newHandler(store *fleet.Store, graph pinger, met *metrics.Metrics, cfg config.Config, logger *slog.Logger) http.Handler {
	a := &api{store: store, graph: graph, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("GET /api/stats", a.handleStats)
	mux.HandleFunc("POST /api/links/{relation}", a.handleLink(true))
	mux.HandleFunc("DELETE /api/links/{relation}", a.handleLink(false))
	mux.HandleFunc("GET /api/{kind}", a.handleList)
	mux.HandleFunc("POST /api/{kind}", a.handleCreate)
	mux.HandleFunc("GET /api/{kind}/{key}", a.handleGet)
	mux.HandleFunc("PUT /api/{kind}/{key}", a.handleUpdate)
	mux.HandleFunc("DELETE /api/{kind}/{key}", a.handleDelete)
	mux.HandleFunc("GET /api/{kind}/{key}/{traversal}", a.handleTraverse)
	mux.Handle("GET /metrics", met.Handler())

	return mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.OTel("fleetapi"),
		mid.RateLimit(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst),
		mid.CORS(cfg.HTTP.CORSOrigin),
		mid.Instrument(met),
	)
}

// --- Responses ---

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error kind to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConnection):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			"path", r.URL.Path,
			"err", err,
			"request_id", mid.RequestIDFrom(r.Context()),
		)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeJSON(w, status, errorResponse{Error: msg, Kind: domain.ErrorKind(err)})
}

// --- Request parsing ---

func kindOf(r *http.Request) (domain.Kind, error) {
	return domain.ParseKind(r.PathValue("kind"))
}

func limitOf(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return domain.DefaultLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.NewValidationError("limit", v, domain.ErrOutOfRange)
	}
	return n, nil
}

func body(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		return nil, domain.NewValidationError("body", "", err)
	}
	return data, nil
}

// --- Handlers ---

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.graph.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"graph":  a.graph.State().String(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "graph": a.graph.State().String()})
}

func (a *api) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.store.Stats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *api) handleList(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit, err := limitOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items, err := a.store.List(r.Context(), kind, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Entity{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *api) handleGet(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	key := r.PathValue("key")
	e, found, err := a.store.Get(r.Context(), kind, key)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !found {
		a.fail(w, r, domain.NewNotFoundError(string(kind), key))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *api) handleCreate(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	data, err := body(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	e, err := a.store.CreateJSON(r.Context(), kind, data)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *api) handleUpdate(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	data, err := body(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	e, err := a.store.UpdateJSON(r.Context(), kind, r.PathValue("key"), data)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *api) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	deleted, err := a.store.Delete(r.Context(), kind, r.PathValue("key"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (a *api) handleTraverse(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit, err := limitOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.store.Traverse(r.Context(), kind, r.PathValue("key"), r.PathValue("traversal"), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// LinkRequest is the JSON body for /api/links/{relation}.
type LinkRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (a *api) handleLink(create bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel, err := fleet.ParseRelation(r.PathValue("relation"))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		var req LinkRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
			a.fail(w, r, domain.NewValidationError("body", "", err))
			return
		}
		if create {
			ok, err := a.store.Link(r.Context(), rel, req.From, req.To)
			if err != nil {
				a.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"linked": ok})
			return
		}
		ok, err := a.store.Unlink(r.Context(), rel, req.From, req.To)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"unlinked": ok})
	}
}
