// Package statusapi serves a small local HTTP view of the running accounts.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vuquang23/steamauto/automation"
	"github.com/vuquang23/steamauto/internal/logger"
)

// Controller is the part of automation.Supervisor the API drives.
type Controller interface {
	Snapshot() []automation.Snapshot
	Start(ctx context.Context, name string) error
	Stop(name string) error
	Resume(ctx context.Context, name string) error
}

type handler struct {
	// base outlives requests; loops started over HTTP run under it.
	base context.Context
	ctl  Controller
	log  logger.Logger
}

// NewRouter creates the status router. Loops started through it stop when
// base is cancelled.
func NewRouter(base context.Context, ctl Controller, log logger.Logger) *chi.Mux {
	h := &handler{base: base, ctl: ctl, log: log.With(logger.Component("statusapi"))}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.health)
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{name}", h.get)
		r.Post("/{name}/start", h.start)
		r.Post("/{name}/stop", h.stop)
		r.Post("/{name}/resume", h.resume)
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) list(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, h.ctl.Snapshot())
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.find(chi.URLParam(r, "name"))
	if !ok {
		respondWithError(w, http.StatusNotFound, automation.ErrUnknownAccount.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

func (h *handler) start(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.reply(w, name, h.ctl.Start(h.base, name))
}

func (h *handler) stop(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.reply(w, name, h.ctl.Stop(name))
}

func (h *handler) resume(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.reply(w, name, h.ctl.Resume(h.base, name))
}

func (h *handler) reply(w http.ResponseWriter, name string, err error) {
	switch {
	case err == nil:
		snap, _ := h.find(name)
		respondWithJSON(w, http.StatusOK, snap)
	case errors.Is(err, automation.ErrUnknownAccount):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, automation.ErrAlreadyRunning), errors.Is(err, automation.ErrSuspended):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("account control failed", logger.Account(name), logger.Error(err))
		respondWithError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *handler) find(name string) (automation.Snapshot, bool) {
	for _, s := range h.ctl.Snapshot() {
		if s.Name == name {
			return s, true
		}
	}
	return automation.Snapshot{}, false
}

func respondWithJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}
