// Package admin provides the HTTP API over a plugin Manager: listing plugin
// types and their plugins, scan reports, reloading and deleting registries,
// the factory catalog, and the persisted load log.
package admin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ferro-labs/plugdir/internal/loadlog"
	"github.com/ferro-labs/plugdir/internal/logging"
	"github.com/ferro-labs/plugdir/plugin"
)

// Manager is the subset of *plugin.Manager the API needs.
type Manager interface {
	Get(pluginType string) *plugin.Registry
	List() map[string]map[string]plugin.Info
	Delete(pluginType string) bool
	Reload(pluginType string) *plugin.Registry
	Types() []string
}

// Handlers holds dependencies for admin HTTP handlers.
type Handlers struct {
	Manager Manager
	// Loads is optional; /events answers 404 without it.
	Loads loadlog.Reader
	// Catalog lists factory names. Defaults to plugin.RegisteredPlugins.
	Catalog func() []string
	Logger  *slog.Logger
}

const maxEventsLimit = 500

// Routes returns a chi.Router with all admin endpoints mounted.
//
// GET /plugins/{type} creates the registry on first use, exactly like
// Manager.Get.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(logging.Middleware)

	r.Get("/health", h.health)
	r.Get("/catalog", h.catalog)
	r.Get("/events", h.events)
	r.Get("/plugins", h.listAll)
	r.Route("/plugins/{type}", func(r chi.Router) {
		r.Use(validType)
		r.Get("/", h.getType)
		r.Delete("/", h.deleteType)
		r.Get("/report", h.report)
		r.Post("/reload", h.reload)
	})

	return r
}

func validType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := plugin.ValidType(chi.URLParam(r, "type")); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "invalid_plugin_type")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) logger(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context(), h.Logger)
}

func (h *Handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"types":  h.Manager.Types(),
	})
}

func (h *Handlers) catalog(w http.ResponseWriter, _ *http.Request) {
	list := h.Catalog
	if list == nil {
		list = plugin.RegisteredPlugins
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"factories": list(),
	})
}

func (h *Handlers) listAll(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plugins": h.Manager.List(),
	})
}

func registryBody(reg *plugin.Registry) map[string]interface{} {
	return map[string]interface{}{
		"type":    reg.Type(),
		"dir":     reg.Dir(),
		"plugins": reg.List(),
	}
}

func (h *Handlers) getType(w http.ResponseWriter, r *http.Request) {
	reg := h.Manager.Get(chi.URLParam(r, "type"))
	writeJSON(w, http.StatusOK, registryBody(reg))
}

func (h *Handlers) report(w http.ResponseWriter, r *http.Request) {
	reg := h.Manager.Get(chi.URLParam(r, "type"))
	writeJSON(w, http.StatusOK, reg.Report())
}

func (h *Handlers) reload(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	reg := h.Manager.Reload(typ)
	h.logger(r).Info("plugin registry reloaded", "type", typ, "plugins", reg.Len())

	body := registryBody(reg)
	body["report"] = reg.Report()
	writeJSON(w, http.StatusOK, body)
}

func (h *Handlers) deleteType(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	if !h.Manager.Delete(typ) {
		writeError(w, http.StatusNotFound, "no registry for plugin type "+typ, "")
		return
	}
	h.logger(r).Info("plugin registry deleted", "type", typ)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) events(w http.ResponseWriter, r *http.Request) {
	if h.Loads == nil {
		writeError(w, http.StatusNotFound, "load log is not enabled", "loadlog_disabled")
		return
	}

	q := loadlog.Query{Type: r.URL.Query().Get("type"), Limit: 50}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", "")
			return
		}
		if n > maxEventsLimit {
			n = maxEventsLimit
		}
		q.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer", "")
			return
		}
		q.Offset = n
	}

	result, err := h.Loads.List(r.Context(), q)
	if err != nil {
		h.logger(r).Error("list load log failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list load events", "")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
