package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"coinwatch-go/internal/query"
	"coinwatch-go/internal/syncer"
	"go.uber.org/zap"
)

// APIHandler holds dependencies for the API endpoints. The app context
// is what sync passes run under, so a manual trigger survives the HTTP
// request that started it.
type APIHandler struct {
	appCtx      context.Context
	log         *zap.Logger
	queries     *query.Service
	coordinator *syncer.Coordinator
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(appCtx context.Context, log *zap.Logger, queries *query.Service, coordinator *syncer.Coordinator) *APIHandler {
	return &APIHandler{appCtx: appCtx, log: log, queries: queries, coordinator: coordinator}
}

// Routes builds the API mux.
func (h *APIHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cryptocurrencies", h.ListHandler)
	mux.HandleFunc("GET /api/cryptocurrencies/search", h.SearchHandler)
	mux.HandleFunc("GET /api/cryptocurrencies/stats", h.StatsHandler)
	mux.HandleFunc("GET /api/cryptocurrencies/trending", h.TrendingHandler)
	mux.HandleFunc("GET /api/cryptocurrencies/compare", h.CompareHandler)
	mux.HandleFunc("GET /api/cryptocurrencies/sync-status", h.SyncStatusHandler)
	mux.HandleFunc("POST /api/cryptocurrencies/sync", h.TriggerSyncHandler)
	mux.HandleFunc("GET /api/cryptocurrencies/external/{externalId}", h.GetByExternalIDHandler)
	mux.HandleFunc("GET /api/cryptocurrencies/external/{externalId}/history", h.HistoryHandler)
	mux.HandleFunc("GET /api/cryptocurrencies/{id}", h.GetByIDHandler)
	mux.HandleFunc("GET /api/health", h.HealthHandler)
	return mux
}

// ListHandler returns a filtered, paginated asset listing.
func (h *APIHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	page, err := h.queries.List(params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// SearchHandler is a listing restricted to a free-text query.
func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	params := query.ListParams{
		Search:     r.URL.Query().Get("q"),
		ActiveOnly: true,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, query.ErrInvalidQuery)
			return
		}
		params.Limit = limit
	}
	page, err := h.queries.List(params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// StatsHandler returns the market rollup.
func (h *APIHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queries.MarketStats()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// TrendingHandler returns top gainers, losers and most volatile assets.
func (h *APIHandler) TrendingHandler(w http.ResponseWriter, r *http.Request) {
	movers, err := h.queries.TopMovers()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, movers)
}

// CompareHandler compares assets by comma-separated ticker list.
func (h *APIHandler) CompareHandler(w http.ResponseWriter, r *http.Request) {
	symbols := strings.Split(r.URL.Query().Get("symbols"), ",")
	assets, err := h.queries.Compare(symbols)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, assets)
}

// SyncStatusHandler projects the coordinator state.
func (h *APIHandler) SyncStatusHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.queries.SyncStatus())
}

// TriggerSyncHandler starts a sync pass unless one is running. The
// response only says whether a pass was launched; pass failures are
// visible through the sync-status endpoint, never here.
func (h *APIHandler) TriggerSyncHandler(w http.ResponseWriter, r *http.Request) {
	message, started := h.coordinator.TriggerSync(h.appCtx)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"started": started,
	})
}

// GetByExternalIDHandler returns one asset by the provider's key.
func (h *APIHandler) GetByExternalIDHandler(w http.ResponseWriter, r *http.Request) {
	asset, err := h.queries.GetByExternalID(r.PathValue("externalId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, asset)
}

// HistoryHandler returns recent price points for one asset.
func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	points, err := h.queries.History(r.PathValue("externalId"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, points)
}

// GetByIDHandler returns one asset by database identifier.
func (h *APIHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, query.ErrInvalidQuery)
		return
	}
	asset, err := h.queries.GetByID(uint(id))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, asset)
}

// HealthHandler reports liveness and data freshness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health, err := h.queries.Health()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, health)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, query.ErrInvalidQuery):
		status = http.StatusBadRequest
	case errors.Is(err, query.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, query.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func parseListParams(r *http.Request) (query.ListParams, error) {
	q := r.URL.Query()
	params := query.ListParams{
		Search:     q.Get("search"),
		Category:   q.Get("category"),
		SortBy:     q.Get("sort_by"),
		Order:      q.Get("order"),
		ActiveOnly: q.Get("active_only") != "false",
	}

	var err error
	if params.Page, err = intParam(q.Get("page")); err != nil {
		return params, err
	}
	if params.Limit, err = intParam(q.Get("limit")); err != nil {
		return params, err
	}
	if params.MinRank, err = intPtrParam(q.Get("min_rank")); err != nil {
		return params, err
	}
	if params.MaxRank, err = intPtrParam(q.Get("max_rank")); err != nil {
		return params, err
	}
	if params.MinPrice, err = floatPtrParam(q.Get("min_price")); err != nil {
		return params, err
	}
	if params.MaxPrice, err = floatPtrParam(q.Get("max_price")); err != nil {
		return params, err
	}
	if params.MinChange24h, err = floatPtrParam(q.Get("min_change_24h")); err != nil {
		return params, err
	}
	if params.MaxChange24h, err = floatPtrParam(q.Get("max_change_24h")); err != nil {
		return params, err
	}
	return params, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, query.ErrInvalidQuery
	}
	return v, nil
}

func intPtrParam(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, query.ErrInvalidQuery
	}
	return &v, nil
}

func floatPtrParam(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, query.ErrInvalidQuery
	}
	return &v, nil
}
