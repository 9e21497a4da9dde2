package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/poivault/poivault-go/internal/model"
	"github.com/poivault/poivault-go/internal/service"
	"go.uber.org/zap"
)

// POIHandler handles HTTP requests for POI management.
type POIHandler struct {
	service *service.POIService
	logger  *zap.Logger
}

// NewPOIHandler creates a new POIHandler.
func NewPOIHandler(svc *service.POIService, logger *zap.Logger) *POIHandler {
	return &POIHandler{service: svc, logger: logger}
}

// HandleCreate handles POST /api/pois requests.
func (h *POIHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req model.CreatePOIRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	poi, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	respond(w, r, h.logger, http.StatusCreated, poi)
}

// HandleBulkCreate handles POST /api/pois/bulk requests.
func (h *POIHandler) HandleBulkCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req model.BulkCreateRequest
	if !decodeJSON(w, r, maxBulkBodyBytes, &req) {
		return
	}

	pois, err := h.service.BulkCreate(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("bulk poi import",
		zap.String("userId", userID),
		zap.Int("count", len(pois)),
	)
	respond(w, r, h.logger, http.StatusCreated, pois)
}

// HandleUpdate handles PUT /api/pois/{id} requests.
func (h *POIHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req model.UpdatePOIRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	poi, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	respond(w, r, h.logger, http.StatusOK, poi)
}

// HandleDelete handles DELETE /api/pois/{id} requests.
func (h *POIHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	respond(w, r, h.logger, http.StatusOK, model.DeleteResponse{Success: true})
}

// HandleList handles GET /api/pois?pageSize=&lastDoc= requests. A missing
// or non-numeric pageSize falls back to the default.
func (h *POIHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	pageSize := service.DefaultPageSize
	if v := r.URL.Query().Get("pageSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			pageSize = n
		}
	}

	page, err := h.service.List(r.Context(), userID, pageSize, r.URL.Query().Get("lastDoc"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	respond(w, r, h.logger, http.StatusOK, page)
}
