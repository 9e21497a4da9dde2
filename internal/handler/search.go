package handler

import (
	"net/http"

	"github.com/poivault/poivault-go/internal/model"
	"github.com/poivault/poivault-go/internal/service"
	"go.uber.org/zap"
)

// SearchHandler handles HTTP requests for encrypted radius search.
type SearchHandler struct {
	service *service.SearchService
	logger  *zap.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(svc *service.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{service: svc, logger: logger}
}

// HandleSearch handles POST /api/search requests.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req model.SearchQuery
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	results, err := h.service.Search(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	respond(w, r, h.logger, http.StatusOK, results)
}

// HandleHistory handles GET /api/search/history requests.
func (h *SearchHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	entries, err := h.service.History(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	respond(w, r, h.logger, http.StatusOK, entries)
}
