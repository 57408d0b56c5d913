package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pesio-ai/be-brand-navigator/internal/errors"
	"github.com/pesio-ai/be-brand-navigator/internal/logger"
	"github.com/pesio-ai/be-brand-navigator/internal/service"
)

// UserIDHeader carries the acting user. Authentication happens upstream.
const UserIDHeader = "X-User-ID"

// HTTPHandler handles HTTP requests
type HTTPHandler struct {
	service *service.BrandService
	log     *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(service *service.BrandService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		log:     log,
	}
}

// Register mounts every route on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/api/v1/config", h.GetConfig)
	mux.HandleFunc("/api/v1/steps", h.ListSteps)

	mux.HandleFunc("/api/v1/brands", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListBrands(w, r)
		case http.MethodPost:
			h.CreateBrand(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/brands/get", h.GetBrand)
	mux.HandleFunc("/api/v1/brands/navigation", h.GetNavigation)
	mux.HandleFunc("/api/v1/brands/history", h.GetHistory)
	mux.HandleFunc("/api/v1/brands/progress", h.ProgressBrand)
	mux.HandleFunc("/api/v1/brands/revert", h.RevertBrand)
	mux.HandleFunc("/api/v1/brands/delete", h.DeleteBrand)
}

// Health reports liveness.
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetConfig exposes the client configuration flags.
func (h *HTTPHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"dev_mode": h.service.DevMode()})
}

// ListSteps handles the progress display definition request.
func (h *HTTPHandler) ListSteps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dev_mode": h.service.DevMode(),
		"steps":    h.service.ListSteps(),
	})
}

// CreateBrand handles create brand HTTP requests
func (h *HTTPHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.CreateBrandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.OwnerID == "" {
		req.OwnerID = r.Header.Get(UserIDHeader)
	}

	brand, err := h.service.CreateBrand(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, brand)
}

// GetBrand handles get brand HTTP requests
func (h *HTTPHandler) GetBrand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	brandID := r.URL.Query().Get("id")
	if brandID == "" {
		http.Error(w, "Brand ID is required", http.StatusBadRequest)
		return
	}

	brand, err := h.service.GetBrand(r.Context(), brandID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, brand)
}

// ListBrands handles list brands HTTP requests
func (h *HTTPHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		ownerID = r.Header.Get(UserIDHeader)
	}
	if ownerID == "" {
		http.Error(w, "Owner ID is required", http.StatusBadRequest)
		return
	}

	var statusPtr *string
	if s := r.URL.Query().Get("status"); s != "" {
		statusPtr = &s
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	brands, total, err := h.service.ListBrands(r.Context(), ownerID, statusPtr, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"brands":   brands,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// GetNavigation returns the route and step the UI should show for a brand.
func (h *HTTPHandler) GetNavigation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	brandID := r.URL.Query().Get("id")
	if brandID == "" {
		http.Error(w, "Brand ID is required", http.StatusBadRequest)
		return
	}

	nav, err := h.service.Navigation(r.Context(), brandID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, nav)
}

// GetHistory returns the status history of a brand.
func (h *HTTPHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	brandID := r.URL.Query().Get("id")
	if brandID == "" {
		http.Error(w, "Brand ID is required", http.StatusBadRequest)
		return
	}

	entries, err := h.service.History(r.Context(), brandID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

// ProgressBrand handles progress brand HTTP requests
func (h *HTTPHandler) ProgressBrand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.ProgressBrandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.ActedBy = r.Header.Get(UserIDHeader)

	brand, err := h.service.ProgressBrand(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeNavigation(w, r, brand.ID)
}

// RevertBrand handles revert brand HTTP requests
func (h *HTTPHandler) RevertBrand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.RevertBrandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.ActedBy = r.Header.Get(UserIDHeader)

	brand, err := h.service.RevertBrand(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeNavigation(w, r, brand.ID)
}

// DeleteBrand handles delete brand HTTP requests
func (h *HTTPHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	brandID := r.URL.Query().Get("id")
	if brandID == "" {
		http.Error(w, "Brand ID is required", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteBrand(r.Context(), brandID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeNavigation answers a status change with the brand's new navigation so
// the client never derives route or step from stale local state.
func (h *HTTPHandler) writeNavigation(w http.ResponseWriter, r *http.Request, brandID string) {
	nav, err := h.service.Navigation(r.Context(), brandID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nav)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, code, map[string]string{
		"error": err.Error(),
		"code":  string(errors.CodeOf(err)),
	})
}

func httpStatus(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConflict:
		return http.StatusConflict
	case errors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
