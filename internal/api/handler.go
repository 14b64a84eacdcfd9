package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/drop-plan-generator/internal/models"
	"github.com/drop-plan-generator/internal/plan"
	"github.com/drop-plan-generator/internal/service"
	"github.com/drop-plan-generator/internal/storage"
	"github.com/drop-plan-generator/pkg/logger"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

const (
	maxBodyBytes     = 1 << 20
	defaultListLimit = 20
	maxListLimit     = 100
)

// Handler holds all HTTP handlers
type Handler struct {
	plans   *service.PlanService
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewHandler creates a new handler. A nil limiter disables rate limiting.
func NewHandler(plans *service.PlanService, limiter *rate.Limiter, logger *logger.Logger) *Handler {
	return &Handler{
		plans:   plans,
		limiter: limiter,
		logger:  logger,
	}
}

// Routes sets up all routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)

	r.Route("/v1/plans", func(r chi.Router) {
		r.With(RateLimitMiddleware(h.limiter)).Post("/", h.GeneratePlan)
		r.Post("/parse", h.ParsePlan)
		r.Get("/", h.ListPlans)
		r.Get("/{id}", h.GetPlan)
		r.Get("/{id}/output", h.GetPlanOutput)
		r.Delete("/{id}", h.DeletePlan)
	})

	return r
}

// Health handles health check requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GeneratePlan generates and stores a plan. The body is either JSON
// ({"input", "drops"}) or the raw plan text with drops in the query string.
func (h *Handler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	req, err := decodeGenerateRequest(w, r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	requestID := GetRequestID(r.Context())
	h.logger.Debug("Generating plan", logger.F("drops", strconv.Itoa(req.Drops)), logger.F("request_id", requestID))

	record, err := h.plans.Generate(r.Context(), req.Input, req.Drops)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to generate plan", logger.F("error", err.Error()), logger.F("request_id", requestID))
		}
		h.respondError(w, status, "failed to generate plan", err.Error())
		return
	}

	w.Header().Set("Location", "/v1/plans/"+record.ID)
	h.respondJSON(w, http.StatusCreated, record)
}

func decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (*models.GeneratePlanRequest, error) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		text, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		req := &models.GeneratePlanRequest{Input: string(text)}
		if v := r.URL.Query().Get("drops"); v != "" {
			if req.Drops, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("invalid drops parameter: %q", v)
			}
		}
		return req, nil
	}

	var req models.GeneratePlanRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ParsePlan returns the parsed session summary of a plan without generating
func (h *Handler) ParsePlan(w http.ResponseWriter, r *http.Request) {
	var req models.ParsePlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	summaries, err := h.plans.Preview(req.Input)
	if err != nil {
		h.respondError(w, statusFor(err), "failed to parse plan", err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, models.ParsePlanResponse{Sessions: summaries})
}

// ListPlans lists the most recent plans
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			h.respondError(w, http.StatusBadRequest, "invalid limit",
				fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}

	plans, err := h.plans.ListPlans(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list plans", logger.F("error", err.Error()), logger.F("request_id", GetRequestID(r.Context())))
		h.respondError(w, http.StatusInternalServerError, "failed to list plans", err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, models.ListPlansResponse{Plans: plans, Count: len(plans)})
}

// GetPlan returns one stored plan
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	record, err := h.plans.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, statusFor(err), "failed to get plan", err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, record)
}

// GetPlanOutput returns the tab-separated plan as a download
func (h *Handler) GetPlanOutput(w http.ResponseWriter, r *http.Request) {
	record, err := h.plans.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, statusFor(err), "failed to get plan", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.ID+".tsv"))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, record.Output)
}

// DeletePlan removes a stored plan
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.plans.DeletePlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, statusFor(err), "failed to delete plan", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps domain and storage errors to HTTP status codes
func statusFor(err error) int {
	var parseErr *plan.ParseError
	switch {
	case errors.As(err, &parseErr),
		errors.Is(err, plan.ErrInvalidDrops),
		errors.Is(err, service.ErrTooManyDrops):
		return http.StatusBadRequest
	case errors.Is(err, plan.ErrUnsatisfiableSession):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrPlanNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrPlanExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON sends a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func (h *Handler) respondError(w http.ResponseWriter, status int, errorMsg, message string) {
	writeError(w, status, errorMsg, message)
}

func writeError(w http.ResponseWriter, status int, errorMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error:   errorMsg,
		Message: message,
	})
}
