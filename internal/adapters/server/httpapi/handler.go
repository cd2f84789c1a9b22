// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hylla/metier/internal/adapters/server/common"
	"github.com/hylla/metier/internal/domain"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// ActorHeader names the request header that attributes writes to one user id.
const ActorHeader = "X-Actor-ID"

// WarningHeader carries the reason a write was kept in memory only.
const WarningHeader = "X-Metier-Warning"

// Handler serves the REST API routes registered under the API endpoint.
type Handler struct {
	service common.Service
	now     func() time.Time
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// deleteResponse is the body of every successful delete.
type deleteResponse struct {
	Success bool `json:"success"`
	common.MutationOutcome
}

// NewHandler constructs one HTTP API adapter over the transport service.
func NewHandler(service common.Service, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{service: service, now: now}
}

// Register mounts every API route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.Use(actorMiddleware())
	r.GET("/health", h.handleHealth)

	for _, c := range domain.Collections() {
		name := string(c)
		r.GET("/"+name, h.handleList(name))
		r.POST("/"+name, h.handleCreate(name))
		r.PUT("/"+name+"/:id", h.handleUpdate(name))
		r.DELETE("/"+name+"/:id", h.handleDelete(name))
	}

	views := r.Group("/views")
	views.GET("/health", h.handleTaskHealth)
	views.GET("/timeline", h.handleTimeline)
	views.GET("/workload", h.handleWorkload)
	views.GET("/tasks", h.handleListTasks)
	views.GET("/activity", h.handleActivity)

	r.POST("/templates/:id/instantiate", h.handleInstantiate)
	r.POST("/tasks/bulk/status", h.handleBulkStatus)
	r.POST("/tasks/bulk/delete", h.handleBulkDelete)
	r.PATCH("/tasks/:id/phases/:phaseId/status", h.handlePhaseStatus)
	r.POST("/tasks/:id/phases", h.handleAddPhase)
}

// NotFound writes the structured 404 used for unmatched routes.
func NotFound(c *gin.Context) {
	writeJSONError(c, http.StatusNotFound, APIError{
		Code:    "not_found",
		Message: "endpoint not found",
	})
}

// actorMiddleware attributes writes to the X-Actor-ID header when present.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := c.GetHeader(ActorHeader); actor != "" {
			c.Request = c.Request.WithContext(common.WithActor(c.Request.Context(), actor))
		}
		c.Next()
	}
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Time: h.now().UTC()})
}

func (h *Handler) handleList(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := h.service.ListRecords(c.Request.Context(), collection)
		if err != nil {
			writeErrorFrom(c, err)
			return
		}
		if rows == nil {
			rows = []domain.Record{}
		}
		c.JSON(http.StatusOK, rows)
	}
}

func (h *Handler) handleCreate(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body domain.Record
		if err := decodeJSONBody(c, &body); err != nil {
			writeErrorFrom(c, err)
			return
		}
		out, outcome, err := h.service.CreateRecord(c.Request.Context(), collection, body)
		if err != nil {
			writeErrorFrom(c, err)
			return
		}
		writeOutcome(c, outcome)
		c.JSON(http.StatusCreated, out)
	}
}

func (h *Handler) handleUpdate(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body domain.Record
		if err := decodeJSONBody(c, &body); err != nil {
			writeErrorFrom(c, err)
			return
		}
		out, outcome, err := h.service.UpdateRecord(c.Request.Context(), collection, c.Param("id"), body)
		if err != nil {
			writeErrorFrom(c, err)
			return
		}
		writeOutcome(c, outcome)
		c.JSON(http.StatusOK, out)
	}
}

func (h *Handler) handleDelete(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome, err := h.service.DeleteRecord(c.Request.Context(), collection, c.Param("id"))
		if err != nil {
			writeErrorFrom(c, err)
			return
		}
		writeOutcome(c, outcome)
		c.JSON(http.StatusOK, deleteResponse{Success: true, MutationOutcome: outcome})
	}
}

func (h *Handler) handleTaskHealth(c *gin.Context) {
	rows, err := h.service.TaskHealth(c.Request.Context())
	if err != nil {
		writeErrorFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": rows})
}

func (h *Handler) handleTimeline(c *gin.Context) {
	out, err := h.service.Timeline(c.Request.Context(), common.TimelineRequest{
		Start:  c.Query("start"),
		End:    c.Query("end"),
		UserID: c.Query("user"),
		TeamID: c.Query("team"),
		Status: c.Query("status"),
		Mode:   c.Query("mode"),
	})
	if err != nil {
		writeErrorFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) handleWorkload(c *gin.Context) {
	out, err := h.service.Workload(c.Request.Context())
	if err != nil {
		writeErrorFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) handleListTasks(c *gin.Context) {
	rows, err := h.service.ListTasks(c.Request.Context(), common.TaskListRequest{
		Query:     c.Query("q"),
		ProjectID: c.Query("project"),
		TeamID:    c.Query("team"),
		UserID:    c.Query("user"),
		Status:    c.Query("status"),
		Priority:  c.Query("priority"),
		Start:     c.Query("start"),
		End:       c.Query("end"),
		Sort:      c.Query("sort"),
	})
	if err != nil {
		writeErrorFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": rows})
}

func (h *Handler) handleActivity(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeErrorFrom(c, fmt.Errorf("limit %q: %w", raw, errors.Join(common.ErrInvalidRequest, err)))
			return
		}
		limit = n
	}
	entries, err := h.service.ActivityLog(c.Request.Context(), limit)
	if err != nil {
		writeErrorFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) handleInstantiate(c *gin.Context) {
	var req common.InstantiateTemplateRequest
	if err := decodeOptionalJSONBody(c, &req); err != nil {
		writeErrorFrom(c, err)
		return
	}
	req.TemplateID = c.Param("id")
	out, err := h.service.InstantiateTemplate(c.Request.Context(), req)
	if err != nil {
		writeErrorFrom(c, err)
		return
	}
	status := http.StatusOK
	if out.Outcome != nil {
		writeOutcome(c, *out.Outcome)
		status = http.StatusCreated
	}
	c.JSON(status, out)
}

func (h *Handler) handleBulkStatus(c *gin.Context) {
	var req common.BulkStatusRequest
	if err := decodeJSONBody(c, &req); err != nil {
		writeErrorFrom(c, err)
		return
	}
	out, err := h.service.BulkUpdateStatus(c.Request.Context(), req)
	if err != nil {
		writeErrorFrom(c, err)
		return
	}
	writeOutcome(c, out.MutationOutcome)
	c.JSON(http.StatusOK, out)
}

func (h *Handler) handleBulkDelete(c *gin.Context) {
	var req common.BulkDeleteRequest
	if err := decodeJSONBody(c, &req); err != nil {
		writeErrorFrom(c, err)
		return
	}
	out, err := h.service.BulkDelete(c.Request.Context(), req)
	if err != nil {
		writeErrorFrom(c, err)
		return
	}
	writeOutcome(c, out.MutationOutcome)
	c.JSON(http.StatusOK, out)
}

func (h *Handler) handlePhaseStatus(c *gin.Context) {
	var req common.PhaseStatusRequest
	if err := decodeJSONBody(c, &req); err != nil {
		writeErrorFrom(c, err)
		return
	}
	req.TaskID = c.Param("id")
	req.PhaseID = c.Param("phaseId")
	out, err := h.service.SetPhaseStatus(c.Request.Context(), req)
	if err != nil {
		writeErrorFrom(c, err)
		return
	}
	writeOutcome(c, out.MutationOutcome)
	c.JSON(http.StatusOK, out)
}

func (h *Handler) handleAddPhase(c *gin.Context) {
	out, err := h.service.AddPhase(c.Request.Context(), common.AddPhaseRequest{TaskID: c.Param("id")})
	if err != nil {
		writeErrorFrom(c, err)
		return
	}
	writeOutcome(c, out.MutationOutcome)
	c.JSON(http.StatusCreated, out)
}

// writeOutcome flags writes that only reached memory.
func writeOutcome(c *gin.Context, outcome common.MutationOutcome) {
	if !outcome.Persisted && outcome.Warning != "" {
		c.Header(WarningHeader, outcome.Warning)
	}
}

// writeErrorFrom maps service errors into stable HTTP status codes and envelopes.
func writeErrorFrom(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(c, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(c, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrConflict):
		writeJSONError(c, http.StatusConflict, APIError{
			Code:    "conflict",
			Message: err.Error(),
			Hint:    "Reload the collection and retry with a fresh id.",
		})
	case errors.Is(err, common.ErrUnavailable):
		writeJSONError(c, http.StatusServiceUnavailable, APIError{
			Code:    "unavailable",
			Message: err.Error(),
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSONError(c, http.StatusGatewayTimeout, APIError{
			Code:    "timeout",
			Message: err.Error(),
		})
	default:
		writeJSONError(c, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeJSONError writes one structured error envelope and stops the handler chain.
func writeJSONError(c *gin.Context, statusCode int, apiErr APIError) {
	c.AbortWithStatusJSON(statusCode, ErrorEnvelope{Error: apiErr})
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(c *gin.Context, out any) error {
	reader := http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	return requestAlive(c.Request.Context())
}

// decodeOptionalJSONBody decodes one optional JSON body and ignores empty payloads.
func decodeOptionalJSONBody(c *gin.Context, out any) error {
	reader := http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(out)
	if err == nil {
		return requestAlive(c.Request.Context())
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
}

func requestAlive(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
