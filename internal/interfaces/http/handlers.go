package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/returndesk/return-workflow/internal/application/dispatcher"
	"github.com/returndesk/return-workflow/internal/application/engine"
	"github.com/returndesk/return-workflow/internal/application/port"
	"github.com/returndesk/return-workflow/internal/domain/workflow"
)

// userIDHeader carries the acting user's identity. Authentication is
// delegated to the caller.
const userIDHeader = "X-User-ID"

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine      engine.Engine
	dispatcher  dispatcher.Dispatcher
	requestRepo port.RequestRepository
	logger      Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	eng engine.Engine,
	disp dispatcher.Dispatcher,
	requestRepo port.RequestRepository,
	logger Logger,
) *Handlers {
	return &Handlers{
		engine:      eng,
		dispatcher:  disp,
		requestRepo: requestRepo,
		logger:      logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// PermittedActionsResponse lists the actions a request may execute
type PermittedActionsResponse struct {
	RequestID int64    `json:"request_id"`
	Status    string   `json:"status"`
	Actions   []string `json:"actions"`
}

// ExecuteActionRequest is the body for POST /api/requests/:id/actions
type ExecuteActionRequest struct {
	Action   string `json:"action" binding:"required"`
	Remarks  string `json:"remarks"`
	ActionBy *int64 `json:"action_by"`
}

// ApplyTemplateRequest is the body for POST /api/requests/:id/template
type ApplyTemplateRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
}

// RejectRequest is the body for POST /api/requests/:id/reject
type RejectRequest struct {
	Reason string `json:"reason"`
}

// RunToCompletionRequest is the body for POST /api/requests/:id/complete-all
type RunToCompletionRequest struct {
	TemplateID string `json:"template_id"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// ListSteps handles GET /api/requests/:id/steps
func (h *Handlers) ListSteps(c *gin.Context) {
	requestID, ok := h.requestID(c)
	if !ok {
		return
	}

	steps, err := h.engine.ListSteps(c.Request.Context(), requestID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    steps,
	})
}

// PermittedActions handles GET /api/requests/:id/actions
func (h *Handlers) PermittedActions(c *gin.Context) {
	requestID, ok := h.requestID(c)
	if !ok {
		return
	}

	req, err := h.requestRepo.GetByID(c.Request.Context(), requestID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if req == nil {
		h.respondError(c, workflow.ErrNotFound)
		return
	}

	actions := h.dispatcher.Permitted(workflow.State(req.Status))
	tokens := make([]string, 0, len(actions))
	for _, action := range actions {
		tokens = append(tokens, string(action))
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: PermittedActionsResponse{
			RequestID: requestID,
			Status:    req.Status,
			Actions:   tokens,
		},
	})
}

// ExecuteAction handles POST /api/requests/:id/actions
func (h *Handlers) ExecuteAction(c *gin.Context) {
	requestID, ok := h.requestID(c)
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var body ExecuteActionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("Invalid action payload", "request_id", requestID, "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	action, _, err := h.dispatcher.Resolve(body.Action)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.engine.ExecuteAction(c.Request.Context(), requestID, action, body.Remarks, body.ActionBy, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// ApplyTemplate handles POST /api/requests/:id/template
func (h *Handlers) ApplyTemplate(c *gin.Context) {
	requestID, ok := h.requestID(c)
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var body ApplyTemplateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("Invalid template payload", "request_id", requestID, "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	steps, err := h.engine.ApplyTemplate(c.Request.Context(), requestID, body.TemplateID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    steps,
	})
}

// Reject handles POST /api/requests/:id/reject
func (h *Handlers) Reject(c *gin.Context) {
	requestID, ok := h.requestID(c)
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var body RejectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("Invalid reject payload", "request_id", requestID, "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	result, err := h.engine.Reject(c.Request.Context(), requestID, userID, body.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// RunToCompletion handles POST /api/requests/:id/complete-all
func (h *Handlers) RunToCompletion(c *gin.Context) {
	requestID, ok := h.requestID(c)
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	// Body is optional; an absent template id falls back to the default
	var body RunToCompletionRequest
	_ = c.ShouldBindJSON(&body)

	steps, err := h.engine.RunToCompletion(c.Request.Context(), requestID, userID, body.TemplateID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    steps,
	})
}

// AdvanceNext handles POST /api/requests/:id/advance
func (h *Handlers) AdvanceNext(c *gin.Context) {
	requestID, ok := h.requestID(c)
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	step, err := h.engine.AdvanceNext(c.Request.Context(), requestID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    step,
	})
}

// CreateInitialWorkflow handles POST /api/requests/:id/workflow
func (h *Handlers) CreateInitialWorkflow(c *gin.Context) {
	requestID, ok := h.requestID(c)
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	steps, err := h.engine.CreateInitialWorkflow(c.Request.Context(), requestID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    steps,
	})
}

// requestID parses the :id path parameter, writing a 400 response on failure
func (h *Handlers) requestID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Error("Invalid request ID", "id", idStr)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request ID",
		})
		return 0, false
	}
	return id, true
}

// userID parses the acting user header, writing a 400 response on failure
func (h *Handlers) userID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader(userIDHeader)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Error("Missing or invalid user header", "value", raw)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "missing or invalid " + userIDHeader + " header",
		})
		return 0, false
	}
	return id, true
}

// respondError maps workflow errors to HTTP status codes. The error
// message travels verbatim so callers can see which invariant failed.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidState),
		errors.Is(err, workflow.ErrInvalidAction),
		errors.Is(err, workflow.ErrInvalidTemplate),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrValidation):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}

	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
	})
}
