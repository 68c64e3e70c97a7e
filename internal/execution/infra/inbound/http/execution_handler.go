package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/davicafu/tallerlab/internal/execution/application"
	"github.com/davicafu/tallerlab/internal/execution/domain"
	"github.com/davicafu/tallerlab/internal/shared/infra/pagination"
)

// ExecutionHandler encapsula los endpoints HTTP relacionados con Execution
type ExecutionHandler struct {
	service *application.ExecutionService
}

func NewExecutionHandler(service *application.ExecutionService) *ExecutionHandler {
	return &ExecutionHandler{service: service}
}

// ---------------- Handlers ----------------

// CreateExecution endpoint POST /executions
func (h *ExecutionHandler) CreateExecution(c *gin.Context) {
	var req struct {
		ServiceOrderID int64  `json:"serviceOrderId" binding:"required"`
		MechanicID     int64  `json:"mechanicId"`
		Notes          string `json:"notes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	execution, err := h.service.Create(c.Request.Context(), domain.CreateExecutionInput{
		ServiceOrderID: req.ServiceOrderID,
		MechanicID:     req.MechanicID,
		Notes:          req.Notes,
	})
	if err != nil {
		if errors.Is(err, domain.ErrExecutionAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "execution already exists for service order"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, execution)
}

// GetExecution endpoint GET /executions/:id
func (h *ExecutionHandler) GetExecution(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid execution id"})
		return
	}

	execution, err := h.service.FindByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, execution)
}

// GetByServiceOrder endpoint GET /executions/service-order/:serviceOrderId
func (h *ExecutionHandler) GetByServiceOrder(c *gin.Context) {
	serviceOrderID, err := strconv.ParseInt(c.Param("serviceOrderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service order id"})
		return
	}

	execution, err := h.service.FindByServiceOrderID(c.Request.Context(), serviceOrderID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, execution)
}

// ListExecutions endpoint GET /executions?limit=&offset=
func (h *ExecutionHandler) ListExecutions(c *gin.Context) {
	executions, err := h.service.FindAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	page := pagination.FromQuery(c.Query("limit"), c.Query("offset"))
	c.JSON(http.StatusOK, pagination.Page(executions, page))
}

// StartExecution endpoint POST /executions/:id/start
func (h *ExecutionHandler) StartExecution(c *gin.Context) {
	h.transition(c, h.service.Start)
}

// FinishExecution endpoint POST /executions/:id/finish
func (h *ExecutionHandler) FinishExecution(c *gin.Context) {
	h.transition(c, h.service.Finish)
}

// DeliverExecution endpoint POST /executions/:id/deliver
func (h *ExecutionHandler) DeliverExecution(c *gin.Context) {
	h.transition(c, h.service.Deliver)
}

// GetExecutionTime endpoint GET /executions/:id/time
func (h *ExecutionHandler) GetExecutionTime(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid execution id"})
		return
	}

	result, err := h.service.GetExecutionTime(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAverageExecutionTime endpoint GET /executions/time/average
func (h *ExecutionHandler) GetAverageExecutionTime(c *gin.Context) {
	// Con ?start y ?end el agregado se resuelve contra el histórico analítico;
	// sin rango se calcula sobre las ejecuciones terminadas del repositorio.
	startStr, endStr := c.Query("start"), c.Query("end")
	if startStr != "" || endStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start, use RFC3339"})
			return
		}
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end, use RFC3339"})
			return
		}

		avg, err := h.service.AverageExecutionTimeRange(c.Request.Context(), start, end)
		if err != nil {
			if errors.Is(err, domain.ErrAnalyticsUnavailable) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analytics backend not configured"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"averageMs": avg.Milliseconds()})
		return
	}

	result, err := h.service.GetAverageExecutionTime(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ---------------- Helpers ----------------

func (h *ExecutionHandler) transition(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*domain.Execution, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid execution id"})
		return
	}

	execution, err := op(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, execution)
}

func (h *ExecutionHandler) writeError(c *gin.Context, err error) {
	var invalid *domain.InvalidTransitionError
	switch {
	case errors.Is(err, domain.ErrExecutionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "execution not found"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
