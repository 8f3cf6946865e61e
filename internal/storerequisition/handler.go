package storerequisition

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"procureflow/back-office/back-office-backend/internal/auth"
	"procureflow/back-office/back-office-backend/internal/workflow"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	srs := rg.Group("/store-requisitions")
	{
		srs.POST("", h.Create)
		srs.GET("", h.List)
		srs.GET("/:id", h.Get)
		srs.POST("/:id/submit", h.Submit)
		srs.POST("/:id/approve", h.Approve)
		srs.POST("/:id/reject", h.Reject)
		srs.POST("/:id/review", h.Review)
	}
}

func (h *Handler) Create(c *gin.Context) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sr, err := h.service.CreateDraft(c.Request.Context(), req, requestor(user))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sr)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	sr, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sr)
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	srs, total, err := h.service.List(c.Request.Context(), ListFilter{
		DocStatus:    c.Query("doc_status"),
		RequestorID:  c.Query("requestor_id"),
		DepartmentID: c.Query("department_id"),
		StoreID:      c.Query("store_id"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": srs, "total": total})
}

func (h *Handler) Submit(c *gin.Context) {
	h.transition(c, h.service.Submit)
}

func (h *Handler) Approve(c *gin.Context) {
	h.transition(c, h.service.Approve)
}

func (h *Handler) Reject(c *gin.Context) {
	h.transition(c, h.service.Reject)
}

func (h *Handler) Review(c *gin.Context) {
	h.transition(c, h.service.Review)
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID, in TransitionInput, by Requestor) (*StoreRequisition, error)) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var in TransitionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sr, err := fn(c.Request.Context(), id, in, requestor(user))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sr)
}

func requestor(user auth.CurrentUser) Requestor {
	return Requestor{ID: user.ID, Name: user.Name, DepartmentID: user.DepartmentID}
}

func respondError(c *gin.Context, err error) {
	var valErr *workflow.ValidationError
	var confErr *workflow.ConfigurationError
	var depErr *workflow.DependencyError

	switch {
	case errors.Is(err, workflow.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "store requisition not found"})
	case errors.Is(err, workflow.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "document was modified by another user, reload and retry"})
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Reason})
	case errors.As(err, &confErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": confErr.Error()})
	case errors.As(err, &depErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": depErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
