package purchaserequest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

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
	prs := rg.Group("/purchase-requests")
	{
		prs.POST("", h.Create)
		prs.GET("", h.List)
		prs.GET("/export", h.Export)
		prs.GET("/:id", h.Get)
		prs.PUT("/:id", h.Update)
		prs.GET("/:id/print", h.Print)
		prs.POST("/:id/submit", h.Submit)
		prs.POST("/:id/approve", h.Approve)
		prs.POST("/:id/reject", h.Reject)
		prs.POST("/:id/review", h.Review)
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

	pr, err := h.service.CreateDraft(c.Request.Context(), req, requestor(user))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pr)
}

func (h *Handler) Update(c *gin.Context) {
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

	var req UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pr, err := h.service.UpdateDraft(c.Request.Context(), id, req, requestor(user))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	pr, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

func (h *Handler) List(c *gin.Context) {
	filter := listFilterFromQuery(c)
	prs, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": prs, "total": total})
}

func (h *Handler) Export(c *gin.Context) {
	filter := listFilterFromQuery(c)
	filter.Limit = 100
	prs, _, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("purchase-requests-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := WriteExcel(c.Writer, prs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) Print(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	pr, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", pr.PRNo))
	c.Header("Content-Type", "application/pdf")
	if err := WritePrintForm(c.Writer, pr); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
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

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID, in TransitionInput, by Requestor) (*PurchaseRequest, error)) {
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

	pr, err := fn(c.Request.Context(), id, in, requestor(user))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

func listFilterFromQuery(c *gin.Context) ListFilter {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return ListFilter{
		DocStatus:    c.Query("doc_status"),
		RequestorID:  c.Query("requestor_id"),
		DepartmentID: c.Query("department_id"),
		CurrentStage: c.Query("current_stage"),
		Limit:        limit,
		Offset:       offset,
	}
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
		c.JSON(http.StatusNotFound, gin.H{"error": "purchase request not found"})
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
