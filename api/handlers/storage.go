package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailvault/mailvault/interfaces"
	"github.com/mailvault/mailvault/internal/models"
	"github.com/mailvault/mailvault/internal/tracing"
	"github.com/mailvault/mailvault/services"
	"github.com/mailvault/mailvault/services/breakdown"
)

type StorageHandler struct {
	quotaMonitor     interfaces.QuotaMonitorService
	storageBreakdown interfaces.StorageBreakdownService
	cleanupService   interfaces.CleanupService
}

func NewStorageHandler(s *services.Services) *StorageHandler {
	return &StorageHandler{
		quotaMonitor:     s.QuotaMonitor,
		storageBreakdown: s.StorageBreakdown,
		cleanupService:   s.Cleanup,
	}
}

type CleanupRequest struct {
	AccountIDs    []string `json:"accountIds"`
	OlderThanDays *int     `json:"olderThanDays"`
	MinSizeBytes  *int64   `json:"minSizeBytes"`
}

type CleanupResponse struct {
	Result *models.CleanupResult `json:"result"`
}

type EstimateResponse struct {
	Estimate       *models.ReductionEstimate `json:"estimate"`
	FormattedBytes string                    `json:"formattedBytes"`
}

func (r CleanupRequest) criteria() models.CleanupCriteria {
	return models.CleanupCriteria{
		AccountIDs:    r.AccountIDs,
		OlderThanDays: r.OlderThanDays,
		MinSizeBytes:  r.MinSizeBytes,
	}
}

// CheckQuota runs an on-demand quota check and returns the fresh state
func (h *StorageHandler) CheckQuota() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "StorageHandler.CheckQuota")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		state, err := h.quotaMonitor.CheckStorageQuota(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"state": state})
	}
}

// GetBreakdown returns the combined storage breakdown with totals
func (h *StorageHandler) GetBreakdown() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "StorageHandler.GetBreakdown")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		result, err := h.storageBreakdown.GetStorageBreakdown(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// EstimateCleanup previews a cleanup without removing anything
func (h *StorageHandler) EstimateCleanup() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "StorageHandler.EstimateCleanup")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		req, err := h.getCleanupRequestPayload(c)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		estimate, err := h.storageBreakdown.EstimateStorageReduction(ctx, req.criteria())
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, EstimateResponse{
			Estimate:       estimate,
			FormattedBytes: breakdown.FormatBytes(estimate.EstimatedSize),
		})
	}
}

// ExecuteCleanup removes every email matching the request criteria
func (h *StorageHandler) ExecuteCleanup() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "StorageHandler.ExecuteCleanup")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		req, err := h.getCleanupRequestPayload(c)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// An empty request would match the whole store; the API refuses
		// that, unlike the service layer.
		if len(req.AccountIDs) == 0 && req.OlderThanDays == nil && req.MinSizeBytes == nil {
			message := "at least one cleanup criterion is required"
			tracing.TraceErr(span, errors.New(message))
			c.JSON(http.StatusBadRequest, gin.H{"error": message})
			return
		}

		result, err := h.cleanupService.ExecuteCleanup(ctx, req.criteria(), nil)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, CleanupResponse{Result: result})
	}
}

func (h *StorageHandler) getCleanupRequestPayload(c *gin.Context) (CleanupRequest, error) {
	span, _ := opentracing.StartSpanFromContext(c.Request.Context(), "StorageHandler.getCleanupRequestPayload")
	defer span.Finish()

	var req CleanupRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		tracing.TraceErr(span, err)
		return req, err
	}

	return req, nil
}
