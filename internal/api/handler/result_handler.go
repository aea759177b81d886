package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/api/domain"
	"github.com/cuongbtq/signup-harvester/internal/api/dto"
	"github.com/cuongbtq/signup-harvester/internal/api/model"
	"github.com/cuongbtq/signup-harvester/internal/api/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// GetResult handles GET /api/v1/results/:id
func (h *ResultHandler) GetResult(c *gin.Context) {
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "id must be a valid UUID",
		})
		return
	}

	result, err := h.results.GetResultByID(c.Request.Context(), id)
	if errors.Is(err, domain.ErrResultNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Result not found",
		})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get result", slog.String("id", id), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get result",
		})
		return
	}

	c.JSON(http.StatusOK, toDTO(result))
}

// ListResults handles GET /api/v1/results
// Lists results newest first with optional filtering and cursor pagination
func (h *ResultHandler) ListResults(c *gin.Context) {
	var req dto.ListResultsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.Status != "" && !domain.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be verified or failed",
		})
		return
	}

	if req.RunID != "" {
		if _, err := uuid.Parse(req.RunID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "run_id must be a valid UUID",
			})
			return
		}
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeResultCursor(req.Cursor)
	if err != nil {
		h.logger.Debug("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	rows, err := h.results.ListResults(c.Request.Context(), storage.ResultFilter{
		Status:   req.Status,
		RunID:    req.RunID,
		Email:    req.Address,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list results", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list results",
		})
		return
	}

	hasMore := len(rows) > req.PageSize
	if hasMore {
		rows = rows[:req.PageSize]
	}

	resp := dto.ListResultsResponse{
		Results: make([]dto.ResultDTO, len(rows)),
	}
	for i := range rows {
		resp.Results[i] = toDTO(&rows[i])
	}

	if hasMore {
		last := rows[len(rows)-1]
		resp.NextCursor = EncodeResultCursor(&storage.ResultCursor{
			RecordedAt: last.RecordedAt,
			ID:         last.ID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// Summary handles GET /api/v1/results/summary
func (h *ResultHandler) Summary(c *gin.Context) {
	var req dto.SummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.RunID != "" {
		if _, err := uuid.Parse(req.RunID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "run_id must be a valid UUID",
			})
			return
		}
	}

	counts, err := h.results.CountByStatus(c.Request.Context(), req.RunID)
	if err != nil {
		h.logger.Error("Failed to count results", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to summarize results",
		})
		return
	}

	resp := dto.SummaryResponse{
		RunID:    req.RunID,
		ByStatus: map[string]int64{},
	}
	for _, sc := range counts {
		resp.ByStatus[sc.Status] = sc.Count
		resp.Total += sc.Count
	}

	c.JSON(http.StatusOK, resp)
}

func toDTO(r *model.Result) dto.ResultDTO {
	return dto.ResultDTO{
		ID:         r.ID,
		RunID:      r.RunID,
		Email:      r.Email,
		Code:       r.Code,
		Status:     r.Status,
		Attempts:   r.Attempts,
		RecordedAt: r.RecordedAt.UTC().Format(time.RFC3339),
	}
}
