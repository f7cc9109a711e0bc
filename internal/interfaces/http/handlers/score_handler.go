package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appscoring "github.com/dropsight/dropsight/internal/application/scoring"
	"github.com/dropsight/dropsight/internal/domain/product"
)

// maxBatchSize caps one batch request; larger catalogs go through the
// worker or repeated calls.
const maxBatchSize = 100

// ScoreHandler serves the product scoring endpoints.
type ScoreHandler struct {
	svc     *appscoring.Service
	sources product.DataSourceBundle
}

// NewScoreHandler builds the handler.  The data-source bundle may be the
// zero value; scorers then fall back to the attributes on each record.
func NewScoreHandler(svc *appscoring.Service, sources product.DataSourceBundle) *ScoreHandler {
	return &ScoreHandler{svc: svc, sources: sources}
}

// Register mounts the scoring routes.
func (h *ScoreHandler) Register(r gin.IRouter) {
	r.POST("/score", h.score)
	r.POST("/score/batch", h.scoreBatch)
}

func (h *ScoreHandler) score(c *gin.Context) {
	var req appscoring.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid score request: "+err.Error())
		return
	}

	result, err := h.svc.ScoreProduct(c.Request.Context(), req, h.sources)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// BatchScoreRequest is the body of POST /score/batch.
type BatchScoreRequest struct {
	Products []appscoring.Request `json:"products"`
}

// BatchScoreResponse reports per-item outcomes; one bad product never
// aborts the rest.
type BatchScoreResponse struct {
	Items  []appscoring.BatchItem `json:"items"`
	Failed int                    `json:"failed"`
}

func (h *ScoreHandler) scoreBatch(c *gin.Context) {
	var req BatchScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid batch request: "+err.Error())
		return
	}
	if len(req.Products) == 0 {
		respondValidation(c, "batch requires at least one product")
		return
	}
	if len(req.Products) > maxBatchSize {
		respondValidation(c, "batch exceeds maximum size")
		return
	}

	items := h.svc.ScoreBatch(c.Request.Context(), req.Products, h.sources)
	failed := 0
	for _, it := range items {
		if it.Error != "" {
			failed++
		}
	}
	c.JSON(http.StatusOK, BatchScoreResponse{Items: items, Failed: failed})
}
