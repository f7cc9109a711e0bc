package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apprec "github.com/dropsight/dropsight/internal/application/recommendation"
)

// RecommendationHandler serves the complementary, upsell, bundle, and cart
// endpoints.
type RecommendationHandler struct {
	svc *apprec.Service
}

// NewRecommendationHandler builds the handler.
func NewRecommendationHandler(svc *apprec.Service) *RecommendationHandler {
	return &RecommendationHandler{svc: svc}
}

// Register mounts the recommendation routes.
func (h *RecommendationHandler) Register(r gin.IRouter) {
	r.POST("/complementary/:product_id", h.complementary)
	r.POST("/upsell/:product_id", h.upsell)
	r.POST("/bundles", h.bundles)
	r.POST("/cart/analyze", h.analyzeCart)
}

// QueryOptions is the optional body shared by the per-product endpoints.
type QueryOptions struct {
	MaxResults   int  `json:"max_results"`
	ForceRefresh bool `json:"force_refresh"`
}

// bindOptional decodes the body into dest when one is present.  An empty
// body leaves dest at its zero value, so the per-product endpoints work
// with a bare POST.
func bindOptional(c *gin.Context, dest interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dest); err != nil {
		respondValidation(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *RecommendationHandler) complementary(c *gin.Context) {
	var opts QueryOptions
	if !bindOptional(c, &opts) {
		return
	}

	productID := c.Param("product_id")
	results, err := h.svc.Complementary(c.Request.Context(), productID, opts.MaxResults, opts.ForceRefresh)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id":    productID,
		"complementary": results,
	})
}

func (h *RecommendationHandler) upsell(c *gin.Context) {
	var opts QueryOptions
	if !bindOptional(c, &opts) {
		return
	}

	productID := c.Param("product_id")
	results, err := h.svc.Upsell(c.Request.Context(), productID, opts.MaxResults, opts.ForceRefresh)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id": productID,
		"upsells":    results,
	})
}

// BundleRequest is the body of POST /bundles.
type BundleRequest struct {
	Products     []string `json:"products"`
	MaxBundles   int      `json:"max_bundles"`
	ForceRefresh bool     `json:"force_refresh"`
}

func (h *RecommendationHandler) bundles(c *gin.Context) {
	var req BundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid bundle request: "+err.Error())
		return
	}

	results, err := h.svc.Bundles(c.Request.Context(), req.Products, req.MaxBundles, req.ForceRefresh)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bundles": results})
}

// CartRequest is the body of POST /cart/analyze.
type CartRequest struct {
	Products     []string `json:"products"`
	ForceRefresh bool     `json:"force_refresh"`
}

func (h *RecommendationHandler) analyzeCart(c *gin.Context) {
	var req CartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid cart request: "+err.Error())
		return
	}

	analysis, err := h.svc.AnalyzeCart(c.Request.Context(), req.Products, req.ForceRefresh)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}
