package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"finstack-p2p.backend/internal/domain/entities"
	"finstack-p2p.backend/internal/interfaces/http/middleware"
	"finstack-p2p.backend/internal/interfaces/http/response"
	"finstack-p2p.backend/internal/usecases"
)

// AdHandler handles merchant ad management
type AdHandler struct {
	ads *usecases.AdUsecase
}

// NewAdHandler creates a new ad handler
func NewAdHandler(ads *usecases.AdUsecase) *AdHandler {
	return &AdHandler{ads: ads}
}

// ListMyAds lists the caller's ads
// GET /api/p2p/ads
func (h *AdHandler) ListMyAds(c *gin.Context) {
	ads, err := h.ads.ListMyAds(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, ads)
}

// CreateAd publishes a new ad owned by the caller
// POST /api/p2p/ads
func (h *AdHandler) CreateAd(c *gin.Context) {
	var input entities.AdInput
	if !bindJSON(c, &input) {
		return
	}

	ad, err := h.ads.CreateAd(c.Request.Context(), middleware.GetUserID(c), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, ad)
}

// GetAd returns one ad
// GET /api/p2p/ads/:id
func (h *AdHandler) GetAd(c *gin.Context) {
	ad, err := h.ads.GetAd(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, ad)
}

// UpdateAd replaces every editable field of an ad
// PUT /api/p2p/ads/:id
func (h *AdHandler) UpdateAd(c *gin.Context) {
	var input entities.AdInput
	if !bindJSON(c, &input) {
		return
	}

	ad, err := h.ads.UpdateAd(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, ad)
}

// DeleteAd removes an ad; deleting a missing ad succeeds
// DELETE /api/p2p/ads/:id
func (h *AdHandler) DeleteAd(c *gin.Context) {
	if err := h.ads.DeleteAd(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": c.Param("id"), "deleted": true})
}

// ToggleAd flips an ad between active and inactive
// POST /api/p2p/ads/:id/toggle
func (h *AdHandler) ToggleAd(c *gin.Context) {
	ad, err := h.ads.ToggleAd(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, ad)
}

type bulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Active *bool    `json:"active" binding:"required"`
}

// BulkSetActive activates or deactivates the listed ads
// POST /api/p2p/ads/bulk-status
func (h *AdHandler) BulkSetActive(c *gin.Context) {
	var req bulkStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.ads.BulkSetActive(c.Request.Context(), middleware.GetUserID(c), req.IDs, *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
