package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"finstack-p2p.backend/internal/interfaces/http/middleware"
	"finstack-p2p.backend/internal/interfaces/http/response"
	"finstack-p2p.backend/internal/usecases"
)

// ReleaseHandler handles the merchant's OTP-gated crypto release
type ReleaseHandler struct {
	release *usecases.ReleaseUsecase
}

func NewReleaseHandler(release *usecases.ReleaseUsecase) *ReleaseHandler {
	return &ReleaseHandler{release: release}
}

// InitiateRelease sends the merchant a one-time code
// POST /api/p2p/orders/:id/initiate-release
func (h *ReleaseHandler) InitiateRelease(c *gin.Context) {
	challenge, err := h.release.InitiateRelease(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetToken(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, challenge)
}

type confirmReleaseRequest struct {
	OTP  string `json:"otp"`
	Code string `json:"code"`
}

// ConfirmRelease verifies the code and completes the order
// POST /api/p2p/orders/:id/confirm-release
func (h *ReleaseHandler) ConfirmRelease(c *gin.Context) {
	var req confirmReleaseRequest
	if !bindJSON(c, &req) {
		return
	}
	code := strings.TrimSpace(req.OTP)
	if code == "" {
		code = strings.TrimSpace(req.Code)
	}

	order, err := h.release.ConfirmRelease(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetToken(c), c.Param("id"), code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}
