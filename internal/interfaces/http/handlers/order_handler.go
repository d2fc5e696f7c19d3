package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/interfaces/http/middleware"
	"finstack-p2p.backend/internal/interfaces/http/response"
	"finstack-p2p.backend/internal/usecases"
)

// OrderHandler handles the order lifecycle
type OrderHandler struct {
	orders *usecases.OrderUsecase
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *usecases.OrderUsecase) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder opens an order against an ad
// POST /api/p2p/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var input entities.CreateOrderInput
	if !bindJSON(c, &input) {
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), middleware.GetUserID(c), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, order)
}

// ListOrders lists the caller's orders
// GET /api/p2p/orders?role=buyer|merchant&status=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	role := entities.OrderRole(strings.ToLower(strings.TrimSpace(c.Query("role"))))
	switch role {
	case entities.OrderRoleAny, entities.OrderRoleBuyer, entities.OrderRoleMerchant:
	default:
		response.Error(c, domainerrors.BadRequest("role must be buyer or merchant"))
		return
	}

	var status entities.OrderStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" && !strings.EqualFold(raw, "all") {
		st, err := entities.ParseOrderStatus(raw)
		if err != nil {
			response.Error(c, domainerrors.BadRequest(err.Error()))
			return
		}
		status = st
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), middleware.GetUserID(c), role, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, orders)
}

// GetOrder returns an order the caller participates in
// GET /api/p2p/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}

type markPaidRequest struct {
	PaymentProof string `json:"paymentProof"`
}

// MarkPaid records the buyer's payment
// POST /api/p2p/orders/:id/mark-paid
func (h *OrderHandler) MarkPaid(c *gin.Context) {
	var req markPaidRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.MarkPaid(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.PaymentProof)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder cancels a pending order
// POST /api/p2p/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req reasonRequest
	// the reason is optional, so an empty body is fine
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}

// DisputeOrder raises a dispute on a paid order
// POST /api/p2p/orders/:id/dispute
func (h *OrderHandler) DisputeOrder(c *gin.Context) {
	var req reasonRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.DisputeOrder(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}

type rateRequest struct {
	Rating int `json:"rating"`
}

// RateOrder stores the buyer's rating of a completed order
// POST /api/p2p/orders/:id/rate
func (h *OrderHandler) RateOrder(c *gin.Context) {
	var req rateRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.RateOrder(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Rating)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}
