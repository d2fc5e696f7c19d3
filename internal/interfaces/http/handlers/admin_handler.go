package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/volatiletech/null/v8"

	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/interfaces/http/middleware"
	"finstack-p2p.backend/internal/interfaces/http/response"
	"finstack-p2p.backend/internal/usecases"
)

// AdminLoginPath is where a rejected admin session is sent
const AdminLoginPath = "/admin/login"

const dateOnly = "2006-01-02"

// AdminHandler serves the admin back-office views and proxies the rest of
// /api/admin to the backend
type AdminHandler struct {
	admin *usecases.AdminUsecase
	proxy *ProxyHandler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin *usecases.AdminUsecase, proxy *ProxyHandler) *AdminHandler {
	return &AdminHandler{admin: admin, proxy: proxy}
}

// Admin dispatches the admin routes
// ANY /api/admin/*path
func (h *AdminHandler) Admin(c *gin.Context) {
	path := c.Param("path")
	if c.Request.Method == http.MethodGet {
		switch strings.TrimRight(path, "/") {
		case "/disputes":
			h.ListDisputes(c)
			return
		case "/merchants":
			h.ListMerchants(c)
			return
		case "/kyc":
			h.ListKYC(c)
			return
		case "/transactions":
			h.ListTransactions(c)
			return
		case "/ledger":
			h.ListLedger(c)
			return
		}
	}
	h.proxy.Forward(c, "/admin"+path)
}

// ListDisputes lists disputes with stats
// GET /api/admin/disputes?search=&status=&from=&to=&page=&limit=
func (h *AdminHandler) ListDisputes(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	page, err := h.admin.ListDisputes(c.Request.Context(), middleware.GetToken(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, page, page.Meta)
}

// ListMerchants lists merchants with stats
// GET /api/admin/merchants?search=&status=&verified=
func (h *AdminHandler) ListMerchants(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	page, err := h.admin.ListMerchants(c.Request.Context(), middleware.GetToken(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, page, page.Meta)
}

// ListKYC lists KYC submissions with stats
// GET /api/admin/kyc?search=&status=&country=&from=&to=
func (h *AdminHandler) ListKYC(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	page, err := h.admin.ListKYC(c.Request.Context(), middleware.GetToken(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, page, page.Meta)
}

// ListTransactions lists transactions with stats
// GET /api/admin/transactions?search=&type=&status=&from=&to=
func (h *AdminHandler) ListTransactions(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	page, err := h.admin.ListTransactions(c.Request.Context(), middleware.GetToken(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, page, page.Meta)
}

// ListLedger lists ledger entries
// GET /api/admin/ledger
func (h *AdminHandler) ListLedger(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	page, err := h.admin.ListLedger(c.Request.Context(), middleware.GetToken(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, page, page.Meta)
}

// fail sends backend 401s to the admin login without any partial data
func (h *AdminHandler) fail(c *gin.Context, err error) {
	if appErr, ok := domainerrors.As(err); ok && appErr.Status == http.StatusUnauthorized {
		middleware.ClearSessionCookies(c)
		response.ErrorWithRedirect(c, http.StatusUnauthorized, appErr.Message, AdminLoginPath)
		return
	}
	response.Error(c, err)
}

func (h *AdminHandler) filter(c *gin.Context) (usecases.AdminFilter, bool) {
	f, err := parseAdminFilter(c)
	if err != nil {
		response.Error(c, err)
		return f, false
	}
	return f, true
}

func parseAdminFilter(c *gin.Context) (usecases.AdminFilter, error) {
	f := usecases.AdminFilter{
		Search:  strings.TrimSpace(c.DefaultQuery("search", c.Query("q"))),
		Status:  strings.TrimSpace(c.Query("status")),
		Type:    strings.TrimSpace(c.Query("type")),
		Country: strings.TrimSpace(c.Query("country")),
		Page:    queryInt(c, "page", 1),
		Limit:   queryInt(c, "limit", 0),
	}

	verified, err := queryBool(c, "verified")
	if err != nil {
		return f, err
	}
	f.Verified = verified

	if f.From, err = parseDate(c.Query("from"), false); err != nil {
		return f, domainerrors.BadRequest("invalid from date")
	}
	if f.To, err = parseDate(c.Query("to"), true); err != nil {
		return f, domainerrors.BadRequest("invalid to date")
	}
	return f, nil
}

// parseDate accepts RFC3339 or YYYY-MM-DD. A date-only upper bound covers the
// whole day.
func parseDate(raw string, endOfDay bool) (null.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return null.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return null.TimeFrom(t), nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return null.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return null.TimeFrom(t), nil
}
