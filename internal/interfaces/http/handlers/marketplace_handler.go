package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/interfaces/http/response"
	"finstack-p2p.backend/internal/usecases"
)

// MarketplaceHandler handles the public ad listing
type MarketplaceHandler struct {
	marketplace *usecases.MarketplaceUsecase
}

func NewMarketplaceHandler(marketplace *usecases.MarketplaceUsecase) *MarketplaceHandler {
	return &MarketplaceHandler{marketplace: marketplace}
}

// Search lists active ads matching the query
// GET /api/p2p/marketplace?side=buy&crypto=USDT&fiat=NGN&paymentMethod=&country=&verified=&minPrice=&maxPrice=&sort=price|rating
func (h *MarketplaceHandler) Search(c *gin.Context) {
	f, err := parseMarketplaceFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	listings, err := h.marketplace.Search(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, listings, gin.H{"total": len(listings)})
}

func parseMarketplaceFilter(c *gin.Context) (usecases.MarketplaceFilter, error) {
	f := usecases.MarketplaceFilter{
		Crypto:        strings.TrimSpace(c.Query("crypto")),
		Fiat:          strings.TrimSpace(c.Query("fiat")),
		PaymentMethod: strings.TrimSpace(c.Query("paymentMethod")),
		Country:       strings.TrimSpace(c.Query("country")),
	}

	if side := strings.ToLower(strings.TrimSpace(c.Query("side"))); side != "" {
		f.Side = entities.AdType(side)
		if !f.Side.Valid() {
			return f, domainerrors.BadRequest("side must be buy or sell")
		}
	}

	switch sort := strings.ToLower(strings.TrimSpace(c.Query("sort"))); sort {
	case "", usecases.SortByPrice, usecases.SortByRating:
		f.Sort = sort
	default:
		return f, domainerrors.BadRequest("sort must be price or rating")
	}

	verified, err := queryBool(c, "verified")
	if err != nil {
		return f, err
	}
	f.VerifiedOnly = verified != nil && *verified

	if f.MinPrice, err = queryDecimal(c, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryDecimal(c, "maxPrice"); err != nil {
		return f, err
	}
	return f, nil
}
