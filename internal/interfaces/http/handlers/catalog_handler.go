package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"finstack-p2p.backend/internal/config"
	"finstack-p2p.backend/internal/interfaces/http/response"
)

// CatalogHandler serves the reference catalog
type CatalogHandler struct {
	catalog *config.Catalog
}

func NewCatalogHandler(catalog *config.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// GetCatalog returns supported currencies, payment methods and countries
// GET /api/p2p/catalog
func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	response.Success(c, http.StatusOK, h.catalog)
}
