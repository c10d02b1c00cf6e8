package httpserver

import (
	"net/http"

	productrepo "storefront/internal/repository/product"
	"storefront/internal/service/catalog"

	"github.com/gin-gonic/gin"
)

type productListResponse struct {
	Count   int                     `json:"count"`
	Results []catalog.ProductDetail `json:"results"`
}

func (h *handlers) listCategories(c *gin.Context) {
	cats, err := h.deps.CatalogSvc.ListCategories(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(cats), "results": cats})
}

func (h *handlers) listProducts(c *gin.Context) {
	products, err := h.deps.CatalogSvc.ListProducts(c.Request.Context(), productrepo.Filter{
		Category: c.Query("category"),
		Query:    c.Query("q"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, productListResponse{Count: len(products), Results: products})
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.deps.CatalogSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
