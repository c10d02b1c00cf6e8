package httpserver

import (
	"bytes"
	"net/http"

	"storefront/internal/service/catalog"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type addItemRequest struct {
	ProductID string  `json:"productId" binding:"required"`
	Size      *string `json:"size"`
	Quantity  int     `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type checkoutResponse struct {
	OK          bool                  `json:"ok"`
	Total       decimal.Decimal       `json:"total"`
	Count       int                   `json:"count"`
	Unavailable []catalog.Unavailable `json:"unavailable"`
}

func (h *handlers) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, currentSession(c).Panel.View())
}

func (h *handlers) drawer(c *gin.Context) {
	var buf bytes.Buffer
	if err := currentSession(c).Panel.Render(&buf); err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *handlers) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	ctx := c.Request.Context()
	line, err := h.deps.CatalogSvc.CartLine(ctx, req.ProductID, req.Size, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	s := currentSession(c)
	if err := s.Panel.Add(ctx, line); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Panel.View())
}

func (h *handlers) setQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := currentSession(c)
	if err := s.Engine.SetQuantity(c.Request.Context(), c.Param("key"), *req.Quantity); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Panel.View())
}

func (h *handlers) increment(c *gin.Context) {
	s := currentSession(c)
	if err := s.Panel.Increment(c.Request.Context(), c.Param("key")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Panel.View())
}

func (h *handlers) decrement(c *gin.Context) {
	s := currentSession(c)
	if err := s.Panel.Decrement(c.Request.Context(), c.Param("key")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Panel.View())
}

func (h *handlers) removeItem(c *gin.Context) {
	s := currentSession(c)
	if err := s.Panel.Remove(c.Request.Context(), c.Param("key")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Panel.View())
}

func (h *handlers) clearCart(c *gin.Context) {
	s := currentSession(c)
	s.Engine.Clear(c.Request.Context())
	c.JSON(http.StatusOK, s.Panel.View())
}

func (h *handlers) openDrawer(c *gin.Context) {
	s := currentSession(c)
	s.Panel.Open()
	c.JSON(http.StatusOK, s.Panel.View())
}

func (h *handlers) closeDrawer(c *gin.Context) {
	s := currentSession(c)
	s.Panel.Close()
	c.JSON(http.StatusOK, s.Panel.View())
}

// checkout is a stub: it checks stock once and never charges or reserves.
func (h *handlers) checkout(c *gin.Context) {
	snap := currentSession(c).Engine.Snapshot()
	if len(snap) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
		return
	}
	unavailable, err := h.deps.CatalogSvc.CheckStock(c.Request.Context(), snap)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := checkoutResponse{
		OK:          len(unavailable) == 0,
		Total:       snap.Total(),
		Count:       snap.Count(),
		Unavailable: unavailable,
	}
	if resp.Unavailable == nil {
		resp.Unavailable = []catalog.Unavailable{}
	}
	status := http.StatusOK
	if !resp.OK {
		status = http.StatusConflict
	}
	c.JSON(status, resp)
}
