package httpserver

import (
	"net/http"

	"storefront/internal/cart/authbridge"
	"storefront/internal/cart/presenter"
	customersvc "storefront/internal/service/customer"

	"github.com/gin-gonic/gin"
)

type signupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken string              `json:"access_token"`
	TokenType   string              `json:"token_type"`
	ExpiresIn   int                 `json:"expires_in"`
	Profile     customersvc.Profile `json:"profile"`
	Cart        presenter.View      `json:"cart"`
}

func (h *handlers) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cust, err := h.deps.CustomerSvc.Signup(c.Request.Context(), customersvc.SignupInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"profile": customersvc.ProfileOf(*cust)})
}

// login signs the shopper in and merges their guest cart into the stored one.
func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cust, token, err := h.deps.CustomerSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	s := currentSession(c)
	h.publish(c, s, authbridge.Event{Kind: authbridge.SignedIn, UserID: cust.ID})

	c.JSON(http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   h.deps.CustomerSvc.AccessTTLSeconds(),
		Profile:     customersvc.ProfileOf(*cust),
		Cart:        s.Panel.View(),
	})
}

func (h *handlers) logout(c *gin.Context) {
	if token := c.GetString(tokenKey); token != "" {
		if err := h.deps.CustomerSvc.Logout(c.Request.Context(), token); err != nil {
			h.writeError(c, err)
			return
		}
	}
	h.publish(c, currentSession(c), authbridge.Event{Kind: authbridge.SignedOut})
	c.Status(http.StatusNoContent)
}

func (h *handlers) me(c *gin.Context) {
	cust, ok := currentCustomer(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
		return
	}
	c.JSON(http.StatusOK, customersvc.ProfileOf(*cust))
}
