package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/cart/authbridge"
	"storefront/internal/domain"
	customersvc "storefront/internal/service/customer"
	"storefront/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	profileCookie = "sf_profile"
	profileMaxAge = 365 * 24 * 60 * 60

	profileKey  = "profileID"
	sessionKey  = "session"
	customerKey = "customer"
	tokenKey    = "token"
)

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// profileMiddleware identifies the browser profile by cookie, issuing a new
// profile id when the cookie is missing or malformed.
func profileMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(profileCookie)
		if err == nil {
			_, err = uuid.Parse(id)
		}
		if err != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(profileCookie, id, profileMaxAge, "/", "", secure, true)
		}
		c.Set(profileKey, id)
		c.Next()
	}
}

func (h *handlers) sessionMiddleware(c *gin.Context) {
	s, err := h.deps.Sessions.Get(c.Request.Context(), c.GetString(profileKey))
	if err != nil {
		if errors.Is(err, session.ErrClosed) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
			return
		}
		h.logger.Error("open page session", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Set(sessionKey, s)
	c.Next()
}

// authMiddleware resolves the bearer token and tells the page session's
// auth bridge who is signed in. Requests without a valid token are guests.
func (h *handlers) authMiddleware(c *gin.Context) {
	s := currentSession(c)
	token := bearerToken(c.GetHeader("Authorization"))
	ev := authbridge.Event{Kind: authbridge.SignedOut}
	if token != "" {
		cust, err := h.deps.CustomerSvc.LookupByToken(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set(customerKey, cust)
			c.Set(tokenKey, token)
			ev = authbridge.Event{Kind: authbridge.SessionRestored, UserID: cust.ID}
		case errors.Is(err, customersvc.ErrInvalidToken):
		default:
			h.logger.Error("token lookup", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}
	h.publish(c, s, ev)
	c.Next()
}

// publish forwards ev to the session's bridge. Cart sync failures are logged
// and never surface to the shopper.
func (h *handlers) publish(c *gin.Context, s *session.Session, ev authbridge.Event) {
	if err := s.Bridge.Handle(c.Request.Context(), ev); err != nil {
		h.logger.Warn("auth bridge", zap.String("profile_id", s.ProfileID), zap.Stringer("kind", ev.Kind), zap.Error(err))
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func currentCustomer(c *gin.Context) (*domain.Customer, bool) {
	v, ok := c.Get(customerKey)
	if !ok {
		return nil, false
	}
	return v.(*domain.Customer), true
}

// writeError maps domain errors to status codes.
func (h *handlers) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidVariant),
		errors.Is(err, customersvc.ErrInvalidEmail), errors.Is(err, customersvc.ErrWeakPassword):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSoldOut), errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, customersvc.ErrInvalidCredentials), errors.Is(err, customersvc.ErrInvalidToken):
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
