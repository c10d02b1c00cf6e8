package httpserver

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
	"storefront/internal/service/catalog"
	customersvc "storefront/internal/service/customer"
	"storefront/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// CatalogService is the catalog surface used by the handlers.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListProducts(ctx context.Context, f productrepo.Filter) ([]catalog.ProductDetail, error)
	Get(ctx context.Context, id string) (*catalog.ProductDetail, error)
	CartLine(ctx context.Context, productID string, size *string, qty int) (domain.CartLine, error)
	CheckStock(ctx context.Context, snap domain.Snapshot) ([]catalog.Unavailable, error)
}

// CustomerService is the auth surface used by the handlers.
type CustomerService interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, error)
	Login(ctx context.Context, email, password string) (*domain.Customer, string, error)
	Logout(ctx context.Context, token string) error
	LookupByToken(ctx context.Context, token string) (*domain.Customer, error)
	AccessTTLSeconds() int
}

// Sessions hands out the page session of a browser profile.
type Sessions interface {
	Get(ctx context.Context, profileID string) (*session.Session, error)
}

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps groups the services the router depends on.
type Deps struct {
	CatalogSvc    CatalogService
	CustomerSvc   CustomerService
	Sessions      Sessions
	// LocalStorage, when set, is pinged by /readyz next to the database.
	LocalStorage  Pinger
	CORSOrigins   []string
	SecureCookies bool
}

func (d Deps) validate() error {
	switch {
	case d.CatalogSvc == nil:
		return errors.New("httpserver: catalog service required")
	case d.CustomerSvc == nil:
		return errors.New("httpserver: customer service required")
	case d.Sessions == nil:
		return errors.New("httpserver: session registry required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(readinessChecks(db, deps.LocalStorage)))

	h := &handlers{logger: logger, deps: deps}

	router.GET("/categories", h.listCategories)
	router.GET("/products", h.listProducts)
	router.GET("/products/:id", h.getProduct)

	page := router.Group("/", profileMiddleware(deps.SecureCookies), h.sessionMiddleware, h.authMiddleware)
	page.POST("/auth/signup", h.signup)
	page.POST("/auth/login", h.login)
	page.POST("/auth/logout", h.logout)
	page.GET("/me", h.me)

	cart := page.Group("/cart")
	cart.GET("", h.getCart)
	cart.DELETE("", h.clearCart)
	cart.GET("/drawer", h.drawer)
	cart.POST("/items", h.addItem)
	cart.PUT("/items/:key", h.setQuantity)
	cart.POST("/items/:key/increment", h.increment)
	cart.POST("/items/:key/decrement", h.decrement)
	cart.DELETE("/items/:key", h.removeItem)
	cart.POST("/open", h.openDrawer)
	cart.POST("/close", h.closeDrawer)
	cart.POST("/checkout", h.checkout)

	return router, nil
}

type handlers struct {
	logger *zap.Logger
	deps   Deps
}
