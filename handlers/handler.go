// Package handlers exposes the ledger as a JSON API.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"stocks-simulator/auth"
	"stocks-simulator/ledger"
	"stocks-simulator/middleware"
	"stocks-simulator/models"
	"stocks-simulator/quotes"
)

// Ledger is the part of ledger.Service the API calls.
type Ledger interface {
	Register(ctx context.Context, username, password, confirmation string) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	Portfolio(ctx context.Context, accountID uint) (ledger.Summary, error)
	Buy(ctx context.Context, accountID uint, symbol, shares string) (models.Transaction, error)
	Sell(ctx context.Context, accountID uint, symbol, shares string) (models.Transaction, error)
	History(ctx context.Context, accountID uint) ([]models.Transaction, error)
	Quote(ctx context.Context, symbol string) (quotes.Quote, error)
}

type Handler struct {
	ledger Ledger
	issuer *auth.Issuer
	tokens auth.TokenStore
	logger *logrus.Entry
}

func New(l Ledger, issuer *auth.Issuer, tokens auth.TokenStore, logger *logrus.Entry) *Handler {
	return &Handler{
		ledger: l,
		issuer: issuer,
		tokens: tokens,
		logger: logger,
	}
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r gin.IRouter) {
	// Public routes
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/refresh", h.Refresh)
	r.POST("/logout", h.Logout)

	// Protected routes
	authed := r.Group("/")
	authed.Use(middleware.JWTAuth(h.issuer))
	{
		authed.GET("/portfolio", h.GetPortfolio)
		authed.POST("/buy", h.Buy)
		authed.POST("/sell", h.Sell)
		authed.GET("/history", h.GetHistory)
		authed.GET("/history.csv", h.GetHistoryCSV)
		authed.GET("/quote/:symbol", h.GetQuote)
	}
}

// NewRouter builds the gin engine serving the API.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(h.logger), middleware.NoCache())
	h.Routes(router)
	return router
}
